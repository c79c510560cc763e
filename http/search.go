package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"poetryHub/domain"
	"poetryHub/errs"
)

func (s *Server) registerSearchRoutes(r *mux.Router) {
	r.HandleFunc("/search/poetries", s.handleSearchPoetries).Methods("GET")
	r.HandleFunc("/search/suggest", s.handleSuggest).Methods("GET")
}

// handleSearchPoetries handles the route
// "GET /search/poetries?keyword&dynasty&type&tags&author_name&page&page_size".
func (s *Server) handleSearchPoetries(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	q := r.URL.Query()
	query := domain.SearchQuery{
		Keyword:    q.Get("keyword"),
		Dynasty:    q.Get("dynasty"),
		Type:       q.Get("type"),
		AuthorName: q.Get("author_name"),
		Tags:       csvParam(r, "tags"),
		Page:       page,
	}

	result, err := s.ss.Search(r.Context(), query)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pageResponse{
		Items:    result.Hits,
		Total:    result.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

// handleSuggest handles the route "GET /search/suggest?prefix&size".
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	params := suggestParams{Prefix: r.URL.Query().Get("prefix")}
	var err error
	if params.Size, err = queryInt(r, "size", 10); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := validateParams(params); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	suggestions, err := s.ss.Suggest(r.Context(), params.Prefix, params.Size)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, suggestions)
}
