package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"poetryHub/domain"
	"poetryHub/errs"
)

func (s *Server) registerPoetryRoutes(r *mux.Router) {
	r.HandleFunc("/poetries", s.handleListPoetries).Methods("GET")
	r.HandleFunc("/poetries/{id:[0-9]+}", s.handleGetPoetry).Methods("GET")
	r.HandleFunc("/poetries", s.requireAuth(s.handleCreatePoetry)).Methods("POST")
	r.HandleFunc("/poetries/{id:[0-9]+}", s.requireAuth(s.handleUpdatePoetry)).Methods("PUT")
	r.HandleFunc("/poetries/{id:[0-9]+}", s.requireAuth(s.handleDeletePoetry)).Methods("DELETE")
}

// handleListPoetries handles the route "GET /poetries".
// It supports the keyword, dynasty, type, author_id, sort_by and order filters.
func (s *Server) handleListPoetries(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	authorID, err := queryID(r, "author_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := domain.PoetryFilter{
		Keyword:  q.Get("keyword"),
		Dynasty:  q.Get("dynasty"),
		Type:     q.Get("type"),
		AuthorID: authorID,
		SortBy:   q.Get("sort_by"),
		Order:    q.Get("order"),
		Page:     page,
	}

	poetries, total, err := s.ps.List(r.Context(), filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, poetries, total, page)
}

// handleGetPoetry handles the route "GET /poetries/:id".
// Every successful fetch counts as one read.
func (s *Server) handleGetPoetry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	poetry, err := s.ps.ByID(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.ps.IncrementRead(r.Context(), id); err != nil {
		errs.LogError(r, err)
	} else {
		poetry.ReadCount++
	}
	writeJSON(w, r, http.StatusOK, poetry)
}

// handleCreatePoetry handles the route "POST /poetries".
func (s *Server) handleCreatePoetry(w http.ResponseWriter, r *http.Request) {
	var poetry domain.Poetry
	if err := decodeBody(r, &poetry); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Counters and ids are owned by the server.
	poetry.ID = 0
	poetry.ReadCount, poetry.LikeCount, poetry.CommentCount, poetry.CollectCount = 0, 0, 0, 0

	if err := s.ps.Create(r.Context(), &poetry); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, &poetry)
}

// handleUpdatePoetry handles the route "PUT /poetries/:id".
// Only the fields present in the json body are changed.
func (s *Server) handleUpdatePoetry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var upd domain.PoetryUpdate
	if err := decodeBody(r, &upd); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	poetry, err := s.ps.Update(r.Context(), id, &upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, poetry)
}

// handleDeletePoetry handles the route "DELETE /poetries/:id".
func (s *Server) handleDeletePoetry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.ps.Delete(r.Context(), id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) registerAuthorRoutes(r *mux.Router) {
	r.HandleFunc("/authors", s.handleListAuthors).Methods("GET")
	r.HandleFunc("/authors/hot", s.handleHotAuthors).Methods("GET")
	r.HandleFunc("/authors/{id:[0-9]+}", s.handleGetAuthor).Methods("GET")
	r.HandleFunc("/authors", s.requireAuth(s.handleCreateAuthor)).Methods("POST")
	r.HandleFunc("/authors/{id:[0-9]+}", s.requireAuth(s.handleUpdateAuthor)).Methods("PUT")
	r.HandleFunc("/authors/{id:[0-9]+}", s.requireAuth(s.handleDeleteAuthor)).Methods("DELETE")
}

// handleHotAuthors handles the route "GET /authors/hot?limit".
func (s *Server) handleHotAuthors(w http.ResponseWriter, r *http.Request) {
	var params hotAuthorsParams
	var err error
	if params.Limit, err = queryInt(r, "limit", 10); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := validateParams(params); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	authors, err := s.as.Hot(r.Context(), params.Limit)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, authors)
}

func (s *Server) handleListAuthors(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	authors, total, err := s.as.List(r.Context(), r.URL.Query().Get("dynasty"), page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, authors, total, page)
}

func (s *Server) handleGetAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	author, err := s.as.ByID(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, author)
}

func (s *Server) handleCreateAuthor(w http.ResponseWriter, r *http.Request) {
	var author domain.Author
	if err := decodeBody(r, &author); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	author.ID = 0
	if err := s.as.Create(r.Context(), &author); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, &author)
}

func (s *Server) handleUpdateAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var author domain.Author
	if err := decodeBody(r, &author); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	author.ID = id
	if err := s.as.Update(r.Context(), &author); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &author)
}

func (s *Server) handleDeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.as.Delete(r.Context(), id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
