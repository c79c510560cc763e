package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"poetryHub/auth"
	"poetryHub/domain"
	"poetryHub/errs"
)

func (s *Server) registerRecommendRoutes(r *mux.Router) {
	r.HandleFunc("/recommend/hot", s.handleHot).Methods("GET")
	r.HandleFunc("/recommend/daily", s.handleDaily).Methods("GET")
	r.HandleFunc("/recommend/random", s.handleRandom).Methods("GET")
	r.HandleFunc("/recommend/similar/{id:[0-9]+}", s.handleSimilar).Methods("GET")
	r.HandleFunc("/recommend/personalized", s.requireAuth(s.handlePersonalized)).Methods("GET")
}

// handleHot handles the route "GET /recommend/hot?limit&days".
// Without days it uses the same window as the personalized fallback.
func (s *Server) handleHot(w http.ResponseWriter, r *http.Request) {
	var params hotParams
	var err error
	if params.Limit, err = queryInt(r, "limit", 10); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if params.Days, err = queryInt(r, "days", s.rs.HotWindow()); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := validateParams(params); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	poetries, err := s.rs.Hot(r.Context(), params.Limit, params.Days)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, poetries)
}

// handleDaily handles the route "GET /recommend/daily?limit".
func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	var params dailyParams
	var err error
	if params.Limit, err = queryInt(r, "limit", 10); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := validateParams(params); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	poetries, err := s.rs.Daily(r.Context(), params.Limit)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, poetries)
}

// handleRandom handles the route "GET /recommend/random?limit&exclude_ids".
func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	var params randomParams
	var err error
	if params.Limit, err = queryInt(r, "limit", 10); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if params.ExcludeIDs, err = csvIDs(r, "exclude_ids"); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := validateParams(params); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	poetries, err := s.rs.Random(r.Context(), params.Limit, params.ExcludeIDs)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, poetries)
}

// handleSimilar handles the route "GET /recommend/similar/:id?strategy&limit".
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	params := similarParams{Strategy: r.URL.Query().Get("strategy")}
	if params.Strategy == "" {
		params.Strategy = string(domain.StrategyDynasty)
	}
	if params.Limit, err = queryInt(r, "limit", 10); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := validateParams(params); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	poetries, err := s.rs.Similar(r.Context(), id, domain.Strategy(params.Strategy), params.Limit)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, poetries)
}

// handlePersonalized handles the route "GET /recommend/personalized?limit".
func (s *Server) handlePersonalized(w http.ResponseWriter, r *http.Request) {
	var params personalizedParams
	var err error
	if params.Limit, err = queryInt(r, "limit", 20); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := validateParams(params); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	poetries, err := s.rs.Personalized(r.Context(), auth.UserID(r.Context()), params.Limit)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, poetries)
}
