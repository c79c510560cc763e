package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"poetryHub/auth"
	"poetryHub/errs"
)

// registerInteractionRoutes is a helper for registering all like and collect routes.
// A repeated like or unlike is not an error: the response reports applied=false instead.
func (s *Server) registerInteractionRoutes(r *mux.Router) {
	r.HandleFunc("/interactions/like/{poetry_id:[0-9]+}", s.requireAuth(s.handleLike)).Methods("POST")
	r.HandleFunc("/interactions/like/{poetry_id:[0-9]+}", s.requireAuth(s.handleUnlike)).Methods("DELETE")
	r.HandleFunc("/interactions/like/{poetry_id:[0-9]+}/check", s.requireAuth(s.handleCheckLiked)).Methods("GET")

	r.HandleFunc("/interactions/collect/{poetry_id:[0-9]+}", s.requireAuth(s.handleCollect)).Methods("POST")
	r.HandleFunc("/interactions/collect/{poetry_id:[0-9]+}", s.requireAuth(s.handleUncollect)).Methods("DELETE")
	r.HandleFunc("/interactions/collect/{poetry_id:[0-9]+}/check", s.requireAuth(s.handleCheckCollected)).Methods("GET")

	r.HandleFunc("/interactions/likes", s.requireAuth(s.handleListLiked)).Methods("GET")
	r.HandleFunc("/interactions/collections", s.requireAuth(s.handleListCollected)).Methods("GET")
}

// likeResponse is the body of like, unlike and check requests.
type likeResponse struct {
	Applied *bool `json:"applied,omitempty"`
	Liked   bool  `json:"liked"`
}

// collectResponse is the body of collect, uncollect and check requests.
type collectResponse struct {
	Applied   *bool `json:"applied,omitempty"`
	Collected bool  `json:"collected"`
}

type edgeFn func(ctx context.Context, userID, poetryID int64) (bool, error)

// runEdge parses the poetry id from the url and applies fn for the signed in user.
func runEdge(w http.ResponseWriter, r *http.Request, fn edgeFn) (bool, bool) {
	poetryID, err := pathID(r, "poetry_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return false, false
	}
	result, err := fn(r.Context(), auth.UserID(r.Context()), poetryID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return false, false
	}
	return result, true
}

// handleLike handles the route "POST /interactions/like/:poetry_id".
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	if applied, ok := runEdge(w, r, s.is.Like); ok {
		writeJSON(w, r, http.StatusOK, likeResponse{Applied: &applied, Liked: true})
	}
}

// handleUnlike handles the route "DELETE /interactions/like/:poetry_id".
func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	if applied, ok := runEdge(w, r, s.is.Unlike); ok {
		writeJSON(w, r, http.StatusOK, likeResponse{Applied: &applied, Liked: false})
	}
}

func (s *Server) handleCheckLiked(w http.ResponseWriter, r *http.Request) {
	if liked, ok := runEdge(w, r, s.is.CheckLiked); ok {
		writeJSON(w, r, http.StatusOK, likeResponse{Liked: liked})
	}
}

// handleCollect handles the route "POST /interactions/collect/:poetry_id".
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if applied, ok := runEdge(w, r, s.is.Collect); ok {
		writeJSON(w, r, http.StatusOK, collectResponse{Applied: &applied, Collected: true})
	}
}

// handleUncollect handles the route "DELETE /interactions/collect/:poetry_id".
func (s *Server) handleUncollect(w http.ResponseWriter, r *http.Request) {
	if applied, ok := runEdge(w, r, s.is.Uncollect); ok {
		writeJSON(w, r, http.StatusOK, collectResponse{Applied: &applied, Collected: false})
	}
}

func (s *Server) handleCheckCollected(w http.ResponseWriter, r *http.Request) {
	if collected, ok := runEdge(w, r, s.is.CheckCollected); ok {
		writeJSON(w, r, http.StatusOK, collectResponse{Collected: collected})
	}
}

// handleListLiked handles the route "GET /interactions/likes", most recent like first.
func (s *Server) handleListLiked(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	poetries, total, err := s.ps.LikedBy(r.Context(), auth.UserID(r.Context()), page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, poetries, total, page)
}

// handleListCollected handles the route "GET /interactions/collections", most recent first.
func (s *Server) handleListCollected(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	poetries, total, err := s.ps.CollectedBy(r.Context(), auth.UserID(r.Context()), page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, poetries, total, page)
}
