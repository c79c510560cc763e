package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"poetryHub/auth"
	"poetryHub/errs"
)

func (s *Server) registerFollowRoutes(r *mux.Router) {
	r.HandleFunc("/follow/{user_id:[0-9]+}", s.requireAuth(s.handleFollow)).Methods("POST")
	r.HandleFunc("/follow/{user_id:[0-9]+}", s.requireAuth(s.handleUnfollow)).Methods("DELETE")
	r.HandleFunc("/users/{user_id:[0-9]+}/following", s.handleListFollowing).Methods("GET")
	r.HandleFunc("/users/{user_id:[0-9]+}/followers", s.handleListFollowers).Methods("GET")
	r.HandleFunc("/users/{user_id:[0-9]+}/friends", s.handleListFriends).Methods("GET")
}

// followResponse reports whether the request changed anything and the resulting state.
type followResponse struct {
	Applied   bool `json:"applied"`
	Following bool `json:"following"`
}

// handleFollow handles the route "POST /follow/:user_id".
// Following yourself or someone already followed returns applied=false.
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	followeeID, err := pathID(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	me := auth.UserID(r.Context())
	applied, err := s.fs.Follow(r.Context(), me, followeeID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, followResponse{Applied: applied, Following: me != followeeID})
}

// handleUnfollow handles the route "DELETE /follow/:user_id".
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	followeeID, err := pathID(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	applied, err := s.fs.Unfollow(r.Context(), auth.UserID(r.Context()), followeeID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, followResponse{Applied: applied, Following: false})
}

// handleListFollowing handles the route "GET /users/:user_id/following".
func (s *Server) handleListFollowing(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	users, total, err := s.fs.Following(r.Context(), userID, page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, users, total, page)
}

// handleListFollowers handles the route "GET /users/:user_id/followers".
func (s *Server) handleListFollowers(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	users, total, err := s.fs.Followers(r.Context(), userID, page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, users, total, page)
}

// handleListFriends handles the route "GET /users/:user_id/friends", the mutual follows of a user.
func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	users, err := s.fs.Friends(r.Context(), userID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, users)
}
