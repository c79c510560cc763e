package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"poetryHub/auth"
	"poetryHub/domain"
	"poetryHub/errs"
)

func (s *Server) registerUserRoutes(r *mux.Router) {
	// Get the public profile of a specific user.
	r.HandleFunc("/users/{user_id:[0-9]+}", s.handleGetUser).Methods("GET")

	// Update the signed in user's data.
	r.HandleFunc("/profile", s.requireAuth(s.handleUpdateProfile)).Methods("PUT")
}

// userProfile is a user together with their follow counts.
type userProfile struct {
	*domain.User
	Following   int64 `json:"following_count"`
	Followers   int64 `json:"follower_count"`
	IsFollowing *bool `json:"is_following,omitempty"`
}

// handleGetUser handles the route "GET /users/:user_id".
// It returns the user's basic data and follow counts.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	// Parse the User ID from the url.
	userID, err := pathID(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Fetch the user from the database.
	user, err := s.us.ByID(r.Context(), userID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	profile := userProfile{User: user}

	// Get the number of followers and followees of the user.
	counts, err := s.fs.Counts(r.Context(), userID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	profile.Following, profile.Followers = counts.Following, counts.Followers

	// Check if the signed in user is following that user.
	if me := auth.UserID(r.Context()); me > 0 && me != userID {
		following, err := s.fs.IsFollowing(r.Context(), me, userID)
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}
		profile.IsFollowing = &following
	}

	writeJSON(w, r, http.StatusOK, profile)
}

// profileUpdate holds the user fields that can be changed through the api.
type profileUpdate struct {
	Nickname *string `json:"nickname"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// handleUpdateProfile handles the route "PUT /profile".
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd profileUpdate
	if err := decodeBody(r, &upd); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Work on a copy so a failed update leaves the context user untouched.
	user := *auth.GetUser(r.Context())
	if upd.Nickname != nil {
		user.Nickname = *upd.Nickname
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.Password != nil {
		user.Password = *upd.Password
	}

	if err := s.us.Update(r.Context(), &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &user)
}
