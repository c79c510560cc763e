package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"poetryHub/auth"
	"poetryHub/domain"
	"poetryHub/errs"
)

func (s *Server) registerAuthRoutes(r *mux.Router) {
	r.HandleFunc("/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/logout", s.requireAuth(s.handleLogout)).Methods("POST")
	r.HandleFunc("/profile", s.requireAuth(s.handleProfile)).Methods("GET")
}

// credentials is the json body of register and login requests.
type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// handleRegister handles the route "POST /register".
// It creates a new user and signs them in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeBody(r, &body); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := domain.User{
		Username: body.Username,
		Email:    body.Email,
		Nickname: body.Nickname,
		Password: body.Password,
	}
	if err := s.us.Create(r.Context(), &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// Create always sets a remember token, so signing in only sets the cookie.
	if err := s.signIn(r.Context(), w, &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, &user)
}

// handleLogin handles the route "POST /login".
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeBody(r, &body); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user, err := s.us.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.signIn(r.Context(), w, user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

// handleLogout handles the route "POST /logout".
// It expires the cookie and rotates the remember token so that copies of it stop working.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.IsProd,
	})

	user := auth.GetUser(r.Context())
	token, err := s.us.MakeRememberToken()
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	user.Remember = token
	if err := s.us.Update(r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "successfully logged out"})
}

// handleProfile handles the route "GET /profile" and returns the signed in user.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, auth.GetUser(r.Context()))
}

// signIn sets the remember token cookie of user, creating a new token first if needed.
func (s *Server) signIn(ctx context.Context, w http.ResponseWriter, user *domain.User) error {
	if user.Remember == "" {
		token, err := s.us.MakeRememberToken()
		if err != nil {
			return err
		}
		user.Remember = token
		if err := s.us.Update(ctx, user); err != nil {
			return err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookie,
		Value:    user.Remember,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.IsProd,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
