package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"poetryHub/auth"
	"poetryHub/domain"
	"poetryHub/errs"
)

func (s *Server) registerPostRoutes(r *mux.Router) {
	r.HandleFunc("/posts", s.handleListPosts).Methods("GET")
	r.HandleFunc("/posts/following", s.requireAuth(s.handleFollowingPosts)).Methods("GET")
	r.HandleFunc("/posts/{id:[0-9]+}", s.handleGetPost).Methods("GET")
	r.HandleFunc("/posts", s.requireAuth(s.handleCreatePost)).Methods("POST")
	r.HandleFunc("/posts/{id:[0-9]+}", s.requireAuth(s.handleUpdatePost)).Methods("PUT")
	r.HandleFunc("/posts/{id:[0-9]+}", s.requireAuth(s.handleDeletePost)).Methods("DELETE")
}

// handleListPosts handles the route "GET /posts?type&user_id&order_by".
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	userID, err := queryID(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	filter := domain.PostFilter{
		Type:    domain.PostType(r.URL.Query().Get("type")),
		UserID:  userID,
		OrderBy: r.URL.Query().Get("order_by"),
		Page:    page,
	}
	posts, total, err := s.pos.List(r.Context(), filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, posts, total, page)
}

// handleFollowingPosts handles the route "GET /posts/following".
// It returns the posts of the users the signed in user follows, newest first.
func (s *Server) handleFollowingPosts(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	posts, total, err := s.pos.Following(r.Context(), auth.UserID(r.Context()), page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, posts, total, page)
}

// handleGetPost handles the route "GET /posts/:id". Every fetch counts as one view.
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	post, err := s.pos.ByID(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.pos.IncrementView(r.Context(), id); err != nil {
		errs.LogError(r, err)
	} else {
		post.ViewCount++
	}
	writeJSON(w, r, http.StatusOK, post)
}

// handleCreatePost handles the route "POST /posts".
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var post domain.Post
	if err := decodeBody(r, &post); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// The post always belongs to the signed in user.
	post.ID = 0
	post.UserID = auth.UserID(r.Context())
	post.LikeCount, post.CommentCount, post.CollectCount, post.ViewCount = 0, 0, 0, 0

	if err := s.pos.Create(r.Context(), &post); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, &post)
}

// handleUpdatePost handles the route "PUT /posts/:id". Only the owner may update.
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var upd domain.PostUpdate
	if err := decodeBody(r, &upd); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	post, err := s.pos.Update(r.Context(), auth.UserID(r.Context()), id, &upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, post)
}

// handleDeletePost handles the route "DELETE /posts/:id". Only the owner may delete.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.pos.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
