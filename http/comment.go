package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"poetryHub/auth"
	"poetryHub/domain"
	"poetryHub/errs"
)

func (s *Server) registerCommentRoutes(r *mux.Router) {
	r.HandleFunc("/comments", s.handleListComments).Methods("GET")
	r.HandleFunc("/comments/user/my", s.requireAuth(s.handleMyComments)).Methods("GET")
	r.HandleFunc("/comments/{id:[0-9]+}", s.handleGetComment).Methods("GET")
	r.HandleFunc("/comments/{id:[0-9]+}/replies", s.handleListReplies).Methods("GET")
	r.HandleFunc("/comments", s.requireAuth(s.handleCreateComment)).Methods("POST")
	r.HandleFunc("/comments/{id:[0-9]+}", s.requireAuth(s.handleUpdateComment)).Methods("PUT")
	r.HandleFunc("/comments/{id:[0-9]+}", s.requireAuth(s.handleDeleteComment)).Methods("DELETE")
}

// handleListComments handles the route "GET /comments?target_type&target_id".
// It returns the top level comments of the target, newest first.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	targetID, err := strconv.ParseInt(r.URL.Query().Get("target_id"), 10, 64)
	if err != nil || targetID <= 0 {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid target_id."))
		return
	}
	targetType := domain.TargetType(r.URL.Query().Get("target_type"))

	comments, total, err := s.cs.ListByTarget(r.Context(), targetType, targetID, page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, comments, total, page)
}

// handleMyComments handles the route "GET /comments/user/my", newest first.
func (s *Server) handleMyComments(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	comments, total, err := s.cs.ByUser(r.Context(), auth.UserID(r.Context()), page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, comments, total, page)
}

// handleGetComment handles the route "GET /comments/:id".
func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	comment, err := s.cs.ByID(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, comment)
}

// handleListReplies handles the route "GET /comments/:id/replies", oldest first.
func (s *Server) handleListReplies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	replies, total, err := s.cs.Replies(r.Context(), id, page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, replies, total, page)
}

// handleCreateComment handles the route "POST /comments".
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var comment domain.Comment
	if err := decodeBody(r, &comment); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	comment.ID = 0
	comment.UserID = auth.UserID(r.Context())
	comment.LikeCount, comment.ReplyCount = 0, 0

	if err := s.cs.Create(r.Context(), &comment); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, &comment)
}

// handleUpdateComment handles the route "PUT /comments/:id". Only the content can change.
func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	comment, err := s.cs.Update(r.Context(), auth.UserID(r.Context()), id, body.Content)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, comment)
}

// handleDeleteComment handles the route "DELETE /comments/:id". Only the author may delete.
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.cs.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
