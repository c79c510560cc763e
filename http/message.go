package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"poetryHub/auth"
	"poetryHub/domain"
	"poetryHub/errs"
)

func (s *Server) registerMessageRoutes(r *mux.Router) {
	r.HandleFunc("/messages", s.requireAuth(s.handleListMessages)).Methods("GET")
	r.HandleFunc("/messages/unread", s.requireAuth(s.handleUnreadMessages)).Methods("GET")
	r.HandleFunc("/messages/read", s.requireAuth(s.handleMarkAllRead)).Methods("PUT")
	r.HandleFunc("/messages/{id:[0-9]+}", s.requireAuth(s.handleGetMessage)).Methods("GET")
	r.HandleFunc("/messages/{id:[0-9]+}", s.requireAuth(s.handleDeleteMessage)).Methods("DELETE")
	r.HandleFunc("/messages/{id:[0-9]+}/read", s.requireAuth(s.handleMarkRead)).Methods("PUT")
}

// messageType reads the optional type query parameter.
func messageType(r *http.Request) (domain.MessageType, error) {
	typ := domain.MessageType(r.URL.Query().Get("type"))
	if typ == "" {
		return "", nil
	}
	for _, t := range domain.MessageTypes {
		if t == typ {
			return typ, nil
		}
	}
	return "", errs.Errorf(errs.EINVALID, "Unknown message type %q.", typ)
}

// handleListMessages handles the route "GET /messages?type&unread".
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	typ, err := messageType(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	filter := domain.MessageFilter{
		Type:       typ,
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Page:       page,
	}
	messages, total, err := s.ms.List(r.Context(), auth.UserID(r.Context()), filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writePage(w, r, messages, total, page)
}

// unreadResponse is the body of "GET /messages/unread".
type unreadResponse struct {
	Total  int64                        `json:"total"`
	ByType map[domain.MessageType]int64 `json:"by_type"`
}

// handleUnreadMessages handles the route "GET /messages/unread".
func (s *Server) handleUnreadMessages(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	total, err := s.ms.UnreadCount(r.Context(), userID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	stats, err := s.ms.Stats(r.Context(), userID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, unreadResponse{Total: total, ByType: stats})
}

// handleGetMessage handles the route "GET /messages/:id".
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	msg, err := s.ms.ByID(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.ms.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkRead handles the route "PUT /messages/:id/read".
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.ms.MarkRead(r.Context(), auth.UserID(r.Context()), id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkAllRead handles the route "PUT /messages/read?type".
func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	typ, err := messageType(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	n, err := s.ms.MarkAllRead(r.Context(), auth.UserID(r.Context()), typ)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"updated": n})
}
