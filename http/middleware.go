package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"poetryHub/auth"
	"poetryHub/errs"
	"poetryHub/logger"
)

const (
	rememberCookie  = "remember_token"
	requestIDHeader = "X-Request-ID"
)

// requestID tags every request with an id, puts a request scoped logger into
// its context and logs the request once it has been served.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		log := s.log.With("request_id", id)
		r = r.WithContext(logger.NewContext(r.Context(), log))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}

// statusWriter remembers the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// checkUser looks up the user belonging to the remember token cookie and puts it
// into the request context. Requests without a valid cookie pass through anonymously.
func (s *Server) checkUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(rememberCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.us.ByRemember(r.Context(), cookie.Value)
		if err != nil {
			if errs.ErrorCode(err) == errs.EINTERNAL {
				errs.LogError(r, err)
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.SetUser(r.Context(), user)
		ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("user_id", user.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects requests that checkUser could not identify.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "Please log in."))
			return
		}
		next(w, r)
	}
}
