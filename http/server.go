// Package http exposes the poetryHub services as a JSON api.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"poetryHub/crud"
	"poetryHub/domain"
	"poetryHub/errs"
	"poetryHub/logger"
	"poetryHub/metrics"
)

// Config holds the settings of the http layer.
type Config struct {
	// IsProd marks cookies as secure.
	IsProd bool
	// CSRFKey enables CSRF protection for unsafe methods when it is set. It must be 32 bytes long.
	CSRFKey string
	// TrustedOrigins are hosts, e.g. "localhost:3000", allowed to send cross origin unsafe requests.
	TrustedOrigins []string
}

// Server provides most of the http functionality of this app, namely routing,
// request handling, and middleware. It also performs authentication and
// authorization before handing things over to one of the crud services.
type Server struct {
	router *mux.Router
	cfg    Config
	log    *logger.Logger

	us  domain.UserService
	as  domain.AuthorService
	ps  domain.PoetryService
	is  domain.InteractionService
	rs  domain.RecommendService
	pos domain.PostService
	cs  domain.CommentService
	fs  domain.FollowService
	ms  domain.MessageService
	ss  domain.SearchService

	gatherer prometheus.Gatherer
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the services passed in.
// A nil gatherer serves no /metrics route.
func NewServer(cfg Config, log *logger.Logger, services *crud.Services, gatherer prometheus.Gatherer) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		router:   mux.NewRouter(),
		cfg:      cfg,
		log:      log.With("component", "http"),
		us:       services.User,
		as:       services.Author,
		ps:       services.Poetry,
		is:       services.Interaction,
		rs:       services.Recommend,
		pos:      services.Post,
		cs:       services.Comment,
		fs:       services.Follow,
		ms:       services.Message,
		ss:       services.Search,
		gatherer: gatherer,
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "Route not found."))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if gatherer != nil {
		s.router.Handle("/metrics", metrics.Handler(gatherer)).Methods("GET")
	}

	// Register routes of the auth system.
	s.registerAuthRoutes(s.router)
	s.registerUserRoutes(s.router)

	// Register routes of the crud system.
	s.registerPoetryRoutes(s.router)
	s.registerAuthorRoutes(s.router)
	s.registerInteractionRoutes(s.router)
	s.registerRecommendRoutes(s.router)
	s.registerPostRoutes(s.router)
	s.registerCommentRoutes(s.router)
	s.registerFollowRoutes(s.router)
	s.registerMessageRoutes(s.router)
	s.registerSearchRoutes(s.router)

	// Set up middleware that needs to run on every request.
	mws := []mux.MiddlewareFunc{s.requestID}
	if cfg.CSRFKey != "" {
		// A token is handed out in the X-CSRF-Token header of GET /csrf.
		mws = append(mws, csrf.Protect([]byte(cfg.CSRFKey),
			csrf.Secure(cfg.IsProd),
			csrf.Path("/"),
			csrf.TrustedOrigins(cfg.TrustedOrigins),
			csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				errs.ReturnError(w, r, errs.Errorf(errs.EFORBIDDEN, "Invalid CSRF token."))
			}))))
		s.router.HandleFunc("/csrf", s.handleCSRF).Methods("GET")
	}
	mws = append(mws, setContentTypeJSON, s.checkUser)
	s.router.Use(mws...)
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-CSRF-Token", csrf.Token(r))
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errs.LogError(r, err)
	}
}

// pageResponse is the body of every paged listing.
type pageResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func writePage(w http.ResponseWriter, r *http.Request, items interface{}, total int64, page domain.Page) {
	page = page.Normalize()
	writeJSON(w, r, http.StatusOK, pageResponse{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}
