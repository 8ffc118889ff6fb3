// Package server exposes the search engine, content collection and
// comment store over HTTP.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/foliolabs/folio/pkg/comments"
	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/logging"
	"github.com/foliolabs/folio/pkg/ratelimit"
	"github.com/foliolabs/folio/pkg/search"
)

// Options wires the server's collaborators. Engine is required;
// Searcher defaults to the engine and may be swapped for the bleve
// index. Comments and Limiter are optional.
type Options struct {
	Engine   *search.Engine
	Searcher search.Searcher
	Store    *content.Store
	Comments *comments.Store
	Limiter  *ratelimit.Limiter
	Logger   *logging.Logger

	// AdminTokenHash is the bcrypt hash admin requests must match.
	// Empty disables the admin routes.
	AdminTokenHash string

	// MaxBodyBytes caps POST bodies; zero means 64 KiB.
	MaxBodyBytes int64
}

// Server is the folio HTTP API.
type Server struct {
	opts     Options
	logger   *logging.Logger
	router   *mux.Router
	upgrader websocket.Upgrader
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if opts.Searcher == nil {
		opts.Searcher = opts.Engine
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 * 1024
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger.WithComponent("server"),
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	s.routes()
	return s
}

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.limitMiddleware)

	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/search/live", s.handleLiveSearch).Methods(http.MethodGet)
	api.HandleFunc("/related/{id}", s.handleRelated).Methods(http.MethodGet)
	api.HandleFunc("/items", s.handleItems).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	sized := ratelimit.RequestSizeLimiter(s.opts.MaxBodyBytes)
	api.HandleFunc("/posts/{slug}/comments", s.handleListComments).Methods(http.MethodGet)
	api.Handle("/posts/{slug}/comments", sized(s.handleCreateComment)).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/comments", s.handleAdminComments).Methods(http.MethodGet)
	admin.Handle("/comments/{id}/status", sized(s.handleSetCommentStatus)).Methods(http.MethodPost)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

// limitMiddleware applies the injected rate limiter when one is
// configured.
func (s *Server) limitMiddleware(next http.Handler) http.Handler {
	if s.opts.Limiter == nil {
		return next
	}
	return s.opts.Limiter.Middleware(next.ServeHTTP)
}
