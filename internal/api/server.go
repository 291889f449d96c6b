// Package api provides the HTTP API server and handlers for BugHive.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bughive/bughive-server/internal/http/response"
	"github.com/bughive/bughive-server/internal/metrics"
	"github.com/bughive/bughive-server/internal/ratelimit"
	"github.com/bughive/bughive-server/internal/store"
)

// Options holds the optional parts of the server. The zero value serves
// the API with CORS for every origin, no rate limiting and no metrics.
type Options struct {
	AllowedOrigins []string
	AuthLimiter    *ratelimit.KeyedRateLimiter
	Metrics        metrics.Recorder
	MetricsHandler http.Handler
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.Store
	services *Services
	opts     Options
	router   *chi.Mux
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		store:    st,
		services: services,
		opts:     opts,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(s.recordMetrics)
	s.router.Use(s.recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)
	if s.opts.MetricsHandler != nil {
		s.router.Method(http.MethodGet, "/metrics", s.opts.MetricsHandler)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.With(s.rateLimit).Post("/login", s.handleLogin)

		r.Route("/users", func(r chi.Router) {
			r.With(s.rateLimit).Post("/", s.handleRegister)
			r.Get("/", s.handleListUsers)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/{id}", s.handleGetUser)
				r.Put("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})
		})

		r.Route("/bugs", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateBug)
			r.Get("/", s.handleListBugs)
			r.Delete("/", s.handleDeleteAllBugs)
			r.Get("/{id}", s.handleGetBug)
			r.Put("/{id}", s.handleUpdateBug)
			r.Delete("/{id}", s.handleDeleteBug)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateTag)
			r.Get("/", s.handleListTags)
			r.Delete("/", s.handleDeleteAllTags)
			r.Get("/{id}", s.handleGetTag)
			r.Put("/{id}", s.handleUpdateTag)
			r.Delete("/{id}", s.handleDeleteTag)
		})
	})

	s.router.NotFound(s.handleUnknownEndpoint)
	s.router.MethodNotAllowed(s.handleUnknownEndpoint)
}

// handleUnknownEndpoint answers every route the API does not serve.
func (s *Server) handleUnknownEndpoint(w http.ResponseWriter, _ *http.Request) {
	response.Error(w, http.StatusNotFound, "unknown endpoint", s.logger)
}
