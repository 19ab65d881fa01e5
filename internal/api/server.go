package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"afunding/internal/config"
	"afunding/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server represents the HTTP API server
// It is the UI boundary: GET requests mount views, POST submits the form
type Server struct {
	httpServer *http.Server
	router     chi.Router
	sessions   *session.Manager
	port       uint16
}

// NewServer creates a new API server instance
func NewServer(cfg config.HTTP, sessions *session.Manager) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		sessions: sessions,
		port:     cfg.Port,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Use(middleware.Recoverer)

	// Core endpoints
	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.handleMetrics())

	// Session scoped views
	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/block", s.handleBlock)
		r.Get("/campaigns", s.handleListCampaigns)
		r.Post("/campaigns", s.handleCreateCampaign)
		r.Get("/campaigns/status", s.handleStatus)
	})
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/block", "/campaigns", "/campaigns/status"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
