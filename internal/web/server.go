package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kozaktomas/smartlock-gate/internal/config"
	"github.com/kozaktomas/smartlock-gate/internal/web/handlers"
	"github.com/kozaktomas/smartlock-gate/internal/web/middleware"
)

// Dependencies are the components served over HTTP. Journal and Gatherer
// are optional.
type Dependencies struct {
	Terminal handlers.Terminal
	Journal  handlers.JournalReader
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server represents the web server
type Server struct {
	config     *config.WebConfig
	deps       Dependencies
	router     *chi.Mux
	httpServer *http.Server
	limiter    *middleware.TriggerLimiter
	logger     *slog.Logger
}

// NewServer creates a new web server
func NewServer(cfg *config.WebConfig, deps Dependencies) *Server {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		deps:    deps,
		router:  r,
		limiter: middleware.NewTriggerLimiter(cfg.RateLimit, cfg.RateBurst, 10*time.Minute),
		logger:  logger,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // status streams stay open
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")

	s.limiter.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
