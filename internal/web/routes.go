package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/smartlock-gate/internal/metrics"
	"github.com/kozaktomas/smartlock-gate/internal/web/handlers"
	"github.com/kozaktomas/smartlock-gate/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	gateHandler := handlers.NewGateHandler(s.deps.Terminal, s.logger)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	if s.deps.Gatherer != nil {
		s.router.Handle("/metrics", metrics.Handler(s.deps.Gatherer))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		// Long-lived reads
		r.Get("/gate/status", gateHandler.Status)
		r.Get("/gate/stream", gateHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(time.Minute))
			r.Get("/gate/events", gateHandler.Events)

			if s.deps.Journal != nil {
				journalHandler := handlers.NewJournalHandler(s.deps.Journal, s.logger)
				r.Get("/journal", journalHandler.List)
				r.Get("/journal/summary", journalHandler.Summary)
			}
		})

		// Operator triggers
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOperatorToken(s.config.OperatorToken))
			r.Use(s.limiter.Middleware())

			r.Post("/gate/scan", gateHandler.Scan)
			r.Post("/gate/face", gateHandler.Face)
			r.Post("/gate/cancel", gateHandler.Cancel)
		})
	})
}
