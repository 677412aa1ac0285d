// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"

	"github.com/ManuGH/buildcfg/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the full handler tree with the canonical middleware stack.
func (s *Server) Routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		EnableSecurityHeaders: true,
		CSP:                   middleware.DefaultCSP,
		EnableMetrics:         true,
		TracingService:        "buildcfg-api",
		EnableLogging:         true,
		RateLimitPerMinute:    httprateLimit(s.cfg.RateLimitEnabled, s.cfg.RateLimitRPS),
	})

	// Probes stay outside auth so orchestrators can always reach them.
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/livez", s.handleLive)

	// Metrics move to their own listener when one is configured.
	if s.cfg.MetricsListen == "" {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/snapshot", s.handleSnapshotLatest)
		r.Get("/snapshots/{id}", s.handleSnapshotByID)
		r.Get("/evaluations", s.handleEvaluationsRecent)
		r.Post("/evaluate", s.handleEvaluate)
		r.Get("/targets", s.handleTargets)
		r.Get("/sizediff/latest", s.handleSizeDiffLatest)
	})

	r.Handle("/artifacts/*", http.StripPrefix("/artifacts", s.secureFileServer()))

	return r
}

// httprateLimit converts the configured refill rate into the per-minute
// budget the sliding-window limiter takes. Zero disables it.
func httprateLimit(enabled bool, rps float64) int {
	if !enabled || rps <= 0 {
		return 0
	}
	return int(rps * 60)
}
