// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the routing-level knobs.
type RouterConfig struct {
	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit int

	// CORSOrigins lists allowed origins. Empty disables CORS handling.
	CORSOrigins []string
}

// NewRouter wires the middleware stack and all routes.
func NewRouter(cfg RouterConfig, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           86400,
		}))
	}

	// Health endpoints stay outside rate limiting so probes never starve.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/reco", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}
		r.Use(PrometheusMetrics)

		r.Get("/homefeed", h.Homefeed)
		r.Get("/coldstart", h.ColdStart)
		r.Post("/feedback", h.Feedback)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		// Rebuilds are expensive; a tight per-IP limit keeps a scripted
		// client from thrashing the models.
		r.Use(httprate.LimitByIP(6, time.Minute))
		r.Use(PrometheusMetrics)

		r.Post("/rebuild", h.Rebuild)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
