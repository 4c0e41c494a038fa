// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the HTTP-level settings the router needs.
type RouterConfig struct {
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow time.Duration
}

// Router wires the API handlers into a Chi mux.
type Router struct {
	handler *Handler
	config  RouterConfig
}

// NewRouter creates a router around the given handler.
func NewRouter(handler *Handler, config RouterConfig) *Router {
	return &Router{handler: handler, config: config}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order. CORS must be global
	// to handle OPTIONS preflight before routing.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(router.config.CORSOrigins))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.Use(RateLimit(router.config.RateLimitReqs, router.config.RateLimitWindow))
		r.Use(Metrics())

		r.Get("/health", router.handler.Health)
		r.Get("/moods", router.handler.Moods)
		r.Get("/tempos", router.handler.Tempos)
		r.Get("/methods", router.handler.Methods)

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/mood", router.handler.RecommendMood)
			r.Get("/tempo", router.handler.RecommendTempo)
			r.Get("/combined", router.handler.RecommendCombined)
			r.Get("/similar", router.handler.Similar)
		})

		r.Route("/songs", func(r chi.Router) {
			r.Get("/search", router.handler.Search)
			r.Get("/{trackID}", router.handler.SongByID)
		})

		r.Get("/clusters", router.handler.Clusters)

		r.Post("/admin/rebuild", router.handler.Rebuild)
	})

	// Prometheus exposition stays outside the versioned API and its rate
	// limiting so scrapes never contend with client traffic.
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
