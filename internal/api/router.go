// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

// Package api exposes the read-only HTTP surface: health, the latest cycle
// report, flagged actors and Prometheus metrics. Routing uses the Chi router
// with the go-chi middleware ecosystem.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ampwatch/ampwatch/internal/metrics"
)

// RouterConfig holds the HTTP surface configuration.
type RouterConfig struct {
	// CORSAllowedOrigins defaults to empty, which rejects cross-origin
	// requests until explicitly configured.
	CORSAllowedOrigins []string

	// RateLimitRequests per RateLimitWindow, keyed by client IP.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// DefaultRouterConfig returns secure defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSAllowedOrigins: []string{},
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
	}
}

// Router builds the HTTP handler tree over the shared state.
type Router struct {
	state *State
	cfg   RouterConfig
}

// NewRouter creates a router over the given state.
func NewRouter(state *State, cfg RouterConfig) *Router {
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = DefaultRouterConfig().RateLimitRequests
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = DefaultRouterConfig().RateLimitWindow
	}
	return &Router{state: state, cfg: cfg}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))
	r.Use(requestMetrics)

	r.Get("/healthz", router.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(router.cfg.RateLimitRequests, router.cfg.RateLimitWindow))
		r.Get("/report", router.handleReport)
		r.Get("/actors", router.handleActors)
		r.Get("/clusters", router.handleClusters)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestMetrics records per-request Prometheus metrics using the routed
// pattern, not the raw path, to keep label cardinality bounded.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(ww.Status()), time.Since(start))
	})
}
