// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spendsense/spendsense/internal/config"
)

// NewRouter wires the full route tree with the global middleware stack.
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.Root)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(prometheusMetrics)
		if !cfg.RateLimitDisabled {
			r.Use(httprate.Limit(
				cfg.RateLimitReqs,
				cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(rateLimitExceeded),
			))
		}

		r.Post("/users", h.CreateUser)
		r.Post("/users/{userID}/consent", h.UpdateConsent)
		r.Put("/users/{userID}/signals", h.PutSignals)
		r.Get("/profile/{userID}", h.Profile)
		r.Get("/recommendations/{userID}", h.Recommendations)
		r.Post("/recommendations/{recID}/approve", h.ApproveRecommendation)
		r.Post("/recommendations/{recID}/view", h.ViewRecommendation)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
