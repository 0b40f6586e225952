// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

// Package api provides the HTTP surface: recommendation queries, engine
// administration, record upserts, event ingest, and health probes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hireloop/matchengine/internal/config"
	"github.com/hireloop/matchengine/internal/metrics"
	"github.com/hireloop/matchengine/internal/profile"
	"github.com/hireloop/matchengine/internal/recommend"
)

// RecommendEngine is the engine surface the handlers depend on.
type RecommendEngine interface {
	Recommend(ctx context.Context, userID string, maxRecs int) ([]recommend.Recommendation, error)
	Status() recommend.EngineStatus
	Refresh(ctx context.Context) error
	ClearCache()
}

// RecordStore is the persistence surface for upserts and event ingest.
type RecordStore interface {
	UpsertUser(ctx context.Context, record *profile.UserRecord) error
	UpsertJob(ctx context.Context, record *profile.JobRecord) error
	AppendEvent(ctx context.Context, record *profile.EventRecord) error
}

// Server bundles the handler dependencies.
type Server struct {
	engine RecommendEngine
	store  RecordStore
	cfg    config.ServerConfig
	logger zerolog.Logger
}

// NewServer creates the handler set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewServer(engine RecommendEngine, store RecordStore, cfg config.ServerConfig, logger zerolog.Logger) *Server {
	return &Server{
		engine: engine,
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/user/{userID}", s.handleGetRecommendations)
			r.Get("/status", s.handleGetStatus)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/cache/clear", s.handleCacheClear)
		})

		r.Post("/ingest/events", s.handleIngestEvents)
		r.Put("/users/{userID}", s.handleUpsertUser)
		r.Put("/jobs/{jobID}", s.handleUpsertJob)

		r.Get("/health/live", s.handleLiveness)
		r.Get("/health/ready", s.handleReadiness)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// instrument records request count and latency per route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordAPIRequest(pattern, r.Method, ww.Status(), time.Since(start))
	})
}
