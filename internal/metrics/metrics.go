// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

// Package metrics provides Prometheus instrumentation for the HTTP
// surface, the recommendation pipeline, and model training.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchengine_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchengine_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// Recommendation pipeline metrics
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchengine_recommendation_duration_seconds",
			Help:    "End-to-end duration of one recommendation request",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	RecommendationsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchengine_recommendations_served_total",
			Help: "Total number of recommendation lists served",
		},
	)

	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchengine_recommendation_errors_total",
			Help: "Total number of failed recommendation requests",
		},
		[]string{"reason"},
	)

	// Response cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchengine_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchengine_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchengine_cache_entries",
			Help: "Current number of cached recommendation responses",
		},
	)

	// Training metrics
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchengine_training_runs_total",
			Help: "Total number of model training runs",
		},
		[]string{"result"}, // "success", "skipped", "failure"
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchengine_training_duration_seconds",
			Help:    "Duration of model training runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)

	ModelStaleness = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchengine_model_staleness_seconds",
			Help: "Seconds since the behavioral model last trained",
		},
	)

	ModelInteractions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchengine_model_interactions",
			Help: "Number of interactions in the last training set",
		},
	)

	// Ingest metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchengine_events_ingested_total",
			Help: "Total number of interaction events ingested",
		},
		[]string{"type"},
	)
)

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(endpoint, method string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// RecordRecommendation records one recommendation request outcome.
func RecordRecommendation(duration time.Duration, err error, reason string) {
	if err != nil {
		RecommendationErrors.WithLabelValues(reason).Inc()
		return
	}
	RecommendationsServed.Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordTraining records one training run outcome.
func RecordTraining(result string, duration time.Duration) {
	TrainingRuns.WithLabelValues(result).Inc()
	if result == "success" {
		TrainingDuration.Observe(duration.Seconds())
	}
}

// UpdateEngineGauges refreshes the slow-moving engine gauges.
func UpdateEngineGauges(lastTrainedAt time.Time, interactions, cacheEntries int) {
	if !lastTrainedAt.IsZero() {
		ModelStaleness.Set(time.Since(lastTrainedAt).Seconds())
	}
	ModelInteractions.Set(float64(interactions))
	CacheEntries.Set(float64(cacheEntries))
}

// RecordEventIngested counts one accepted interaction event.
func RecordEventIngested(eventType string) {
	EventsIngested.WithLabelValues(eventType).Inc()
}
