// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hireloop/matchengine/internal/metrics"
)

// maxRequestableRecommendations caps the limit query parameter.
const maxRequestableRecommendations = 100

// handleGetRecommendations serves GET /api/v1/recommendations/user/{userID}.
//
// Query parameters:
//   - limit: list size (default: engine configured, max 100)
func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "userID is required", nil)
		return
	}

	limit := getIntParam(r, "limit", 0)
	if limit < 0 || limit > maxRequestableRecommendations {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"limit must be between 1 and 100", nil)
		return
	}

	start := time.Now()
	recs, err := s.engine.Recommend(r.Context(), userID, limit)
	elapsed := time.Since(start)

	// Unknown users and unavailable data come back as an empty list from
	// the engine; an error here is a genuine internal failure.
	if err != nil {
		metrics.RecordRecommendation(elapsed, err, "internal")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"failed to generate recommendations", err)
		return
	}

	metrics.RecordRecommendation(elapsed, nil, "")
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"user_id":         userID,
		"count":           len(recs),
		"recommendations": recs,
	}, elapsed)
}

// handleGetStatus serves GET /api/v1/recommendations/status.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	status := s.engine.Status()
	metrics.UpdateEngineGauges(status.LastTrainedAt, status.InteractionCount, status.CacheEntries)
	respondSuccess(w, http.StatusOK, status, 0)
}

// handleRefresh serves POST /api/v1/recommendations/refresh: a forced
// retrain plus cache clear. The call is synchronous; large datasets can
// take a while.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := s.engine.Refresh(r.Context()); err != nil {
		metrics.RecordTraining("failure", time.Since(start))
		respondError(w, http.StatusInternalServerError, "TRAINING_FAILED",
			"model refresh failed", err)
		return
	}

	metrics.RecordTraining("success", time.Since(start))
	s.logger.Info().Dur("duration", time.Since(start)).Msg("models refreshed")
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"message": "recommendation models refreshed",
	}, time.Since(start))
}

// handleCacheClear serves POST /api/v1/recommendations/cache/clear.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearCache()
	s.logger.Info().Msg("recommendation caches cleared")
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"message": "caches cleared",
	}, 0)
}
