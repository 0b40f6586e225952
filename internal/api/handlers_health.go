// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package api

import (
	"net/http"
)

// handleLiveness serves GET /api/v1/health/live: the process is up.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
	}, 0)
}

// handleReadiness serves GET /api/v1/health/ready. The service is ready
// as soon as the engine answers; a cold (never trained) model is still
// ready because the profile matcher works without training.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	status := s.engine.Status()
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"status":        "ready",
		"model_version": status.ModelVersion,
		"is_training":   status.IsTraining,
	}, 0)
}
