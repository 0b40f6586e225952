// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hireloop/matchengine/internal/metrics"
	"github.com/hireloop/matchengine/internal/profile"
)

// maxIngestBatch bounds one ingest request.
const maxIngestBatch = 1000

// ingestRequest is the POST /api/v1/ingest/events body.
type ingestRequest struct {
	Events []ingestEvent `json:"events"`
}

// ingestEvent is one analytics interaction event. EventID and OccurredAt
// are optional; missing values are filled server-side.
type ingestEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	JobID      string    `json:"job_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Value      float64   `json:"value"`
}

// handleIngestEvents serves POST /api/v1/ingest/events. Events with
// missing identifiers are rejected per event, not per batch; the
// response reports accepted and rejected counts.
func (s *Server) handleIngestEvents(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body", err)
		return
	}
	if len(req.Events) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "events list is empty", nil)
		return
	}
	if len(req.Events) > maxIngestBatch {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"batch exceeds 1000 events", nil)
		return
	}

	accepted, rejected := 0, 0
	for i := range req.Events {
		ev := &req.Events[i]
		if ev.UserID == "" || ev.EventType == "" {
			rejected++
			continue
		}
		if ev.EventID == "" {
			ev.EventID = uuid.NewString()
		}

		record := &profile.EventRecord{
			EventID:    ev.EventID,
			UserID:     ev.UserID,
			JobID:      ev.JobID,
			EventType:  ev.EventType,
			OccurredAt: ev.OccurredAt,
			Value:      ev.Value,
		}
		if err := s.store.AppendEvent(r.Context(), record); err != nil {
			s.logger.Warn().Err(err).Str("event_id", ev.EventID).Msg("event ingest failed")
			rejected++
			continue
		}

		metrics.RecordEventIngested(ev.EventType)
		accepted++
	}

	respondSuccess(w, http.StatusAccepted, map[string]interface{}{
		"accepted": accepted,
		"rejected": rejected,
	}, 0)
}

// handleUpsertUser serves PUT /api/v1/users/{userID}. The path ID wins
// over any ID in the body.
func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var record profile.UserRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body", err)
		return
	}
	record.UserID = userID

	if err := s.store.UpsertUser(r.Context(), &record); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to store user", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
	}, 0)
}

// handleUpsertJob serves PUT /api/v1/jobs/{jobID}. The path ID wins over
// any ID in the body.
func (s *Server) handleUpsertJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var record profile.JobRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body", err)
		return
	}
	record.JobID = jobID

	if err := s.store.UpsertJob(r.Context(), &record); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to store job", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
	}, 0)
}
