// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/hireloop/matchengine/internal/config"
	"github.com/hireloop/matchengine/internal/models"
	"github.com/hireloop/matchengine/internal/profile"
	"github.com/hireloop/matchengine/internal/recommend"
)

type mockEngine struct {
	recs       []recommend.Recommendation
	recErr     error
	refreshErr error

	refreshed    bool
	cacheCleared bool
}

func (m *mockEngine) Recommend(_ context.Context, userID string, _ int) ([]recommend.Recommendation, error) {
	if m.recErr != nil {
		return nil, m.recErr
	}
	return m.recs, nil
}

func (m *mockEngine) Status() recommend.EngineStatus {
	return recommend.EngineStatus{ModelVersion: 3, GAWeight: 0.6, CFWeight: 0.4}
}

func (m *mockEngine) Refresh(_ context.Context) error {
	if m.refreshErr != nil {
		return m.refreshErr
	}
	m.refreshed = true
	return nil
}

func (m *mockEngine) ClearCache() { m.cacheCleared = true }

type mockStore struct {
	users  map[string]*profile.UserRecord
	jobs   map[string]*profile.JobRecord
	events []*profile.EventRecord

	appendErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		users: make(map[string]*profile.UserRecord),
		jobs:  make(map[string]*profile.JobRecord),
	}
}

func (m *mockStore) UpsertUser(_ context.Context, r *profile.UserRecord) error {
	m.users[r.UserID] = r
	return nil
}

func (m *mockStore) UpsertJob(_ context.Context, r *profile.JobRecord) error {
	m.jobs[r.JobID] = r
	return nil
}

func (m *mockStore) AppendEvent(_ context.Context, r *profile.EventRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.events = append(m.events, r)
	return nil
}

func newTestServer(engine *mockEngine, store *mockStore) http.Handler {
	s := NewServer(engine, store, config.ServerConfig{}, zerolog.Nop())
	return s.Router()
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestGetRecommendations(t *testing.T) {
	engine := &mockEngine{recs: []recommend.Recommendation{
		{JobID: "j1", UserID: "u1", HybridScore: 0.8, Confidence: recommend.ConfidenceHigh, GeneratedAt: time.Now()},
	}}
	router := newTestServer(engine, newMockStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/user/u1?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "success" {
		t.Errorf("envelope status = %s", resp.Status)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data is %T", resp.Data)
	}
	if data["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", data["count"])
	}
}

func TestGetRecommendationsUnknownUserIsEmptySuccess(t *testing.T) {
	// The engine degrades a missing profile to an empty list; the HTTP
	// surface reports that as a normal 200 with count 0.
	engine := &mockEngine{recs: []recommend.Recommendation{}}
	router := newTestServer(engine, newMockStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/user/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Error != nil {
		t.Errorf("unexpected error payload: %+v", resp.Error)
	}
	data := resp.Data.(map[string]interface{})
	if data["count"].(float64) != 0 {
		t.Errorf("count = %v, want 0", data["count"])
	}
}

func TestGetRecommendationsEngineFailure(t *testing.T) {
	engine := &mockEngine{recErr: errors.New("store exploded")}
	router := newTestServer(engine, newMockStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/user/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestGetRecommendationsRejectsBadLimit(t *testing.T) {
	router := newTestServer(&mockEngine{}, newMockStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/user/u1?limit=500", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestServer(&mockEngine{}, newMockStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["model_version"].(float64) != 3 {
		t.Errorf("model_version = %v, want 3", data["model_version"])
	}
}

func TestRefreshEndpoint(t *testing.T) {
	engine := &mockEngine{}
	router := newTestServer(engine, newMockStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !engine.refreshed {
		t.Error("refresh not invoked")
	}
}

func TestRefreshFailure(t *testing.T) {
	engine := &mockEngine{refreshErr: errors.New("training blew up")}
	router := newTestServer(engine, newMockStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestCacheClearEndpoint(t *testing.T) {
	engine := &mockEngine{}
	router := newTestServer(engine, newMockStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations/cache/clear", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !engine.cacheCleared {
		t.Errorf("status = %d, cleared = %v", rec.Code, engine.cacheCleared)
	}
}

func TestIngestEvents(t *testing.T) {
	store := newMockStore()
	router := newTestServer(&mockEngine{}, store)

	body, _ := json.Marshal(ingestRequest{Events: []ingestEvent{
		{UserID: "u1", JobID: "j1", EventType: "job_view"},
		{UserID: "u1", JobID: "j2", EventType: "job_apply", EventID: "custom-id"},
		{JobID: "j3", EventType: "job_view"}, // missing user: rejected
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/events", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["accepted"].(float64) != 2 || data["rejected"].(float64) != 1 {
		t.Errorf("accepted/rejected = %v/%v, want 2/1", data["accepted"], data["rejected"])
	}

	if len(store.events) != 2 {
		t.Fatalf("stored %d events, want 2", len(store.events))
	}
	if store.events[0].EventID == "" {
		t.Error("missing event ID not generated")
	}
	if store.events[1].EventID != "custom-id" {
		t.Error("provided event ID not preserved")
	}
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	router := newTestServer(&mockEngine{}, newMockStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/events",
		bytes.NewReader([]byte(`{"events": []}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpsertUserPathWins(t *testing.T) {
	store := newMockStore()
	router := newTestServer(&mockEngine{}, store)

	body := []byte(`{"user_id": "body-id", "skills": ["go"], "experience_years": 4}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/u1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := store.users["u1"]; !ok {
		t.Fatal("user not stored under path ID")
	}
	if store.users["u1"].ExperienceYears != 4 {
		t.Errorf("record = %+v", store.users["u1"])
	}
}

func TestUpsertJob(t *testing.T) {
	store := newMockStore()
	router := newTestServer(&mockEngine{}, store)

	body := []byte(`{"required_skills": ["go"], "status": "active", "salary_min": 50000}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/jobs/j1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.jobs["j1"] == nil || store.jobs["j1"].SalaryMin != 50000 {
		t.Errorf("job = %+v", store.jobs["j1"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestServer(&mockEngine{}, newMockStore())

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	router := newTestServer(&mockEngine{}, newMockStore())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", rec.Code)
	}
}
