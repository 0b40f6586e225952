// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/matchengine/internal/profile"
	"github.com/hireloop/matchengine/internal/recommend"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	record := &profile.UserRecord{
		UserID:          "u1",
		Skills:          []string{"go", "sql"},
		ExperienceYears: 5,
		EducationLevel:  "masters",
	}
	if err := s.UpsertUser(ctx, record); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	got, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.ExperienceYears != 5 || len(got.Skills) != 2 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped on upsert")
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}
}

func TestUpsertRejectsMissingIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, &profile.UserRecord{}); err == nil {
		t.Error("user without ID accepted")
	}
	if err := s.UpsertJob(ctx, &profile.JobRecord{}); err == nil {
		t.Error("job without ID accepted")
	}
	if err := s.AppendEvent(ctx, &profile.EventRecord{EventID: "e1"}); err == nil {
		t.Error("event without user accepted")
	}
}

func TestFetchCandidateMapsNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.FetchCandidate(context.Background(), "nobody")
	if !errors.Is(err, recommend.ErrCandidateNotFound) {
		t.Errorf("err = %v, want ErrCandidateNotFound", err)
	}
}

func TestFetchActiveJobsFiltersAndOrders(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Now()

	jobs := []*profile.JobRecord{
		{JobID: "old", Status: "active", PostedAt: base.Add(-48 * time.Hour)},
		{JobID: "new", Status: "active", PostedAt: base},
		{JobID: "closed", Status: "closed", PostedAt: base},
		{JobID: "legacy", PostedAt: base.Add(-24 * time.Hour)}, // empty status counts as active
	}
	for _, j := range jobs {
		if err := s.UpsertJob(ctx, j); err != nil {
			t.Fatalf("UpsertJob(%s): %v", j.JobID, err)
		}
	}

	got, err := s.FetchActiveJobs(ctx, 10)
	if err != nil {
		t.Fatalf("FetchActiveJobs: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d jobs, want 3", len(got))
	}
	wantOrder := []string{"new", "legacy", "old"}
	for i, want := range wantOrder {
		if got[i].JobID != want {
			t.Errorf("position %d = %s, want %s", i, got[i].JobID, want)
		}
	}

	limited, err := s.FetchActiveJobs(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[0].JobID != "new" {
		t.Errorf("limit not applied from the newest: %+v", limited)
	}
}

func TestEventsAndInteractions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	events := []*profile.EventRecord{
		{EventID: "e1", UserID: "u1", JobID: "j1", EventType: "job_view", OccurredAt: now.Add(-time.Hour)},
		{EventID: "e2", UserID: "u1", JobID: "j2", EventType: "job_apply", OccurredAt: now.Add(-2 * time.Hour)},
		{EventID: "e3", UserID: "u2", JobID: "j1", EventType: "job_save", OccurredAt: now.AddDate(0, 0, -120)},
		{EventID: "e4", UserID: "u1", JobID: "j3", EventType: "profile_update", OccurredAt: now}, // non-model event
	}
	for _, e := range events {
		if err := s.AppendEvent(ctx, e); err != nil {
			t.Fatalf("AppendEvent(%s): %v", e.EventID, err)
		}
	}

	// 90-day lookback drops e3; e4 has no model interaction type.
	interactions, err := s.FetchInteractions(ctx, 90)
	if err != nil {
		t.Fatalf("FetchInteractions: %v", err)
	}
	if len(interactions) != 2 {
		t.Fatalf("got %d interactions, want 2", len(interactions))
	}
	for _, in := range interactions {
		if in.UserID != "u1" {
			t.Errorf("unexpected interaction %+v", in)
		}
	}

	// Counter includes every ingested event for the user, model-visible or not.
	count, err := s.CountUserInteractions(ctx, "u1")
	if err != nil {
		t.Fatalf("CountUserInteractions: %v", err)
	}
	if count != 3 {
		t.Errorf("u1 count = %d, want 3", count)
	}

	count, err = s.CountUserInteractions(ctx, "ghost")
	if err != nil || count != 0 {
		t.Errorf("ghost count = %d, %v; want 0, nil", count, err)
	}
}

func TestEventOrderingSurvivesBulkIngest(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 50; i++ {
		e := &profile.EventRecord{
			EventID:    fmt.Sprintf("e%d", i),
			UserID:     "u1",
			JobID:      fmt.Sprintf("j%d", i%7),
			EventType:  "job_click",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.AppendEvent(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	interactions, err := s.FetchInteractions(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(interactions) != 50 {
		t.Fatalf("got %d interactions, want 50", len(interactions))
	}
	for i := 1; i < len(interactions); i++ {
		if interactions[i].Timestamp.Before(interactions[i-1].Timestamp) {
			t.Fatal("interactions not in chronological order")
		}
	}
}

func TestJobRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	record := &profile.JobRecord{
		JobID:          "j1",
		Title:          "Backend Engineer",
		RequiredSkills: []string{"go"},
		Status:         "active",
		SalaryMin:      60000,
		SalaryMax:      90000,
	}
	if err := s.UpsertJob(ctx, record); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Backend Engineer" || got.SalaryMax != 90000 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.PostedAt.IsZero() {
		t.Error("PostedAt not defaulted on upsert")
	}
}
