// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockProvider implements DataProvider with canned data and call counters.
type mockProvider struct {
	mu sync.Mutex

	candidate    *CandidateProfile
	jobs         []JobProfile
	interactions []Interaction
	userCount    int

	candidateErr error
	jobsErr      error
	fetchErr     error
	countErr     error

	candidateCalls int
	fetchCalls     int
}

func (p *mockProvider) FetchCandidate(_ context.Context, userID string) (*CandidateProfile, error) {
	p.mu.Lock()
	p.candidateCalls++
	p.mu.Unlock()
	if p.candidateErr != nil {
		return nil, p.candidateErr
	}
	return p.candidate, nil
}

func (p *mockProvider) FetchActiveJobs(_ context.Context, limit int) ([]JobProfile, error) {
	if p.jobsErr != nil {
		return nil, p.jobsErr
	}
	if len(p.jobs) > limit {
		return p.jobs[:limit], nil
	}
	return p.jobs, nil
}

func (p *mockProvider) FetchInteractions(_ context.Context, _ int) ([]Interaction, error) {
	p.mu.Lock()
	p.fetchCalls++
	p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.interactions, nil
}

func (p *mockProvider) CountUserInteractions(_ context.Context, _ string) (int, error) {
	if p.countErr != nil {
		return 0, p.countErr
	}
	return p.userCount, nil
}

// mockMatcher returns preset matches regardless of input.
type mockMatcher struct {
	matches []ProfileMatch
}

func (m *mockMatcher) Rank(_ context.Context, _ *CandidateProfile, _ []JobProfile, maxResults int) []ProfileMatch {
	if len(m.matches) > maxResults {
		return m.matches[:maxResults]
	}
	return m.matches
}

// mockModel serves preset scores once fitted.
type mockModel struct {
	minFit int
	scores []BehaviorScore

	fitted       bool
	interactions int
	cleared      bool
}

func (m *mockModel) Fit(interactions []Interaction, _ time.Time) {
	if len(interactions) >= m.minFit {
		m.fitted = true
		m.interactions = len(interactions)
	}
}

func (m *mockModel) Fitted() bool          { return m.fitted }
func (m *mockModel) InteractionCount() int { return m.interactions }
func (m *mockModel) ClearCache()           { m.cleared = true }

func (m *mockModel) Scores(_ string, n int) []BehaviorScore {
	if len(m.scores) > n {
		return m.scores[:n]
	}
	return m.scores
}

func manyInteractions(n int) []Interaction {
	out := make([]Interaction, n)
	for i := range out {
		out[i] = Interaction{UserID: "u1", JobID: "j1", Type: InteractionView, Timestamp: time.Now(), Value: 1}
	}
	return out
}

func testEngine(t *testing.T, provider *mockProvider, matcher *mockMatcher, model *mockModel) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig(), provider, matcher, func() BehaviorModel { return model }, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func defaultProvider() *mockProvider {
	return &mockProvider{
		candidate: &CandidateProfile{UserID: "u1", Skills: []string{"go"}},
		jobs: []JobProfile{
			{JobID: "j1"}, {JobID: "j2"}, {JobID: "j3"},
		},
		interactions: manyInteractions(60),
		userCount:    10,
	}
}

func TestRecommendMergesSignals(t *testing.T) {
	provider := defaultProvider()
	matcher := &mockMatcher{matches: []ProfileMatch{
		{JobID: "j1", Fitness: 0.9, Breakdown: MatchBreakdown{Skills: 0.9}},
		{JobID: "j2", Fitness: 0.6, Breakdown: MatchBreakdown{Skills: 0.6}},
	}}
	model := &mockModel{minFit: 5, scores: []BehaviorScore{
		{JobID: "j1", Score: 0.8},
		{JobID: "j3", Score: 0.4},
	}}

	e := testEngine(t, provider, matcher, model)
	recs, err := e.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(recs))
	}

	// userCount 10 lands in the base band: 0.6 GA / 0.4 CF.
	byJob := make(map[string]Recommendation)
	for _, r := range recs {
		byJob[r.JobID] = r
	}

	j1 := byJob["j1"]
	want := 0.6*0.9 + 0.4*0.8
	if diff := j1.HybridScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("j1 hybrid = %v, want %v", j1.HybridScore, want)
	}
	if j1.Confidence != ConfidenceHigh {
		t.Errorf("j1 confidence = %s, want high", j1.Confidence)
	}
	if j1.Breakdown == nil {
		t.Error("matcher-sourced entry should carry a breakdown")
	}

	// j3 came from the behavioral model only.
	j3 := byJob["j3"]
	if j3.GAScore != 0 || j3.Breakdown != nil {
		t.Errorf("behavior-only entry carries GA data: %+v", j3)
	}
	if !strings.Contains(j3.Reason, "Trending among users with similar behavior") {
		t.Errorf("behavior-only reason = %q", j3.Reason)
	}
	wantJ3 := 0.4 * 0.4
	if diff := j3.HybridScore - wantJ3; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("j3 hybrid = %v, want %v", j3.HybridScore, wantJ3)
	}

	for i := 1; i < len(recs); i++ {
		if recs[i].HybridScore > recs[i-1].HybridScore {
			t.Errorf("results not sorted at %d", i)
		}
	}
}

func TestRecommendBehaviorFloorExcludesWeakSignals(t *testing.T) {
	provider := defaultProvider()
	matcher := &mockMatcher{matches: []ProfileMatch{{JobID: "j1", Fitness: 0.9}}}
	model := &mockModel{minFit: 5, scores: []BehaviorScore{
		{JobID: "j2", Score: 0.05}, // below the 0.1 floor
	}}

	e := testEngine(t, provider, matcher, model)
	recs, err := e.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for _, r := range recs {
		if r.JobID == "j2" {
			t.Error("below-floor behavioral job surfaced")
		}
	}
}

func TestRecommendColdStartServesProfileOnly(t *testing.T) {
	provider := defaultProvider()
	provider.interactions = manyInteractions(3) // below training minimum
	matcher := &mockMatcher{matches: []ProfileMatch{{JobID: "j1", Fitness: 0.7}}}
	model := &mockModel{minFit: 5}

	e := testEngine(t, provider, matcher, model)
	recs, err := e.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	if recs[0].CFScore != 0 {
		t.Errorf("cold-start entry has CF score %v", recs[0].CFScore)
	}
}

func TestRecommendMissingCandidateYieldsEmptyList(t *testing.T) {
	provider := defaultProvider()
	provider.candidateErr = ErrCandidateNotFound
	matcher := &mockMatcher{matches: []ProfileMatch{{JobID: "j1", Fitness: 0.9}}}

	e := testEngine(t, provider, matcher, &mockModel{})
	recs, err := e.Recommend(context.Background(), "missing", 10)
	if err != nil {
		t.Fatalf("Recommend: %v, want nil error for a missing candidate", err)
	}
	if len(recs) != 0 {
		t.Fatalf("got %d recommendations for a missing candidate, want 0", len(recs))
	}

	// The empty degraded result must not be cached: once the profile
	// exists, the same request serves real recommendations.
	provider.candidateErr = nil
	recs, err = e.Recommend(context.Background(), "missing", 10)
	if err != nil {
		t.Fatalf("Recommend after profile appeared: %v", err)
	}
	if len(recs) == 0 {
		t.Error("stale empty result served after the profile appeared")
	}
}

func TestRecommendJobFetchFailureYieldsEmptyList(t *testing.T) {
	provider := defaultProvider()
	provider.jobsErr = errors.New("store unavailable")

	e := testEngine(t, provider, &mockMatcher{}, &mockModel{})
	recs, err := e.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v, want nil error when the job pool is unavailable", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d recommendations with an unavailable job pool, want 0", len(recs))
	}
}

func TestRecommendEmptyJobPool(t *testing.T) {
	provider := defaultProvider()
	provider.jobs = nil

	e := testEngine(t, provider, &mockMatcher{}, &mockModel{})
	recs, err := e.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d recommendations for empty pool", len(recs))
	}
}

func TestRecommendCountFailureFallsBackToBaseWeights(t *testing.T) {
	provider := defaultProvider()
	provider.countErr = errors.New("store unavailable")
	matcher := &mockMatcher{matches: []ProfileMatch{{JobID: "j1", Fitness: 1.0}}}

	e := testEngine(t, provider, matcher, &mockModel{})
	recs, err := e.Recommend(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if got := recs[0].HybridScore; got != 0.6 {
		t.Errorf("hybrid = %v, want base GA weight 0.6", got)
	}
}

func TestRecommendCaches(t *testing.T) {
	provider := defaultProvider()
	matcher := &mockMatcher{matches: []ProfileMatch{{JobID: "j1", Fitness: 0.5}}}

	e := testEngine(t, provider, matcher, &mockModel{minFit: 5})
	ctx := context.Background()

	if _, err := e.Recommend(ctx, "u1", 10); err != nil {
		t.Fatal(err)
	}
	first := provider.candidateCalls
	if _, err := e.Recommend(ctx, "u1", 10); err != nil {
		t.Fatal(err)
	}
	if provider.candidateCalls != first {
		t.Error("second identical request should be served from cache")
	}

	// Different list size is a different cache entry.
	if _, err := e.Recommend(ctx, "u1", 5); err != nil {
		t.Fatal(err)
	}
	if provider.candidateCalls == first {
		t.Error("different maxRecs must not share a cache entry")
	}
}

func TestWeightsForDepth(t *testing.T) {
	e := testEngine(t, defaultProvider(), &mockMatcher{}, &mockModel{})

	tests := []struct {
		name   string
		count  int
		wantGA float64
	}{
		{"new user", 0, 0.8},
		{"just below threshold", 4, 0.8},
		{"base band lower edge", 5, 0.6},
		{"base band upper edge", 20, 0.6},
		{"established", 21, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ga, cf := e.weightsForDepth(tt.count)
			if ga != tt.wantGA {
				t.Errorf("GA weight = %v, want %v", ga, tt.wantGA)
			}
			if diff := ga + cf - 1.0; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("weights do not sum to 1: %v + %v", ga, cf)
			}
		})
	}
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		name   string
		ga, cf float64
		want   ConfidenceLevel
	}{
		{"both strong", 0.8, 0.6, ConfidenceHigh},
		{"strong ga only", 0.8, 0.2, ConfidenceMedium},
		{"strong cf only", 0.2, 0.4, ConfidenceMedium},
		{"both weak", 0.3, 0.1, ConfidenceLow},
		{"boundary not high", 0.7, 0.5, ConfidenceMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := confidenceFor(tt.ga, tt.cf); got != tt.want {
				t.Errorf("confidenceFor(%v, %v) = %s, want %s", tt.ga, tt.cf, tt.want, got)
			}
		})
	}
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		name string
		b    MatchBreakdown
		cf   float64
		conf ConfidenceLevel
		want string
	}{
		{
			name: "all strong",
			b:    MatchBreakdown{Skills: 0.9, Experience: 0.9, Location: 0.9, Salary: 0.9},
			cf:   0.6,
			conf: ConfidenceHigh,
			want: "Highly recommended due to excellent skill match, perfect experience level, preferred location, salary expectations met, similar candidates showed interest",
		},
		{
			name: "medium tier phrases",
			b:    MatchBreakdown{Skills: 0.7, Experience: 0.7},
			cf:   0.35,
			conf: ConfidenceMedium,
			want: "Good match based on good skill alignment, suitable experience, trending among similar profiles",
		},
		{
			name: "nothing qualifies",
			b:    MatchBreakdown{},
			cf:   0,
			conf: ConfidenceLow,
			want: "Consider this opportunity for potential career opportunity",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reasonFor(tt.b, tt.cf, tt.conf); got != tt.want {
				t.Errorf("reasonFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrainIfNeededGatesOnInterval(t *testing.T) {
	provider := defaultProvider()
	model := &mockModel{minFit: 5}
	e := testEngine(t, provider, &mockMatcher{}, model)

	if err := e.TrainIfNeeded(context.Background()); err != nil {
		t.Fatalf("TrainIfNeeded: %v", err)
	}
	if !model.fitted {
		t.Fatal("first call should train")
	}
	calls := provider.fetchCalls

	if err := e.TrainIfNeeded(context.Background()); err != nil {
		t.Fatalf("TrainIfNeeded: %v", err)
	}
	if provider.fetchCalls != calls {
		t.Error("retrained inside the interval")
	}

	// Jump past the interval: due again.
	e.clock = func() time.Time { return time.Now().Add(13 * time.Hour) }
	if err := e.TrainIfNeeded(context.Background()); err != nil {
		t.Fatalf("TrainIfNeeded: %v", err)
	}
	if provider.fetchCalls != calls+1 {
		t.Error("expected a retrain after the interval elapsed")
	}
}

func TestTrainIfNeededSkipsBelowMinimum(t *testing.T) {
	provider := defaultProvider()
	provider.interactions = manyInteractions(10) // below the 50 minimum
	model := &mockModel{minFit: 5}
	e := testEngine(t, provider, &mockMatcher{}, model)

	if err := e.TrainIfNeeded(context.Background()); err != nil {
		t.Fatalf("TrainIfNeeded: %v", err)
	}
	if model.fitted {
		t.Error("trained below the interaction minimum")
	}
	if got := e.Status().ModelVersion; got != 0 {
		t.Errorf("model version = %d, want 0", got)
	}
}

func TestTrainingFailureKeepsCurrentModel(t *testing.T) {
	provider := defaultProvider()
	first := &mockModel{minFit: 5}
	models := []*mockModel{first}
	e, err := NewEngine(DefaultConfig(), provider, &mockMatcher{}, func() BehaviorModel {
		m := models[len(models)-1]
		return m
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if err := e.TrainIfNeeded(context.Background()); err != nil {
		t.Fatalf("initial train: %v", err)
	}
	if e.Status().ModelVersion != 1 {
		t.Fatalf("model version = %d, want 1", e.Status().ModelVersion)
	}

	provider.fetchErr = errors.New("store exploded")
	if err := e.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh to report the failure")
	}

	st := e.Status()
	if st.ModelVersion != 1 {
		t.Errorf("failed training bumped version to %d", st.ModelVersion)
	}
	if st.LastError == "" {
		t.Error("status should carry the last training error")
	}
}

func TestRefreshForcesRetrainAndClearsCache(t *testing.T) {
	provider := defaultProvider()
	provider.interactions = manyInteractions(10) // below scheduled minimum
	model := &mockModel{minFit: 5}
	matcher := &mockMatcher{matches: []ProfileMatch{{JobID: "j1", Fitness: 0.5}}}
	e := testEngine(t, provider, matcher, model)

	if _, err := e.Recommend(context.Background(), "u1", 10); err != nil {
		t.Fatal(err)
	}
	if e.Status().CacheEntries == 0 {
		t.Fatal("expected a cached response before refresh")
	}

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !model.fitted {
		t.Error("refresh must train even below the scheduled minimum")
	}
	if e.Status().CacheEntries != 0 {
		t.Error("refresh must clear the response cache")
	}
	if !model.cleared {
		t.Error("refresh must clear the model's memoized scores")
	}
}

func TestStatusReportsState(t *testing.T) {
	provider := defaultProvider()
	model := &mockModel{minFit: 5}
	e := testEngine(t, provider, &mockMatcher{}, model)

	st := e.Status()
	if st.ModelVersion != 0 || st.IsTraining {
		t.Errorf("unexpected initial status: %+v", st)
	}
	if st.GAWeight != 0.6 || st.CFWeight != 0.4 {
		t.Errorf("status weights = %v/%v", st.GAWeight, st.CFWeight)
	}

	if err := e.TrainIfNeeded(context.Background()); err != nil {
		t.Fatal(err)
	}
	st = e.Status()
	if st.ModelVersion != 1 {
		t.Errorf("model version = %d, want 1", st.ModelVersion)
	}
	if st.InteractionCount != 60 {
		t.Errorf("interaction count = %d, want 60", st.InteractionCount)
	}
	if st.LastTrainedAt.IsZero() {
		t.Error("last trained timestamp not set")
	}
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Genetic.Weights.Skills = 0.9 // sum now exceeds 1

	_, err := NewEngine(cfg, defaultProvider(), &mockMatcher{}, func() BehaviorModel { return &mockModel{} }, zerolog.Nop())
	if err == nil {
		t.Fatal("expected config validation error")
	}
}
