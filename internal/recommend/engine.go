// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/hireloop/matchengine/internal/cache"
)

// Note: this package depends only on internal/cache. The DataProvider,
// ProfileMatcher, and BehaviorModel interfaces keep the store and the
// concrete matchers behind boundaries, so wiring happens in cmd without
// circular imports.

// Engine blends the genetic profile matcher and the behavioral model
// into one ranked recommendation list per user. It is safe for
// concurrent use.
//
// The engine degrades rather than fails: a missing candidate or an
// unavailable job pool yields an empty list with a logged warning, a
// missing or unfitted behavioral model means recommendations come from
// the profile matcher alone, and a failing interaction count falls
// back to the base blend weights.
type Engine struct {
	cfg      *Config
	provider DataProvider
	matcher  ProfileMatcher
	newModel ModelFactory
	logger   zerolog.Logger

	// clock is replaceable in tests.
	clock func() time.Time

	// modelMu guards the model pointer and training bookkeeping.
	// The model itself is read-only once published.
	modelMu       sync.RWMutex
	model         BehaviorModel
	lastTrainedAt time.Time
	lastDuration  time.Duration
	lastErr       error

	modelVersion atomic.Int32
	training     atomic.Bool
	trainGroup   singleflight.Group

	requestCount atomic.Int64

	respCache *cache.Cache[[]Recommendation]

	// sem bounds concurrent CPU-heavy scoring passes so a burst of cold
	// requests cannot saturate every core.
	sem *semaphore.Weighted
}

// NewEngine creates an engine from a validated configuration. The
// configuration is cloned; later mutation by the caller has no effect.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, provider DataProvider, matcher ProfileMatcher, factory ModelFactory, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("data provider is required")
	}
	if matcher == nil {
		return nil, fmt.Errorf("profile matcher is required")
	}
	if factory == nil {
		return nil, fmt.Errorf("model factory is required")
	}

	return &Engine{
		cfg:       cfg.Clone(),
		provider:  provider,
		matcher:   matcher,
		newModel:  factory,
		logger:    logger.With().Str("component", "engine").Logger(),
		clock:     time.Now,
		respCache: cache.New[[]Recommendation](cfg.Cache.TTL),
		sem:       semaphore.NewWeighted(int64(cfg.Limits.ComputeConcurrency)),
	}, nil
}

// Recommend returns up to maxRecs ranked recommendations for a user.
// A non-positive maxRecs uses the configured default list size.
func (e *Engine) Recommend(ctx context.Context, userID string, maxRecs int) ([]Recommendation, error) {
	h := e.cfg.Hybrid
	if maxRecs <= 0 {
		maxRecs = h.MaxRecommendations
	}
	e.requestCount.Add(1)

	key := fmt.Sprintf("%s:%d", userID, maxRecs)
	if e.cfg.Cache.Enabled {
		if recs, ok := e.respCache.Get(key); ok {
			return recs, nil
		}
	}

	// Missing or unreadable data degrades to an empty list. The empty
	// result is deliberately not cached so the user gets real
	// recommendations as soon as their profile exists.
	candidate, err := e.provider.FetchCandidate(ctx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).
			Msg("candidate unavailable, returning empty recommendations")
		return []Recommendation{}, nil
	}

	jobs, err := e.provider.FetchActiveJobs(ctx, h.JobFetchLimit)
	if err != nil {
		e.logger.Warn().Err(err).
			Msg("job pool unavailable, returning empty recommendations")
		return []Recommendation{}, nil
	}
	if len(jobs) == 0 {
		return []Recommendation{}, nil
	}

	if err := e.TrainIfNeeded(ctx); err != nil {
		// Stale model beats no response; the error is already recorded
		// in the training status.
		e.logger.Warn().Err(err).Msg("background training failed, serving with current model")
	}

	gaWeight, cfWeight := e.blendWeights(ctx, userID)

	candidateCount := maxRecs * h.CandidateMultiplier

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire compute slot: %w", err)
	}
	matches := e.matcher.Rank(ctx, candidate, jobs, candidateCount)
	e.sem.Release(1)

	cfScores := e.behaviorScores(userID, candidateCount)

	now := e.clock()
	recs := make([]Recommendation, 0, len(matches)+len(cfScores))
	fromMatcher := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		cf := cfScores[m.JobID]
		conf := confidenceFor(m.Fitness, cf)
		breakdown := m.Breakdown

		recs = append(recs, Recommendation{
			JobID:       m.JobID,
			UserID:      userID,
			HybridScore: gaWeight*m.Fitness + cfWeight*cf,
			GAScore:     m.Fitness,
			CFScore:     cf,
			Breakdown:   &breakdown,
			Reason:      reasonFor(m.Breakdown, cf, conf),
			Confidence:  conf,
			GeneratedAt: now,
		})
		fromMatcher[m.JobID] = struct{}{}
	}

	// Behavioral-only jobs the matcher never surfaced still enter the
	// list when their signal clears the floor.
	for jobID, score := range cfScores {
		if _, ok := fromMatcher[jobID]; ok || score <= h.MinCFScore {
			continue
		}
		conf := confidenceFor(0, score)
		recs = append(recs, Recommendation{
			JobID:       jobID,
			UserID:      userID,
			HybridScore: cfWeight * score,
			CFScore:     score,
			Reason:      fmt.Sprintf("Trending among users with similar behavior (confidence: %s)", conf),
			Confidence:  conf,
			GeneratedAt: now,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].HybridScore != recs[j].HybridScore {
			return recs[i].HybridScore > recs[j].HybridScore
		}
		return recs[i].JobID < recs[j].JobID
	})
	if len(recs) > maxRecs {
		recs = recs[:maxRecs]
	}

	if e.cfg.Cache.Enabled {
		e.respCache.Set(key, recs)
	}

	e.logger.Debug().
		Str("user_id", userID).
		Int("results", len(recs)).
		Float64("ga_weight", gaWeight).
		Msg("recommendations generated")

	return recs, nil
}

// blendWeights picks the adaptive blend for a user's interaction depth.
// A failing count falls back to the base weights.
func (e *Engine) blendWeights(ctx context.Context, userID string) (float64, float64) {
	count, err := e.provider.CountUserInteractions(ctx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).
			Msg("interaction count unavailable, using base weights")
		return e.cfg.Hybrid.GAWeight, e.cfg.Hybrid.CFWeight
	}
	return e.weightsForDepth(count)
}

// weightsForDepth maps an interaction count to (GA weight, CF weight).
// Sparse history favors the profile signal, deep history the behavioral one.
func (e *Engine) weightsForDepth(interactionCount int) (float64, float64) {
	h := e.cfg.Hybrid
	switch {
	case interactionCount < h.NewUserThreshold:
		return h.NewUserGAWeight, h.NewUserCFWeight
	case interactionCount > h.EstablishedThreshold:
		return h.EstablishedGAWeight, h.EstablishedCFWeight
	default:
		return h.GAWeight, h.CFWeight
	}
}

// behaviorScores returns the current model's scores as a lookup map.
// No model or an unfitted one yields an empty map.
func (e *Engine) behaviorScores(userID string, n int) map[string]float64 {
	e.modelMu.RLock()
	model := e.model
	e.modelMu.RUnlock()

	if model == nil || !model.Fitted() {
		return map[string]float64{}
	}

	scores := model.Scores(userID, n)
	out := make(map[string]float64, len(scores))
	for _, s := range scores {
		out[s.JobID] = s.Score
	}
	return out
}

// confidenceFor applies the two-signal confidence thresholds.
func confidenceFor(gaScore, cfScore float64) ConfidenceLevel {
	switch {
	case gaScore > 0.7 && cfScore > 0.5:
		return ConfidenceHigh
	case gaScore > 0.5 || cfScore > 0.3:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// reasonFor assembles the human-readable rationale from score
// thresholds. Phrasing is deterministic for a given score vector.
func reasonFor(b MatchBreakdown, cfScore float64, conf ConfidenceLevel) string {
	var reasons []string

	switch {
	case b.Skills > 0.8:
		reasons = append(reasons, "excellent skill match")
	case b.Skills > 0.6:
		reasons = append(reasons, "good skill alignment")
	}

	switch {
	case b.Experience > 0.8:
		reasons = append(reasons, "perfect experience level")
	case b.Experience > 0.6:
		reasons = append(reasons, "suitable experience")
	}

	if b.Location > 0.8 {
		reasons = append(reasons, "preferred location")
	}
	if b.Salary > 0.8 {
		reasons = append(reasons, "salary expectations met")
	}

	switch {
	case cfScore > 0.5:
		reasons = append(reasons, "similar candidates showed interest")
	case cfScore > 0.3:
		reasons = append(reasons, "trending among similar profiles")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "potential career opportunity")
	}
	text := strings.Join(reasons, ", ")

	switch conf {
	case ConfidenceHigh:
		return "Highly recommended due to " + text
	case ConfidenceMedium:
		return "Good match based on " + text
	default:
		return "Consider this opportunity for " + text
	}
}

// TrainIfNeeded retrains the behavioral model when the training interval
// has elapsed and enough interactions exist. Concurrent callers collapse
// into a single run; everyone gets that run's result.
func (e *Engine) TrainIfNeeded(ctx context.Context) error {
	e.modelMu.RLock()
	due := e.clock().Sub(e.lastTrainedAt) >= e.cfg.Training.Interval
	e.modelMu.RUnlock()

	if !due {
		return nil
	}
	return e.train(false)
}

// Refresh forces a retrain regardless of the interval and interaction
// minimum, then clears the response cache so new results reflect the
// fresh model immediately.
func (e *Engine) Refresh(ctx context.Context) error {
	e.modelMu.Lock()
	e.lastTrainedAt = time.Time{}
	e.modelMu.Unlock()

	if err := e.train(true); err != nil {
		return err
	}
	e.ClearCache()
	return nil
}

func (e *Engine) train(force bool) error {
	_, err, _ := e.trainGroup.Do("train", func() (interface{}, error) {
		return nil, e.runTraining(force)
	})
	return err
}

// runTraining executes one training pass. It runs on a background
// context so an abandoned request cannot poison the shared run, and it
// swaps the model only on success; any failure keeps the previous model
// serving.
func (e *Engine) runTraining(force bool) error {
	e.training.Store(true)
	defer e.training.Store(false)

	start := e.clock()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Training.Timeout)
	defer cancel()

	interactions, err := e.provider.FetchInteractions(ctx, e.cfg.Training.LookbackDays)
	if err != nil {
		wrapped := fmt.Errorf("fetch interactions: %w", err)
		e.recordTrainingError(wrapped)
		return wrapped
	}

	if !force && len(interactions) < e.cfg.Training.MinInteractions {
		e.logger.Debug().
			Int("interactions", len(interactions)).
			Int("required", e.cfg.Training.MinInteractions).
			Msg("skipping retrain, not enough interactions")
		return nil
	}

	model := e.newModel()
	model.Fit(interactions, e.clock())
	if !model.Fitted() {
		e.logger.Debug().Msg("model declined to fit, keeping current model")
		return nil
	}

	duration := e.clock().Sub(start)

	e.modelMu.Lock()
	e.model = model
	e.lastTrainedAt = e.clock()
	e.lastDuration = duration
	e.lastErr = nil
	e.modelMu.Unlock()
	version := e.modelVersion.Add(1)

	e.logger.Info().
		Int("interactions", len(interactions)).
		Int32("model_version", version).
		Dur("duration", duration).
		Msg("behavioral model retrained")

	return nil
}

func (e *Engine) recordTrainingError(err error) {
	e.modelMu.Lock()
	e.lastErr = err
	e.modelMu.Unlock()
	e.logger.Error().Err(err).Msg("training failed, keeping current model")
}

// ClearCache drops cached recommendation responses and the model's
// memoized scores.
func (e *Engine) ClearCache() {
	e.respCache.Clear()

	e.modelMu.RLock()
	model := e.model
	e.modelMu.RUnlock()
	if model != nil {
		model.ClearCache()
	}
}

// CleanupCache evicts expired response cache entries. Called by the
// scheduler service on a timer.
func (e *Engine) CleanupCache() int {
	return e.respCache.Cleanup()
}

// CacheStats returns cumulative response cache hits and misses.
func (e *Engine) CacheStats() (hits, misses uint64) {
	return e.respCache.Stats()
}

// RequestCount returns the number of Recommend calls served.
func (e *Engine) RequestCount() int64 {
	return e.requestCount.Load()
}

// Status reports the engine's operational state.
func (e *Engine) Status() EngineStatus {
	e.modelMu.RLock()
	defer e.modelMu.RUnlock()

	st := EngineStatus{
		IsTraining:             e.training.Load(),
		LastTrainedAt:          e.lastTrainedAt,
		LastTrainingDurationMS: e.lastDuration.Milliseconds(),
		ModelVersion:           int(e.modelVersion.Load()),
		CacheEntries:           e.respCache.Len(),
		GAWeight:               e.cfg.Hybrid.GAWeight,
		CFWeight:               e.cfg.Hybrid.CFWeight,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	if e.model != nil {
		st.InteractionCount = e.model.InteractionCount()
	}
	return st
}
