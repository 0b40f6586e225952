// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/matchengine/internal/metrics"
	"github.com/hireloop/matchengine/internal/recommend"
)

// TrainableEngine is the engine surface the scheduler drives.
type TrainableEngine interface {
	// TrainIfNeeded retrains when due; concurrent calls collapse.
	TrainIfNeeded(ctx context.Context) error

	// CleanupCache evicts expired response cache entries.
	CleanupCache() int

	// Status reports the engine state for the staleness gauges.
	Status() recommend.EngineStatus
}

// Maintainer runs periodic storage maintenance.
type Maintainer interface {
	RunGC()
}

// SchedulerService periodically nudges the engine to retrain, evicts
// expired cache entries, refreshes the engine gauges, and garbage
// collects the store. The engine itself decides whether a retrain is
// actually due, so the tick interval only bounds reaction latency.
type SchedulerService struct {
	engine       TrainableEngine
	store        Maintainer
	tickInterval time.Duration
	gcInterval   time.Duration
	logger       zerolog.Logger
}

// NewSchedulerService creates the scheduler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSchedulerService(engine TrainableEngine, store Maintainer, tickInterval, gcInterval time.Duration, logger zerolog.Logger) *SchedulerService {
	if tickInterval <= 0 {
		tickInterval = 15 * time.Minute
	}
	if gcInterval <= 0 {
		gcInterval = time.Hour
	}
	return &SchedulerService{
		engine:       engine,
		store:        store,
		tickInterval: tickInterval,
		gcInterval:   gcInterval,
		logger:       logger.With().Str("component", "scheduler").Logger(),
	}
}

// String names the service in supervisor logs.
func (s *SchedulerService) String() string { return "retrain-scheduler" }

// Serve implements suture.Service. The first training attempt happens
// immediately so a restarted process does not wait a full tick to warm up.
func (s *SchedulerService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("tick_interval", s.tickInterval).
		Msg("scheduler started")

	s.tick(ctx)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	gcTicker := time.NewTicker(s.gcInterval)
	defer gcTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		case <-gcTicker.C:
			if s.store != nil {
				s.store.RunGC()
			}
		}
	}
}

// tick runs one maintenance pass.
func (s *SchedulerService) tick(ctx context.Context) {
	start := time.Now()
	if err := s.engine.TrainIfNeeded(ctx); err != nil {
		metrics.RecordTraining("failure", time.Since(start))
		s.logger.Error().Err(err).Msg("scheduled training failed")
	}

	if evicted := s.engine.CleanupCache(); evicted > 0 {
		s.logger.Debug().Int("evicted", evicted).Msg("expired cache entries removed")
	}

	st := s.engine.Status()
	metrics.UpdateEngineGauges(st.LastTrainedAt, st.InteractionCount, st.CacheEntries)
}
