// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

// Command server runs the matchengine HTTP service: config, logging,
// store, engine, and the supervision tree owning the HTTP server and
// the retrain scheduler.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hireloop/matchengine/internal/api"
	"github.com/hireloop/matchengine/internal/config"
	"github.com/hireloop/matchengine/internal/logging"
	"github.com/hireloop/matchengine/internal/recommend"
	"github.com/hireloop/matchengine/internal/recommend/collaborative"
	"github.com/hireloop/matchengine/internal/recommend/genetic"
	"github.com/hireloop/matchengine/internal/store"
	"github.com/hireloop/matchengine/internal/supervisor"
	"github.com/hireloop/matchengine/internal/supervisor/services"
)

// version is stamped by the release build via -ldflags.
var version = "dev"

// schedulerTick bounds how quickly the scheduler notices a due retrain;
// the training interval itself lives in the engine configuration.
const schedulerTick = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration invalid")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	log := logging.Logger()

	st, err := store.Open(store.Options{
		Path:     cfg.Store.Path,
		InMemory: cfg.Store.InMemory,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("store close failed")
		}
	}()

	engineCfg := cfg.Engine.EngineConfig()
	matcher := genetic.NewMatcher(engineCfg.Genetic, engineCfg.Seed, log)
	factory := func() recommend.BehaviorModel {
		return collaborative.NewModel(engineCfg.Collaborative, engineCfg.Seed, log)
	}

	engine, err := recommend.NewEngine(engineCfg, st, matcher, factory, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build engine")
	}

	handlers := api.NewServer(engine, st, cfg.Server, log)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handlers.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// suture speaks slog; the rest of the service speaks zerolog.
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	tree := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())
	tree.AddEngineService(services.NewSchedulerService(engine, st, schedulerTick, cfg.Store.GCInterval, log))
	tree.AddAPIService(services.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Bool("in_memory_store", cfg.Store.InMemory).
		Msg("matchengine starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("supervisor exited with error")
	}

	log.Info().Msg("matchengine stopped")
}
