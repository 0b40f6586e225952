// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

// Package config loads the service configuration: defaults first, then
// an optional YAML file, then MATCHENGINE_-prefixed environment
// variables. Invalid configuration is rejected at startup; a running
// service never observes one.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/hireloop/matchengine/internal/recommend"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/matchengine/config.yaml",
	"/etc/matchengine/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "MATCHENGINE_CONFIG"

// envPrefix prefixes all environment overrides. Double underscore
// separates nesting levels: MATCHENGINE_SERVER__PORT -> server.port.
const envPrefix = "MATCHENGINE_"

// Config is the top-level service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Store   StoreConfig   `koanf:"store"`
	Engine  EngineConfig  `koanf:"engine"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins. Empty means same-origin only.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit int `koanf:"rate_limit" validate:"min=0"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig configures the embedded record store.
type StoreConfig struct {
	// Path is the on-disk store directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps all records in memory. Useful for tests and demos.
	InMemory bool `koanf:"in_memory"`

	// GCInterval is how often the store's value log is garbage collected.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// EngineConfig exposes the operator-tunable subset of the engine
// configuration. Unset fields keep the engine defaults.
type EngineConfig struct {
	Seed                    int64         `koanf:"seed"`
	MaxRecommendations      int           `koanf:"max_recommendations" validate:"min=0"`
	JobFetchLimit           int           `koanf:"job_fetch_limit" validate:"min=0"`
	CacheEnabled            bool          `koanf:"cache_enabled"`
	CacheTTL                time.Duration `koanf:"cache_ttl"`
	TrainingInterval        time.Duration `koanf:"training_interval"`
	TrainingMinInteractions int           `koanf:"training_min_interactions" validate:"min=0"`
	LookbackDays            int           `koanf:"lookback_days" validate:"min=0"`
	Generations             int           `koanf:"generations" validate:"min=0"`
	PopulationSize          int           `koanf:"population_size" validate:"min=0"`
	ComputeConcurrency      int           `koanf:"compute_concurrency" validate:"min=0"`
}

// EngineConfig builds the full engine configuration by overlaying the
// tunables on the engine defaults.
func (e EngineConfig) EngineConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.Seed = e.Seed
	cfg.Cache.Enabled = e.CacheEnabled

	if e.MaxRecommendations > 0 {
		cfg.Hybrid.MaxRecommendations = e.MaxRecommendations
	}
	if e.JobFetchLimit > 0 {
		cfg.Hybrid.JobFetchLimit = e.JobFetchLimit
	}
	if e.CacheTTL > 0 {
		cfg.Cache.TTL = e.CacheTTL
	}
	if e.TrainingInterval > 0 {
		cfg.Training.Interval = e.TrainingInterval
	}
	if e.TrainingMinInteractions > 0 {
		cfg.Training.MinInteractions = e.TrainingMinInteractions
	}
	if e.LookbackDays > 0 {
		cfg.Training.LookbackDays = e.LookbackDays
	}
	if e.Generations > 0 {
		cfg.Genetic.Generations = e.Generations
	}
	if e.PopulationSize > 0 {
		cfg.Genetic.PopulationSize = e.PopulationSize
	}
	if e.ComputeConcurrency > 0 {
		cfg.Limits.ComputeConcurrency = e.ComputeConcurrency
	}
	return cfg
}

// defaultConfig returns the built-in defaults, applied before the config
// file and environment overrides.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Path:       "data/matchengine",
			GCInterval: time.Hour,
		},
		Engine: EngineConfig{
			CacheEnabled: true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks static constraints, including the derived engine
// configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if err := c.Engine.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid engine configuration: %w", err)
	}
	return nil
}

// findConfigFile returns the first existing config file path, honoring
// the MATCHENGINE_CONFIG override.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps MATCHENGINE_SERVER__PORT to server.port.
func envTransform(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}
