// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package recommend

import (
	"fmt"
	"math"
	"time"
)

// weightTolerance is the allowed deviation when weight groups must sum to 1.0.
const weightTolerance = 1e-6

// Config contains all configuration for the hybrid recommendation engine.
// It is validated once at construction; a running engine never sees an
// invalid configuration.
type Config struct {
	// Genetic contains parameters for the genetic profile matcher.
	Genetic GeneticConfig `json:"genetic"`

	// Collaborative contains parameters for the collaborative filtering model.
	Collaborative CollaborativeConfig `json:"collaborative"`

	// Hybrid contains parameters for signal blending.
	Hybrid HybridConfig `json:"hybrid"`

	// Training contains background retraining parameters.
	Training TrainingConfig `json:"training"`

	// Cache contains recommendation cache parameters.
	Cache CacheConfig `json:"cache"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`

	// Seed is the random seed for deterministic behavior.
	// If zero, a fixed default seed is used.
	Seed int64 `json:"seed"`
}

// FitnessWeights defines the contribution of each matching criterion to
// the aggregate GA fitness. The five weights must sum to 1.0.
type FitnessWeights struct {
	Skills     float64 `json:"skills"`
	Experience float64 `json:"experience"`
	Location   float64 `json:"location"`
	Salary     float64 `json:"salary"`
	Education  float64 `json:"education"`
}

// Sum returns the total of all five weights.
func (w FitnessWeights) Sum() float64 {
	return w.Skills + w.Experience + w.Location + w.Salary + w.Education
}

// GeneticConfig contains parameters for the genetic profile matcher.
type GeneticConfig struct {
	// PopulationSize is the GA population size.
	// Default: 100.
	PopulationSize int `json:"population_size"`

	// Generations is the fixed number of evolution iterations.
	// Default: 50.
	Generations int `json:"generations"`

	// MutationRate is the per-gene mutation probability.
	// Default: 0.1.
	MutationRate float64 `json:"mutation_rate"`

	// CrossoverRate is the probability two selected parents are crossed.
	// Default: 0.8.
	CrossoverRate float64 `json:"crossover_rate"`

	// EliteFraction is the fraction of the population carried over
	// unchanged each generation. Default: 0.2.
	EliteFraction float64 `json:"elite_fraction"`

	// Weights defines the fitness criterion weights. Must sum to 1.0.
	Weights FitnessWeights `json:"weights"`
}

// StrategyWeights defines the contribution of each CF strategy to the
// combined collaborative score. The three weights must sum to 1.0.
type StrategyWeights struct {
	User          float64 `json:"user"`
	Item          float64 `json:"item"`
	Factorization float64 `json:"factorization"`
}

// Sum returns the total of the three weights.
func (w StrategyWeights) Sum() float64 {
	return w.User + w.Item + w.Factorization
}

// CollaborativeConfig contains parameters for the collaborative model.
type CollaborativeConfig struct {
	// MinInteractions is the minimum nonzero matrix entries required to
	// fit the model. Below this, fit is a logged no-op. Default: 5.
	MinInteractions int `json:"min_interactions"`

	// SimilarityThreshold is the minimum similarity for a neighbor to
	// contribute to propagation. Default: 0.1.
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// DecayDays is the e-folding time of the exponential interaction
	// decay: value *= exp(-age_days/DecayDays). Default: 30.
	DecayDays float64 `json:"decay_days"`

	// MaxUserSample caps the number of users included in exact user-user
	// similarity. Beyond it, a random sample is used and unsampled pairs
	// stay at similarity 0. Default: 1000.
	MaxUserSample int `json:"max_user_sample"`

	// MaxItemSample caps the number of items in exact item-item
	// similarity, analogous to MaxUserSample. Default: 2000.
	MaxItemSample int `json:"max_item_sample"`

	// Factors is the maximum number of latent factors for the truncated
	// SVD. The effective rank is min(Factors, min(matrix dims)-1).
	// Default: 50.
	Factors int `json:"factors"`

	// TopSimilarUsers is how many similar users propagate scores in the
	// user-based strategy. Default: 20.
	TopSimilarUsers int `json:"top_similar_users"`

	// TopSimilarItems is how many similar items each interacted item
	// propagates to in the item-based strategy. Default: 10.
	TopSimilarItems int `json:"top_similar_items"`

	// Weights defines the strategy blend for the hybrid CF method.
	// Must sum to 1.0.
	Weights StrategyWeights `json:"weights"`

	// CacheTTL is the per-(user,count,method) CF result cache lifetime.
	// Default: 6h.
	CacheTTL time.Duration `json:"cache_ttl"`
}

// HybridConfig contains parameters for blending GA and CF signals.
type HybridConfig struct {
	// GAWeight and CFWeight are the base blend weights. Must sum to 1.0.
	GAWeight float64 `json:"ga_weight"`
	CFWeight float64 `json:"cf_weight"`

	// NewUserGAWeight and NewUserCFWeight apply below NewUserThreshold
	// interactions. Must sum to 1.0.
	NewUserGAWeight float64 `json:"new_user_ga_weight"`
	NewUserCFWeight float64 `json:"new_user_cf_weight"`

	// EstablishedGAWeight and EstablishedCFWeight apply above
	// EstablishedThreshold interactions. Must sum to 1.0.
	EstablishedGAWeight float64 `json:"established_ga_weight"`
	EstablishedCFWeight float64 `json:"established_cf_weight"`

	// NewUserThreshold is the interaction count below which a user is
	// treated as new. Default: 5.
	NewUserThreshold int `json:"new_user_threshold"`

	// EstablishedThreshold is the interaction count above which a user is
	// treated as established. Default: 20.
	EstablishedThreshold int `json:"established_threshold"`

	// MinCFScore is the minimum CF score for a CF-only job to be appended
	// to the merged list. Default: 0.1.
	MinCFScore float64 `json:"min_cf_score"`

	// MaxRecommendations is the default output list size. Default: 10.
	MaxRecommendations int `json:"max_recommendations"`

	// JobFetchLimit is how many active jobs the GA considers per request.
	// Default: 200.
	JobFetchLimit int `json:"job_fetch_limit"`

	// CandidateMultiplier controls how many candidates each signal is
	// asked for relative to the final list size. Default: 2.
	CandidateMultiplier int `json:"candidate_multiplier"`
}

// TrainingConfig contains background retraining parameters.
type TrainingConfig struct {
	// Interval is the minimum time between scheduled retrains.
	// Default: 12h.
	Interval time.Duration `json:"interval"`

	// MinInteractions is the minimum interaction count required before a
	// retrain is attempted. Default: 50.
	MinInteractions int `json:"min_interactions"`

	// LookbackDays bounds how far back interactions are fetched for
	// training. Default: 90.
	LookbackDays int `json:"lookback_days"`

	// Timeout bounds a single retrain run. Default: 10m.
	Timeout time.Duration `json:"timeout"`
}

// CacheConfig contains recommendation cache parameters.
type CacheConfig struct {
	// Enabled toggles the response cache. Default: true.
	Enabled bool `json:"enabled"`

	// TTL is the cache entry lifetime. Default: 6h.
	TTL time.Duration `json:"ttl"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// ComputeConcurrency bounds how many CPU-heavy scoring passes run
	// concurrently. Default: 4.
	ComputeConcurrency int `json:"compute_concurrency"`

	// RequestTimeout bounds one recommendation request end to end.
	// Default: 10s.
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Genetic: GeneticConfig{
			PopulationSize: 100,
			Generations:    50,
			MutationRate:   0.1,
			CrossoverRate:  0.8,
			EliteFraction:  0.2,
			Weights: FitnessWeights{
				Skills:     0.35,
				Experience: 0.25,
				Location:   0.15,
				Salary:     0.15,
				Education:  0.10,
			},
		},
		Collaborative: CollaborativeConfig{
			MinInteractions:     5,
			SimilarityThreshold: 0.1,
			DecayDays:           30,
			MaxUserSample:       1000,
			MaxItemSample:       2000,
			Factors:             50,
			TopSimilarUsers:     20,
			TopSimilarItems:     10,
			Weights: StrategyWeights{
				User:          0.4,
				Item:          0.3,
				Factorization: 0.3,
			},
			CacheTTL: 6 * time.Hour,
		},
		Hybrid: HybridConfig{
			GAWeight:             0.6,
			CFWeight:             0.4,
			NewUserGAWeight:      0.8,
			NewUserCFWeight:      0.2,
			EstablishedGAWeight:  0.4,
			EstablishedCFWeight:  0.6,
			NewUserThreshold:     5,
			EstablishedThreshold: 20,
			MinCFScore:           0.1,
			MaxRecommendations:   10,
			JobFetchLimit:        200,
			CandidateMultiplier:  2,
		},
		Training: TrainingConfig{
			Interval:        12 * time.Hour,
			MinInteractions: 50,
			LookbackDays:    90,
			Timeout:         10 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     6 * time.Hour,
		},
		Limits: LimitsConfig{
			ComputeConcurrency: 4,
			RequestTimeout:     10 * time.Second,
		},
	}
}

// Validate checks the configuration for static errors. Invalid
// configuration is rejected before any request is served.
//
//nolint:gocyclo // exhaustive field validation is inherently branchy
func (c *Config) Validate() error {
	g := c.Genetic
	if g.PopulationSize <= 0 {
		return fmt.Errorf("genetic.population_size must be positive, got %d", g.PopulationSize)
	}
	if g.Generations <= 0 {
		return fmt.Errorf("genetic.generations must be positive, got %d", g.Generations)
	}
	if g.MutationRate < 0 || g.MutationRate > 1 {
		return fmt.Errorf("genetic.mutation_rate must be in [0,1], got %f", g.MutationRate)
	}
	if g.CrossoverRate < 0 || g.CrossoverRate > 1 {
		return fmt.Errorf("genetic.crossover_rate must be in [0,1], got %f", g.CrossoverRate)
	}
	if g.EliteFraction < 0 || g.EliteFraction >= 1 {
		return fmt.Errorf("genetic.elite_fraction must be in [0,1), got %f", g.EliteFraction)
	}
	if err := checkWeightSum("genetic.weights", g.Weights.Sum()); err != nil {
		return err
	}
	if g.Weights.Skills < 0 || g.Weights.Experience < 0 || g.Weights.Location < 0 ||
		g.Weights.Salary < 0 || g.Weights.Education < 0 {
		return fmt.Errorf("genetic.weights must be non-negative")
	}

	cf := c.Collaborative
	if cf.MinInteractions < 0 {
		return fmt.Errorf("collaborative.min_interactions must be non-negative, got %d", cf.MinInteractions)
	}
	if cf.DecayDays <= 0 {
		return fmt.Errorf("collaborative.decay_days must be positive, got %f", cf.DecayDays)
	}
	if cf.Factors <= 0 {
		return fmt.Errorf("collaborative.factors must be positive, got %d", cf.Factors)
	}
	if cf.MaxUserSample <= 0 || cf.MaxItemSample <= 0 {
		return fmt.Errorf("collaborative sampling caps must be positive")
	}
	if err := checkWeightSum("collaborative.weights", cf.Weights.Sum()); err != nil {
		return err
	}

	h := c.Hybrid
	if err := checkWeightSum("hybrid base weights", h.GAWeight+h.CFWeight); err != nil {
		return err
	}
	if err := checkWeightSum("hybrid new-user weights", h.NewUserGAWeight+h.NewUserCFWeight); err != nil {
		return err
	}
	if err := checkWeightSum("hybrid established weights", h.EstablishedGAWeight+h.EstablishedCFWeight); err != nil {
		return err
	}
	if h.NewUserThreshold < 0 || h.EstablishedThreshold <= h.NewUserThreshold {
		return fmt.Errorf("hybrid thresholds must satisfy 0 <= new_user < established")
	}
	if h.MaxRecommendations <= 0 {
		return fmt.Errorf("hybrid.max_recommendations must be positive, got %d", h.MaxRecommendations)
	}
	if h.JobFetchLimit <= 0 {
		return fmt.Errorf("hybrid.job_fetch_limit must be positive, got %d", h.JobFetchLimit)
	}
	if h.CandidateMultiplier <= 0 {
		return fmt.Errorf("hybrid.candidate_multiplier must be positive, got %d", h.CandidateMultiplier)
	}

	if c.Training.Interval <= 0 {
		return fmt.Errorf("training.interval must be positive")
	}
	if c.Training.LookbackDays <= 0 {
		return fmt.Errorf("training.lookback_days must be positive")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when cache is enabled")
	}
	if c.Limits.ComputeConcurrency <= 0 {
		return fmt.Errorf("limits.compute_concurrency must be positive")
	}

	return nil
}

// checkWeightSum verifies a weight group sums to 1.0 within tolerance.
func checkWeightSum(name string, sum float64) error {
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%s must sum to 1.0, got %f", name, sum)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
