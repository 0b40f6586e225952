// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package recommend

import (
	"context"
	"errors"
	"time"
)

// ErrCandidateNotFound indicates the requested user has no candidate record.
var ErrCandidateNotFound = errors.New("candidate not found")

// InteractionType classifies user-job interactions for implicit feedback.
type InteractionType int

const (
	// InteractionView indicates the user opened a job posting.
	InteractionView InteractionType = iota
	// InteractionClick indicates the user clicked through to job details.
	InteractionClick
	// InteractionSave indicates the user saved the job for later.
	InteractionSave
	// InteractionShortlist indicates the user shortlisted the job.
	InteractionShortlist
	// InteractionApply indicates the user submitted an application.
	InteractionApply
)

// String returns a human-readable name for the interaction type.
func (t InteractionType) String() string {
	switch t {
	case InteractionView:
		return "view"
	case InteractionClick:
		return "click"
	case InteractionSave:
		return "save"
	case InteractionShortlist:
		return "shortlist"
	case InteractionApply:
		return "apply"
	default:
		return "unknown"
	}
}

// Weight returns the signal strength for this interaction type.
// Stronger commitment signals (apply) outweigh passive ones (view).
func (t InteractionType) Weight() float64 {
	switch t {
	case InteractionView:
		return 1.0
	case InteractionClick:
		return 2.0
	case InteractionSave:
		return 3.0
	case InteractionShortlist:
		return 4.0
	case InteractionApply:
		return 5.0
	default:
		return 1.0
	}
}

// ParseInteractionType maps an event name to an interaction type.
// Both bare names ("view") and analytics event names ("job_view") parse.
func ParseInteractionType(s string) (InteractionType, bool) {
	switch s {
	case "view", "job_view":
		return InteractionView, true
	case "click", "job_click":
		return InteractionClick, true
	case "save", "job_save":
		return InteractionSave, true
	case "shortlist", "job_shortlist":
		return InteractionShortlist, true
	case "apply", "job_apply":
		return InteractionApply, true
	default:
		return InteractionView, false
	}
}

// Interaction represents one user-job interaction event.
// Records are append-only; time decay is applied at model-fit time
// and never written back.
type Interaction struct {
	// UserID is the interacting user.
	UserID string `json:"user_id"`

	// JobID is the job the interaction targeted.
	JobID string `json:"job_id"`

	// Type classifies the interaction.
	Type InteractionType `json:"type"`

	// Timestamp is when the interaction occurred.
	Timestamp time.Time `json:"timestamp"`

	// Value is the base weight of the interaction before type weighting
	// and time decay. Usually 1.0.
	Value float64 `json:"value"`
}

// CandidateProfile is an immutable snapshot of a candidate, built per
// request by the profile adapters and discarded after use.
type CandidateProfile struct {
	// UserID is the candidate's user identifier.
	UserID string `json:"user_id"`

	// Skills is the candidate's declared skill set.
	Skills []string `json:"skills"`

	// ExperienceYears is total professional experience in years.
	ExperienceYears int `json:"experience_years"`

	// EducationLevel is the highest attained level
	// (high_school, diploma, bachelors, masters, phd).
	EducationLevel string `json:"education_level"`

	// PreferredLocations lists cities the candidate wants to work in.
	PreferredLocations []string `json:"preferred_locations"`

	// PreferredJobTypes lists preferred employment types.
	PreferredJobTypes []string `json:"preferred_job_types"`

	// ExpectedSalaryMin is the lower bound of the expected salary.
	// Zero means unspecified.
	ExpectedSalaryMin int `json:"expected_salary_min,omitempty"`

	// ExpectedSalaryMax is the upper bound of the expected salary.
	// Zero means unspecified.
	ExpectedSalaryMax int `json:"expected_salary_max,omitempty"`
}

// JobProfile is an immutable snapshot of an active job posting.
type JobProfile struct {
	// JobID is the job identifier.
	JobID string `json:"job_id"`

	// RequiredSkills are skills the posting requires.
	RequiredSkills []string `json:"required_skills"`

	// PreferredSkills are nice-to-have skills.
	PreferredSkills []string `json:"preferred_skills"`

	// ExperienceMin is the minimum required experience in years.
	ExperienceMin int `json:"experience_min"`

	// ExperienceMax is the maximum desired experience in years.
	// Zero means no upper bound.
	ExperienceMax int `json:"experience_max,omitempty"`

	// EducationLevel is the required education level.
	EducationLevel string `json:"education_level"`

	// LocationCity is the city the job is located in.
	LocationCity string `json:"location_city"`

	// JobType is the employment type (full_time, part_time, contract).
	JobType string `json:"job_type"`

	// SalaryMin is the lower bound of the offered salary. Zero means unspecified.
	SalaryMin int `json:"salary_min,omitempty"`

	// SalaryMax is the upper bound of the offered salary. Zero means unspecified.
	SalaryMax int `json:"salary_max,omitempty"`

	// Category is the job category (engineering, marketing, ...).
	Category string `json:"category,omitempty"`
}

// MatchBreakdown holds the five GA sub-scores for one candidate-job pair.
// Every field lies in [0, 1].
type MatchBreakdown struct {
	Skills     float64 `json:"skills"`
	Experience float64 `json:"experience"`
	Location   float64 `json:"location"`
	Salary     float64 `json:"salary"`
	Education  float64 `json:"education"`
}

// ConfidenceLevel expresses how much the engine trusts a recommendation.
type ConfidenceLevel string

const (
	// ConfidenceHigh means both signals strongly agree.
	ConfidenceHigh ConfidenceLevel = "high"
	// ConfidenceMedium means at least one signal is solid.
	ConfidenceMedium ConfidenceLevel = "medium"
	// ConfidenceLow means neither signal is strong.
	ConfidenceLow ConfidenceLevel = "low"
)

// Recommendation is one ranked entry in the hybrid output.
type Recommendation struct {
	// JobID is the recommended job.
	JobID string `json:"job_id"`

	// UserID is the user the recommendation is for.
	UserID string `json:"user_id"`

	// HybridScore is the adaptive weighted combination of both signals.
	HybridScore float64 `json:"hybrid_score"`

	// GAScore is the genetic matcher's fitness for this pair.
	// Zero when the job surfaced through collaborative filtering only.
	GAScore float64 `json:"ga_score"`

	// CFScore is the collaborative filtering score.
	// Zero when the behavioral model has no signal for this pair.
	CFScore float64 `json:"cf_score"`

	// Breakdown is the GA sub-score breakdown. Nil for CF-only entries.
	Breakdown *MatchBreakdown `json:"match_breakdown,omitempty"`

	// Reason is a human-readable explanation assembled from score thresholds.
	Reason string `json:"recommendation_reason"`

	// Confidence is the confidence level for this recommendation.
	Confidence ConfidenceLevel `json:"confidence_level"`

	// GeneratedAt is when the recommendation was produced.
	GeneratedAt time.Time `json:"generated_at"`
}

// EngineStatus reports the engine's operational state.
type EngineStatus struct {
	// IsTraining indicates a retrain is currently in progress.
	IsTraining bool `json:"is_training"`

	// LastTrainedAt is when the collaborative model last retrained.
	LastTrainedAt time.Time `json:"last_trained_at"`

	// LastTrainingDurationMS is how long the last retrain took.
	LastTrainingDurationMS int64 `json:"last_training_duration_ms"`

	// LastError is the last retrain error, if any.
	LastError string `json:"last_error,omitempty"`

	// ModelVersion increments on every successful retrain.
	ModelVersion int `json:"model_version"`

	// InteractionCount is the number of interactions in the last training set.
	InteractionCount int `json:"interaction_count"`

	// CacheEntries is the current recommendation cache size.
	CacheEntries int `json:"cache_entries"`

	// GAWeight and CFWeight are the base hybrid weights currently configured.
	GAWeight float64 `json:"ga_weight"`
	CFWeight float64 `json:"cf_weight"`
}

// ProfileMatch is one ranked result from the profile matcher.
type ProfileMatch struct {
	// JobID is the matched job.
	JobID string `json:"job_id"`

	// Fitness is the aggregate fitness in [0, 1].
	Fitness float64 `json:"fitness"`

	// Breakdown holds the five criterion sub-scores.
	Breakdown MatchBreakdown `json:"breakdown"`
}

// ProfileMatcher ranks jobs for one candidate by profile compatibility.
// Implemented by the genetic matcher.
type ProfileMatcher interface {
	// Rank returns up to maxResults jobs sorted by descending fitness,
	// de-duplicated by job ID.
	Rank(ctx context.Context, candidate *CandidateProfile, jobs []JobProfile, maxResults int) []ProfileMatch
}

// BehaviorScore is one scored job from the behavioral model,
// normalized to [0, 1].
type BehaviorScore struct {
	JobID string  `json:"job_id"`
	Score float64 `json:"score"`
}

// BehaviorModel is one fitted snapshot of the behavioral model. A model
// is fitted exactly once and read-only afterwards; the engine builds a
// fresh model per training run and swaps it in on success.
type BehaviorModel interface {
	// Fit builds the model from interaction history. Below the model's
	// interaction minimum this is a no-op and Fitted stays false.
	Fit(interactions []Interaction, now time.Time)

	// Fitted reports whether the model can serve scores.
	Fitted() bool

	// InteractionCount returns the size of the fitted training set.
	InteractionCount() int

	// Scores returns up to n scored jobs for a user, excluding jobs the
	// user already interacted with. Unknown users yield empty results.
	Scores(userID string, n int) []BehaviorScore

	// ClearCache drops any memoized per-user results.
	ClearCache()
}

// ModelFactory produces a fresh unfitted behavioral model for one
// training run.
type ModelFactory func() BehaviorModel

// DataProvider defines the collaborator boundary for fetching candidate,
// job, and interaction data. Typically implemented by the store layer.
type DataProvider interface {
	// FetchCandidate returns the candidate profile for a user.
	// Returns ErrCandidateNotFound when the user has no record.
	FetchCandidate(ctx context.Context, userID string) (*CandidateProfile, error)

	// FetchActiveJobs returns up to limit active job profiles,
	// most recently posted first.
	FetchActiveJobs(ctx context.Context, limit int) ([]JobProfile, error)

	// FetchInteractions returns interaction records no older than sinceDays.
	FetchInteractions(ctx context.Context, sinceDays int) ([]Interaction, error)

	// CountUserInteractions returns how many interactions a user has recorded.
	// Used to adapt hybrid weights to behavioral history depth.
	CountUserInteractions(ctx context.Context, userID string) (int, error)
}
