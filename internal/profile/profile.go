// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

// Package profile defines the persisted record shapes and the adapters
// that turn them into the immutable snapshots the engine consumes.
// Adapters never fail: malformed or missing optional fields default to
// neutral values so one bad record cannot break a recommendation pass.
package profile

import (
	"strings"
	"time"

	"github.com/hireloop/matchengine/internal/recommend"
)

// DefaultEducationLevel is assumed when a record carries none.
const DefaultEducationLevel = "bachelors"

// JobStatusActive marks a job open for recommendations. Records with an
// empty status are treated as active for backward compatibility.
const JobStatusActive = "active"

// UserRecord is the persisted candidate record.
type UserRecord struct {
	UserID             string    `json:"user_id"`
	FullName           string    `json:"full_name,omitempty"`
	Skills             []string  `json:"skills"`
	ExperienceYears    int       `json:"experience_years"`
	EducationLevel     string    `json:"education_level"`
	PreferredLocations []string  `json:"preferred_locations"`
	PreferredJobTypes  []string  `json:"preferred_job_types"`
	ExpectedSalaryMin  int       `json:"expected_salary_min,omitempty"`
	ExpectedSalaryMax  int       `json:"expected_salary_max,omitempty"`

	// Location is the candidate's current city, used as a preference
	// fallback when PreferredLocations is empty.
	Location string `json:"location,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// JobRecord is the persisted job posting record.
type JobRecord struct {
	JobID           string    `json:"job_id"`
	Title           string    `json:"title,omitempty"`
	Company         string    `json:"company,omitempty"`
	RequiredSkills  []string  `json:"required_skills"`
	PreferredSkills []string  `json:"preferred_skills"`
	ExperienceMin   int       `json:"experience_min"`
	ExperienceMax   int       `json:"experience_max,omitempty"`
	EducationLevel  string    `json:"education_level"`
	LocationCity    string    `json:"location_city"`
	JobType         string    `json:"job_type"`
	SalaryMin       int       `json:"salary_min,omitempty"`
	SalaryMax       int       `json:"salary_max,omitempty"`
	Category        string    `json:"category,omitempty"`
	Status          string    `json:"status"`
	PostedAt        time.Time `json:"posted_at"`
}

// Active reports whether the job should enter recommendation passes.
func (j *JobRecord) Active() bool {
	return j.Status == "" || j.Status == JobStatusActive
}

// EventRecord is one persisted interaction event.
type EventRecord struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	JobID      string    `json:"job_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Value      float64   `json:"value,omitempty"`
}

// Candidate converts a user record into a matcher snapshot, applying
// neutral defaults for anything the record omits.
func Candidate(r *UserRecord) *recommend.CandidateProfile {
	locations := cleanStrings(r.PreferredLocations)
	if len(locations) == 0 && strings.TrimSpace(r.Location) != "" {
		locations = []string{strings.TrimSpace(r.Location)}
	}

	education := strings.TrimSpace(r.EducationLevel)
	if education == "" {
		education = DefaultEducationLevel
	}

	return &recommend.CandidateProfile{
		UserID:             r.UserID,
		Skills:             cleanStrings(r.Skills),
		ExperienceYears:    maxInt(r.ExperienceYears, 0),
		EducationLevel:     education,
		PreferredLocations: locations,
		PreferredJobTypes:  cleanStrings(r.PreferredJobTypes),
		ExpectedSalaryMin:  maxInt(r.ExpectedSalaryMin, 0),
		ExpectedSalaryMax:  maxInt(r.ExpectedSalaryMax, 0),
	}
}

// Job converts a job record into a matcher snapshot.
func Job(r *JobRecord) recommend.JobProfile {
	return recommend.JobProfile{
		JobID:           r.JobID,
		RequiredSkills:  cleanStrings(r.RequiredSkills),
		PreferredSkills: cleanStrings(r.PreferredSkills),
		ExperienceMin:   maxInt(r.ExperienceMin, 0),
		ExperienceMax:   maxInt(r.ExperienceMax, 0),
		EducationLevel:  strings.TrimSpace(r.EducationLevel),
		LocationCity:    strings.TrimSpace(r.LocationCity),
		JobType:         r.JobType,
		SalaryMin:       maxInt(r.SalaryMin, 0),
		SalaryMax:       maxInt(r.SalaryMax, 0),
		Category:        r.Category,
	}
}

// Interaction converts an event record into a model interaction.
// Events with an unknown type or missing identifiers are dropped, not
// errored: the ingest surface accepts more event kinds than the model
// consumes.
func Interaction(r *EventRecord) (recommend.Interaction, bool) {
	if r.UserID == "" || r.JobID == "" {
		return recommend.Interaction{}, false
	}
	t, ok := recommend.ParseInteractionType(r.EventType)
	if !ok {
		return recommend.Interaction{}, false
	}

	value := r.Value
	if value == 0 {
		value = 1.0
	}

	return recommend.Interaction{
		UserID:    r.UserID,
		JobID:     r.JobID,
		Type:      t,
		Timestamp: r.OccurredAt,
		Value:     value,
	}, true
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
