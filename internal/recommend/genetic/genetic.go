// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

// Package genetic implements the evolutionary profile matcher.
//
// The matcher ranks job profiles for one candidate by evolving a
// population of candidate-job pairings over a multi-criteria fitness
// landscape. Criteria interact nonlinearly (asymmetric over- and
// under-qualification penalties, salary range overlap), which is why a
// plain sort over independent criterion scores is not sufficient.
package genetic

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hireloop/matchengine/internal/recommend"
)

// mutationStrength is the uniform noise half-width applied per sub-score
// during mutation.
const mutationStrength = 0.05

// initJitter is the fitness noise half-width applied to duplicated genes
// when padding the initial population.
const initJitter = 0.1

// tournamentSize is the number of genes competing in one selection round.
const tournamentSize = 3

// educationRank orders education levels for hierarchical comparison.
// Unknown levels map to the bachelor tier.
var educationRank = map[string]int{
	"high_school": 1, "high-school": 1,
	"diploma":   2,
	"bachelors": 3, "bachelor's": 3, "bachelor": 3,
	"masters": 4, "master's": 4, "master": 4,
	"phd": 5, "doctorate": 5,
}

const defaultEducationRank = 3

// gene is one member of the GA population: a candidate-job pairing with
// its five sub-scores and aggregate fitness. Genes live only inside one
// population lifecycle and are never persisted.
type gene struct {
	jobID     string
	fitness   float64
	breakdown recommend.MatchBreakdown
}

// Match is one ranked result from the matcher.
type Match = recommend.ProfileMatch

// Matcher ranks jobs for a candidate via evolutionary search.
// It is safe for concurrent use: each Rank call derives its own random
// source from the configured seed, which also makes runs reproducible.
type Matcher struct {
	cfg    recommend.GeneticConfig
	seed   int64
	logger zerolog.Logger
}

// NewMatcher creates a matcher with the given configuration and seed.
// The configuration is assumed validated by recommend.Config.Validate.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMatcher(cfg recommend.GeneticConfig, seed int64, logger zerolog.Logger) *Matcher {
	if seed == 0 {
		seed = 42
	}
	return &Matcher{
		cfg:    cfg,
		seed:   seed,
		logger: logger.With().Str("component", "genetic").Logger(),
	}
}

// Evaluate computes the aggregate fitness and sub-score breakdown for one
// candidate-job pair. Deterministic: no randomness is involved.
func (m *Matcher) Evaluate(candidate *recommend.CandidateProfile, job *recommend.JobProfile) (float64, recommend.MatchBreakdown) {
	b := recommend.MatchBreakdown{
		Skills:     skillMatch(candidate, job),
		Experience: experienceMatch(candidate, job),
		Location:   locationMatch(candidate, job),
		Salary:     salaryMatch(candidate, job),
		Education:  educationMatch(candidate, job),
	}
	return m.aggregate(b), b
}

// aggregate combines sub-scores using the configured criterion weights.
func (m *Matcher) aggregate(b recommend.MatchBreakdown) float64 {
	w := m.cfg.Weights
	return b.Skills*w.Skills +
		b.Experience*w.Experience +
		b.Location*w.Location +
		b.Salary*w.Salary +
		b.Education*w.Education
}

// Rank evolves a population over the candidate-job fitness landscape and
// returns the top maxResults jobs, de-duplicated by job ID with the best
// fitness kept. An empty job list yields an empty result, never an error.
func (m *Matcher) Rank(ctx context.Context, candidate *recommend.CandidateProfile, jobs []recommend.JobProfile, maxResults int) []Match {
	if len(jobs) == 0 {
		return []Match{}
	}
	if maxResults <= 0 {
		maxResults = len(jobs)
	}

	rng := rand.New(rand.NewSource(m.seed)) //nolint:gosec // deterministic evolution, not security

	population := m.initialPopulation(rng, candidate, jobs)
	eliteCount := int(float64(m.cfg.PopulationSize) * m.cfg.EliteFraction)

	for gen := 0; gen < m.cfg.Generations; gen++ {
		if ctx.Err() != nil {
			break // bounded anyway; honor abandonment cheaply
		}

		sortByFitness(population)

		next := make([]gene, 0, m.cfg.PopulationSize)
		next = append(next, population[:min(eliteCount, len(population))]...)

		for len(next) < m.cfg.PopulationSize {
			selected := m.selection(rng, population)

			for i := 0; i+1 < len(selected) && len(next) < m.cfg.PopulationSize; i += 2 {
				c1, c2 := m.crossover(rng, selected[i], selected[i+1])
				next = append(next, m.mutate(rng, c1), m.mutate(rng, c2))
			}
		}

		population = next[:m.cfg.PopulationSize]

		if gen%10 == 0 {
			m.logger.Debug().
				Int("generation", gen).
				Float64("best_fitness", bestFitness(population)).
				Msg("evolution progress")
		}
	}

	sortByFitness(population)

	// De-duplicate by job ID; sorted order means the first occurrence
	// carries the highest fitness for that job.
	seen := make(map[string]struct{}, maxResults)
	matches := make([]Match, 0, maxResults)
	for i := range population {
		g := &population[i]
		if _, ok := seen[g.jobID]; ok {
			continue
		}
		seen[g.jobID] = struct{}{}
		matches = append(matches, Match{
			JobID:     g.jobID,
			Fitness:   g.fitness,
			Breakdown: g.breakdown,
		})
		if len(matches) >= maxResults {
			break
		}
	}

	return matches
}

// initialPopulation evaluates every job directly, then pads with
// fitness-jittered duplicates until the population size is reached.
func (m *Matcher) initialPopulation(rng *rand.Rand, candidate *recommend.CandidateProfile, jobs []recommend.JobProfile) []gene {
	population := make([]gene, 0, m.cfg.PopulationSize)

	for i := range jobs {
		population = append(population, m.newGene(candidate, &jobs[i]))
	}

	for len(population) < m.cfg.PopulationSize {
		job := &jobs[rng.Intn(len(jobs))]
		g := m.newGene(candidate, job)
		g.fitness = clamp01(g.fitness + uniform(rng, initJitter))
		population = append(population, g)
	}

	if len(population) > m.cfg.PopulationSize {
		population = population[:m.cfg.PopulationSize]
	}
	return population
}

// newGene evaluates a candidate-job pair into a gene.
func (m *Matcher) newGene(candidate *recommend.CandidateProfile, job *recommend.JobProfile) gene {
	fitness, breakdown := m.Evaluate(candidate, job)
	return gene{jobID: job.JobID, fitness: fitness, breakdown: breakdown}
}

// selection runs tournament selection, producing len(population) parents.
func (m *Matcher) selection(rng *rand.Rand, population []gene) []gene {
	selected := make([]gene, 0, len(population))
	k := min(tournamentSize, len(population))

	for range population {
		winner := population[rng.Intn(len(population))]
		for j := 1; j < k; j++ {
			challenger := population[rng.Intn(len(population))]
			if challenger.fitness > winner.fitness {
				winner = challenger
			}
		}
		selected = append(selected, winner)
	}

	return selected
}

// crossover averages the parents' sub-scores with probability
// CrossoverRate. Fitness is always recomputed from the configured
// weights, never inherited.
func (m *Matcher) crossover(rng *rand.Rand, p1, p2 gene) (gene, gene) {
	if rng.Float64() > m.cfg.CrossoverRate {
		return p1, p2
	}

	avg := recommend.MatchBreakdown{
		Skills:     (p1.breakdown.Skills + p2.breakdown.Skills) / 2,
		Experience: (p1.breakdown.Experience + p2.breakdown.Experience) / 2,
		Location:   (p1.breakdown.Location + p2.breakdown.Location) / 2,
		Salary:     (p1.breakdown.Salary + p2.breakdown.Salary) / 2,
		Education:  (p1.breakdown.Education + p2.breakdown.Education) / 2,
	}

	c1 := gene{jobID: p1.jobID, breakdown: avg, fitness: m.aggregate(avg)}
	c2 := gene{jobID: p2.jobID, breakdown: avg, fitness: m.aggregate(avg)}
	return c1, c2
}

// mutate perturbs each sub-score with uniform noise with probability
// MutationRate, clamping to [0, 1] and recomputing fitness.
func (m *Matcher) mutate(rng *rand.Rand, g gene) gene {
	if rng.Float64() > m.cfg.MutationRate {
		return g
	}

	g.breakdown.Skills = clamp01(g.breakdown.Skills + uniform(rng, mutationStrength))
	g.breakdown.Experience = clamp01(g.breakdown.Experience + uniform(rng, mutationStrength))
	g.breakdown.Location = clamp01(g.breakdown.Location + uniform(rng, mutationStrength))
	g.breakdown.Salary = clamp01(g.breakdown.Salary + uniform(rng, mutationStrength))
	g.breakdown.Education = clamp01(g.breakdown.Education + uniform(rng, mutationStrength))
	g.fitness = m.aggregate(g.breakdown)

	return g
}

// skillMatch scores skill overlap: weighted Jaccard with required skills
// at 0.7 and preferred at 0.3, clipped to [0, 1]. Jobs declaring no
// skills score neutral 0.5.
func skillMatch(candidate *recommend.CandidateProfile, job *recommend.JobProfile) float64 {
	if len(job.RequiredSkills) == 0 && len(job.PreferredSkills) == 0 {
		return 0.5
	}

	candidateSet := normalizeSkillSet(candidate.Skills)
	requiredSet := normalizeSkillSet(job.RequiredSkills)
	preferredSet := normalizeSkillSet(job.PreferredSkills)

	requiredScore := jaccard(candidateSet, requiredSet)

	var preferredScore float64
	if len(preferredSet) > 0 {
		preferredScore = jaccard(candidateSet, preferredSet)
	}

	return math.Min(requiredScore*0.7+preferredScore*0.3, 1.0)
}

// experienceMatch scores 1.0 within [min, max], penalizes 0.2/year under
// the minimum (floor 0) and 0.1/year over the maximum (floor 0.7).
// A zero ExperienceMax means no upper bound.
func experienceMatch(candidate *recommend.CandidateProfile, job *recommend.JobProfile) float64 {
	exp := candidate.ExperienceYears

	if exp < job.ExperienceMin {
		gap := float64(job.ExperienceMin - exp)
		return math.Max(0.0, 1.0-gap*0.2)
	}

	if job.ExperienceMax > 0 && exp > job.ExperienceMax {
		excess := float64(exp - job.ExperienceMax)
		return math.Max(0.7, 1.0-excess*0.1)
	}

	return 1.0
}

// locationMatch scores 1.0 when a preferred location and the job city
// contain each other (either direction), 0.5 when the candidate states no
// preference, 0.2 otherwise.
func locationMatch(candidate *recommend.CandidateProfile, job *recommend.JobProfile) float64 {
	if len(candidate.PreferredLocations) == 0 {
		return 0.5
	}

	jobCity := strings.ToLower(strings.TrimSpace(job.LocationCity))
	for _, preferred := range candidate.PreferredLocations {
		p := strings.ToLower(strings.TrimSpace(preferred))
		if p == "" {
			continue
		}
		if strings.Contains(jobCity, p) || strings.Contains(p, jobCity) {
			return 1.0
		}
	}

	return 0.2
}

// salaryMatch scores the overlap ratio of the candidate's expected range
// against the job's offered range. Disjoint ranges are penalized in
// proportion to the gap relative to the average of the two minimums.
// Either side fully unspecified scores neutral 0.5. A zero upper bound
// means unbounded.
func salaryMatch(candidate *recommend.CandidateProfile, job *recommend.JobProfile) float64 {
	if candidate.ExpectedSalaryMin == 0 && candidate.ExpectedSalaryMax == 0 {
		return 0.5
	}
	if job.SalaryMin == 0 && job.SalaryMax == 0 {
		return 0.5
	}

	candidateMin := float64(candidate.ExpectedSalaryMin)
	candidateMax := math.Inf(1)
	if candidate.ExpectedSalaryMax > 0 {
		candidateMax = float64(candidate.ExpectedSalaryMax)
	}
	jobMin := float64(job.SalaryMin)
	jobMax := math.Inf(1)
	if job.SalaryMax > 0 {
		jobMax = float64(job.SalaryMax)
	}

	overlapMin := math.Max(candidateMin, jobMin)
	overlapMax := math.Min(candidateMax, jobMax)

	if overlapMin > overlapMax {
		// Disjoint: inverse-proportional penalty on the gap.
		gap := math.Min(math.Abs(candidateMin-jobMax), math.Abs(jobMin-candidateMax))
		avgSalary := (candidateMin + jobMin) / 2
		gapRatio := gap / math.Max(avgSalary, 1)
		return math.Max(0.0, 1.0-gapRatio)
	}

	// Unbounded sides borrow the opposing bound for ratio purposes.
	candidateRange := candidateMax - candidateMin
	if math.IsInf(candidateMax, 1) {
		candidateRange = jobMax - candidateMin
	}
	jobRange := jobMax - jobMin
	if math.IsInf(jobMax, 1) {
		jobRange = candidateMax - jobMin
	}

	if candidateRange > 0 && jobRange > 0 && !math.IsInf(candidateRange, 1) && !math.IsInf(jobRange, 1) {
		return math.Min((overlapMax-overlapMin)/math.Min(candidateRange, jobRange), 1.0)
	}
	return 1.0
}

// educationMatch scores 1.0 when the candidate meets or exceeds the
// required level, with a 0.2 penalty per missing level, floor 0.3.
func educationMatch(candidate *recommend.CandidateProfile, job *recommend.JobProfile) float64 {
	candidateLevel := educationLevel(candidate.EducationLevel)
	jobLevel := educationLevel(job.EducationLevel)

	if candidateLevel >= jobLevel {
		return 1.0
	}

	gap := float64(jobLevel - candidateLevel)
	return math.Max(0.3, 1.0-gap*0.2)
}

func educationLevel(s string) int {
	if rank, ok := educationRank[strings.ToLower(strings.TrimSpace(s))]; ok {
		return rank
	}
	return defaultEducationRank
}

func normalizeSkillSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// jaccard computes |a∩b| / |a∪b|, treating an empty union as zero.
func jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for s := range a {
		if _, ok := b[s]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func sortByFitness(population []gene) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})
}

func bestFitness(population []gene) float64 {
	best := 0.0
	for i := range population {
		if population[i].fitness > best {
			best = population[i].fitness
		}
	}
	return best
}

// uniform draws from [-width, +width).
func uniform(rng *rand.Rand, width float64) float64 {
	return (rng.Float64()*2 - 1) * width
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
