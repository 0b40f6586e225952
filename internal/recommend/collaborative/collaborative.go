// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

// Package collaborative implements the behavioral recommendation model:
// a time-decayed, type-weighted user-item interaction matrix scored by
// three strategies (user-based kNN, item-based kNN, truncated SVD) and
// their weighted blend.
//
// Similarity computation is bounded: above the configured user/item
// sample limits only a seeded random sample of rows enters the pairwise
// cosine pass, and unsampled pairs keep similarity exactly zero. This is
// a deliberate cost bound, not an accident; the factorization strategy
// still covers the full matrix.
package collaborative

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/matchengine/internal/cache"
	"github.com/hireloop/matchengine/internal/recommend"
)

// Method selects a scoring strategy.
type Method string

const (
	// MethodUser scores via user-based nearest neighbors.
	MethodUser Method = "user_based"
	// MethodItem scores via item-based nearest neighbors.
	MethodItem Method = "item_based"
	// MethodSVD scores via the truncated factorization.
	MethodSVD Method = "svd"
	// MethodHybrid blends all three strategies.
	MethodHybrid Method = "hybrid"
)

// Score is one scored job for a user. Scores are normalized to [0, 1]
// within each strategy.
type Score = recommend.BehaviorScore

// Model holds one fitted snapshot of the behavioral model.
//
// A Model is fitted exactly once and is read-only afterwards; the engine
// builds a fresh Model per training run and swaps it in on success, so
// no locking is needed here beyond the method cache's own.
type Model struct {
	cfg    recommend.CollaborativeConfig
	seed   int64
	logger zerolog.Logger

	fitted       bool
	interactions int

	userIndex map[string]int
	itemIndex map[string]int
	users     []string
	items     []string

	// rows[u] maps item index -> accumulated decayed weight; cols is the
	// transpose, kept for item similarity and the factorization.
	rows []map[int]float64
	cols []map[int]float64

	userSim []map[int]float64
	itemSim []map[int]float64

	// Factorization components: sigma[c] * uFactors[c][user] * vFactors[c][item].
	uFactors [][]float64
	vFactors [][]float64
	sigma    []float64

	scoreCache *cache.Cache[[]Score]
}

// NewModel creates an unfitted model.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewModel(cfg recommend.CollaborativeConfig, seed int64, logger zerolog.Logger) *Model {
	if seed == 0 {
		seed = 42
	}
	return &Model{
		cfg:        cfg,
		seed:       seed,
		logger:     logger.With().Str("component", "collaborative").Logger(),
		scoreCache: cache.New[[]Score](cfg.CacheTTL),
	}
}

// Fitted reports whether Fit completed with enough data to serve scores.
func (m *Model) Fitted() bool { return m.fitted }

// InteractionCount returns the number of interactions in the fitted matrix.
func (m *Model) InteractionCount() int { return m.interactions }

// Dimensions returns the fitted matrix shape (users, items).
func (m *Model) Dimensions() (int, int) { return len(m.users), len(m.items) }

// Fit builds the decayed interaction matrix, the sampled similarity
// structures, and the factorization. The minimum-interactions gate
// counts distinct nonzero (user, job) cells after accumulation, so
// repeated interactions on one cell do not satisfy it. Below the
// minimum the model stays unfitted and every strategy returns empty
// results; this is a soft condition, not an error.
func (m *Model) Fit(interactions []recommend.Interaction, now time.Time) {
	start := time.Now()

	m.buildMatrix(interactions, now)

	nonzero := 0
	for _, row := range m.rows {
		nonzero += len(row)
	}
	if nonzero < m.cfg.MinInteractions {
		m.logger.Warn().
			Int("nonzero_entries", nonzero).
			Int("required", m.cfg.MinInteractions).
			Msg("not enough distinct interactions to fit behavioral model")
		return
	}
	m.interactions = len(interactions)

	rng := rand.New(rand.NewSource(m.seed)) //nolint:gosec // sampling reproducibility, not security

	userSample := sampleIndices(rng, len(m.users), m.cfg.MaxUserSample)
	itemSample := sampleIndices(rng, len(m.items), m.cfg.MaxItemSample)

	m.userSim = pairwiseCosine(m.rows, len(m.users), userSample, m.cfg.SimilarityThreshold)
	m.itemSim = pairwiseCosine(m.cols, len(m.items), itemSample, m.cfg.SimilarityThreshold)

	k := m.cfg.Factors
	if minDim := min(len(m.users), len(m.items)); k > minDim-1 {
		k = minDim - 1
	}
	if k > 0 {
		m.uFactors, m.sigma, m.vFactors = truncatedSVD(m.rows, len(m.users), len(m.items), k, rng)
	}

	m.fitted = true
	m.logger.Info().
		Int("users", len(m.users)).
		Int("items", len(m.items)).
		Int("interactions", len(interactions)).
		Int("factors", len(m.sigma)).
		Dur("duration", time.Since(start)).
		Msg("behavioral model fitted")
}

// buildMatrix accumulates type-weighted, exponentially time-decayed
// interaction weights into sparse rows and columns.
func (m *Model) buildMatrix(interactions []recommend.Interaction, now time.Time) {
	m.userIndex = make(map[string]int)
	m.itemIndex = make(map[string]int)

	// Sorted index maps keep matrix coordinates stable across runs with
	// the same data, independent of interaction order.
	for _, in := range interactions {
		if _, ok := m.userIndex[in.UserID]; !ok {
			m.userIndex[in.UserID] = 0
			m.users = append(m.users, in.UserID)
		}
		if _, ok := m.itemIndex[in.JobID]; !ok {
			m.itemIndex[in.JobID] = 0
			m.items = append(m.items, in.JobID)
		}
	}
	sort.Strings(m.users)
	sort.Strings(m.items)
	for i, id := range m.users {
		m.userIndex[id] = i
	}
	for i, id := range m.items {
		m.itemIndex[id] = i
	}

	m.rows = make([]map[int]float64, len(m.users))
	m.cols = make([]map[int]float64, len(m.items))
	for i := range m.rows {
		m.rows[i] = make(map[int]float64)
	}
	for i := range m.cols {
		m.cols[i] = make(map[int]float64)
	}

	for _, in := range interactions {
		u := m.userIndex[in.UserID]
		i := m.itemIndex[in.JobID]

		ageDays := now.Sub(in.Timestamp).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		decay := math.Exp(-ageDays / float64(m.cfg.DecayDays))

		value := in.Value
		if value == 0 {
			value = 1.0
		}
		w := value * in.Type.Weight() * decay

		m.rows[u][i] += w
		m.cols[i][u] += w
	}
}

// Recommend returns up to n scored jobs for a user via the given method,
// excluding jobs the user already interacted with. Unknown users and an
// unfitted model yield empty results.
func (m *Model) Recommend(userID string, n int, method Method) []Score {
	if !m.fitted || n <= 0 {
		return []Score{}
	}

	key := fmt.Sprintf("%s:%d:%s", userID, n, method)
	if cached, ok := m.scoreCache.Get(key); ok {
		return cached
	}

	u, ok := m.userIndex[userID]
	if !ok {
		return []Score{}
	}

	var scores map[int]float64
	switch method {
	case MethodUser:
		scores = m.userBased(u)
	case MethodItem:
		scores = m.itemBased(u)
	case MethodSVD:
		scores = m.factorized(u)
	case MethodHybrid:
		scores = m.blend(u)
	default:
		scores = m.blend(u)
	}

	result := m.topScores(scores, n)
	m.scoreCache.Set(key, result)
	return result
}

// userBased scores unseen items as a similarity-weighted sum over the
// top similar users' item weights. The sum is deliberate: an item held
// by several similar neighbors accumulates more weight than one held by
// a single neighbor, and averaging would erase that popularity signal.
func (m *Model) userBased(u int) map[int]float64 {
	neighbors := topNeighbors(m.userSim[u], m.cfg.TopSimilarUsers)
	if len(neighbors) == 0 {
		return nil
	}

	seen := m.rows[u]
	weighted := make(map[int]float64)

	for _, nb := range neighbors {
		for item, rating := range m.rows[nb.idx] {
			if _, already := seen[item]; already {
				continue
			}
			weighted[item] += nb.sim * rating
		}
	}

	return normalizeScores(weighted)
}

// itemBased scores unseen items by propagating the user's item weights
// through each interacted item's top similar items.
func (m *Model) itemBased(u int) map[int]float64 {
	seen := m.rows[u]
	scores := make(map[int]float64)

	for item, rating := range seen {
		for _, nb := range topNeighbors(m.itemSim[item], m.cfg.TopSimilarItems) {
			if _, already := seen[nb.idx]; already {
				continue
			}
			scores[nb.idx] += nb.sim * rating
		}
	}

	return normalizeScores(scores)
}

// factorized scores unseen items from the reconstructed low-rank matrix.
func (m *Model) factorized(u int) map[int]float64 {
	if len(m.sigma) == 0 {
		return nil
	}

	seen := m.rows[u]
	scores := make(map[int]float64)

	for item := 0; item < len(m.items); item++ {
		if _, already := seen[item]; already {
			continue
		}
		var pred float64
		for c := range m.sigma {
			pred += m.sigma[c] * m.uFactors[c][u] * m.vFactors[c][item]
		}
		if pred > 0 {
			scores[item] = pred
		}
	}

	return normalizeScores(scores)
}

// blend combines the three strategies with the configured weights.
// Strategies without a score for an item contribute zero.
func (m *Model) blend(u int) map[int]float64 {
	w := m.cfg.Weights
	combined := make(map[int]float64)

	for item, s := range m.userBased(u) {
		combined[item] += w.User * s
	}
	for item, s := range m.itemBased(u) {
		combined[item] += w.Item * s
	}
	for item, s := range m.factorized(u) {
		combined[item] += w.Factorization * s
	}

	return combined
}

// Scores satisfies the engine's model contract with the hybrid blend.
func (m *Model) Scores(userID string, n int) []recommend.BehaviorScore {
	return m.Recommend(userID, n, MethodHybrid)
}

// UserSimilarity returns the cosine similarity between two users, zero
// when either is unknown or the pair fell outside the sampled set.
func (m *Model) UserSimilarity(a, b string) float64 {
	ia, ok := m.userIndex[a]
	if !ok || !m.fitted {
		return 0
	}
	ib, ok := m.userIndex[b]
	if !ok {
		return 0
	}
	return m.userSim[ia][ib]
}

// ItemSimilarity returns the cosine similarity between two jobs, zero
// when either is unknown or the pair fell outside the sampled set.
func (m *Model) ItemSimilarity(a, b string) float64 {
	ia, ok := m.itemIndex[a]
	if !ok || !m.fitted {
		return 0
	}
	ib, ok := m.itemIndex[b]
	if !ok {
		return 0
	}
	return m.itemSim[ia][ib]
}

// ClearCache drops all cached method results.
func (m *Model) ClearCache() {
	m.scoreCache.Clear()
}

// topScores converts an item-index score map into a sorted, truncated
// Score slice. Ties break on job ID so output is deterministic.
func (m *Model) topScores(scores map[int]float64, n int) []Score {
	result := make([]Score, 0, len(scores))
	for item, s := range scores {
		result = append(result, Score{JobID: m.items[item], Score: s})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].JobID < result[j].JobID
	})

	if len(result) > n {
		result = result[:n]
	}
	return result
}

type neighbor struct {
	idx int
	sim float64
}

// topNeighbors returns up to k neighbors sorted by descending similarity,
// index ascending on ties.
func topNeighbors(sims map[int]float64, k int) []neighbor {
	if len(sims) == 0 {
		return nil
	}

	neighbors := make([]neighbor, 0, len(sims))
	for idx, sim := range sims {
		neighbors = append(neighbors, neighbor{idx: idx, sim: sim})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return neighbors[i].idx < neighbors[j].idx
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// normalizeScores scales scores into [0, 1] by dividing by the maximum,
// preserving order.
func normalizeScores(scores map[int]float64) map[int]float64 {
	var maxScore float64
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore <= 0 {
		return scores
	}
	for item := range scores {
		scores[item] /= maxScore
	}
	return scores
}

// sampleIndices returns all indices when n fits the budget, otherwise a
// seeded random sample of size limit.
func sampleIndices(rng *rand.Rand, n, limit int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if n <= limit {
		return indices
	}

	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	sampled := indices[:limit]
	sort.Ints(sampled)
	return sampled
}

// pairwiseCosine computes cosine similarity between all pairs of sampled
// sparse vectors, keeping only values at or above threshold. Rows outside
// the sample get an empty map, so their pairs read as exactly zero.
func pairwiseCosine(vectors []map[int]float64, n int, sample []int, threshold float64) []map[int]float64 {
	sims := make([]map[int]float64, n)
	for i := range sims {
		sims[i] = make(map[int]float64)
	}

	norms := make([]float64, n)
	for _, i := range sample {
		norms[i] = sparseNorm(vectors[i])
	}

	for a := 0; a < len(sample); a++ {
		i := sample[a]
		if norms[i] == 0 {
			continue
		}
		for b := a + 1; b < len(sample); b++ {
			j := sample[b]
			if norms[j] == 0 {
				continue
			}
			cos := sparseDot(vectors[i], vectors[j]) / (norms[i] * norms[j])
			if cos >= threshold {
				sims[i][j] = cos
				sims[j][i] = cos
			}
		}
	}

	return sims
}

func sparseDot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for k, av := range a {
		if bv, ok := b[k]; ok {
			dot += av * bv
		}
	}
	return dot
}

func sparseNorm(v map[int]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
