// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

package collaborative

import (
	"math"
	"math/rand"
)

const (
	powerIterations = 100
	convergenceTol  = 1e-9
)

// truncatedSVD computes the top-k singular triplets of the sparse
// user-item matrix by power iteration on AᵗA, orthogonalizing each new
// right singular vector against the ones already found (deflation).
//
// Returned slices are component-major: sigma[c], u[c][userIdx],
// v[c][itemIdx], with A ≈ Σ_c sigma[c] · u[c] ⊗ v[c]. Components with a
// vanishing singular value terminate the expansion early.
func truncatedSVD(rows []map[int]float64, nUsers, nItems, k int, rng *rand.Rand) (u [][]float64, sigma []float64, v [][]float64) {
	u = make([][]float64, 0, k)
	v = make([][]float64, 0, k)
	sigma = make([]float64, 0, k)

	for c := 0; c < k; c++ {
		vec := randomUnit(rng, nItems)

		var prevLambda float64
		for iter := 0; iter < powerIterations; iter++ {
			// w = Aᵗ(A·vec)
			av := matVec(rows, vec, nUsers)
			w := matTVec(rows, av, nItems)

			orthogonalize(w, v)

			lambda := norm(w)
			if lambda < convergenceTol {
				break
			}
			scale(w, 1/lambda)
			copy(vec, w)

			if math.Abs(lambda-prevLambda) < convergenceTol*math.Max(lambda, 1) {
				break
			}
			prevLambda = lambda
		}

		av := matVec(rows, vec, nUsers)
		s := norm(av)
		if s < convergenceTol {
			break
		}
		scale(av, 1/s)

		u = append(u, av)
		v = append(v, vec)
		sigma = append(sigma, s)
	}

	return u, sigma, v
}

// matVec computes A·x for sparse rows.
func matVec(rows []map[int]float64, x []float64, n int) []float64 {
	out := make([]float64, n)
	for i, row := range rows {
		var sum float64
		for j, w := range row {
			sum += w * x[j]
		}
		out[i] = sum
	}
	return out
}

// matTVec computes Aᵗ·y for sparse rows.
func matTVec(rows []map[int]float64, y []float64, m int) []float64 {
	out := make([]float64, m)
	for i, row := range rows {
		yi := y[i]
		if yi == 0 {
			continue
		}
		for j, w := range row {
			out[j] += w * yi
		}
	}
	return out
}

// orthogonalize removes from w its projections onto each basis vector.
func orthogonalize(w []float64, basis [][]float64) {
	for _, b := range basis {
		var proj float64
		for i := range w {
			proj += w[i] * b[i]
		}
		for i := range w {
			w[i] -= proj * b[i]
		}
	}
}

func randomUnit(rng *rand.Rand, n int) []float64 {
	vec := make([]float64, n)
	for i := range vec {
		vec[i] = rng.NormFloat64()
	}
	if l := norm(vec); l > 0 {
		scale(vec, 1/l)
	}
	return vec
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func scale(v []float64, s float64) {
	for i := range v {
		v[i] *= s
	}
}
