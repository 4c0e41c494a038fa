// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import (
	"math"
	"sort"
)

// neighbor is one entry in a prebuilt nearest-neighbor list.
type neighbor struct {
	row int
	sim float64
}

// knnIndex holds, for every catalog row, its top-budget cosine neighbors
// computed once at build time. Queries against it never touch the feature
// matrix, which bounds per-query cost to the neighbor budget.
type knnIndex struct {
	budget    int
	neighbors [][]neighbor
}

// buildKNNIndex precomputes bounded cosine neighbor lists over the
// normalized feature matrix. Lists are sorted by similarity descending with
// ties broken by ascending track id, matching the exact-method ordering.
func buildKNNIndex(matrix [][]float64, songs []Song, budget int) *knnIndex {
	n := len(matrix)
	norms := make([]float64, n)
	for i, row := range matrix {
		norms[i] = vectorNorm(row)
	}

	idx := &knnIndex{
		budget:    budget,
		neighbors: make([][]neighbor, n),
	}
	for i := 0; i < n; i++ {
		candidates := make([]neighbor, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sim := mapCosine(cosine(matrix[i], matrix[j], norms[i], norms[j]))
			candidates = append(candidates, neighbor{row: j, sim: sim})
		}
		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].sim != candidates[b].sim {
				return candidates[a].sim > candidates[b].sim
			}
			return songs[candidates[a].row].TrackID < songs[candidates[b].row].TrackID
		})
		if len(candidates) > budget {
			candidates = candidates[:budget]
		}
		idx.neighbors[i] = candidates
	}
	return idx
}

// query returns up to limit prebuilt neighbors for a row. clamped reports
// whether the request exceeded the index budget.
func (k *knnIndex) query(row, limit int) (result []neighbor, clamped bool) {
	if limit > k.budget {
		limit = k.budget
		clamped = true
	}
	list := k.neighbors[row]
	if limit > len(list) {
		limit = len(list)
	}
	return list[:limit], clamped
}

func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// cosine returns the raw cosine similarity in [-1, 1]. Zero-norm vectors
// have no direction and score zero against everything.
func cosine(a, b []float64, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	c := dot / (normA * normB)
	// Guard against float drift outside [-1, 1].
	return math.Max(-1, math.Min(1, c))
}

// mapCosine rescales cosine similarity from [-1, 1] to [0, 1].
func mapCosine(c float64) float64 {
	return (c + 1) / 2
}

// euclideanSimilarity converts a distance to a similarity in (0, 1];
// identical vectors score exactly 1.
func euclideanSimilarity(d float64) float64 {
	return 1 / (1 + d)
}
