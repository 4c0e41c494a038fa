// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/muesli/clusters"
)

// songObservation adapts a catalog row to the clustering library's
// observation interface. idx points back into the fitted song slice.
type songObservation struct {
	idx    int
	coords clusters.Coordinates
}

func (o songObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o songObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// kmeansResult holds the output of a single Lloyd run.
type kmeansResult struct {
	centroids  [][]float64
	assignment []int
	iterations int
}

// runKMeans partitions points into k clusters using k-means++ seeding and
// Lloyd iteration. The rng fully determines initialization, so identical
// inputs and seeds reproduce identical partitions.
func runKMeans(points [][]float64, k int, rng *rand.Rand, maxIterations int, tolerance float64) (*kmeansResult, error) {
	if k < 2 {
		return nil, fmt.Errorf("cluster count must be >= 2, got %d", k)
	}
	if len(points) < k {
		return nil, fmt.Errorf("%w: %d songs for %d clusters", ErrInsufficientData, len(points), k)
	}

	obs := make(clusters.Observations, len(points))
	for i, p := range points {
		obs[i] = songObservation{idx: i, coords: clusters.Coordinates(p)}
	}

	cc := make(clusters.Clusters, k)
	for i, center := range seedCentroids(points, k, rng) {
		cc[i] = clusters.Cluster{Center: clusters.Coordinates(center)}
	}

	assignment := make([]int, len(points))
	iterations := 0
	for iter := 0; iter < maxIterations; iter++ {
		iterations = iter + 1

		cc.Reset()
		for i, o := range obs {
			ci := cc.Nearest(o)
			assignment[i] = ci
			cc[ci].Append(o)
		}
		fillEmptyClusters(cc, obs, assignment)

		moved := 0.0
		for ci := range cc {
			prev := append(clusters.Coordinates(nil), cc[ci].Center...)
			cc[ci].Recenter()
			if d := euclidean(prev, cc[ci].Center); d > moved {
				moved = d
			}
		}
		if moved <= tolerance {
			break
		}
	}

	centroids := make([][]float64, k)
	for ci := range cc {
		centroids[ci] = append([]float64(nil), cc[ci].Center...)
	}
	return &kmeansResult{
		centroids:  centroids,
		assignment: assignment,
		iterations: iterations,
	}, nil
}

// seedCentroids implements k-means++: the first center is drawn uniformly,
// each subsequent one proportional to its squared distance from the nearest
// already-chosen center.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	dist2 := make([]float64, len(points))
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			best := math.Inf(1)
			for _, c := range centers {
				if d := squaredDistance(p, c); d < best {
					best = d
				}
			}
			dist2[i] = best
			total += best
		}

		if total == 0 {
			// All remaining points coincide with a center; pick uniformly.
			centers = append(centers, points[rng.Intn(len(points))])
			continue
		}

		target := rng.Float64() * total
		chosen := len(points) - 1
		acc := 0.0
		for i, d := range dist2 {
			acc += d
			if acc >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, points[chosen])
	}
	return centers
}

// fillEmptyClusters moves the point farthest from its centroid into each
// empty cluster so every run yields exactly k non-empty clusters.
func fillEmptyClusters(cc clusters.Clusters, obs clusters.Observations, assignment []int) {
	for ci := range cc {
		if len(cc[ci].Observations) > 0 {
			continue
		}

		farIdx := -1
		farDist := -1.0
		for i, o := range obs {
			src := assignment[i]
			if len(cc[src].Observations) <= 1 {
				continue
			}
			d := o.Distance(cc[src].Center)
			if d > farDist {
				farDist = d
				farIdx = i
			}
		}
		if farIdx < 0 {
			continue
		}

		src := assignment[farIdx]
		cc[src].Observations = removeObservation(cc[src].Observations, farIdx)
		cc[ci].Append(obs[farIdx])
		assignment[farIdx] = ci
	}
}

func removeObservation(obs clusters.Observations, idx int) clusters.Observations {
	for i, o := range obs {
		if so, ok := o.(songObservation); ok && so.idx == idx {
			return append(obs[:i], obs[i+1:]...)
		}
	}
	return obs
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func euclidean(a, b []float64) float64 {
	return math.Sqrt(squaredDistance(a, b))
}
