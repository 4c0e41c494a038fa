// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/vibemap/vibemap/internal/logging"
)

// ClusterModel is the fitted state of a MoodClusterer. It is exported in
// full so snapshots restore byte-identical assignments and labels.
type ClusterModel struct {
	K             int                      `json:"k"`
	Centroids     [][]float64              `json:"centroids"`
	Labels        []string                 `json:"labels"`
	Assignment    []int                    `json:"assignment"`
	Sizes         []int                    `json:"sizes"`
	Silhouette    float64                  `json:"silhouette"`
	DaviesBouldin float64                  `json:"davies_bouldin"`
	Medians       [numMoodFeatures]float64 `json:"medians"`
}

// MoodClusterer groups songs into mood clusters over the first five
// normalized features (valence, energy, danceability, tempo, acousticness)
// and assigns each cluster a human-readable mood label.
type MoodClusterer struct {
	model  ClusterModel
	fitted bool
}

// SelectK sweeps k over [kMin, kMax] and returns the k with the highest
// mean silhouette. Ties resolve to the smallest k. Each candidate run is
// seeded from the base seed plus k, so selection is deterministic. The
// catalog must hold at least kMax songs; silhouette needs k < n, so a
// sweep reaching n itself stops at n-1.
func SelectK(points [][]float64, cfg *Config) (int, error) {
	if len(points) < cfg.KMax {
		return 0, fmt.Errorf("%w: %d songs cannot support the k sweep up to %d", ErrInsufficientData, len(points), cfg.KMax)
	}
	kMax := cfg.KMax
	if limit := len(points) - 1; kMax > limit {
		kMax = limit
	}
	if kMax < cfg.KMin {
		return 0, fmt.Errorf("%w: %d songs cannot support k >= %d", ErrInsufficientData, len(points), cfg.KMin)
	}

	bestK := 0
	bestScore := math.Inf(-1)
	for k := cfg.KMin; k <= kMax; k++ {
		res, err := runKMeans(points, k, rand.New(rand.NewSource(cfg.Seed+int64(k))), cfg.MaxIterations, cfg.Tolerance)
		if err != nil {
			return 0, err
		}
		score := meanSilhouette(points, res.assignment, k)
		logging.Debug().
			Int("k", k).
			Float64("silhouette", score).
			Int("iterations", res.iterations).
			Msg("Cluster count candidate scored")
		if score > bestScore {
			bestScore = score
			bestK = k
		}
	}
	return bestK, nil
}

// Fit partitions the mood-feature matrix into k clusters. A k of zero
// derives the count via SelectK.
func (m *MoodClusterer) Fit(points [][]float64, k int, cfg *Config) error {
	if len(points) == 0 {
		return ErrEmptyCatalog
	}

	if k == 0 {
		selected, err := SelectK(points, cfg)
		if err != nil {
			return err
		}
		k = selected
	}

	res, err := runKMeans(points, k, rand.New(rand.NewSource(cfg.Seed+int64(k))), cfg.MaxIterations, cfg.Tolerance)
	if err != nil {
		return err
	}

	model := ClusterModel{
		K:             k,
		Centroids:     res.centroids,
		Assignment:    res.assignment,
		Sizes:         make([]int, k),
		Silhouette:    meanSilhouette(points, res.assignment, k),
		DaviesBouldin: daviesBouldin(points, res.centroids, res.assignment),
		Medians:       featureMedians(points),
	}
	for _, ci := range res.assignment {
		model.Sizes[ci]++
	}
	model.Labels = make([]string, k)
	for ci, c := range res.centroids {
		model.Labels[ci] = labelCentroid(c, model.Medians)
	}

	logging.Info().
		Int("k", k).
		Int("songs", len(points)).
		Float64("silhouette", model.Silhouette).
		Float64("davies_bouldin", model.DaviesBouldin).
		Strs("labels", model.Labels).
		Msg("Mood clustering fitted")

	m.model = model
	m.fitted = true
	return nil
}

// Predict returns the nearest cluster for a mood-feature vector.
func (m *MoodClusterer) Predict(point []float64) (int, error) {
	if !m.fitted {
		return 0, ErrNotFitted
	}
	best := 0
	bestDist := math.Inf(1)
	for ci, c := range m.model.Centroids {
		if d := squaredDistance(point, c); d < bestDist {
			bestDist = d
			best = ci
		}
	}
	return best, nil
}

// Model exports the fitted state for snapshotting.
func (m *MoodClusterer) Model() (ClusterModel, error) {
	if !m.fitted {
		return ClusterModel{}, ErrNotFitted
	}
	return m.model, nil
}

// Restore rebuilds a fitted clusterer from exported state.
func (m *MoodClusterer) Restore(model ClusterModel) error {
	if model.K < 2 || len(model.Centroids) != model.K || len(model.Labels) != model.K {
		return fmt.Errorf("%w: inconsistent cluster model (k=%d)", ErrInvalidCatalog, model.K)
	}
	m.model = model
	m.fitted = true
	return nil
}

// meanSilhouette is the mean silhouette coefficient over all points.
// Points in singleton clusters score zero.
func meanSilhouette(points [][]float64, assignment []int, k int) float64 {
	n := len(points)
	sizes := make([]int, k)
	for _, ci := range assignment {
		sizes[ci]++
	}

	total := 0.0
	sums := make([]float64, k)
	for i := 0; i < n; i++ {
		for ci := range sums {
			sums[ci] = 0
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sums[assignment[j]] += euclidean(points[i], points[j])
		}

		own := assignment[i]
		if sizes[own] <= 1 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for ci := 0; ci < k; ci++ {
			if ci == own || sizes[ci] == 0 {
				continue
			}
			if mean := sums[ci] / float64(sizes[ci]); mean < b {
				b = mean
			}
		}
		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n)
}

// daviesBouldin computes the Davies-Bouldin index, a diagnostic of cluster
// separation. Lower is better.
func daviesBouldin(points [][]float64, centroids [][]float64, assignment []int) float64 {
	k := len(centroids)
	scatter := make([]float64, k)
	sizes := make([]int, k)
	for i, ci := range assignment {
		scatter[ci] += euclidean(points[i], centroids[ci])
		sizes[ci]++
	}
	for ci := range scatter {
		if sizes[ci] > 0 {
			scatter[ci] /= float64(sizes[ci])
		}
	}

	total := 0.0
	for i := 0; i < k; i++ {
		worst := 0.0
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			sep := euclidean(centroids[i], centroids[j])
			if sep == 0 {
				continue
			}
			if r := (scatter[i] + scatter[j]) / sep; r > worst {
				worst = r
			}
		}
		total += worst
	}
	return total / float64(k)
}

// featureMedians returns per-feature medians over the mood-feature matrix.
// These anchor the label quadrants to the catalog itself rather than to
// fixed thresholds.
func featureMedians(points [][]float64) [numMoodFeatures]float64 {
	var out [numMoodFeatures]float64
	col := make([]float64, len(points))
	for f := 0; f < numMoodFeatures; f++ {
		for i := range points {
			col[i] = points[i][f]
		}
		sort.Float64s(col)
		mid := len(col) / 2
		if len(col)%2 == 1 {
			out[f] = col[mid]
		} else {
			out[f] = (col[mid-1] + col[mid]) / 2
		}
	}
	return out
}

// labelCentroid names a centroid by its valence/energy quadrant relative to
// the catalog medians, refined by danceability or acousticness.
func labelCentroid(c []float64, medians [numMoodFeatures]float64) string {
	positive := c[featValence] >= medians[featValence]
	high := c[featEnergy] >= medians[featEnergy]

	switch {
	case positive && high:
		if c[featDanceability] >= medians[featDanceability] {
			return "Party & Dance"
		}
		return "Energetic & Happy"
	case positive && !high:
		if c[featAcousticness] >= medians[featAcousticness] {
			return "Acoustic & Mellow"
		}
		return "Calm & Peaceful"
	case !positive && high:
		if c[featAcousticness] < medians[featAcousticness] {
			return "Intense & Dark"
		}
		return "Brooding & Heavy"
	default:
		return "Melancholic"
	}
}
