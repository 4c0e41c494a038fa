// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import (
	"fmt"
	"math"
)

// Config contains all tunables for the recommendation engine.
type Config struct {
	// NeighborBudget bounds the prebuilt KNN lists per song. Queries
	// requesting more neighbors than this are clamped to it.
	NeighborBudget int `json:"neighbor_budget"`

	// KMin and KMax bound the silhouette sweep for cluster-count selection.
	KMin int `json:"k_min"`
	KMax int `json:"k_max"`

	// FixedK pins the cluster count and skips the sweep when > 0.
	// Zero means derive k per catalog.
	FixedK int `json:"fixed_k"`

	// Seed drives k-means++ initialization. The same catalog and seed
	// produce identical assignments across runs and processes.
	Seed int64 `json:"seed"`

	// MaxIterations caps Lloyd iterations per k-means run.
	MaxIterations int `json:"max_iterations"`

	// Tolerance is the centroid-movement threshold for convergence.
	Tolerance float64 `json:"tolerance"`

	// EpsilonFloor replaces a zero standard deviation during normalization.
	// Zero disables the floor; more than one degenerate feature then fails
	// the fit with ErrDegenerateFeature.
	EpsilonFloor float64 `json:"epsilon_floor"`

	// MaxPerArtist is the default artist cap for diversity selection.
	MaxPerArtist int `json:"max_per_artist"`

	// SimilarityWeight and MoodWeight are the default hybrid score weights.
	// They must sum to 1.
	SimilarityWeight float64 `json:"similarity_weight"`
	MoodWeight       float64 `json:"mood_weight"`
}

// DefaultConfig returns the recommended engine configuration.
func DefaultConfig() *Config {
	return &Config{
		NeighborBudget:   20,
		KMin:             2,
		KMax:             10,
		FixedK:           0,
		Seed:             42,
		MaxIterations:    300,
		Tolerance:        1e-4,
		EpsilonFloor:     1e-8,
		MaxPerArtist:     2,
		SimilarityWeight: 0.7,
		MoodWeight:       0.3,
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.NeighborBudget < 1 {
		return fmt.Errorf("neighbor_budget must be >= 1, got %d", c.NeighborBudget)
	}
	if c.KMin < 2 {
		return fmt.Errorf("k_min must be >= 2, got %d", c.KMin)
	}
	if c.KMax < c.KMin {
		return fmt.Errorf("k_max (%d) must be >= k_min (%d)", c.KMax, c.KMin)
	}
	if c.FixedK != 0 && c.FixedK < 2 {
		return fmt.Errorf("fixed_k must be 0 or >= 2, got %d", c.FixedK)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be > 0, got %g", c.Tolerance)
	}
	if c.EpsilonFloor < 0 {
		return fmt.Errorf("epsilon_floor must be >= 0, got %g", c.EpsilonFloor)
	}
	if c.MaxPerArtist < 1 {
		return fmt.Errorf("max_per_artist must be >= 1, got %d", c.MaxPerArtist)
	}
	if err := validateWeights(c.SimilarityWeight, c.MoodWeight); err != nil {
		return err
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

// weightTolerance absorbs float rounding when checking that weights sum to 1.
const weightTolerance = 1e-9

func validateWeights(similarity, mood float64) error {
	if similarity < 0 || mood < 0 {
		return fmt.Errorf("%w: weights must be non-negative (similarity=%g mood=%g)",
			ErrInvalidWeight, similarity, mood)
	}
	if math.Abs(similarity+mood-1) > weightTolerance {
		return fmt.Errorf("%w: weights must sum to 1 (similarity=%g mood=%g)",
			ErrInvalidWeight, similarity, mood)
	}
	return nil
}
