// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import "errors"

// Failure kinds surfaced by the engine. Each condition gets its own sentinel
// so boundary layers can map them to status codes with errors.Is instead of
// string matching.
var (
	// ErrEmptyCatalog indicates a fit was attempted on a catalog with zero rows.
	ErrEmptyCatalog = errors.New("catalog is empty")

	// ErrInvalidCatalog indicates a catalog row violates the input contract
	// (missing field, out-of-range feature, duplicate track id).
	ErrInvalidCatalog = errors.New("invalid catalog")

	// ErrDegenerateFeature indicates more than one feature had zero variance
	// and the epsilon floor was disabled.
	ErrDegenerateFeature = errors.New("degenerate feature variance")

	// ErrNotFitted indicates a component was used before its fit completed.
	ErrNotFitted = errors.New("model not fitted")

	// ErrModelNotLoaded indicates a query reached the recommender before any
	// generation was built or loaded.
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrInvalidMood indicates an unknown mood category.
	ErrInvalidMood = errors.New("invalid mood category")

	// ErrInvalidTempo indicates an unknown tempo category.
	ErrInvalidTempo = errors.New("invalid tempo category")

	// ErrInvalidMethod indicates an unknown similarity method.
	ErrInvalidMethod = errors.New("invalid similarity method")

	// ErrInvalidWeight indicates hybrid score weights that do not sum to 1.
	ErrInvalidWeight = errors.New("invalid score weights")

	// ErrUnknownSongID indicates a seed track id absent from the catalog.
	ErrUnknownSongID = errors.New("unknown song id")

	// ErrInsufficientData indicates the catalog is too small for the
	// requested cluster count range.
	ErrInsufficientData = errors.New("insufficient data for clustering")
)
