// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import (
	"fmt"
	"math"

	"github.com/vibemap/vibemap/internal/logging"
)

// NormParams captures a fitted normalizer so it can round-trip through a
// snapshot and reproduce the exact same transform on restore.
type NormParams struct {
	TempoMin   float64              `json:"tempo_min"`
	TempoRange float64              `json:"tempo_range"`
	LoudMin    float64              `json:"loud_min"`
	LoudRange  float64              `json:"loud_range"`
	Mean       [numFeatures]float64 `json:"mean"`
	Std        [numFeatures]float64 `json:"std"`
	RawMean    [numFeatures]float64 `json:"raw_mean"`
	Degenerate []string             `json:"degenerate,omitempty"`
	Epsilon    float64              `json:"epsilon"`
}

// FeatureNormalizer rescales raw audio features into a comparable space:
// tempo and loudness are min-max scaled to [0,1] first, then every feature
// is standardized to zero mean and unit variance over the fitted catalog.
type FeatureNormalizer struct {
	params NormParams
	fitted bool
}

// Fit computes normalization statistics from the catalog. epsilon replaces
// a zero standard deviation so constant features do not divide by zero;
// epsilon == 0 disables the floor, in which case more than one degenerate
// feature aborts the fit.
func (n *FeatureNormalizer) Fit(songs []Song, epsilon float64) error {
	if len(songs) == 0 {
		return ErrEmptyCatalog
	}

	var p NormParams
	p.Epsilon = epsilon

	p.TempoMin, p.TempoRange = minAndRange(songs, func(s *Song) float64 { return s.Tempo })
	p.LoudMin, p.LoudRange = minAndRange(songs, func(s *Song) float64 { return s.Loudness })

	// Raw means are kept for ideal-point construction, before any scaling.
	for i := range songs {
		raw := songs[i].rawFeatures()
		for f := 0; f < numFeatures; f++ {
			p.RawMean[f] += raw[f]
		}
	}
	for f := 0; f < numFeatures; f++ {
		p.RawMean[f] /= float64(len(songs))
	}

	// Mean and std are computed over the min-max scaled vectors.
	scaled := make([][numFeatures]float64, len(songs))
	for i := range songs {
		scaled[i] = p.scale(songs[i].rawFeatures())
		for f := 0; f < numFeatures; f++ {
			p.Mean[f] += scaled[i][f]
		}
	}
	for f := 0; f < numFeatures; f++ {
		p.Mean[f] /= float64(len(songs))
	}
	for i := range scaled {
		for f := 0; f < numFeatures; f++ {
			d := scaled[i][f] - p.Mean[f]
			p.Std[f] += d * d
		}
	}
	for f := 0; f < numFeatures; f++ {
		p.Std[f] = math.Sqrt(p.Std[f] / float64(len(songs)))
		if p.Std[f] == 0 {
			p.Degenerate = append(p.Degenerate, featureNames[f])
			if epsilon > 0 {
				p.Std[f] = epsilon
			}
		}
	}

	if len(p.Degenerate) > 0 {
		if epsilon == 0 && len(p.Degenerate) > 1 {
			return fmt.Errorf("%w: %v", ErrDegenerateFeature, p.Degenerate)
		}
		logging.Warn().
			Strs("features", p.Degenerate).
			Float64("epsilon", epsilon).
			Msg("Zero-variance features detected during normalization fit")
		if epsilon == 0 {
			// Single degenerate feature with the floor disabled: leave the
			// std at zero and let Transform collapse it to the mean.
			p.Std[indexOfFeature(p.Degenerate[0])] = 1
		}
	}

	n.params = p
	n.fitted = true
	return nil
}

// Transform maps a song's raw features into the normalized space.
func (n *FeatureNormalizer) Transform(s *Song) ([numFeatures]float64, error) {
	return n.TransformValues(s.rawFeatures())
}

// TransformValues maps a raw feature vector into the normalized space.
func (n *FeatureNormalizer) TransformValues(raw [numFeatures]float64) ([numFeatures]float64, error) {
	if !n.fitted {
		return [numFeatures]float64{}, ErrNotFitted
	}
	out := n.params.scale(raw)
	for f := 0; f < numFeatures; f++ {
		out[f] = (out[f] - n.params.Mean[f]) / n.params.Std[f]
	}
	return out, nil
}

// RawMeans returns the per-feature catalog means in raw units.
func (n *FeatureNormalizer) RawMeans() ([numFeatures]float64, error) {
	if !n.fitted {
		return [numFeatures]float64{}, ErrNotFitted
	}
	return n.params.RawMean, nil
}

// Params exports the fitted statistics for snapshotting.
func (n *FeatureNormalizer) Params() (NormParams, error) {
	if !n.fitted {
		return NormParams{}, ErrNotFitted
	}
	return n.params, nil
}

// Restore rebuilds a fitted normalizer from exported statistics.
func (n *FeatureNormalizer) Restore(p NormParams) error {
	for f := 0; f < numFeatures; f++ {
		if p.Std[f] <= 0 {
			return fmt.Errorf("%w: non-positive std for %s", ErrInvalidCatalog, featureNames[f])
		}
	}
	n.params = p
	n.fitted = true
	return nil
}

// scale applies the min-max step to tempo and loudness.
func (p *NormParams) scale(raw [numFeatures]float64) [numFeatures]float64 {
	out := raw
	if p.TempoRange > 0 {
		out[featTempo] = (raw[featTempo] - p.TempoMin) / p.TempoRange
	} else {
		out[featTempo] = 0
	}
	if p.LoudRange > 0 {
		out[featLoudness] = (raw[featLoudness] - p.LoudMin) / p.LoudRange
	} else {
		out[featLoudness] = 0
	}
	return out
}

func minAndRange(songs []Song, get func(*Song) float64) (min, rng float64) {
	min = get(&songs[0])
	max := min
	for i := 1; i < len(songs); i++ {
		v := get(&songs[i])
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max - min
}

func indexOfFeature(name string) int {
	for i, n := range featureNames {
		if n == name {
			return i
		}
	}
	return -1
}
