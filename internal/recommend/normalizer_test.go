// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import (
	"errors"
	"math"
	"testing"
)

// variedCatalog spreads every feature so no column is degenerate.
func variedCatalog() []Song {
	specs := []struct {
		valence, energy, dance, tempo, acoustic float64
	}{
		{0.1, 0.2, 0.3, 80, 0.9},
		{0.4, 0.5, 0.6, 110, 0.6},
		{0.7, 0.8, 0.9, 140, 0.3},
		{0.9, 0.3, 0.5, 95, 0.1},
	}
	songs := make([]Song, len(specs))
	for i, sp := range specs {
		i, sp := i, sp
		songs[i] = testSong(trackID(i), func(s *Song) {
			s.Valence = sp.valence
			s.Energy = sp.energy
			s.Danceability = sp.dance
			s.Tempo = sp.tempo
			s.Acousticness = sp.acoustic
			s.Instrumentalness = float64(i) * 0.2
			s.Liveness = 0.1 + float64(i)*0.1
			s.Speechiness = 0.05 + float64(i)*0.05
			s.Loudness = -20 + float64(i)*4
		})
	}
	return songs
}

func TestNormalizerFitProducesStandardizedFeatures(t *testing.T) {
	songs := variedCatalog()
	n := &FeatureNormalizer{}
	if err := n.Fit(songs, 1e-8); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Over the fitted catalog every feature must come out with zero mean
	// and unit variance.
	var sums, sumSq [numFeatures]float64
	for i := range songs {
		vec, err := n.Transform(&songs[i])
		if err != nil {
			t.Fatalf("Transform: %v", err)
		}
		for f := 0; f < numFeatures; f++ {
			sums[f] += vec[f]
			sumSq[f] += vec[f] * vec[f]
		}
	}
	for f := 0; f < numFeatures; f++ {
		mean := sums[f] / float64(len(songs))
		variance := sumSq[f]/float64(len(songs)) - mean*mean
		if math.Abs(mean) > 1e-9 {
			t.Errorf("%s: mean = %g, want 0", featureNames[f], mean)
		}
		if math.Abs(variance-1) > 1e-9 {
			t.Errorf("%s: variance = %g, want 1", featureNames[f], variance)
		}
	}
}

func TestNormalizerTempoAndLoudnessScaledBeforeZScore(t *testing.T) {
	songs := variedCatalog()
	n := &FeatureNormalizer{}
	if err := n.Fit(songs, 1e-8); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	p, err := n.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}

	if p.TempoMin != 80 || p.TempoRange != 60 {
		t.Errorf("tempo min/range = %g/%g, want 80/60", p.TempoMin, p.TempoRange)
	}
	if p.LoudMin != -20 || p.LoudRange != 12 {
		t.Errorf("loudness min/range = %g/%g, want -20/12", p.LoudMin, p.LoudRange)
	}

	// The min and max tempo songs must land symmetrically around the mean
	// once scaled to [0,1], mirroring each other in z-space.
	lo, err := n.Transform(&songs[0])
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	hi, err := n.Transform(&songs[2])
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if lo[featTempo] >= 0 || hi[featTempo] <= 0 {
		t.Errorf("tempo z-scores = %g and %g, want negative and positive", lo[featTempo], hi[featTempo])
	}
}

func TestNormalizerEmptyCatalog(t *testing.T) {
	n := &FeatureNormalizer{}
	if err := n.Fit(nil, 1e-8); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("Fit(nil) error = %v, want ErrEmptyCatalog", err)
	}
}

func TestNormalizerNotFitted(t *testing.T) {
	n := &FeatureNormalizer{}
	s := testSong("x", nil)
	if _, err := n.Transform(&s); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Transform error = %v, want ErrNotFitted", err)
	}
	if _, err := n.Params(); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Params error = %v, want ErrNotFitted", err)
	}
	if _, err := n.RawMeans(); !errors.Is(err, ErrNotFitted) {
		t.Errorf("RawMeans error = %v, want ErrNotFitted", err)
	}
}

func TestNormalizerDegenerateWithEpsilonFloor(t *testing.T) {
	// Constant valence across the catalog, everything else varied.
	songs := variedCatalog()
	for i := range songs {
		songs[i].Valence = 0.5
	}

	n := &FeatureNormalizer{}
	if err := n.Fit(songs, 1e-8); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	p, err := n.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if len(p.Degenerate) != 1 || p.Degenerate[0] != "valence" {
		t.Errorf("Degenerate = %v, want [valence]", p.Degenerate)
	}

	// Every catalog row sits exactly on the mean, so the constant feature
	// transforms to zero instead of blowing up.
	for i := range songs {
		vec, err := n.Transform(&songs[i])
		if err != nil {
			t.Fatalf("Transform: %v", err)
		}
		if vec[featValence] != 0 {
			t.Errorf("row %d valence z-score = %g, want 0", i, vec[featValence])
		}
	}
}

func TestNormalizerDegenerateWithoutFloor(t *testing.T) {
	songs := variedCatalog()
	for i := range songs {
		songs[i].Valence = 0.5
		songs[i].Energy = 0.4
	}

	n := &FeatureNormalizer{}
	err := n.Fit(songs, 0)
	if !errors.Is(err, ErrDegenerateFeature) {
		t.Fatalf("Fit error = %v, want ErrDegenerateFeature", err)
	}

	// A single degenerate feature is tolerated even with the floor off.
	songs = variedCatalog()
	for i := range songs {
		songs[i].Valence = 0.5
	}
	if err := n.Fit(songs, 0); err != nil {
		t.Fatalf("Fit single degenerate: %v", err)
	}
	vec, err := n.Transform(&songs[0])
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if vec[featValence] != 0 {
		t.Errorf("valence z-score = %g, want 0", vec[featValence])
	}
}

func TestNormalizerRestoreRoundTrip(t *testing.T) {
	songs := variedCatalog()
	n := &FeatureNormalizer{}
	if err := n.Fit(songs, 1e-8); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	p, err := n.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}

	restored := &FeatureNormalizer{}
	if err := restored.Restore(p); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	probe := testSong("probe", func(s *Song) {
		s.Valence = 0.33
		s.Tempo = 123
		s.Loudness = -7
	})
	want, err := n.Transform(&probe)
	if err != nil {
		t.Fatalf("Transform original: %v", err)
	}
	got, err := restored.Transform(&probe)
	if err != nil {
		t.Fatalf("Transform restored: %v", err)
	}
	if want != got {
		t.Errorf("restored transform differs:\n got %v\nwant %v", got, want)
	}
}

func TestNormalizerRestoreRejectsBadStd(t *testing.T) {
	var p NormParams
	for f := 0; f < numFeatures; f++ {
		p.Std[f] = 1
	}
	p.Std[featEnergy] = 0

	n := &FeatureNormalizer{}
	if err := n.Restore(p); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("Restore error = %v, want ErrInvalidCatalog", err)
	}
}
