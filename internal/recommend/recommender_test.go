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

// testSong builds a catalog row with sane defaults. Tests override the
// fields they care about.
func testSong(id string, mutate func(*Song)) Song {
	s := Song{
		TrackID:          id,
		Name:             "Track " + id,
		Artist:           "Artist " + id,
		Popularity:       50,
		Valence:          0.5,
		Energy:           0.5,
		Danceability:     0.5,
		Tempo:            110,
		Acousticness:     0.5,
		Instrumentalness: 0.1,
		Liveness:         0.2,
		Speechiness:      0.1,
		Loudness:         -10,
	}
	if mutate != nil {
		mutate(&s)
	}
	return s
}

// valenceEnergyCatalog is the five-song fixture whose valence and energy
// values exercise the happy-mood ranking end to end.
func valenceEnergyCatalog() []Song {
	pairs := []struct {
		valence, energy float64
		popularity      int
	}{
		{0.8, 0.7, 70},
		{0.9, 0.9, 80},
		{0.2, 0.2, 90},
		{0.5, 0.5, 40},
		{0.65, 0.55, 60},
	}
	songs := make([]Song, len(pairs))
	for i, p := range pairs {
		i := i
		songs[i] = testSong(trackID(i), func(s *Song) {
			s.Valence = p.valence
			s.Energy = p.energy
			s.Popularity = p.popularity
		})
	}
	return songs
}

func trackID(i int) string {
	return string(rune('a'+i)) + "001"
}

// buildRecommender fits a normalizer on the catalog and assembles the
// query surface without running the clustering sweep.
func buildRecommender(t *testing.T, songs []Song, cfg *Config) *SongRecommender {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	normalizer := &FeatureNormalizer{}
	if err := normalizer.Fit(songs, cfg.EpsilonFloor); err != nil {
		t.Fatalf("normalizer fit: %v", err)
	}
	rec, err := newRecommender(songs, normalizer, &MoodClusterer{}, cfg)
	if err != nil {
		t.Fatalf("newRecommender: %v", err)
	}
	return rec
}

func resultIDs(results []ScoredSong) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Song.TrackID
	}
	return ids
}

func TestRecommendByMoodHappyOrdering(t *testing.T) {
	rec := buildRecommender(t, valenceEnergyCatalog(), nil)

	results, err := rec.RecommendByMood(MoodHappy, 5)
	if err != nil {
		t.Fatalf("RecommendByMood: %v", err)
	}

	// Only the three songs with valence >= 0.6 and energy >= 0.5 qualify.
	// Their offsets from the happy ideal point grow strictly on both axes,
	// so the distance order holds under any per-feature rescaling.
	want := []string{trackID(0), trackID(1), trackID(4)}
	got := resultIDs(results)
	if len(got) != len(want) {
		t.Fatalf("got %d results %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result order = %v, want %v", got, want)
		}
	}

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores increase at %d: %g > %g", i, results[i].Score, results[i-1].Score)
		}
	}
}

// The (0.9,0.9) and (0.7,0.6) songs sit at raw offsets of equal magnitude
// from the happy ideal (0.8, 0.75), so their relative order is decided by
// the computed normalized distances, with popularity breaking an exact tie.
func TestRecommendByMoodHappyEquidistantPair(t *testing.T) {
	pairs := []struct {
		valence, energy float64
		popularity      int
	}{
		{0.8, 0.7, 70},
		{0.9, 0.9, 80},
		{0.2, 0.2, 90},
		{0.5, 0.5, 40},
		{0.7, 0.6, 60},
	}
	songs := make([]Song, len(pairs))
	for i, p := range pairs {
		i := i
		songs[i] = testSong(trackID(i), func(s *Song) {
			s.Valence = p.valence
			s.Energy = p.energy
			s.Popularity = p.popularity
		})
	}
	rec := buildRecommender(t, songs, nil)

	results, err := rec.RecommendByMood(MoodHappy, 10)
	if err != nil {
		t.Fatalf("RecommendByMood: %v", err)
	}
	got := resultIDs(results)
	if len(got) != 3 {
		t.Fatalf("got %d results %v, want 3", len(got), got)
	}
	// The (0.8, 0.7) song lies on the ideal valence and closest in energy.
	if got[0] != trackID(0) {
		t.Fatalf("nearest = %s, want %s (order %v)", got[0], trackID(0), got)
	}

	// Recompute the two remaining distances through the normalizer to pin
	// the pair's order to the ranking rule rather than to a guess.
	means, err := rec.normalizer.RawMeans()
	if err != nil {
		t.Fatalf("RawMeans: %v", err)
	}
	ideal, err := rec.normalizer.TransformValues(idealRawPoint(MoodHappy, means))
	if err != nil {
		t.Fatalf("TransformValues: %v", err)
	}
	dist := func(s *Song) float64 {
		vec, err := rec.normalizer.Transform(s)
		if err != nil {
			t.Fatalf("Transform(%s): %v", s.TrackID, err)
		}
		return euclidean(vec[:], ideal[:])
	}

	d1, d4 := dist(&songs[1]), dist(&songs[4])
	wantSecond := trackID(1)
	if d4 < d1 {
		wantSecond = trackID(4)
	}
	// On an exact distance tie the higher popularity (index 1, 80 vs 60)
	// still ranks index 1 first.
	if got[1] != wantSecond {
		t.Errorf("pair order = %v, want %s second (d1=%g d4=%g)", got, wantSecond, d1, d4)
	}
}

func TestRecommendByMoodCountTruncation(t *testing.T) {
	rec := buildRecommender(t, valenceEnergyCatalog(), nil)

	results, err := rec.RecommendByMood(MoodHappy, 2)
	if err != nil {
		t.Fatalf("RecommendByMood: %v", err)
	}
	want := []string{trackID(0), trackID(1)}
	got := resultIDs(results)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("top 2 = %v, want %v", got, want)
	}
}

func TestRecommendByMoodNoMatches(t *testing.T) {
	songs := []Song{
		testSong("x1", func(s *Song) { s.Valence = 0.5; s.Energy = 0.3; s.Tempo = 90 }),
		testSong("x2", func(s *Song) { s.Valence = 0.45; s.Energy = 0.35; s.Tempo = 95 }),
		testSong("x3", func(s *Song) { s.Valence = 0.55; s.Energy = 0.45; s.Tempo = 130 }),
	}
	rec := buildRecommender(t, songs, nil)

	// No song satisfies the dark rule (valence <= 0.3 and energy >= 0.6).
	results, err := rec.RecommendByMood(MoodDark, 10)
	if err != nil {
		t.Fatalf("RecommendByMood: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want empty", len(results))
	}
}

func TestRecommendByTempoBuckets(t *testing.T) {
	songs := []Song{
		testSong("t100", func(s *Song) { s.Tempo = 100; s.Popularity = 10 }),
		testSong("t110", func(s *Song) { s.Tempo = 110; s.Popularity = 20 }),
		testSong("t120", func(s *Song) { s.Tempo = 120; s.Popularity = 30 }),
		testSong("t090", func(s *Song) { s.Tempo = 90; s.Popularity = 40 }),
	}
	rec := buildRecommender(t, songs, nil)

	tests := []struct {
		tempo TempoCategory
		want  []string
	}{
		{TempoSlow, []string{"t090", "t100"}},
		{TempoMedium, []string{"t110"}},
		{TempoFast, []string{"t120"}},
	}
	for _, tt := range tests {
		t.Run(tt.tempo.String(), func(t *testing.T) {
			results, err := rec.RecommendByTempo(tt.tempo, 10)
			if err != nil {
				t.Fatalf("RecommendByTempo: %v", err)
			}
			got := resultIDs(results)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRecommendByTempoPopularityOrder(t *testing.T) {
	songs := []Song{
		testSong("p1", func(s *Song) { s.Tempo = 90; s.Popularity = 30 }),
		testSong("p2", func(s *Song) { s.Tempo = 95; s.Popularity = 80 }),
		testSong("p3", func(s *Song) { s.Tempo = 85; s.Popularity = 80 }),
		testSong("p4", func(s *Song) { s.Tempo = 130; s.Popularity = 99 }),
	}
	rec := buildRecommender(t, songs, nil)

	results, err := rec.RecommendByTempo(TempoSlow, 10)
	if err != nil {
		t.Fatalf("RecommendByTempo: %v", err)
	}
	// Equal popularity falls back to ascending track id.
	want := []string{"p2", "p3", "p1"}
	got := resultIDs(results)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if results[0].Score != 0.8 {
		t.Errorf("popularity score = %g, want 0.8", results[0].Score)
	}
}

func TestRecommendByMoodAndTempoIntersection(t *testing.T) {
	songs := []Song{
		testSong("c1", func(s *Song) { s.Valence = 0.8; s.Energy = 0.7; s.Tempo = 90 }),
		testSong("c2", func(s *Song) { s.Valence = 0.8; s.Energy = 0.7; s.Tempo = 130 }),
		testSong("c3", func(s *Song) { s.Valence = 0.2; s.Energy = 0.2; s.Tempo = 90 }),
		testSong("c4", func(s *Song) { s.Valence = 0.7; s.Energy = 0.6; s.Tempo = 95 }),
	}
	rec := buildRecommender(t, songs, nil)

	results, err := rec.RecommendByMoodAndTempo(MoodHappy, TempoSlow, 10)
	if err != nil {
		t.Fatalf("RecommendByMoodAndTempo: %v", err)
	}
	got := resultIDs(results)
	if len(got) != 2 {
		t.Fatalf("got %v, want c1 and c4", got)
	}
	for _, id := range got {
		if id != "c1" && id != "c4" {
			t.Errorf("unexpected track %s in intersection", id)
		}
	}

	// A valid pair with an empty intersection is not an error.
	empty, err := rec.RecommendByMoodAndTempo(MoodDark, TempoFast, 10)
	if err != nil {
		t.Fatalf("empty intersection: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d results, want empty", len(empty))
	}
}

// duplicateCatalog returns a catalog where dup1 and dup2 carry identical
// features under different track ids.
func duplicateCatalog() []Song {
	shape := func(valence, energy, tempo float64) func(*Song) {
		return func(s *Song) {
			s.Valence = valence
			s.Energy = energy
			s.Tempo = tempo
		}
	}
	return []Song{
		testSong("dup1", shape(0.8, 0.7, 112)),
		testSong("dup2", shape(0.8, 0.7, 112)),
		testSong("far1", shape(0.1, 0.2, 80)),
		testSong("far2", shape(0.3, 0.9, 140)),
		testSong("far3", shape(0.6, 0.4, 100)),
	}
}

func TestRecommendBySongDuplicateScoresOne(t *testing.T) {
	rec := buildRecommender(t, duplicateCatalog(), nil)

	for _, method := range []SimilarityMethod{MethodCosine, MethodEuclidean} {
		t.Run(method.String(), func(t *testing.T) {
			result, err := rec.RecommendBySong("dup1", method, 4)
			if err != nil {
				t.Fatalf("RecommendBySong: %v", err)
			}
			if result.Seed.TrackID != "dup1" {
				t.Errorf("seed = %s, want dup1", result.Seed.TrackID)
			}
			if len(result.Results) == 0 || result.Results[0].Song.TrackID != "dup2" {
				t.Fatalf("top result = %v, want dup2 first", resultIDs(result.Results))
			}
			if diff := math.Abs(result.Results[0].Score - 1.0); diff > 1e-9 {
				t.Errorf("duplicate similarity = %g, want 1.0", result.Results[0].Score)
			}
		})
	}
}

func TestRecommendBySongExcludesSeed(t *testing.T) {
	rec := buildRecommender(t, duplicateCatalog(), nil)

	for _, method := range []SimilarityMethod{MethodKNN, MethodCosine, MethodEuclidean} {
		result, err := rec.RecommendBySong("dup1", method, 10)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		for _, r := range result.Results {
			if r.Song.TrackID == "dup1" {
				t.Errorf("%s: seed appears in its own results", method)
			}
		}
		for i := 1; i < len(result.Results); i++ {
			if result.Results[i].Score > result.Results[i-1].Score {
				t.Errorf("%s: scores increase at %d", method, i)
			}
		}
	}
}

func TestRecommendBySongKNNBudgetClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NeighborBudget = 2
	rec := buildRecommender(t, duplicateCatalog(), cfg)

	result, err := rec.RecommendBySong("dup1", MethodKNN, 4)
	if err != nil {
		t.Fatalf("RecommendBySong: %v", err)
	}
	if len(result.Results) != 2 {
		t.Errorf("got %d results, want budget of 2", len(result.Results))
	}
	if !result.ClampedToBudget {
		t.Error("ClampedToBudget = false, want true")
	}

	within, err := rec.RecommendBySong("dup1", MethodKNN, 2)
	if err != nil {
		t.Fatalf("RecommendBySong: %v", err)
	}
	if within.ClampedToBudget {
		t.Error("ClampedToBudget = true for a count within budget")
	}
}

func TestRecommendBySongUnknownSeed(t *testing.T) {
	rec := buildRecommender(t, duplicateCatalog(), nil)
	if _, err := rec.RecommendBySong("missing", MethodKNN, 5); !errors.Is(err, ErrUnknownSongID) {
		t.Errorf("error = %v, want ErrUnknownSongID", err)
	}
}

func TestHybridScore(t *testing.T) {
	rec := buildRecommender(t, duplicateCatalog(), nil)

	score, err := rec.HybridScore("dup2", "dup1", MoodHappy, 0.7, 0.3)
	if err != nil {
		t.Fatalf("HybridScore: %v", err)
	}
	if score < 0 || score > 1 {
		t.Errorf("score = %g, want within [0,1]", score)
	}

	// A duplicate candidate maximizes the similarity term, so it can never
	// score below the far catalog entries under the same weights.
	farScore, err := rec.HybridScore("far1", "dup1", MoodHappy, 0.7, 0.3)
	if err != nil {
		t.Fatalf("HybridScore far: %v", err)
	}
	if farScore > score {
		t.Errorf("far candidate scored %g above duplicate %g", farScore, score)
	}

	if _, err := rec.HybridScore("dup2", "dup1", MoodHappy, 0.5, 0.4); !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("weights 0.5+0.4 error = %v, want ErrInvalidWeight", err)
	}
	if _, err := rec.HybridScore("dup2", "dup1", MoodHappy, -0.2, 1.2); !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("negative weight error = %v, want ErrInvalidWeight", err)
	}
	if _, err := rec.HybridScore("missing", "dup1", MoodHappy, 0.7, 0.3); !errors.Is(err, ErrUnknownSongID) {
		t.Errorf("unknown candidate error = %v, want ErrUnknownSongID", err)
	}
}

func TestApplyDiversity(t *testing.T) {
	ranked := []ScoredSong{
		{Song: Song{TrackID: "a1", Artist: "A"}, Score: 0.9},
		{Song: Song{TrackID: "a2", Artist: "A"}, Score: 0.8},
		{Song: Song{TrackID: "a3", Artist: "A"}, Score: 0.7},
		{Song: Song{TrackID: "a4", Artist: "A"}, Score: 0.6},
		{Song: Song{TrackID: "b1", Artist: "B"}, Score: 0.5},
	}

	tests := []struct {
		name         string
		count        int
		maxPerArtist int
		want         []string
	}{
		{"cap respected with refill", 4, 2, []string{"a1", "a2", "b1", "a3"}},
		{"cap of one", 2, 1, []string{"a1", "b1"}},
		{"count larger than pool", 10, 2, []string{"a1", "a2", "b1", "a3", "a4"}},
		{"cap larger than pool", 3, 10, []string{"a1", "a2", "a3"}},
		{"zero count", 0, 2, nil},
		{"zero cap", 3, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDiversity(ranked, tt.count, tt.maxPerArtist)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", resultIDs(got), tt.want)
			}
			for i := range tt.want {
				if got[i].Song.TrackID != tt.want[i] {
					t.Fatalf("got %v, want %v", resultIDs(got), tt.want)
				}
			}
		})
	}
}

func TestSearch(t *testing.T) {
	songs := []Song{
		testSong("s1", func(s *Song) { s.Name = "Midnight Rain"; s.Artist = "Nova"; s.Popularity = 60; s.Tempo = 100 }),
		testSong("s2", func(s *Song) { s.Name = "Rainfall"; s.Artist = "The Echoes"; s.Popularity = 80; s.Tempo = 105 }),
		testSong("s3", func(s *Song) { s.Name = "Sunrise"; s.Artist = "Rainer"; s.Popularity = 40; s.Tempo = 120 }),
		testSong("s4", func(s *Song) { s.Name = "Desert Wind"; s.Artist = "Nova"; s.Popularity = 20; s.Tempo = 95 }),
	}
	rec := buildRecommender(t, songs, nil)

	results, err := rec.Search("RAIN", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"s2", "s1", "s3"}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i := range want {
		if results[i].TrackID != want[i] {
			t.Fatalf("result %d = %s, want %s", i, results[i].TrackID, want[i])
		}
	}

	limited, err := rec.Search("rain", 1)
	if err != nil {
		t.Fatalf("Search limited: %v", err)
	}
	if len(limited) != 1 || limited[0].TrackID != "s2" {
		t.Errorf("limited search = %v, want [s2]", limited)
	}

	none, err := rec.Search("zzz", 10)
	if err != nil {
		t.Fatalf("Search none: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d results for no-match query", len(none))
	}
}

func TestUnbuiltRecommenderRejectsQueries(t *testing.T) {
	var rec SongRecommender

	if _, err := rec.RecommendByMood(MoodHappy, 5); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("RecommendByMood error = %v, want ErrModelNotLoaded", err)
	}
	if _, err := rec.RecommendByTempo(TempoSlow, 5); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("RecommendByTempo error = %v, want ErrModelNotLoaded", err)
	}
	if _, err := rec.RecommendBySong("x", MethodKNN, 5); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("RecommendBySong error = %v, want ErrModelNotLoaded", err)
	}
	if _, err := rec.Search("x", 5); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Search error = %v, want ErrModelNotLoaded", err)
	}
	if _, _, err := rec.SongCluster("x"); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("SongCluster error = %v, want ErrModelNotLoaded", err)
	}
}

func TestInvalidCategoriesRejected(t *testing.T) {
	rec := buildRecommender(t, duplicateCatalog(), nil)

	if _, err := rec.RecommendByMood(Mood(99), 5); !errors.Is(err, ErrInvalidMood) {
		t.Errorf("mood 99 error = %v, want ErrInvalidMood", err)
	}
	if _, err := rec.RecommendByTempo(TempoCategory(99), 5); !errors.Is(err, ErrInvalidTempo) {
		t.Errorf("tempo 99 error = %v, want ErrInvalidTempo", err)
	}
	if _, err := rec.RecommendBySong("dup1", SimilarityMethod(99), 5); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("method 99 error = %v, want ErrInvalidMethod", err)
	}
}

func TestNewRecommenderRejectsDuplicateIDs(t *testing.T) {
	songs := []Song{
		testSong("same", func(s *Song) { s.Tempo = 100 }),
		testSong("same", func(s *Song) { s.Tempo = 120 }),
	}
	cfg := DefaultConfig()
	normalizer := &FeatureNormalizer{}
	if err := normalizer.Fit(songs, cfg.EpsilonFloor); err != nil {
		t.Fatalf("normalizer fit: %v", err)
	}
	if _, err := newRecommender(songs, normalizer, &MoodClusterer{}, cfg); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("error = %v, want ErrInvalidCatalog", err)
	}
}
