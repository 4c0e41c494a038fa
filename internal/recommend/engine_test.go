// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import (
	"errors"
	"testing"
)

// engineCatalog builds ten songs split between a calm acoustic group and an
// energetic dance group, enough structure for a stable two-cluster fit.
func engineCatalog() []Song {
	specs := []struct {
		valence, energy, dance, tempo, acoustic float64
		popularity                              int
	}{
		{0.15, 0.20, 0.25, 82, 0.90, 30},
		{0.20, 0.25, 0.30, 88, 0.85, 45},
		{0.25, 0.15, 0.20, 78, 0.95, 25},
		{0.30, 0.30, 0.35, 92, 0.80, 60},
		{0.22, 0.28, 0.27, 85, 0.88, 50},
		{0.80, 0.85, 0.80, 128, 0.10, 90},
		{0.85, 0.90, 0.85, 132, 0.05, 85},
		{0.75, 0.80, 0.75, 124, 0.15, 70},
		{0.90, 0.95, 0.90, 138, 0.08, 95},
		{0.82, 0.88, 0.78, 126, 0.12, 80},
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
			s.Popularity = sp.popularity
			s.Instrumentalness = 0.05 + float64(i)*0.05
			s.Liveness = 0.1 + float64(i)*0.02
			s.Speechiness = 0.03 + float64(i)*0.01
			s.Loudness = -24 + float64(i)*2
		})
	}
	return songs
}

func engineTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.FixedK = 2
	cfg.KMax = 3
	return cfg
}

func TestNewEngine(t *testing.T) {
	if _, err := NewEngine(nil); err != nil {
		t.Errorf("NewEngine(nil): %v", err)
	}

	bad := DefaultConfig()
	bad.KMin = 0
	if _, err := NewEngine(bad); err == nil {
		t.Error("NewEngine with invalid config succeeded")
	}
}

func TestEngineUnloaded(t *testing.T) {
	engine, err := NewEngine(engineTestConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if _, err := engine.Current(); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Current error = %v, want ErrModelNotLoaded", err)
	}
	if _, err := engine.Recommender(); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Recommender error = %v, want ErrModelNotLoaded", err)
	}
	if _, err := engine.ExportState(); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("ExportState error = %v, want ErrModelNotLoaded", err)
	}
}

func TestEngineFitServesQueries(t *testing.T) {
	engine, err := NewEngine(engineTestConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Fit(engineCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	gen, err := engine.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if gen.CatalogSize != 10 {
		t.Errorf("CatalogSize = %d, want 10", gen.CatalogSize)
	}
	if gen.ID == "" {
		t.Error("generation has an empty ID")
	}

	rec, err := engine.Recommender()
	if err != nil {
		t.Fatalf("Recommender: %v", err)
	}
	clusters, err := rec.Clusters()
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want fixed k of 2", len(clusters))
	}
	for _, c := range clusters {
		if c.Label == "" || c.Size == 0 {
			t.Errorf("cluster %d has label %q and size %d", c.ID, c.Label, c.Size)
		}
	}

	results, err := rec.RecommendByMood(MoodParty, 5)
	if err != nil {
		t.Fatalf("RecommendByMood: %v", err)
	}
	if len(results) == 0 {
		t.Error("no party recommendations from the dance group")
	}
}

func TestEngineFitDeterministic(t *testing.T) {
	a, _ := NewEngine(engineTestConfig())
	b, _ := NewEngine(engineTestConfig())
	if err := a.Fit(engineCatalog()); err != nil {
		t.Fatalf("first Fit: %v", err)
	}
	if err := b.Fit(engineCatalog()); err != nil {
		t.Fatalf("second Fit: %v", err)
	}

	sa, err := a.ExportState()
	if err != nil {
		t.Fatalf("ExportState: %v", err)
	}
	sb, err := b.ExportState()
	if err != nil {
		t.Fatalf("ExportState: %v", err)
	}

	for i := range sa.Cluster.Assignment {
		if sa.Cluster.Assignment[i] != sb.Cluster.Assignment[i] {
			t.Fatalf("assignments differ at row %d", i)
		}
	}
	if sa.Cluster.Silhouette != sb.Cluster.Silhouette {
		t.Errorf("silhouettes differ: %g vs %g", sa.Cluster.Silhouette, sb.Cluster.Silhouette)
	}
}

func TestEngineSnapshotRoundTrip(t *testing.T) {
	original, _ := NewEngine(engineTestConfig())
	if err := original.Fit(engineCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	state, err := original.ExportState()
	if err != nil {
		t.Fatalf("ExportState: %v", err)
	}
	if state.Version != StateVersion {
		t.Errorf("state version = %d, want %d", state.Version, StateVersion)
	}

	restored, _ := NewEngine(engineTestConfig())
	if err := restored.RestoreState(state); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}

	origRec, _ := original.Recommender()
	restRec, _ := restored.Recommender()

	// Every mood query must come back identical from the restored engine:
	// same songs, same order, same scores.
	for m := Mood(0); m < numMoods; m++ {
		want, err := origRec.RecommendByMood(m, 10)
		if err != nil {
			t.Fatalf("original RecommendByMood(%s): %v", m, err)
		}
		got, err := restRec.RecommendByMood(m, 10)
		if err != nil {
			t.Fatalf("restored RecommendByMood(%s): %v", m, err)
		}
		if len(got) != len(want) {
			t.Fatalf("%s: %d results restored vs %d original", m, len(got), len(want))
		}
		for i := range want {
			if got[i].Song.TrackID != want[i].Song.TrackID || got[i].Score != want[i].Score {
				t.Fatalf("%s result %d differs: %s/%g vs %s/%g",
					m, i, got[i].Song.TrackID, got[i].Score, want[i].Song.TrackID, want[i].Score)
			}
		}
	}

	seed := engineCatalog()[0].TrackID
	for _, method := range []SimilarityMethod{MethodKNN, MethodCosine, MethodEuclidean} {
		want, err := origRec.RecommendBySong(seed, method, 5)
		if err != nil {
			t.Fatalf("original RecommendBySong(%s): %v", method, err)
		}
		got, err := restRec.RecommendBySong(seed, method, 5)
		if err != nil {
			t.Fatalf("restored RecommendBySong(%s): %v", method, err)
		}
		for i := range want.Results {
			if got.Results[i].Song.TrackID != want.Results[i].Song.TrackID ||
				got.Results[i].Score != want.Results[i].Score {
				t.Fatalf("%s result %d differs after restore", method, i)
			}
		}
	}

	// Cluster assignments survive the round trip untouched.
	for _, s := range engineCatalog() {
		wantID, wantLabel, err := origRec.SongCluster(s.TrackID)
		if err != nil {
			t.Fatalf("original SongCluster: %v", err)
		}
		gotID, gotLabel, err := restRec.SongCluster(s.TrackID)
		if err != nil {
			t.Fatalf("restored SongCluster: %v", err)
		}
		if gotID != wantID || gotLabel != wantLabel {
			t.Fatalf("%s cluster %d/%s restored as %d/%s", s.TrackID, wantID, wantLabel, gotID, gotLabel)
		}
	}
}

func TestEngineRestoreUsesSnapshotConfig(t *testing.T) {
	producerCfg := engineTestConfig()
	producerCfg.NeighborBudget = 5
	producer, _ := NewEngine(producerCfg)
	if err := producer.Fit(engineCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	state, err := producer.ExportState()
	if err != nil {
		t.Fatalf("ExportState: %v", err)
	}
	if state.Config.NeighborBudget != 5 {
		t.Fatalf("exported budget = %d, want 5", state.Config.NeighborBudget)
	}

	// The restoring engine is configured with a smaller neighbor budget;
	// the snapshot's budget must win so query results survive the trip.
	consumerCfg := engineTestConfig()
	consumerCfg.NeighborBudget = 2
	consumer, _ := NewEngine(consumerCfg)
	if err := consumer.RestoreState(state); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}

	seed := engineCatalog()[0].TrackID
	prodRec, _ := producer.Recommender()
	consRec, _ := consumer.Recommender()

	want, err := prodRec.RecommendBySong(seed, MethodKNN, 5)
	if err != nil {
		t.Fatalf("producer RecommendBySong: %v", err)
	}
	got, err := consRec.RecommendBySong(seed, MethodKNN, 5)
	if err != nil {
		t.Fatalf("restored RecommendBySong: %v", err)
	}
	if len(got.Results) != len(want.Results) {
		t.Fatalf("restored returned %d results, producer %d", len(got.Results), len(want.Results))
	}
	for i := range want.Results {
		if got.Results[i].Song.TrackID != want.Results[i].Song.TrackID ||
			got.Results[i].Score != want.Results[i].Score {
			t.Fatalf("result %d differs: %s/%g vs %s/%g",
				i, got.Results[i].Song.TrackID, got.Results[i].Score,
				want.Results[i].Song.TrackID, want.Results[i].Score)
		}
	}
	if got.ClampedToBudget != want.ClampedToBudget {
		t.Errorf("clamped flag = %v, want %v", got.ClampedToBudget, want.ClampedToBudget)
	}
}

func TestEngineRestoreStateValidation(t *testing.T) {
	engine, _ := NewEngine(engineTestConfig())

	if err := engine.RestoreState(nil); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("nil state error = %v, want ErrInvalidCatalog", err)
	}

	fitted, _ := NewEngine(engineTestConfig())
	if err := fitted.Fit(engineCatalog()); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	state, _ := fitted.ExportState()

	bad := *state
	bad.Version = 99
	if err := engine.RestoreState(&bad); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("bad version error = %v, want ErrInvalidCatalog", err)
	}

	bad = *state
	bad.Cluster.Assignment = bad.Cluster.Assignment[:3]
	if err := engine.RestoreState(&bad); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("short assignment error = %v, want ErrInvalidCatalog", err)
	}

	bad = *state
	bad.Config.KMin = 0
	if err := engine.RestoreState(&bad); err == nil {
		t.Error("expected error for invalid snapshot config")
	}

	// A failed restore leaves the engine unloaded.
	if _, err := engine.Current(); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("engine loaded after failed restores: %v", err)
	}
}

func TestEngineFitRejectsInvalidCatalog(t *testing.T) {
	engine, _ := NewEngine(engineTestConfig())

	if err := engine.Fit(nil); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("Fit(nil) error = %v, want ErrEmptyCatalog", err)
	}

	songs := engineCatalog()
	songs[3].Valence = 2.0
	if err := engine.Fit(songs); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("Fit(bad) error = %v, want ErrInvalidCatalog", err)
	}
	if _, err := engine.Current(); !errors.Is(err, ErrModelNotLoaded) {
		t.Error("engine loaded after failed fits")
	}
}
