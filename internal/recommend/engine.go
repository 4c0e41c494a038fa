// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vibemap/vibemap/internal/logging"
	"github.com/vibemap/vibemap/internal/metrics"
)

// StateVersion is the schema version of exported engine state. Bump it
// whenever EngineState changes incompatibly.
const StateVersion = 1

// EngineState is the explicit, versioned snapshot schema. Restoring it
// rebuilds the feature matrix and neighbor index deterministically from the
// stored catalog and parameters, so a restored engine answers every query
// identically to the one that exported it.
type EngineState struct {
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	Config    Config       `json:"config"`
	Songs     []Song       `json:"songs"`
	Norm      NormParams   `json:"norm"`
	Cluster   ClusterModel `json:"cluster"`
}

// Generation is one immutable fitted state of the engine. Queries against a
// generation are lock-free; refresh builds a new generation and swaps it in.
type Generation struct {
	ID          string
	BuiltAt     time.Time
	CatalogSize int
	Recommender *SongRecommender

	songs      []Song
	normalizer *FeatureNormalizer
	clusterer  *MoodClusterer
}

// Engine owns the current fitted generation and rebuilds it from a catalog
// or a snapshot. All methods are safe for concurrent use; queries in flight
// during a refresh keep observing the generation they started with.
type Engine struct {
	cfg     *Config
	current atomic.Pointer[Generation]
}

// NewEngine creates an unfitted engine. cfg may be nil for defaults.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return &Engine{cfg: cfg.Clone()}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg.Clone()
}

// Current returns the active generation, or ErrModelNotLoaded before the
// first successful Fit or RestoreState.
func (e *Engine) Current() (*Generation, error) {
	gen := e.current.Load()
	if gen == nil {
		return nil, ErrModelNotLoaded
	}
	return gen, nil
}

// Recommender returns the active generation's query surface.
func (e *Engine) Recommender() (*SongRecommender, error) {
	gen, err := e.Current()
	if err != nil {
		return nil, err
	}
	return gen.Recommender, nil
}

// Fit builds a complete new generation from the catalog and atomically
// publishes it. The previous generation, if any, stays intact until its
// last in-flight query finishes.
func (e *Engine) Fit(songs []Song) error {
	start := time.Now()
	if err := ValidateCatalog(songs); err != nil {
		metrics.RecordEngineFit(time.Since(start), false)
		return err
	}

	// Own the rows so later caller mutations cannot reach the generation.
	catalog := make([]Song, len(songs))
	copy(catalog, songs)

	gen, err := buildGeneration(catalog, e.cfg, nil, nil)
	if err != nil {
		metrics.RecordEngineFit(time.Since(start), false)
		return err
	}

	e.current.Store(gen)
	metrics.RecordEngineFit(time.Since(start), true)
	metrics.SetCatalogSize(gen.CatalogSize)

	model, _ := gen.clusterer.Model()
	logging.Info().
		Str("generation", gen.ID).
		Int("songs", gen.CatalogSize).
		Int("clusters", model.K).
		Dur("elapsed", time.Since(start)).
		Msg("Engine fitted")
	return nil
}

// ExportState captures the active generation for persistence.
func (e *Engine) ExportState() (*EngineState, error) {
	gen, err := e.Current()
	if err != nil {
		return nil, err
	}
	norm, err := gen.normalizer.Params()
	if err != nil {
		return nil, err
	}
	cluster, err := gen.clusterer.Model()
	if err != nil {
		return nil, err
	}

	songs := make([]Song, len(gen.songs))
	copy(songs, gen.songs)
	return &EngineState{
		Version:   StateVersion,
		CreatedAt: time.Now().UTC(),
		Config:    *e.cfg,
		Songs:     songs,
		Norm:      norm,
		Cluster:   cluster,
	}, nil
}

// RestoreState rebuilds a generation from a snapshot and publishes it.
func (e *Engine) RestoreState(state *EngineState) error {
	if state == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidCatalog)
	}
	if state.Version != StateVersion {
		return fmt.Errorf("%w: unsupported state version %d (want %d)",
			ErrInvalidCatalog, state.Version, StateVersion)
	}
	if len(state.Cluster.Assignment) != len(state.Songs) {
		return fmt.Errorf("%w: cluster assignment covers %d of %d songs",
			ErrInvalidCatalog, len(state.Cluster.Assignment), len(state.Songs))
	}
	if err := ValidateCatalog(state.Songs); err != nil {
		return err
	}
	if err := state.Config.Validate(); err != nil {
		return fmt.Errorf("snapshot config: %w", err)
	}

	// The snapshot's own config drives the rebuild so the restored
	// generation answers queries exactly as the exporting engine did,
	// even when the live config has drifted.
	gen, err := buildGeneration(state.Songs, &state.Config, &state.Norm, &state.Cluster)
	if err != nil {
		return err
	}

	e.current.Store(gen)
	metrics.SetCatalogSize(gen.CatalogSize)
	logging.Info().
		Str("generation", gen.ID).
		Int("songs", gen.CatalogSize).
		Time("snapshot_created", state.CreatedAt).
		Msg("Engine restored from snapshot")
	return nil
}

// buildGeneration assembles a generation either by fitting from scratch
// (norm and cluster nil) or from restored parameters.
func buildGeneration(songs []Song, cfg *Config, norm *NormParams, cluster *ClusterModel) (*Generation, error) {
	normalizer := &FeatureNormalizer{}
	if norm != nil {
		if err := normalizer.Restore(*norm); err != nil {
			return nil, err
		}
	} else if err := normalizer.Fit(songs, cfg.EpsilonFloor); err != nil {
		return nil, err
	}

	clusterer := &MoodClusterer{}
	if cluster != nil {
		if err := clusterer.Restore(*cluster); err != nil {
			return nil, err
		}
	} else {
		matrix, err := moodMatrix(songs, normalizer)
		if err != nil {
			return nil, err
		}
		if err := clusterer.Fit(matrix, cfg.FixedK, cfg); err != nil {
			return nil, err
		}
	}

	rec, err := newRecommender(songs, normalizer, clusterer, cfg)
	if err != nil {
		return nil, err
	}
	return &Generation{
		ID:          uuid.New().String()[:8],
		BuiltAt:     time.Now().UTC(),
		CatalogSize: len(songs),
		Recommender: rec,
		songs:       songs,
		normalizer:  normalizer,
		clusterer:   clusterer,
	}, nil
}

// moodMatrix projects the catalog onto the clustering feature subset.
func moodMatrix(songs []Song, normalizer *FeatureNormalizer) ([][]float64, error) {
	matrix := make([][]float64, len(songs))
	for i := range songs {
		vec, err := normalizer.Transform(&songs[i])
		if err != nil {
			return nil, err
		}
		matrix[i] = append([]float64(nil), vec[:numMoodFeatures]...)
	}
	return matrix, nil
}
