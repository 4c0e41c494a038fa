// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vibemap/vibemap/internal/recommend"
)

// Config is the root service configuration, populated from defaults, an
// optional YAML file, and environment variables, in that order.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Snapshot  SnapshotConfig  `koanf:"snapshot"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// CatalogConfig locates the song catalog file.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// SnapshotConfig controls persisted engine state.
type SnapshotConfig struct {
	// Dir is the snapshot directory. Empty disables snapshotting entirely.
	Dir string `koanf:"dir"`
	// Retain is the number of snapshot versions kept on disk.
	Retain int `koanf:"retain" validate:"min=0"`
	// SaveOnFit writes a snapshot after every successful fit.
	SaveOnFit bool `koanf:"save_on_fit"`
	// LoadOnStart restores the latest snapshot instead of fitting from
	// the catalog when one is available.
	LoadOnStart bool `koanf:"load_on_start"`
}

// RecommendConfig mirrors the engine tunables. See the recommend package
// for the semantics of each field.
type RecommendConfig struct {
	NeighborBudget   int     `koanf:"neighbor_budget"`
	KMin             int     `koanf:"k_min"`
	KMax             int     `koanf:"k_max"`
	FixedK           int     `koanf:"fixed_k"`
	Seed             int64   `koanf:"seed"`
	MaxIterations    int     `koanf:"max_iterations"`
	Tolerance        float64 `koanf:"tolerance"`
	EpsilonFloor     float64 `koanf:"epsilon_floor"`
	MaxPerArtist     int     `koanf:"max_per_artist"`
	SimilarityWeight float64 `koanf:"similarity_weight"`
	MoodWeight       float64 `koanf:"mood_weight"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before file and
// environment layers.
func defaultConfig() *Config {
	engine := recommend.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Catalog: CatalogConfig{
			Path: "/data/catalog.csv",
		},
		Snapshot: SnapshotConfig{
			Dir:         "/data/snapshots",
			Retain:      3,
			SaveOnFit:   true,
			LoadOnStart: true,
		},
		Recommend: RecommendConfig{
			NeighborBudget:   engine.NeighborBudget,
			KMin:             engine.KMin,
			KMax:             engine.KMax,
			FixedK:           engine.FixedK,
			Seed:             engine.Seed,
			MaxIterations:    engine.MaxIterations,
			Tolerance:        engine.Tolerance,
			EpsilonFloor:     engine.EpsilonFloor,
			MaxPerArtist:     engine.MaxPerArtist,
			SimilarityWeight: engine.SimilarityWeight,
			MoodWeight:       engine.MoodWeight,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// EngineConfig converts the recommend section into the engine's own
// configuration type.
func (c *Config) EngineConfig() *recommend.Config {
	return &recommend.Config{
		NeighborBudget:   c.Recommend.NeighborBudget,
		KMin:             c.Recommend.KMin,
		KMax:             c.Recommend.KMax,
		FixedK:           c.Recommend.FixedK,
		Seed:             c.Recommend.Seed,
		MaxIterations:    c.Recommend.MaxIterations,
		Tolerance:        c.Recommend.Tolerance,
		EpsilonFloor:     c.Recommend.EpsilonFloor,
		MaxPerArtist:     c.Recommend.MaxPerArtist,
		SimilarityWeight: c.Recommend.SimilarityWeight,
		MoodWeight:       c.Recommend.MoodWeight,
	}
}

// Validate checks structural constraints and the engine tunables.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid recommend configuration: %w", err)
	}
	if c.Catalog.Path == "" && !(c.Snapshot.Dir != "" && c.Snapshot.LoadOnStart) {
		return fmt.Errorf("catalog.path is required unless snapshot loading is enabled")
	}
	return nil
}
