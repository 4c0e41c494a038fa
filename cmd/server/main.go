// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

// Package main is the entry point for the VibeMap server.
//
// VibeMap clusters a song catalog into mood groups and serves mood, tempo,
// and similarity based recommendations over a REST API.
//
// # Startup
//
// The server initializes in the following order:
//
//  1. Configuration: layered defaults, config file, and VIBEMAP_* environment
//     variables (Koanf v2)
//  2. Logging: zerolog, JSON or console format
//  3. Model bootstrap: restore the latest snapshot when one exists, otherwise
//     ingest the CSV catalog and fit a fresh model
//  4. HTTP server: Chi router under /api/v1 plus Prometheus /metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority
// wins):
//   - Environment variables (VIBEMAP_SERVER_PORT, VIBEMAP_CATALOG_PATH, ...)
//   - Config file (config.yaml, or the path in VIBEMAP_CONFIG / -config)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops accepting
// new connections and waits up to server.shutdown_timeout for in-flight
// requests to complete.
//
// # Example Usage
//
//	export VIBEMAP_CATALOG_PATH=/data/catalog.csv
//	./vibemap
//
// Fit a model and write a snapshot without serving:
//
//	./vibemap -fit-only
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibemap/vibemap/internal/api"
	"github.com/vibemap/vibemap/internal/catalog"
	"github.com/vibemap/vibemap/internal/config"
	"github.com/vibemap/vibemap/internal/logging"
	"github.com/vibemap/vibemap/internal/recommend"
	"github.com/vibemap/vibemap/internal/recommend/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file (overrides VIBEMAP_CONFIG)")
	fitOnly := flag.Bool("fit-only", false, "fit the model, save a snapshot, and exit without serving")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		// Use the default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("catalog", cfg.Catalog.Path).
		Str("snapshots", cfg.Snapshot.Dir).
		Msg("Starting VibeMap")

	engine, err := recommend.NewEngine(cfg.EngineConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	var store *storage.Store
	if cfg.Snapshot.Dir != "" {
		store, err = storage.NewStore(cfg.Snapshot.Dir, cfg.Snapshot.Retain)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open snapshot store")
		}
	}

	if err := bootstrap(engine, store, cfg); err != nil {
		logging.Fatal().Err(err).Msg("Failed to bootstrap model")
	}

	if *fitOnly {
		logging.Info().Msg("Fit-only mode, exiting")
		return
	}

	handler := api.NewHandler(engine, store, cfg.Catalog.Path, cfg.Snapshot.SaveOnFit)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimitReqs:   cfg.Server.RateLimitReqs,
		RateLimitWindow: cfg.Server.RateLimitWindow,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server error")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
		if err := server.Close(); err != nil {
			logging.Error().Err(err).Msg("Forced close failed")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// bootstrap loads an initial model generation. It prefers the newest snapshot
// when snapshot loading is enabled, and falls back to a fresh catalog fit.
// Starting without any model is allowed; queries return 503 until the first
// successful rebuild.
func bootstrap(engine *recommend.Engine, store *storage.Store, cfg *config.Config) error {
	if store != nil && cfg.Snapshot.LoadOnStart {
		state, version, err := store.LoadLatest()
		switch {
		case err == nil:
			if err := engine.RestoreState(state); err != nil {
				return fmt.Errorf("restore snapshot v%d: %w", version, err)
			}
			logging.Info().Int("version", version).Msg("Model restored from snapshot")
			return nil
		case errors.Is(err, storage.ErrNoSnapshot):
			logging.Info().Msg("No snapshot found, fitting from catalog")
		default:
			// A corrupt snapshot should not brick startup while the catalog
			// is still available.
			logging.Warn().Err(err).Msg("Snapshot load failed, fitting from catalog")
		}
	}

	if cfg.Catalog.Path == "" {
		logging.Warn().Msg("No catalog configured, starting without a model")
		return nil
	}

	songs, _, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if err := engine.Fit(songs); err != nil {
		return fmt.Errorf("fit model: %w", err)
	}

	if store != nil && cfg.Snapshot.SaveOnFit {
		state, err := engine.ExportState()
		if err != nil {
			return fmt.Errorf("export state: %w", err)
		}
		version, err := store.Save(state)
		if err != nil {
			logging.Warn().Err(err).Msg("Snapshot save failed")
		} else {
			logging.Info().Int("version", version).Msg("Snapshot saved")
		}
	}

	return nil
}
