// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

/*
Package config loads and validates service configuration.

Configuration is layered with clear precedence, highest last:

 1. Built-in defaults (defaultConfig)
 2. YAML config file (first of VIBEMAP_CONFIG, ./config.yaml,
    ./config.yml, /etc/vibemap/config.yaml, /etc/vibemap/config.yml)
 3. VIBEMAP_* environment variables

Environment variables address nested keys by section prefix:

	VIBEMAP_SERVER_PORT=9090
	VIBEMAP_CATALOG_PATH=/data/songs.csv
	VIBEMAP_RECOMMEND_NEIGHBOR_BUDGET=50
	VIBEMAP_SNAPSHOT_DIR=/data/snapshots

Structural constraints are validated with go-playground/validator struct
tags; the recommend section is additionally validated by the engine's own
config rules, so the service fails at startup rather than at first query.
*/
package config
