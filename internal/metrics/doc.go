// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the service using the Prometheus client library,
exposing metrics for monitoring performance, errors, and system health.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - Engine fit duration and catalog size
  - Recommendation query volume and result sizes
  - Snapshot save/load/prune outcomes
  - Catalog ingestion throughput

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Requests in flight (gauge)

Engine Metrics:
  - engine_fit_duration_seconds: Fit duration (histogram)
  - engine_fits_total: Fit attempts (counter)
    Labels: result (success, failure)
  - engine_catalog_songs: Songs in the active generation (gauge)

Query Metrics:
  - recommendation_queries_total: Queries served (counter)
    Labels: operation (mood, tempo, combined, similar, search), result
  - recommendation_query_result_size: Songs returned per query (histogram)
    Labels: operation

Snapshot Metrics:
  - snapshot_operations_total: Save/load/prune outcomes (counter)
    Labels: operation, result
  - snapshot_size_bytes: Size of the last written snapshot (gauge)
  - snapshot_last_success_timestamp: Unix time of last successful save (gauge)

Catalog Metrics:
  - catalog_load_duration_seconds: Catalog file load duration (histogram)
  - catalog_rows_loaded_total: Rows parsed (counter)
  - catalog_rows_rejected_total: Rows rejected (counter)

# Usage

Metrics register themselves with the default Prometheus registry at package
load via promauto. Callers use the Record helpers rather than touching the
collectors directly:

	start := time.Now()
	songs, err := rec.RecommendByMood(mood, count)
	metrics.RecordQuery("mood", len(songs), err)
	_ = start

All helpers are safe for concurrent use.
*/
package metrics
