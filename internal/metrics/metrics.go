// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Engine Metrics
	EngineFitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_fit_duration_seconds",
			Help:    "Duration of engine fit operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	EngineFitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_fits_total",
			Help: "Total number of engine fit attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	EngineCatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_catalog_songs",
			Help: "Number of songs in the active catalog generation",
		},
	)

	// Recommendation Query Metrics
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_queries_total",
			Help: "Total number of recommendation queries",
		},
		[]string{"operation", "result"}, // operation: "mood", "tempo", "combined", "similar", "search"
	)

	QueryResultSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_query_result_size",
			Help:    "Number of songs returned per recommendation query",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"operation"},
	)

	// Snapshot Metrics
	SnapshotOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_operations_total",
			Help: "Total number of snapshot save/load operations",
		},
		[]string{"operation", "result"}, // operation: "save", "load", "prune"
	)

	SnapshotSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_size_bytes",
			Help: "Size of the most recently written snapshot in bytes",
		},
	)

	SnapshotLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_last_success_timestamp",
			Help: "Unix timestamp of the last successful snapshot save",
		},
	)

	// Catalog Ingestion Metrics
	CatalogLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_load_duration_seconds",
			Help:    "Duration of catalog file loads in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogRowsLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_rows_loaded_total",
			Help: "Total number of catalog rows parsed across all loads",
		},
	)

	CatalogRowsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_rows_rejected_total",
			Help: "Total number of catalog rows rejected during parsing",
		},
	)
)

// RecordAPIRequest records latency and outcome for one HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordEngineFit records one fit attempt and its duration.
func RecordEngineFit(duration time.Duration, success bool) {
	EngineFitDuration.Observe(duration.Seconds())
	EngineFitsTotal.WithLabelValues(resultLabel(success)).Inc()
}

// SetCatalogSize publishes the active generation's catalog size.
func SetCatalogSize(songs int) {
	EngineCatalogSize.Set(float64(songs))
}

// RecordQuery records one recommendation query and its result size.
func RecordQuery(operation string, resultSize int, err error) {
	QueriesTotal.WithLabelValues(operation, resultLabel(err == nil)).Inc()
	if err == nil {
		QueryResultSize.WithLabelValues(operation).Observe(float64(resultSize))
	}
}

// RecordSnapshotSave records a snapshot write and its size on success.
func RecordSnapshotSave(sizeBytes int64, err error) {
	SnapshotOperations.WithLabelValues("save", resultLabel(err == nil)).Inc()
	if err == nil {
		SnapshotSizeBytes.Set(float64(sizeBytes))
		SnapshotLastSuccess.SetToCurrentTime()
	}
}

// RecordSnapshotLoad records a snapshot read.
func RecordSnapshotLoad(err error) {
	SnapshotOperations.WithLabelValues("load", resultLabel(err == nil)).Inc()
}

// RecordSnapshotPrune records a snapshot retention pass.
func RecordSnapshotPrune(err error) {
	SnapshotOperations.WithLabelValues("prune", resultLabel(err == nil)).Inc()
}

// RecordCatalogLoad records one catalog file load.
func RecordCatalogLoad(duration time.Duration, rowsLoaded, rowsRejected int) {
	CatalogLoadDuration.Observe(duration.Seconds())
	CatalogRowsLoaded.Add(float64(rowsLoaded))
	CatalogRowsRejected.Add(float64(rowsRejected))
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
