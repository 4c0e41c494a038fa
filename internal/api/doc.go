// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

// Package api provides the HTTP surface of the recommendation service using
// the Chi router.
//
// All endpoints live under /api/v1 and respond with the models.APIResponse
// envelope. Query endpoints are read-only and safe to cache briefly; the
// admin rebuild endpoint re-ingests the catalog and swaps in a new model
// generation atomically, so in-flight queries keep serving the previous
// generation until the swap completes.
package api
