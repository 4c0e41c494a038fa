// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

// Package models defines the shared HTTP response envelope types used by the
// API layer. Every endpoint wraps its payload in APIResponse so that clients
// can rely on a single response shape for success and error cases alike.
package models
