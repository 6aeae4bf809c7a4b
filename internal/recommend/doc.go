// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

// Package recommend implements the Blockfeed recommendation pipeline.
//
// # Architecture
//
// Three generator models feed a per-request pipeline:
//
//   - EmbeddingIndex: text-embedding nearest-neighbor search over the corpus
//   - SimilarityModel: item-item collaborative filtering
//   - PopularityModel: time-decayed popularity, global and per community
//
// The request path is FusionEngine -> PolicyEngine -> FeatureExtractor ->
// Ranker -> Reason, orchestrated by Service.
//
// # Concurrency
//
// Generator models are process-wide, read-mostly state. Each build runs in
// isolation and publishes a complete snapshot with a single atomic pointer
// swap; readers never observe a partially rebuilt structure and take no
// locks. Rebuilds of different models are independent.
//
// # Degradation
//
// Each generator query is fault-isolated inside the fusion engine: a failed
// source logs a warning and contributes zero candidates. Querying any model
// before its first build yields ErrNotReady, which the API layer maps to a
// retryable 503. An empty list after policy filtering is a valid response.
package recommend
