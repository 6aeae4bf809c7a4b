// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import "errors"

var (
	// ErrNotReady is returned when a model is queried before its first
	// build has been published. The service layer maps it to a retryable
	// 503 rather than an empty result.
	ErrNotReady = errors.New("model not ready")

	// ErrNotFound is returned by Store implementations for missing rows.
	ErrNotFound = errors.New("not found")
)
