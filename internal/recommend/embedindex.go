// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// EmbeddingIndex provides nearest-neighbor search over item embeddings.
//
// The index is process-wide, read-mostly state: Build encodes the whole
// corpus into a fresh snapshot and publishes it atomically, so readers never
// observe a partially rebuilt structure. There is no incremental insert or
// delete; rebuilds are always full.
type EmbeddingIndex struct {
	encoder Encoder
	logger  zerolog.Logger
	snap    atomic.Pointer[indexSnapshot]
}

// indexSnapshot is one immutable generation of the index. Vectors are stored
// in corpus order with a parallel position-to-item-ID map.
type indexSnapshot struct {
	vectors [][]float32
	itemIDs []int
	dim     int
	builtAt time.Time
}

// NewEmbeddingIndex creates an unbuilt index backed by the given encoder.
func NewEmbeddingIndex(encoder Encoder, logger zerolog.Logger) *EmbeddingIndex {
	return &EmbeddingIndex{
		encoder: encoder,
		logger:  logger.With().Str("component", "embedindex").Logger(),
	}
}

// Ready reports whether a build has been published.
func (ix *EmbeddingIndex) Ready() bool {
	return ix.snap.Load() != nil
}

// Build encodes the canonical text of every item and publishes the result
// as the new current snapshot. Concurrent queries keep reading the prior
// snapshot until the swap.
func (ix *EmbeddingIndex) Build(ctx context.Context, corpus []Item) error {
	start := time.Now()

	texts := make([]string, len(corpus))
	itemIDs := make([]int, len(corpus))
	for i, item := range corpus {
		texts[i] = item.CanonicalText()
		itemIDs[i] = item.ID
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = ix.encoder.Encode(ctx, texts)
		if err != nil {
			return fmt.Errorf("encode corpus: %w", err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("encoder returned %d vectors for %d texts", len(vectors), len(texts))
		}
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("inconsistent vector dimension at position %d: %d != %d", i, len(v), dim)
		}
	}

	ix.snap.Store(&indexSnapshot{
		vectors: vectors,
		itemIDs: itemIDs,
		dim:     dim,
		builtAt: time.Now(),
	})

	ix.logger.Info().
		Int("items", len(corpus)).
		Int("dim", dim).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("embedding index built")

	return nil
}

// Query encodes text and returns up to k item IDs ordered by ascending L2
// distance. Ties break by original corpus order. Returns ErrNotReady before
// the first build completes.
func (ix *EmbeddingIndex) Query(ctx context.Context, text string, k int) ([]int, error) {
	snap := ix.snap.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	if k <= 0 || len(snap.itemIDs) == 0 {
		return nil, nil
	}

	vectors, err := ix.encoder.Encode(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("encoder returned %d vectors for 1 text", len(vectors))
	}
	query := vectors[0]
	if len(query) != snap.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), snap.dim)
	}

	// Brute-force scan; corpus sizes here are bounded (see the similarity
	// model's scaling note). Stable sort keeps corpus order on ties.
	positions := make([]int, len(snap.vectors))
	distances := make([]float32, len(snap.vectors))
	for i, v := range snap.vectors {
		positions[i] = i
		distances[i] = l2SquaredDistance(query, v)
	}
	sort.SliceStable(positions, func(a, b int) bool {
		return distances[positions[a]] < distances[positions[b]]
	})

	if k > len(positions) {
		k = len(positions)
	}
	ids := make([]int, k)
	for i := 0; i < k; i++ {
		ids[i] = snap.itemIDs[positions[i]]
	}
	return ids, nil
}

// l2SquaredDistance returns the squared Euclidean distance between two
// vectors. The square root is skipped: it does not change the ordering.
func l2SquaredDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
