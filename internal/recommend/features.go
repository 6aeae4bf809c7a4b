// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FeatureExtractor derives the numeric feature vector for each surviving
// candidate. Candidates whose item cannot be resolved are dropped silently,
// tolerating referential lag between candidate generation and item deletion.
type FeatureExtractor struct {
	store  Store
	logger zerolog.Logger
}

// NewFeatureExtractor creates a feature extractor over the given store.
func NewFeatureExtractor(store Store, logger zerolog.Logger) *FeatureExtractor {
	return &FeatureExtractor{
		store:  store,
		logger: logger.With().Str("component", "features").Logger(),
	}
}

// Extract resolves items and fills the content-similarity and recency
// features. Popularity and community-match are derived from source tags by
// the ranker.
//
// The content_sim value is a provenance proxy (0.8 when the content
// generator surfaced the item, else 0.5), not the embedding distance
// computed during candidate generation. Preserved as-is until product
// intent says otherwise.
func (x *FeatureExtractor) Extract(ctx context.Context, now time.Time, candidates []Candidate) []ScoredCandidate {
	now = now.UTC()
	out := make([]ScoredCandidate, 0, len(candidates))

	ids := make([]int, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ItemID)
	}
	items, err := x.store.GetItems(ctx, ids)
	if err != nil {
		x.logger.Warn().Err(err).Msg("item resolution failed during feature extraction")
		return out
	}

	for _, c := range candidates {
		item, ok := items[c.ItemID]
		if !ok {
			continue
		}

		contentSim := 0.5
		if c.Sources.Has(SourceContent) {
			contentSim = 0.8
		}

		out = append(out, ScoredCandidate{
			Item:    item,
			Sources: c.Sources,
			Tags:    c.Sources.List(),
			Features: Features{
				ContentSim: contentSim,
				Recency:    recencyScore(now, item.CreatedAt),
			},
		})
	}
	return out
}

// recencyScore is 1/(1+age_days). A missing created_at counts as "now",
// yielding 1.0. Future timestamps clamp to age zero.
func recencyScore(now, createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 1.0
	}
	ageDays := now.Sub(createdAt.UTC()).Seconds() / 86400.0
	if ageDays < 0 {
		ageDays = 0
	}
	return 1.0 / (1.0 + ageDays)
}
