// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import "sort"

// Ranker scores candidates with a weighted linear combination of features
// and returns the ordered top-K.
type Ranker struct {
	cfg RankerConfig
}

// NewRanker creates a ranker with the given weights and cutoff.
func NewRanker(cfg RankerConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank fills the popularity and community-match features, computes the
// scalar score for every candidate, and sorts strictly descending. The sort
// is stable: identical scores preserve first-seen input order. The result
// is truncated to the configured top-K; each record retains its full
// feature breakdown.
func (r *Ranker) Rank(userCommunity string, candidates []ScoredCandidate) []ScoredCandidate {
	for i := range candidates {
		c := &candidates[i]
		c.Features.Popularity = popularityScore(c.Sources)
		c.Features.CommunityMatch = communityScore(c.Sources, userCommunity, c.Item.Community)
		c.Score = r.cfg.WContent*c.Features.ContentSim +
			r.cfg.WRecency*c.Features.Recency +
			r.cfg.WPopularity*c.Features.Popularity +
			r.cfg.WCommunity*c.Features.CommunityMatch
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}
	return candidates
}

// popularityScore derives the popularity signal from provenance: community
// trending outranks global trending outranks no popularity signal.
func popularityScore(sources SourceSet) float64 {
	switch {
	case sources.Has(SourcePopCommunity):
		return 1.0
	case sources.Has(SourcePopGlobal):
		return 0.7
	default:
		return 0.3
	}
}

// communityScore rewards exact community matches, then community-popularity
// provenance, then nothing.
func communityScore(sources SourceSet, userCommunity, itemCommunity string) float64 {
	switch {
	case userCommunity != "" && itemCommunity == userCommunity:
		return 1.0
	case sources.Has(SourcePopCommunity):
		return 0.6
	default:
		return 0.3
	}
}
