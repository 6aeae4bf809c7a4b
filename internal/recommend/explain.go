// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import "fmt"

// Reason maps a scored candidate to its user-facing explanation.
//
// First match wins, and the check order is part of the contract:
// content, then cf, then community popularity, then recency, then global
// popularity, then the default. Exactly one reason per item.
func Reason(c ScoredCandidate) string {
	switch {
	case c.Sources.Has(SourceContent):
		return "Similar to your recent interest"
	case c.Sources.Has(SourceCF):
		return "People with similar tastes also liked this"
	case c.Sources.Has(SourcePopCommunity):
		community := c.Item.Community
		if community == "" {
			community = "your area"
		}
		return fmt.Sprintf("Trending in %s", community)
	case c.Features.Recency > 0.6:
		return "New this week"
	case c.Sources.Has(SourcePopGlobal):
		return "Popular right now"
	default:
		return "Recommended for you"
	}
}
