// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import "testing"

func TestReasonPriority(t *testing.T) {
	tests := []struct {
		name string
		c    ScoredCandidate
		want string
	}{
		{
			"content wins over everything",
			ScoredCandidate{
				Sources:  SourceSet{SourceContent: {}, SourceCF: {}, SourcePopCommunity: {}},
				Features: Features{Recency: 0.9},
			},
			"Similar to your recent interest",
		},
		{
			"cf beats popularity",
			ScoredCandidate{Sources: SourceSet{SourceCF: {}, SourcePopGlobal: {}}},
			"People with similar tastes also liked this",
		},
		{
			"community trending names the community",
			ScoredCandidate{
				Item:    Item{Community: "maple"},
				Sources: SourceSet{SourcePopCommunity: {}},
			},
			"Trending in maple",
		},
		{
			"community trending with empty community",
			ScoredCandidate{Sources: SourceSet{SourcePopCommunity: {}}},
			"Trending in your area",
		},
		{
			"recency beats global popularity",
			ScoredCandidate{
				Sources:  SourceSet{SourcePopGlobal: {}},
				Features: Features{Recency: 0.7},
			},
			"New this week",
		},
		{
			"global popularity",
			ScoredCandidate{
				Sources:  SourceSet{SourcePopGlobal: {}},
				Features: Features{Recency: 0.2},
			},
			"Popular right now",
		},
		{
			"fallback default",
			ScoredCandidate{Sources: SourceSet{SourceFallback: {}}},
			"Recommended for you",
		},
		{
			"recency exactly at threshold does not fire",
			ScoredCandidate{
				Sources:  SourceSet{SourceFallback: {}},
				Features: Features{Recency: 0.6},
			},
			"Recommended for you",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reason(tt.c); got != tt.want {
				t.Errorf("Reason = %q, want %q", got, tt.want)
			}
		})
	}
}
