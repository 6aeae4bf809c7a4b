// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// PopularityModel aggregates time-decayed popularity scores, globally and
// per community. Rankings are rebuilt wholesale and published atomically;
// there is no incremental mutation.
type PopularityModel struct {
	weights      InteractionWeights
	topK         int
	halfLifeDays float64
	logger       zerolog.Logger
	snap         atomic.Pointer[popularitySnapshot]
}

// popularitySnapshot is one immutable generation of the rankings.
type popularitySnapshot struct {
	global      []PopularityEntry
	byCommunity map[string][]PopularityEntry
	builtAt     time.Time
}

// NewPopularityModel creates an unbuilt popularity aggregator.
func NewPopularityModel(cfg PopularityConfig, weights InteractionWeights, logger zerolog.Logger) *PopularityModel {
	if cfg.TopK <= 0 {
		cfg.TopK = 200
	}
	if cfg.HalfLifeDays <= 0 {
		cfg.HalfLifeDays = 7.0
	}
	if weights == nil {
		weights = DefaultInteractionWeights()
	}
	return &PopularityModel{
		weights:      weights,
		topK:         cfg.TopK,
		halfLifeDays: cfg.HalfLifeDays,
		logger:       logger.With().Str("component", "popularity").Logger(),
	}
}

// Ready reports whether a build has been published.
func (m *PopularityModel) Ready() bool {
	return m.snap.Load() != nil
}

// decay returns the half-life decay factor for an interaction of the given
// age in days: 0.5^(age/half_life).
func (m *PopularityModel) decay(ageDays float64) float64 {
	return math.Pow(0.5, ageDays/m.halfLifeDays)
}

// Build recomputes the global and per-community rankings from interaction
// history. itemCommunities maps item ID to its community; interactions on
// items with no known community only count toward the global ranking.
// Timestamps are compared in UTC; naive values are assumed already UTC.
func (m *PopularityModel) Build(ctx context.Context, now time.Time, interactions []Interaction, itemCommunities map[int]string) error {
	start := time.Now()
	now = now.UTC()

	globalScores := make(map[int]float64)
	globalOrder := make([]int, 0)
	commScores := make(map[string]map[int]float64)
	commOrder := make(map[string][]int)

	for _, inter := range interactions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if inter.Timestamp.IsZero() {
			continue
		}

		ageDays := now.Sub(inter.Timestamp.UTC()).Seconds() / 86400.0
		score := m.weights.Weight(inter.Type) * m.decay(ageDays)

		if _, seen := globalScores[inter.ItemID]; !seen {
			globalOrder = append(globalOrder, inter.ItemID)
		}
		globalScores[inter.ItemID] += score

		community := itemCommunities[inter.ItemID]
		if community == "" {
			continue
		}
		scores, ok := commScores[community]
		if !ok {
			scores = make(map[int]float64)
			commScores[community] = scores
		}
		if _, seen := scores[inter.ItemID]; !seen {
			commOrder[community] = append(commOrder[community], inter.ItemID)
		}
		scores[inter.ItemID] += score
	}

	snap := &popularitySnapshot{
		global:      rankEntries(globalScores, globalOrder, m.topK),
		byCommunity: make(map[string][]PopularityEntry, len(commScores)),
		builtAt:     time.Now(),
	}
	for community, scores := range commScores {
		snap.byCommunity[community] = rankEntries(scores, commOrder[community], m.topK)
	}
	m.snap.Store(snap)

	m.logger.Info().
		Int("interactions", len(interactions)).
		Int("ranked_items", len(globalScores)).
		Int("communities", len(snap.byCommunity)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("popularity rankings built")

	return nil
}

// rankEntries sorts scores strictly descending, ties broken by first-seen
// order, truncated to topK.
func rankEntries(scores map[int]float64, firstSeen []int, topK int) []PopularityEntry {
	entries := make([]PopularityEntry, 0, len(firstSeen))
	for _, itemID := range firstSeen {
		entries = append(entries, PopularityEntry{ItemID: itemID, Score: scores[itemID]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if len(entries) > topK {
		entries = entries[:topK]
	}
	return entries
}

// TopGlobal returns up to k item IDs from the global ranking.
// Returns ErrNotReady before the first build completes.
func (m *PopularityModel) TopGlobal(k int) ([]int, error) {
	snap := m.snap.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return entryIDs(snap.global, k), nil
}

// TopByCommunity returns up to k item IDs from a community's ranking.
// An unknown community falls back to the global ranking.
func (m *PopularityModel) TopByCommunity(community string, k int) ([]int, error) {
	snap := m.snap.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	if list, ok := snap.byCommunity[community]; ok {
		return entryIDs(list, k), nil
	}
	return entryIDs(snap.global, k), nil
}

func entryIDs(entries []PopularityEntry, k int) []int {
	if k > len(entries) {
		k = len(entries)
	}
	ids := make([]int, 0, k)
	for _, e := range entries[:k] {
		ids = append(ids, e.ItemID)
	}
	return ids
}
