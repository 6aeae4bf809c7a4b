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

// SimilarityModel is an item-item collaborative filter: "users who
// interacted with X also interacted with Y", expressed as cosine similarity
// over weighted interaction vectors.
//
// The naive pairwise computation is O(I^2 * U) and is acceptable only for
// bounded catalogs. That is a documented scaling limit of this model, not
// something to approximate silently; an ANN or factorization-based
// implementation can replace this type without touching callers.
type SimilarityModel struct {
	weights        InteractionWeights
	minCommonUsers int
	minSimilarity  float64
	logger         zerolog.Logger
	snap           atomic.Pointer[similaritySnapshot]
}

// Neighbor is one entry of an item's similarity list.
type Neighbor struct {
	ItemID     int     `json:"item_id"`
	Similarity float64 `json:"similarity"`
}

// similaritySnapshot is one immutable generation of the similarity table.
type similaritySnapshot struct {
	neighbors map[int][]Neighbor
	builtAt   time.Time
}

// NewSimilarityModel creates an unbuilt collaborative similarity model.
func NewSimilarityModel(cfg SimilarityConfig, weights InteractionWeights, logger zerolog.Logger) *SimilarityModel {
	if cfg.MinCommonUsers < 1 {
		cfg.MinCommonUsers = 2
	}
	if weights == nil {
		weights = DefaultInteractionWeights()
	}
	return &SimilarityModel{
		weights:        weights,
		minCommonUsers: cfg.MinCommonUsers,
		minSimilarity:  cfg.MinSimilarity,
		logger:         logger.With().Str("component", "similarity").Logger(),
	}
}

// Ready reports whether a build has been published.
func (m *SimilarityModel) Ready() bool {
	return m.snap.Load() != nil
}

// Build derives the item-item similarity table from interaction history and
// publishes it atomically.
func (m *SimilarityModel) Build(ctx context.Context, interactions []Interaction) error {
	start := time.Now()

	// Weighted user x item matrix: weights of a user's interactions with the
	// same item accumulate.
	userItems := make(map[int]map[int]float64)
	for _, inter := range interactions {
		row, ok := userItems[inter.UserID]
		if !ok {
			row = make(map[int]float64)
			userItems[inter.UserID] = row
		}
		row[inter.ItemID] += m.weights.Weight(inter.Type)
	}

	// Inverted index keeps the common-user scan cheap.
	itemUsers := make(map[int][]int)
	for userID, row := range userItems {
		for itemID := range row {
			itemUsers[itemID] = append(itemUsers[itemID], userID)
		}
	}

	items := make([]int, 0, len(itemUsers))
	for itemID := range itemUsers {
		items = append(items, itemID)
	}
	sort.Ints(items)

	neighbors := make(map[int][]Neighbor)
	for i, a := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, b := range items[i+1:] {
			sim := m.pairSimilarity(a, b, userItems, itemUsers)
			if sim <= m.minSimilarity {
				continue
			}
			neighbors[a] = append(neighbors[a], Neighbor{ItemID: b, Similarity: sim})
			neighbors[b] = append(neighbors[b], Neighbor{ItemID: a, Similarity: sim})
		}
	}

	pairs := 0
	for itemID := range neighbors {
		list := neighbors[itemID]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Similarity > list[j].Similarity
		})
		neighbors[itemID] = list
		pairs += len(list)
	}

	m.snap.Store(&similaritySnapshot{
		neighbors: neighbors,
		builtAt:   time.Now(),
	})

	m.logger.Info().
		Int("interactions", len(interactions)).
		Int("items", len(items)).
		Int("stored_pairs", pairs/2).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("collaborative similarity model built")

	return nil
}

// pairSimilarity computes cosine similarity between two items over the set
// of users who interacted with both. Pairs below the common-user minimum
// score zero.
func (m *SimilarityModel) pairSimilarity(a, b int, userItems map[int]map[int]float64, itemUsers map[int][]int) float64 {
	usersA := itemUsers[a]
	usersB := itemUsers[b]
	if len(usersA) == 0 || len(usersB) == 0 {
		return 0
	}

	// Iterate the smaller side.
	if len(usersB) < len(usersA) {
		usersA, usersB = usersB, usersA
	}
	inB := make(map[int]struct{}, len(usersB))
	for _, u := range usersB {
		inB[u] = struct{}{}
	}

	var dot, normA, normB float64
	common := 0
	for _, u := range usersA {
		if _, ok := inB[u]; !ok {
			continue
		}
		common++
		va := userItems[u][a]
		vb := userItems[u][b]
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}

	if common < m.minCommonUsers {
		return 0
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Query returns up to k neighbor item IDs for the given item, ordered by
// descending similarity. An item that was never seen, or has no qualifying
// neighbor, yields an empty result. Returns ErrNotReady before the first
// build completes.
func (m *SimilarityModel) Query(itemID, k int) ([]int, error) {
	snap := m.snap.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	list := snap.neighbors[itemID]
	if k > len(list) {
		k = len(list)
	}
	ids := make([]int, 0, k)
	for _, n := range list[:k] {
		ids = append(ids, n.ItemID)
	}
	return ids, nil
}
