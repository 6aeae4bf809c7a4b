// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// memStore is an in-memory Store for pipeline tests. Error fields inject
// failures per method.
type memStore struct {
	users        map[int]User
	items        map[int]Item
	interactions []Interaction

	failRecent error
	failStats  error
	failItems  error
	failList   error
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int]User),
		items: make(map[int]Item),
	}
}

func (s *memStore) GetUser(_ context.Context, id int) (*User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *memStore) GetItem(_ context.Context, id int) (*Item, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (s *memStore) GetItems(_ context.Context, ids []int) (map[int]Item, error) {
	if s.failItems != nil {
		return nil, s.failItems
	}
	out := make(map[int]Item, len(ids))
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (s *memStore) ListItems(_ context.Context) ([]Item, error) {
	if s.failList != nil {
		return nil, s.failList
	}
	ids := make([]int, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	return out, nil
}

func (s *memStore) ListInteractions(_ context.Context) ([]Interaction, error) {
	if s.failList != nil {
		return nil, s.failList
	}
	return append([]Interaction(nil), s.interactions...), nil
}

func (s *memStore) RecentInteractionsByUser(_ context.Context, userID, n int) ([]Interaction, error) {
	if s.failRecent != nil {
		return nil, s.failRecent
	}
	var mine []Interaction
	for _, in := range s.interactions {
		if in.UserID == userID {
			mine = append(mine, in)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].Timestamp.After(mine[j].Timestamp)
	})
	if len(mine) > n {
		mine = mine[:n]
	}
	return mine, nil
}

func (s *memStore) InteractionStats(_ context.Context, itemID int) (InteractionStats, error) {
	if s.failStats != nil {
		return InteractionStats{}, s.failStats
	}
	var stats InteractionStats
	for _, in := range s.interactions {
		if in.ItemID != itemID {
			continue
		}
		stats.Total++
		if in.Type.Positive() {
			stats.Positive++
		}
		if in.Type.Negative() {
			stats.Negative++
		}
	}
	return stats, nil
}

// lenEncoder maps every text to the one-dimensional vector [len(text)].
// Deterministic and cheap; nearest neighbors are the items whose canonical
// text length is closest to the query's.
type lenEncoder struct{}

func (lenEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func ts(daysAgo float64) time.Time {
	return time.Now().UTC().Add(-time.Duration(daysAgo * 24 * float64(time.Hour)))
}

func candidateIDs(candidates []Candidate) []int {
	ids := make([]int, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ItemID)
	}
	return ids
}

func containsID(candidates []Candidate, id int) bool {
	for _, c := range candidates {
		if c.ItemID == id {
			return true
		}
	}
	return false
}
