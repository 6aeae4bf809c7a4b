// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func newTestPopularity(topK int) *PopularityModel {
	return NewPopularityModel(
		PopularityConfig{TopK: topK, HalfLifeDays: 7.0},
		DefaultInteractionWeights(),
		testLogger(),
	)
}

func TestPopularityNotReady(t *testing.T) {
	m := newTestPopularity(10)
	if m.Ready() {
		t.Fatal("model should not be ready before first build")
	}
	if _, err := m.TopGlobal(5); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
	if _, err := m.TopByCommunity("maple", 5); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestPopularityDecayHalving(t *testing.T) {
	m := newTestPopularity(10)

	// With a 7-day half-life, an interaction 7 days old contributes half
	// the score of one from right now.
	got := m.decay(7.0)
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("decay(7) = %v, want 0.5", got)
	}
	if math.Abs(m.decay(0)-1.0) > 1e-9 {
		t.Errorf("decay(0) = %v, want 1.0", m.decay(0))
	}
	if math.Abs(m.decay(14)-0.25) > 1e-9 {
		t.Errorf("decay(14) = %v, want 0.25", m.decay(14))
	}
}

func TestPopularityRankingOrder(t *testing.T) {
	m := newTestPopularity(10)
	now := time.Now().UTC()

	// Item 1: one fresh view (score 1.0).
	// Item 2: one 7-day-old view (score 0.5).
	// Item 3: one fresh like (score 2.0).
	interactions := []Interaction{
		{UserID: 1, ItemID: 1, Type: InteractionView, Timestamp: now},
		{UserID: 1, ItemID: 2, Type: InteractionView, Timestamp: now.Add(-7 * 24 * time.Hour)},
		{UserID: 2, ItemID: 3, Type: InteractionLike, Timestamp: now},
	}
	if err := m.Build(context.Background(), now, interactions, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got, err := m.TopGlobal(10)
	if err != nil {
		t.Fatalf("TopGlobal failed: %v", err)
	}
	want := []int{3, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected ranking %v, got %v", want, got)
	}
}

func TestPopularityDismissLowersScore(t *testing.T) {
	m := newTestPopularity(10)
	now := time.Now().UTC()

	// Items 1 and 2 each get a fresh view; item 1 also gets a dismiss,
	// pulling it below item 2.
	interactions := []Interaction{
		{UserID: 1, ItemID: 1, Type: InteractionView, Timestamp: now},
		{UserID: 2, ItemID: 1, Type: InteractionDismiss, Timestamp: now},
		{UserID: 1, ItemID: 2, Type: InteractionView, Timestamp: now},
	}
	if err := m.Build(context.Background(), now, interactions, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got, _ := m.TopGlobal(10)
	if !reflect.DeepEqual(got, []int{2, 1}) {
		t.Errorf("dismiss should demote item 1 below item 2, got %v", got)
	}
}

func TestPopularityCommunityRankingAndFallback(t *testing.T) {
	m := newTestPopularity(10)
	now := time.Now().UTC()

	interactions := []Interaction{
		{UserID: 1, ItemID: 1, Type: InteractionLike, Timestamp: now},
		{UserID: 1, ItemID: 2, Type: InteractionView, Timestamp: now},
		{UserID: 2, ItemID: 3, Type: InteractionBook, Timestamp: now},
	}
	communities := map[int]string{1: "maple", 2: "maple", 3: "oak"}
	if err := m.Build(context.Background(), now, interactions, communities); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	maple, err := m.TopByCommunity("maple", 10)
	if err != nil {
		t.Fatalf("TopByCommunity failed: %v", err)
	}
	if !reflect.DeepEqual(maple, []int{1, 2}) {
		t.Errorf("maple ranking = %v, want [1 2]", maple)
	}

	// Unknown community falls back to the global ranking.
	unknown, err := m.TopByCommunity("birch", 10)
	if err != nil {
		t.Fatalf("TopByCommunity fallback failed: %v", err)
	}
	global, _ := m.TopGlobal(10)
	if !reflect.DeepEqual(unknown, global) {
		t.Errorf("unknown community should fall back to global %v, got %v", global, unknown)
	}
}

func TestPopularitySkipsZeroTimestamps(t *testing.T) {
	m := newTestPopularity(10)
	now := time.Now().UTC()

	interactions := []Interaction{
		{UserID: 1, ItemID: 1, Type: InteractionView}, // zero timestamp
		{UserID: 1, ItemID: 2, Type: InteractionView, Timestamp: now},
	}
	if err := m.Build(context.Background(), now, interactions, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got, _ := m.TopGlobal(10)
	if !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("zero-timestamp interaction should be skipped, got ranking %v", got)
	}
}

func TestPopularityTopKTruncation(t *testing.T) {
	m := newTestPopularity(2)
	now := time.Now().UTC()

	interactions := []Interaction{
		{UserID: 1, ItemID: 1, Type: InteractionView, Timestamp: now},
		{UserID: 1, ItemID: 2, Type: InteractionView, Timestamp: now},
		{UserID: 1, ItemID: 3, Type: InteractionView, Timestamp: now},
	}
	if err := m.Build(context.Background(), now, interactions, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got, _ := m.TopGlobal(10)
	if len(got) != 2 {
		t.Errorf("ranking should be truncated to topK=2, got %d entries", len(got))
	}
	// Equal scores keep first-seen interaction order.
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("ties should preserve first-seen order, got %v", got)
	}
}
