// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T, store *memStore, build bool) (*Service, *Models) {
	t.Helper()
	cfg := DefaultConfig()
	models := NewModels(cfg, lenEncoder{}, store, testLogger())
	if build {
		if err := models.Rebuild(context.Background()); err != nil {
			t.Fatalf("Rebuild failed: %v", err)
		}
	}
	return NewService(cfg, store, models, testLogger()), models
}

func TestHomefeedNotReady(t *testing.T) {
	svc, _ := newTestService(t, seedStore(), false)

	if _, err := svc.Homefeed(context.Background(), 7); !errors.Is(err, ErrNotReady) {
		t.Errorf("Homefeed before build should return ErrNotReady, got %v", err)
	}
	if _, err := svc.ColdStart(context.Background(), 7); !errors.Is(err, ErrNotReady) {
		t.Errorf("ColdStart before build should return ErrNotReady, got %v", err)
	}
}

func TestHomefeedKnownUser(t *testing.T) {
	svc, _ := newTestService(t, seedStore(), true)

	resp, err := svc.Homefeed(context.Background(), 7)
	if err != nil {
		t.Fatalf("Homefeed failed: %v", err)
	}
	if resp.ColdStart {
		t.Error("user with history should not be served the cold-start path")
	}
	if resp.UserID != 7 {
		t.Errorf("UserID = %d, want 7", resp.UserID)
	}
	if len(resp.Recommendations) == 0 {
		t.Fatal("expected at least one recommendation")
	}
	for _, rec := range resp.Recommendations {
		if rec.ItemID == 1 {
			t.Error("recently interacted item 1 must not be recommended")
		}
		if rec.Reason == "" {
			t.Errorf("recommendation %d has no reason", rec.ItemID)
		}
		if len(rec.Tags) == 0 {
			t.Errorf("recommendation %d has no provenance tags", rec.ItemID)
		}
	}
}

func TestHomefeedUnknownUserColdStarts(t *testing.T) {
	svc, _ := newTestService(t, seedStore(), true)

	// No user row, no interactions: a valid response from popularity only.
	resp, err := svc.Homefeed(context.Background(), 999)
	if err != nil {
		t.Fatalf("Homefeed for unknown user failed: %v", err)
	}
	if !resp.ColdStart {
		t.Error("unknown user should be served the cold-start path")
	}
	if len(resp.Recommendations) == 0 {
		t.Error("cold-start feed should surface globally popular items")
	}
}

// A user whose entire history is dismissals of locally popular items should
// not see those items again, yet still receive something from global
// popularity.
func TestHomefeedDismissOnlyUser(t *testing.T) {
	store := seedStore()
	// User 9 (maple) dismissed items 1 and 2, the community's most popular.
	store.users[9] = User{ID: 9, Name: "Kim", Block: "maple"}
	store.interactions = append(store.interactions,
		Interaction{ID: 20, UserID: 9, ItemID: 1, Type: InteractionDismiss, Timestamp: ts(0.1)},
		Interaction{ID: 21, UserID: 9, ItemID: 2, Type: InteractionDismiss, Timestamp: ts(0.1)},
	)
	svc, _ := newTestService(t, store, true)

	resp, err := svc.Homefeed(context.Background(), 9)
	if err != nil {
		t.Fatalf("Homefeed failed: %v", err)
	}
	for _, rec := range resp.Recommendations {
		if rec.ItemID == 1 || rec.ItemID == 2 {
			t.Errorf("dismissed item %d must not reappear", rec.ItemID)
		}
	}
	if len(resp.Recommendations) == 0 {
		t.Error("feed should still contain at least one item from popularity")
	}
}

func TestHomefeedCache(t *testing.T) {
	svc, _ := newTestService(t, seedStore(), true)

	first, err := svc.Homefeed(context.Background(), 7)
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if first.CacheHit {
		t.Error("first request should be a cache miss")
	}

	second, err := svc.Homefeed(context.Background(), 7)
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	if !second.CacheHit {
		t.Error("second request should be a cache hit")
	}

	svc.InvalidateCache()
	third, err := svc.Homefeed(context.Background(), 7)
	if err != nil {
		t.Fatalf("third request failed: %v", err)
	}
	if third.CacheHit {
		t.Error("request after invalidation should be a cache miss")
	}
}

func TestHomefeedCacheExpiry(t *testing.T) {
	store := seedStore()
	cfg := DefaultConfig()
	cfg.Cache.TTL = time.Nanosecond
	models := NewModels(cfg, lenEncoder{}, store, testLogger())
	if err := models.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	svc := NewService(cfg, store, models, testLogger())

	if _, err := svc.Homefeed(context.Background(), 7); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	resp, err := svc.Homefeed(context.Background(), 7)
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	if resp.CacheHit {
		t.Error("expired entry should not serve as a cache hit")
	}
}

// Feedback recorded now must not mutate an already-generated response, but
// becomes visible after a rebuild (through popularity at minimum).
func TestFeedbackVisibleAfterRebuild(t *testing.T) {
	store := seedStore()
	svc, models := newTestService(t, store, true)

	before, err := svc.Homefeed(context.Background(), 999)
	if err != nil {
		t.Fatalf("request before feedback failed: %v", err)
	}

	// A brand-new item receives a burst of likes.
	store.items[6] = Item{ID: 6, Title: "Night market", Community: "oak", CreatedAt: time.Now().UTC()}
	for u := 10; u < 16; u++ {
		store.interactions = append(store.interactions,
			Interaction{UserID: u, ItemID: 6, Type: InteractionLike, Timestamp: time.Now().UTC()})
	}

	// Not visible yet: models and cache still hold the old state.
	for _, rec := range before.Recommendations {
		if rec.ItemID == 6 {
			t.Fatal("item 6 cannot appear before it existed")
		}
	}

	if err := models.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	svc.InvalidateCache()

	after, err := svc.Homefeed(context.Background(), 999)
	if err != nil {
		t.Fatalf("request after rebuild failed: %v", err)
	}
	found := false
	for _, rec := range after.Recommendations {
		if rec.ItemID == 6 {
			found = true
		}
	}
	if !found {
		t.Error("heavily liked item 6 should surface after the rebuild")
	}
}

func TestModelsRebuildIsolation(t *testing.T) {
	store := seedStore()
	models := NewModels(DefaultConfig(), lenEncoder{}, store, testLogger())
	if err := models.Rebuild(context.Background()); err != nil {
		t.Fatalf("first rebuild failed: %v", err)
	}

	// A store failure during the next rebuild surfaces as an error but the
	// previous snapshots keep serving.
	store.failList = errors.New("db down")
	if err := models.Rebuild(context.Background()); err == nil {
		t.Fatal("rebuild with failing store should error")
	}
	if !models.Ready() {
		t.Error("models should remain ready on their previous snapshots")
	}
}
