// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/blockfeed/internal/recommend"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Path: ":memory:"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return db
}

func seedTestDB(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	stmts := []string{
		`INSERT INTO users VALUES (7, 'Ada', 'maple'), (8, 'Kim', 'oak')`,
		`INSERT INTO items VALUES
			(1, 'Herb swap', 'Trade cuttings', 'maple', TIMESTAMP '2026-08-30 10:00:00'),
			(2, 'Tool library', 'Borrow tools', 'maple', TIMESTAMP '2026-08-01 10:00:00'),
			(3, 'Choir night', '', 'oak', NULL)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestGetUser(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)
	ctx := context.Background()

	u, err := db.GetUser(ctx, 7)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u.Name != "Ada" || u.Block != "maple" {
		t.Errorf("user = %+v, want Ada/maple", u)
	}

	if _, err := db.GetUser(ctx, 999); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("missing user should map to ErrNotFound, got %v", err)
	}
}

func TestGetItemAndBulkResolve(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)
	ctx := context.Background()

	it, err := db.GetItem(ctx, 3)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !it.CreatedAt.IsZero() {
		t.Errorf("NULL created_at should scan to the zero time, got %v", it.CreatedAt)
	}

	items, err := db.GetItems(ctx, []int{1, 2, 999})
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("GetItems resolved %d items, want 2 (missing IDs silently absent)", len(items))
	}
	if items[1].Title != "Herb swap" {
		t.Errorf("item 1 title = %q", items[1].Title)
	}

	empty, err := db.GetItems(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty ID list should resolve to empty map, got %v/%v", empty, err)
	}
}

func TestListItemsOrdered(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)

	items, err := db.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].ID < items[i-1].ID {
			t.Fatalf("items not in ID order: %v", items)
		}
	}
}

func TestInteractionRoundTrip(t *testing.T) {
	db := openTestDB(t)
	seedTestDB(t, db)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	events := []struct {
		userID, itemID int
		typ            recommend.InteractionType
		ts             time.Time
	}{
		{7, 1, recommend.InteractionView, base},
		{7, 2, recommend.InteractionLike, base.Add(time.Hour)},
		{7, 1, recommend.InteractionDismiss, base.Add(2 * time.Hour)},
		{8, 1, recommend.InteractionBook, base},
	}
	for _, e := range events {
		if _, err := db.InsertInteraction(ctx, e.userID, e.itemID, e.typ, e.ts); err != nil {
			t.Fatalf("InsertInteraction failed: %v", err)
		}
	}

	all, err := db.ListInteractions(ctx)
	if err != nil {
		t.Fatalf("ListInteractions failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d interactions, want 4", len(all))
	}

	recent, err := db.RecentInteractionsByUser(ctx, 7, 2)
	if err != nil {
		t.Fatalf("RecentInteractionsByUser failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d recent interactions, want 2", len(recent))
	}
	if recent[0].Type != recommend.InteractionDismiss || recent[1].Type != recommend.InteractionLike {
		t.Errorf("recent interactions not newest-first: %v then %v", recent[0].Type, recent[1].Type)
	}

	stats, err := db.InteractionStats(ctx, 1)
	if err != nil {
		t.Fatalf("InteractionStats failed: %v", err)
	}
	want := recommend.InteractionStats{Total: 3, Positive: 1, Negative: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestRecentInteractionsZeroLimit(t *testing.T) {
	db := openTestDB(t)
	got, err := db.RecentInteractionsByUser(context.Background(), 7, 0)
	if err != nil || got != nil {
		t.Errorf("n=0 should short-circuit to nil, got %v/%v", got, err)
	}
}
