// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// mapEncoder returns preplanned vectors per text and fails on anything
// unplanned.
type mapEncoder struct {
	vectors map[string][]float32
}

func (e mapEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			return nil, fmt.Errorf("unplanned text %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func TestEmbeddingIndexNotReady(t *testing.T) {
	ix := NewEmbeddingIndex(lenEncoder{}, testLogger())
	if ix.Ready() {
		t.Fatal("index should not be ready before first build")
	}
	if _, err := ix.Query(context.Background(), "anything", 5); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestEmbeddingIndexQueryOrdering(t *testing.T) {
	corpus := []Item{
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b"},
		{ID: 3, Title: "c"},
	}
	enc := mapEncoder{vectors: map[string][]float32{
		corpus[0].CanonicalText(): {0, 0},
		corpus[1].CanonicalText(): {3, 0},
		corpus[2].CanonicalText(): {1, 0},
		"query":                   {0.5, 0},
	}}

	ix := NewEmbeddingIndex(enc, testLogger())
	if err := ix.Build(context.Background(), corpus); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !ix.Ready() {
		t.Fatal("index should be ready after build")
	}

	got, err := ix.Query(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	// Distances from 0.5: item 1 -> 0.25, item 3 -> 0.25, item 2 -> 6.25.
	// The tie between items 1 and 3 breaks by corpus order.
	want := []int{1, 3, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Query order = %v, want %v", got, want)
	}

	// k smaller than the corpus truncates.
	got, _ = ix.Query(context.Background(), "query", 1)
	if !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Query k=1 = %v, want [1]", got)
	}
}

func TestEmbeddingIndexEmptyCorpus(t *testing.T) {
	ix := NewEmbeddingIndex(mapEncoder{vectors: map[string][]float32{}}, testLogger())
	if err := ix.Build(context.Background(), nil); err != nil {
		t.Fatalf("Build on empty corpus failed: %v", err)
	}
	got, err := ix.Query(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty corpus should yield empty result, got %v", got)
	}
}

func TestEmbeddingIndexRejectsInconsistentDimensions(t *testing.T) {
	corpus := []Item{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	enc := mapEncoder{vectors: map[string][]float32{
		corpus[0].CanonicalText(): {0, 0},
		corpus[1].CanonicalText(): {0, 0, 0},
	}}
	ix := NewEmbeddingIndex(enc, testLogger())
	if err := ix.Build(context.Background(), corpus); err == nil {
		t.Fatal("Build should reject inconsistent vector dimensions")
	}
	if ix.Ready() {
		t.Error("failed build must not publish a snapshot")
	}
}

func TestEmbeddingIndexFailedRebuildKeepsOldSnapshot(t *testing.T) {
	corpus := []Item{{ID: 1, Title: "a"}}
	good := mapEncoder{vectors: map[string][]float32{
		corpus[0].CanonicalText(): {1},
		"query":                   {1},
	}}
	ix := NewEmbeddingIndex(good, testLogger())
	if err := ix.Build(context.Background(), corpus); err != nil {
		t.Fatalf("first build failed: %v", err)
	}

	// Second build fails on an unplanned text; the first snapshot stays.
	broken := []Item{{ID: 2, Title: "unplanned"}}
	if err := ix.Build(context.Background(), broken); err == nil {
		t.Fatal("build with failing encoder should error")
	}

	got, err := ix.Query(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("Query after failed rebuild: %v", err)
	}
	if !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("old snapshot should still serve, got %v", got)
	}
}
