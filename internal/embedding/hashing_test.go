// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package embedding

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestHashingEncoderDeterministic(t *testing.T) {
	enc := NewHashingEncoder(64)

	a, err := enc.Encode(context.Background(), []string{"Herb swap. Trade cuttings [maple]"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := enc.Encode(context.Background(), []string{"Herb swap. Trade cuttings [maple]"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical texts must produce identical vectors")
	}
}

func TestHashingEncoderDimensionAndNorm(t *testing.T) {
	enc := NewHashingEncoder(128)

	vecs, err := enc.Encode(context.Background(), []string{"community garden", "street cleanup day"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 128 {
			t.Errorf("vector %d has dim %d, want 128", i, len(v))
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if math.Abs(math.Sqrt(norm)-1.0) > 1e-5 {
			t.Errorf("vector %d should be L2-normalized, norm %v", i, math.Sqrt(norm))
		}
	}
}

func TestHashingEncoderEmptyText(t *testing.T) {
	enc := NewHashingEncoder(64)
	vecs, err := enc.Encode(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	for _, x := range vecs[0] {
		if x != 0 {
			t.Fatal("empty text should encode to the zero vector")
		}
	}
}

func TestHashingEncoderMinimumDimension(t *testing.T) {
	enc := NewHashingEncoder(2)
	vecs, _ := enc.Encode(context.Background(), []string{"x"})
	if len(vecs[0]) != 64 {
		t.Errorf("tiny dims should be raised to 64, got %d", len(vecs[0]))
	}
}

func TestHashingEncoderDistinguishesTexts(t *testing.T) {
	enc := NewHashingEncoder(256)
	vecs, err := enc.Encode(context.Background(), []string{
		"yoga in the park",
		"plumbing repair service",
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if reflect.DeepEqual(vecs[0], vecs[1]) {
		t.Error("different texts should (overwhelmingly) produce different vectors")
	}
}
