// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingEncoder is a deterministic local encoder using the hashing trick
// over lowercased tokens. It needs no network access and produces stable
// vectors for identical texts, which makes it suitable for development,
// tests, and deployments without an embedding provider.
type HashingEncoder struct {
	dim int
}

// NewHashingEncoder creates a hashing encoder with the given dimensionality.
// Dimensions below 8 are raised to 64.
func NewHashingEncoder(dim int) *HashingEncoder {
	if dim < 8 {
		dim = 64
	}
	return &HashingEncoder{dim: dim}
}

// Encode maps each text to an L2-normalized bag-of-tokens vector.
func (e *HashingEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.encodeOne(text)
	}
	return vectors, nil
}

func (e *HashingEncoder) encodeOne(text string) []float32 {
	vec := make([]float32, e.dim)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		// Low bit selects the sign, the rest selects the bucket. The
		// signed variant keeps colliding tokens from always reinforcing.
		idx := int(sum>>1) % e.dim
		if sum&1 == 0 {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
