// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/blockfeed/internal/metrics"
)

// Models bundles the three generator models and owns their rebuild cycle.
// Each model publishes its own snapshot independently; there is no
// cross-model coordination, so a request may observe a fresh popularity
// ranking alongside an older similarity table. That is within contract.
type Models struct {
	Index      *EmbeddingIndex
	Similarity *SimilarityModel
	Popularity *PopularityModel

	store  Store
	logger zerolog.Logger

	// rebuildMu serializes rebuilds; the read path never takes it.
	rebuildMu sync.Mutex

	now func() time.Time
}

// NewModels constructs the generator models from configuration.
func NewModels(cfg *Config, encoder Encoder, store Store, logger zerolog.Logger) *Models {
	return &Models{
		Index:      NewEmbeddingIndex(encoder, logger),
		Similarity: NewSimilarityModel(cfg.Similarity, cfg.Weights, logger),
		Popularity: NewPopularityModel(cfg.Popularity, cfg.Weights, logger),
		store:      store,
		logger:     logger.With().Str("component", "models").Logger(),
		now:        time.Now,
	}
}

// Ready reports whether every model has published at least one snapshot.
func (m *Models) Ready() bool {
	return m.Index.Ready() && m.Similarity.Ready() && m.Popularity.Ready()
}

// Rebuild loads the corpus and interaction history once and rebuilds all
// three models. A single model failing is logged and does not stop the
// others; its previous snapshot stays published. The joined error reports
// every failure.
func (m *Models) Rebuild(ctx context.Context) error {
	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()

	start := time.Now()
	m.logger.Info().Msg("starting model rebuild")

	items, err := m.store.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	interactions, err := m.store.ListInteractions(ctx)
	if err != nil {
		return fmt.Errorf("list interactions: %w", err)
	}

	itemCommunities := make(map[int]string, len(items))
	for _, item := range items {
		itemCommunities[item.ID] = item.Community
	}

	var errs []error
	m.rebuildOne(ctx, "index", &errs, func() error {
		return m.Index.Build(ctx, items)
	})
	m.rebuildOne(ctx, "similarity", &errs, func() error {
		return m.Similarity.Build(ctx, interactions)
	})
	m.rebuildOne(ctx, "popularity", &errs, func() error {
		return m.Popularity.Build(ctx, m.now(), interactions, itemCommunities)
	})

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	metrics.RebuildLastSuccess.SetToCurrentTime()
	m.logger.Info().
		Int("items", len(items)).
		Int("interactions", len(interactions)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("model rebuild complete")

	return nil
}

// rebuildOne runs a single model build, recording duration and isolating
// its failure from the other builds.
func (m *Models) rebuildOne(ctx context.Context, name string, errs *[]error, build func() error) {
	if err := ctx.Err(); err != nil {
		*errs = append(*errs, fmt.Errorf("%s build: %w", name, err))
		return
	}

	timer := time.Now()
	if err := build(); err != nil {
		m.logger.Error().Str("model", name).Err(err).Msg("model build failed")
		metrics.RebuildErrors.WithLabelValues(name).Inc()
		*errs = append(*errs, fmt.Errorf("%s build: %w", name, err))
		return
	}
	metrics.RebuildDuration.WithLabelValues(name).Observe(time.Since(timer).Seconds())
}
