// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/blockfeed/internal/metrics"
)

// FusionEngine orchestrates the three candidate generators into a single
// deduplicated, provenance-tagged pool.
//
// Stage order is fixed and each stage is fault-isolated: a failing generator
// logs a warning and contributes zero candidates, it never aborts the
// request. The only hard failure mode is the caller-visible NotReady state,
// which the service layer checks before fusing.
type FusionEngine struct {
	store      Store
	index      *EmbeddingIndex
	similarity *SimilarityModel
	popularity *PopularityModel
	cfg        FusionConfig
	logger     zerolog.Logger
}

// stageResult carries a generator stage's contribution, or the reason it
// contributed nothing. Aggregating results beats ambient recovery: every
// degraded response is attributable to a logged stage failure.
type stageResult struct {
	ids []int
	err error
}

// NewFusionEngine wires the generators into a fusion engine.
func NewFusionEngine(cfg FusionConfig, store Store, models *Models, logger zerolog.Logger) *FusionEngine {
	return &FusionEngine{
		store:      store,
		index:      models.Index,
		similarity: models.Similarity,
		popularity: models.Popularity,
		cfg:        cfg,
		logger:     logger.With().Str("component", "fusion").Logger(),
	}
}

// Candidates produces the fused candidate pool for a user. The user row may
// be nil (unknown user); the raw userID still anchors the history lookup.
// A pool of length zero is a valid result; the caller decides whether to
// fall back to the cold-start path.
func (f *FusionEngine) Candidates(ctx context.Context, userID int, user *User) []Candidate {
	logger := f.logger.With().Int("user_id", userID).Logger()
	pool := NewPool()

	// Stage 1: the user's most recent interactions, resolved to items.
	// Interactions whose item no longer exists are skipped silently, but
	// their item IDs still participate in the dedup set below.
	recent, recentIDs := f.recentItems(ctx, userID, logger)

	// Stage 2: content similarity, anchored on the most recent item.
	if len(recent) > 0 {
		f.mergeStage(pool, SourceContent, f.contentStage(ctx, recent), logger)
	}

	// Stage 3: collaborative neighbors of up to the first two recent items.
	if len(recent) > 0 {
		f.mergeStage(pool, SourceCF, f.collaborativeStage(recent), logger)
	}

	// Stage 4: popularity always runs, independent of history.
	f.popularityStages(ctx, pool, user, logger)

	// Stage 5-6: tags already merged per item; now drop anything the user
	// just interacted with.
	for id := range recentIDs {
		pool.Remove(id)
	}

	candidates := pool.Finalize()
	logger.Debug().
		Int("recent", len(recent)).
		Int("candidates", len(candidates)).
		Msg("candidate pool fused")
	return candidates
}

// ColdStartCandidates produces the popularity-only pool used for users with
// no usable history: community plus global rankings, same tagging and dedup
// rules, no personalized stages.
func (f *FusionEngine) ColdStartCandidates(ctx context.Context, userID int, user *User) []Candidate {
	logger := f.logger.With().Int("user_id", userID).Bool("cold_start", true).Logger()
	pool := NewPool()
	f.popularityStages(ctx, pool, user, logger)

	candidates := pool.Finalize()
	logger.Debug().Int("candidates", len(candidates)).Msg("cold-start pool fused")
	return candidates
}

// recentItems fetches the user's N most recent interactions and resolves
// them to items. The returned set holds every recent item ID, resolvable or
// not, for the no-repeat invariant.
func (f *FusionEngine) recentItems(ctx context.Context, userID int, logger zerolog.Logger) ([]Item, map[int]struct{}) {
	interactions, err := f.store.RecentInteractionsByUser(ctx, userID, f.cfg.RecentN)
	if err != nil {
		logger.Warn().Err(err).Msg("recent interaction fetch failed")
		metrics.FusionStageErrors.WithLabelValues("recent").Inc()
		return nil, nil
	}

	recentIDs := make(map[int]struct{}, len(interactions))
	items := make([]Item, 0, len(interactions))
	for _, inter := range interactions {
		recentIDs[inter.ItemID] = struct{}{}
		item, err := f.store.GetItem(ctx, inter.ItemID)
		if err != nil {
			// Referential lag: the item may have been deleted since the
			// interaction was recorded.
			continue
		}
		items = append(items, *item)
	}
	return items, recentIDs
}

// contentStage queries the embedding index with the most recent item's
// canonical text at full k, and each remaining recent item at k/2.
func (f *FusionEngine) contentStage(ctx context.Context, recent []Item) stageResult {
	ids, err := f.index.Query(ctx, recent[0].CanonicalText(), f.cfg.KContent)
	if err != nil {
		return stageResult{err: err}
	}
	for _, item := range recent[1:] {
		secondary, err := f.index.Query(ctx, item.CanonicalText(), f.cfg.KContent/2)
		if err != nil {
			return stageResult{ids: ids, err: err}
		}
		ids = append(ids, secondary...)
	}
	return stageResult{ids: ids}
}

// collaborativeStage queries item-item neighbors for up to the first two
// recent items.
func (f *FusionEngine) collaborativeStage(recent []Item) stageResult {
	anchors := recent
	if len(anchors) > 2 {
		anchors = anchors[:2]
	}

	var ids []int
	for _, item := range anchors {
		neighbors, err := f.similarity.Query(item.ID, f.cfg.KCF)
		if err != nil {
			return stageResult{ids: ids, err: err}
		}
		ids = append(ids, neighbors...)
	}
	return stageResult{ids: ids}
}

// popularityStages merges the community and global popularity slices. The
// two lists carry distinct provenance tags; an item on both keeps both.
func (f *FusionEngine) popularityStages(ctx context.Context, pool *Pool, user *User, logger zerolog.Logger) {
	if user != nil && user.Block != "" {
		ids, err := f.popularity.TopByCommunity(user.Block, f.cfg.KPopCommunity)
		f.mergeStage(pool, SourcePopCommunity, stageResult{ids: ids, err: err}, logger)
	}

	ids, err := f.popularity.TopGlobal(f.cfg.KPopGlobal)
	f.mergeStage(pool, SourcePopGlobal, stageResult{ids: ids, err: err}, logger)
}

// mergeStage accumulates a stage's contribution into the pool. Partial
// results that arrived before a stage error are still merged; the error is
// logged and absorbed.
func (f *FusionEngine) mergeStage(pool *Pool, src Source, result stageResult, logger zerolog.Logger) {
	if result.err != nil {
		logger.Warn().Str("source", string(src)).Err(result.err).Msg("candidate stage failed")
		metrics.FusionStageErrors.WithLabelValues(string(src)).Inc()
	}
	for _, id := range result.ids {
		pool.Add(id, src)
	}
	if len(result.ids) > 0 {
		metrics.FusionCandidates.WithLabelValues(string(src)).Add(float64(len(result.ids)))
	}
}
