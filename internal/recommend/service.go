// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/blockfeed/internal/logging"
	"github.com/tomtom215/blockfeed/internal/metrics"
)

// Recommendation is one entry of a served homefeed.
type Recommendation struct {
	ItemID    int       `json:"item_id"`
	Title     string    `json:"title"`
	Reason    string    `json:"reason"`
	Tags      []Source  `json:"tags"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	Features  Features  `json:"features"`
}

// HomefeedResponse is the full response for a homefeed request.
type HomefeedResponse struct {
	UserID          int              `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
	ColdStart       bool             `json:"cold_start"`
	TotalCandidates int              `json:"total_candidates"`
	CacheHit        bool             `json:"cache_hit"`
	LatencyMS       int64            `json:"latency_ms"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Service runs the per-request recommendation path: fusion, policy,
// feature extraction, ranking, explanation. The path is synchronous and
// single-threaded per request; the generator models it reads are snapshot
// state published elsewhere.
type Service struct {
	store    Store
	models   *Models
	fusion   *FusionEngine
	policy   *PolicyEngine
	features *FeatureExtractor
	ranker   *Ranker
	logger   zerolog.Logger

	cacheCfg CacheConfig
	cache    map[int]cacheEntry
	cacheMu  sync.RWMutex

	// now is replaceable in tests.
	now func() time.Time
}

// cacheEntry holds a cached homefeed response.
type cacheEntry struct {
	response  *HomefeedResponse
	expiresAt time.Time
}

// NewService assembles the pipeline over the given store and models.
func NewService(cfg *Config, store Store, models *Models, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		models:   models,
		fusion:   NewFusionEngine(cfg.Fusion, store, models, logger),
		policy:   NewPolicyEngine(cfg.Policy, store, logger),
		features: NewFeatureExtractor(store, logger),
		ranker:   NewRanker(cfg.Ranker),
		logger:   logger.With().Str("component", "homefeed").Logger(),
		cacheCfg: cfg.Cache,
		cache:    make(map[int]cacheEntry),
		now:      time.Now,
	}
}

// Homefeed serves the personalized feed for a user. A user with no usable
// history falls through to the cold-start pool; an empty final list is a
// valid result. Returns ErrNotReady until all models have published their
// first snapshot.
func (s *Service) Homefeed(ctx context.Context, userID int) (*HomefeedResponse, error) {
	start := time.Now()

	if !s.models.Ready() {
		return nil, ErrNotReady
	}

	if resp := s.cachedResponse(userID); resp != nil {
		metrics.HomefeedCacheHits.Inc()
		resp.CacheHit = true
		resp.LatencyMS = time.Since(start).Milliseconds()
		return resp, nil
	}
	metrics.HomefeedCacheMisses.Inc()

	user := s.lookupUser(ctx, userID)

	// A user known to have no history goes straight to the cold-start
	// path. A history probe failure falls through to the normal path,
	// where the fusion engine absorbs stage errors.
	var candidates []Candidate
	coldStart := false
	if recent, err := s.store.RecentInteractionsByUser(ctx, userID, 1); err == nil && len(recent) == 0 {
		candidates = s.fusion.ColdStartCandidates(ctx, userID, user)
		coldStart = true
	} else {
		candidates = s.fusion.Candidates(ctx, userID, user)
		if len(candidates) == 0 {
			candidates = s.fusion.ColdStartCandidates(ctx, userID, user)
			coldStart = true
		}
	}

	resp := s.finishRequest(ctx, userID, user, candidates, coldStart, start)
	s.storeCache(userID, resp)
	return resp, nil
}

// ColdStart serves the popularity-only feed directly, for callers that know
// the user has no history (for example, onboarding).
func (s *Service) ColdStart(ctx context.Context, userID int) (*HomefeedResponse, error) {
	start := time.Now()

	if !s.models.Ready() {
		return nil, ErrNotReady
	}

	user := s.lookupUser(ctx, userID)
	candidates := s.fusion.ColdStartCandidates(ctx, userID, user)
	return s.finishRequest(ctx, userID, user, candidates, true, start), nil
}

// finishRequest runs policy, features, ranking, and explanation over a
// fused pool and assembles the response.
func (s *Service) finishRequest(ctx context.Context, userID int, user *User, candidates []Candidate, coldStart bool, start time.Time) *HomefeedResponse {
	community := ""
	if user != nil {
		community = user.Block
	}
	total := len(candidates)

	now := s.now()
	filtered := s.policy.ApplyAll(ctx, community, candidates)
	scored := s.features.Extract(ctx, now, filtered)
	ranked := s.ranker.Rank(community, scored)

	recs := make([]Recommendation, 0, len(ranked))
	for _, c := range ranked {
		recs = append(recs, Recommendation{
			ItemID:    c.Item.ID,
			Title:     c.Item.Title,
			Reason:    Reason(c),
			Tags:      c.Tags,
			Timestamp: now,
			Score:     c.Score,
			Features:  c.Features,
		})
	}

	ctxLogger := logging.Ctx(ctx)
	ctxLogger.Debug().
		Int("user_id", userID).
		Int("candidates", total).
		Int("returned", len(recs)).
		Bool("cold_start", coldStart).
		Msg("homefeed served")

	return &HomefeedResponse{
		UserID:          userID,
		Recommendations: recs,
		ColdStart:       coldStart,
		TotalCandidates: total,
		LatencyMS:       time.Since(start).Milliseconds(),
		GeneratedAt:     now,
	}
}

// lookupUser resolves the user row, tolerating both missing rows and store
// failures: either way the request proceeds without a community.
func (s *Service) lookupUser(ctx context.Context, userID int) *User {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Int("user_id", userID).Err(err).Msg("user lookup failed")
		}
		return nil
	}
	return user
}

// InvalidateCache drops all cached responses. Called after model rebuilds
// so new scores become visible on the next request.
func (s *Service) InvalidateCache() {
	if !s.cacheCfg.Enabled {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache = make(map[int]cacheEntry)
}

// cachedResponse returns a copy of a valid cached response, or nil.
func (s *Service) cachedResponse(userID int) *HomefeedResponse {
	if !s.cacheCfg.Enabled {
		return nil
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	entry, ok := s.cache[userID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}

	cp := *entry.response
	cp.Recommendations = append([]Recommendation(nil), entry.response.Recommendations...)
	return &cp
}

// storeCache caches a response, evicting expired entries at capacity.
func (s *Service) storeCache(userID int, resp *HomefeedResponse) {
	if !s.cacheCfg.Enabled {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if len(s.cache) >= s.cacheCfg.MaxEntries {
		cutoff := time.Now()
		for id, entry := range s.cache {
			if cutoff.After(entry.expiresAt) {
				delete(s.cache, id)
			}
		}
	}

	s.cache[userID] = cacheEntry{
		response:  resp,
		expiresAt: time.Now().Add(s.cacheCfg.TTL),
	}
}
