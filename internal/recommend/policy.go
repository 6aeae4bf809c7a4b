// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/blockfeed/internal/metrics"
)

// PolicyEngine applies the fixed filter chain to a candidate pool:
// safety, then quality, then diversity cap, then locality quota.
//
// The order is part of the contract. Safety runs first so nothing after it
// sees harmful content; the locality quota runs last because it operates on
// the already-diversity-capped set. The diversity cap is order-sensitive on
// purpose: upstream ordering determines which candidates survive.
type PolicyEngine struct {
	store  Store
	cfg    PolicyConfig
	logger zerolog.Logger
}

// NewPolicyEngine creates a policy engine over the given store.
func NewPolicyEngine(cfg PolicyConfig, store Store, logger zerolog.Logger) *PolicyEngine {
	return &PolicyEngine{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "policy").Logger(),
	}
}

// ApplyAll runs the full chain. Empty input short-circuits to empty output.
// Output size is monotonically non-increasing across stages.
func (p *PolicyEngine) ApplyAll(ctx context.Context, userCommunity string, candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	items := p.resolveItems(ctx, candidates)

	in := len(candidates)
	candidates = p.safety(candidates, items)
	candidates = p.quality(ctx, candidates)
	candidates = p.diversityCap(candidates, items)
	candidates = p.localityQuota(userCommunity, candidates, items)

	p.logger.Debug().
		Int("in", in).
		Int("out", len(candidates)).
		Str("user_community", userCommunity).
		Msg("policy chain applied")
	return candidates
}

// resolveItems bulk-loads the items the chain needs. A load failure leaves
// the map empty; the safety stage then drops everything, which is the safe
// direction to fail.
func (p *PolicyEngine) resolveItems(ctx context.Context, candidates []Candidate) map[int]Item {
	ids := make([]int, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ItemID)
	}
	items, err := p.store.GetItems(ctx, ids)
	if err != nil {
		p.logger.Warn().Err(err).Msg("item resolution failed, dropping pool")
		return map[int]Item{}
	}
	return items
}

// safety drops candidates whose title or description contains a configured
// unsafe keyword, case-insensitively. Candidates whose item cannot be
// resolved are dropped here as well.
func (p *PolicyEngine) safety(candidates []Candidate, items map[int]Item) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		item, ok := items[c.ItemID]
		if !ok {
			continue
		}
		if p.unsafe(item.Title) || p.unsafe(item.Description) {
			p.logger.Warn().Int("item_id", item.ID).Msg("unsafe content filtered")
			continue
		}
		kept = append(kept, c)
	}
	p.recordStage("safety", len(candidates), len(kept))
	return kept
}

func (p *PolicyEngine) unsafe(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range p.cfg.UnsafeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// quality drops candidates with insufficient or predominantly negative
// engagement: keep iff total >= threshold AND (positive >= negative OR no
// negatives at all). A stats lookup failure drops the candidate.
func (p *PolicyEngine) quality(ctx context.Context, candidates []Candidate) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		stats, err := p.store.InteractionStats(ctx, c.ItemID)
		if err != nil {
			p.logger.Warn().Int("item_id", c.ItemID).Err(err).Msg("interaction stats lookup failed")
			continue
		}
		if stats.Total < p.cfg.MinInteractionThreshold {
			continue
		}
		if stats.Negative > 0 && stats.Positive < stats.Negative {
			continue
		}
		kept = append(kept, c)
	}
	p.recordStage("quality", len(candidates), len(kept))
	return kept
}

// diversityCap limits how many surviving candidates any single creator can
// place, iterating in current order. The item's community stands in for
// creator identity until items carry a real creator field.
func (p *PolicyEngine) diversityCap(candidates []Candidate, items map[int]Item) []Candidate {
	counts := make(map[string]int)
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		creator := "unknown"
		if item, ok := items[c.ItemID]; ok && item.Community != "" {
			creator = item.Community
		}
		if counts[creator] >= p.cfg.CreatorFrequencyCap {
			continue
		}
		counts[creator]++
		kept = append(kept, c)
	}
	p.recordStage("diversity", len(candidates), len(kept))
	return kept
}

// localityQuota enforces the local/other community balance. With no user
// community the stage is a pass-through. The backfill arithmetic can
// overshoot the total target by a few items on very small pools; the
// formula is kept as specified rather than "fixed".
func (p *PolicyEngine) localityQuota(userCommunity string, candidates []Candidate, items map[int]Item) []Candidate {
	if userCommunity == "" {
		return candidates
	}

	var local, other []Candidate
	for _, c := range candidates {
		if item, ok := items[c.ItemID]; ok && item.Community == userCommunity {
			local = append(local, c)
		} else {
			other = append(other, c)
		}
	}

	targetTotal := len(candidates)
	if limit := p.cfg.MaxItemsPerCommunity + 5; limit < targetTotal {
		targetTotal = limit
	}
	targetLocal := int(math.Round(float64(targetTotal) * p.cfg.CommunityPreferenceRatio))
	targetOther := targetTotal - targetLocal

	kept := local
	if len(kept) > targetLocal {
		kept = kept[:targetLocal]
	}
	if len(kept) < targetLocal {
		// Local supply fell short: redirect the shortfall to other
		// communities.
		targetOther += targetLocal - len(kept)
	}
	if len(other) > targetOther {
		other = other[:targetOther]
	}
	kept = append(kept, other...)

	p.recordStage("locality", len(candidates), len(kept))
	return kept
}

func (p *PolicyEngine) recordStage(stage string, in, out int) {
	if dropped := in - out; dropped > 0 {
		metrics.PolicyDropped.WithLabelValues(stage).Add(float64(dropped))
	}
	p.logger.Debug().Str("stage", stage).Int("in", in).Int("out", out).Msg("policy stage")
}
