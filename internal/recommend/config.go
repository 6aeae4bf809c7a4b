// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"fmt"
	"time"
)

// Config contains all tunables for the recommendation pipeline.
type Config struct {
	// Weights is the interaction weight table shared by the collaborative
	// model and the popularity aggregator.
	Weights InteractionWeights `json:"interaction_weights" koanf:"interaction_weights"`

	// Fusion contains candidate-generation parameters.
	Fusion FusionConfig `json:"fusion" koanf:"fusion"`

	// Similarity contains collaborative-model parameters.
	Similarity SimilarityConfig `json:"similarity" koanf:"similarity"`

	// Popularity contains popularity-aggregator parameters.
	Popularity PopularityConfig `json:"popularity" koanf:"popularity"`

	// Policy contains filter-chain parameters.
	Policy PolicyConfig `json:"policy" koanf:"policy"`

	// Ranker contains scoring weights and the output cutoff.
	Ranker RankerConfig `json:"ranker" koanf:"ranker"`

	// Cache contains the per-user response cache parameters.
	Cache CacheConfig `json:"cache" koanf:"cache"`
}

// FusionConfig controls the candidate fusion engine.
type FusionConfig struct {
	// RecentN is how many recent interactions anchor the personalized stages.
	RecentN int `json:"recent_n" koanf:"recent_n"`

	// KContent is the neighbor count for the primary content query.
	// Secondary recent items are queried at KContent/2.
	KContent int `json:"k_content" koanf:"k_content"`

	// KCF is the neighbor count per collaborative query.
	KCF int `json:"k_cf" koanf:"k_cf"`

	// KPopCommunity is the community popularity slice size.
	KPopCommunity int `json:"k_pop_community" koanf:"k_pop_community"`

	// KPopGlobal is the global popularity slice size.
	KPopGlobal int `json:"k_pop_global" koanf:"k_pop_global"`
}

// SimilarityConfig controls the collaborative similarity model.
type SimilarityConfig struct {
	// MinCommonUsers is the minimum common-user count for a pair to qualify.
	MinCommonUsers int `json:"min_common_users" koanf:"min_common_users"`

	// MinSimilarity is the exclusive lower bound for stored similarities.
	MinSimilarity float64 `json:"min_similarity" koanf:"min_similarity"`
}

// PopularityConfig controls the popularity aggregator.
type PopularityConfig struct {
	// TopK is the precomputed ranking length (global and per community).
	TopK int `json:"top_k" koanf:"top_k"`

	// HalfLifeDays is the decay half-life: a score halves every HalfLifeDays.
	HalfLifeDays float64 `json:"half_life_days" koanf:"half_life_days"`
}

// PolicyConfig controls the policy filter chain.
type PolicyConfig struct {
	// UnsafeKeywords are matched case-insensitively against title and
	// description in the safety stage.
	UnsafeKeywords []string `json:"unsafe_keywords" koanf:"unsafe_keywords"`

	// MinInteractionThreshold is the minimum engagement for the quality stage.
	MinInteractionThreshold int `json:"min_interaction_threshold" koanf:"min_interaction_threshold"`

	// CreatorFrequencyCap limits items per creator (community proxy).
	CreatorFrequencyCap int `json:"creator_frequency_cap" koanf:"creator_frequency_cap"`

	// MaxItemsPerCommunity feeds the locality-quota target arithmetic.
	MaxItemsPerCommunity int `json:"max_items_per_community" koanf:"max_items_per_community"`

	// CommunityPreferenceRatio is the local share of the locality quota.
	CommunityPreferenceRatio float64 `json:"community_preference_ratio" koanf:"community_preference_ratio"`
}

// RankerConfig controls the weighted linear scorer.
type RankerConfig struct {
	// WContent, WRecency, WPopularity, WCommunity are the feature weights.
	// Defaults sum to 1.0.
	WContent    float64 `json:"w_content" koanf:"w_content"`
	WRecency    float64 `json:"w_recency" koanf:"w_recency"`
	WPopularity float64 `json:"w_popularity" koanf:"w_popularity"`
	WCommunity  float64 `json:"w_community" koanf:"w_community"`

	// TopK is the final output cutoff.
	TopK int `json:"top_k" koanf:"top_k"`
}

// CacheConfig controls the in-process homefeed response cache.
type CacheConfig struct {
	// Enabled toggles the cache.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is how long a cached homefeed stays valid.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// MaxEntries bounds the cache size.
	MaxEntries int `json:"max_entries" koanf:"max_entries"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() *Config {
	return &Config{
		Weights: DefaultInteractionWeights(),
		Fusion: FusionConfig{
			RecentN:       3,
			KContent:      30,
			KCF:           10,
			KPopCommunity: 20,
			KPopGlobal:    15,
		},
		Similarity: SimilarityConfig{
			MinCommonUsers: 2,
			MinSimilarity:  0.1,
		},
		Popularity: PopularityConfig{
			TopK:         200,
			HalfLifeDays: 7.0,
		},
		Policy: PolicyConfig{
			UnsafeKeywords:           []string{"spam", "scam", "dangerous", "illegal"},
			MinInteractionThreshold:  2,
			CreatorFrequencyCap:      3,
			MaxItemsPerCommunity:     8,
			CommunityPreferenceRatio: 0.6,
		},
		Ranker: RankerConfig{
			WContent:    0.4,
			WRecency:    0.25,
			WPopularity: 0.15,
			WCommunity:  0.2,
			TopK:        20,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Fusion.RecentN <= 0 {
		return fmt.Errorf("fusion.recent_n must be positive, got %d", c.Fusion.RecentN)
	}
	if c.Fusion.KContent <= 0 || c.Fusion.KCF <= 0 || c.Fusion.KPopCommunity <= 0 || c.Fusion.KPopGlobal <= 0 {
		return fmt.Errorf("fusion k values must be positive")
	}
	if c.Similarity.MinCommonUsers < 1 {
		return fmt.Errorf("similarity.min_common_users must be >= 1, got %d", c.Similarity.MinCommonUsers)
	}
	if c.Similarity.MinSimilarity < 0 || c.Similarity.MinSimilarity >= 1 {
		return fmt.Errorf("similarity.min_similarity must be in [0, 1), got %f", c.Similarity.MinSimilarity)
	}
	if c.Popularity.TopK <= 0 {
		return fmt.Errorf("popularity.top_k must be positive, got %d", c.Popularity.TopK)
	}
	if c.Popularity.HalfLifeDays <= 0 {
		return fmt.Errorf("popularity.half_life_days must be positive, got %f", c.Popularity.HalfLifeDays)
	}
	if c.Policy.MinInteractionThreshold < 0 {
		return fmt.Errorf("policy.min_interaction_threshold must be >= 0, got %d", c.Policy.MinInteractionThreshold)
	}
	if c.Policy.CreatorFrequencyCap <= 0 {
		return fmt.Errorf("policy.creator_frequency_cap must be positive, got %d", c.Policy.CreatorFrequencyCap)
	}
	if c.Policy.CommunityPreferenceRatio < 0 || c.Policy.CommunityPreferenceRatio > 1 {
		return fmt.Errorf("policy.community_preference_ratio must be in [0, 1], got %f", c.Policy.CommunityPreferenceRatio)
	}
	for _, w := range []float64{c.Ranker.WContent, c.Ranker.WRecency, c.Ranker.WPopularity, c.Ranker.WCommunity} {
		if w < 0 {
			return fmt.Errorf("ranker weights must be non-negative")
		}
	}
	if c.Ranker.TopK <= 0 {
		return fmt.Errorf("ranker.top_k must be positive, got %d", c.Ranker.TopK)
	}
	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive when cache is enabled")
		}
		if c.Cache.MaxEntries <= 0 {
			return fmt.Errorf("cache.max_entries must be positive when cache is enabled")
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Weights = make(InteractionWeights, len(c.Weights))
	for k, v := range c.Weights {
		clone.Weights[k] = v
	}
	clone.Policy.UnsafeKeywords = append([]string(nil), c.Policy.UnsafeKeywords...)
	return &clone
}
