// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package recommend

import (
	"context"
	"fmt"
	"time"
)

// InteractionType classifies user-item interactions for implicit feedback.
type InteractionType string

const (
	// InteractionView indicates the item was viewed in a feed.
	InteractionView InteractionType = "view"
	// InteractionClick indicates the item detail page was opened.
	InteractionClick InteractionType = "click"
	// InteractionLike indicates an explicit positive reaction.
	InteractionLike InteractionType = "like"
	// InteractionBook indicates the item (event, service) was booked.
	InteractionBook InteractionType = "book"
	// InteractionAttend indicates confirmed attendance.
	InteractionAttend InteractionType = "attend"
	// InteractionDismiss indicates an explicit negative reaction.
	InteractionDismiss InteractionType = "dismiss"
)

// Valid reports whether t is one of the known interaction types.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionClick, InteractionLike,
		InteractionBook, InteractionAttend, InteractionDismiss:
		return true
	default:
		return false
	}
}

// Positive reports whether t counts as positive engagement for quality checks.
func (t InteractionType) Positive() bool {
	switch t {
	case InteractionLike, InteractionBook, InteractionAttend:
		return true
	default:
		return false
	}
}

// Negative reports whether t counts as negative engagement for quality checks.
func (t InteractionType) Negative() bool {
	return t == InteractionDismiss
}

// InteractionWeights maps interaction types to implicit-feedback weights.
// Unknown types fall back to 1.0.
type InteractionWeights map[InteractionType]float64

// DefaultInteractionWeights returns the standard weight table shared by the
// collaborative model and the popularity aggregator.
func DefaultInteractionWeights() InteractionWeights {
	return InteractionWeights{
		InteractionView:    1.0,
		InteractionClick:   1.5,
		InteractionLike:    2.0,
		InteractionBook:    3.0,
		InteractionAttend:  3.0,
		InteractionDismiss: -0.5,
	}
}

// Weight returns the weight for the given interaction type.
func (w InteractionWeights) Weight(t InteractionType) float64 {
	if v, ok := w[t]; ok {
		return v
	}
	return 1.0
}

// User represents a community member.
type User struct {
	// ID is the internal user identifier.
	ID int `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Block is the user's community (geographic/organizational partition).
	Block string `json:"block"`
}

// Item represents a recommendable item. Items are immutable for the
// duration of a pipeline run.
type Item struct {
	// ID is the unique item identifier.
	ID int `json:"id"`

	// Title is the item title.
	Title string `json:"title"`

	// Description is the free-text description.
	Description string `json:"description"`

	// Community is the block the item belongs to.
	Community string `json:"community"`

	// CreatedAt is when the item was created. The zero value means unknown,
	// which the feature extractor treats as "now".
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// CanonicalText returns the text representation used for embedding.
// The format is fixed; the embedding index and the content stage of the
// fusion engine must agree on it.
func (i Item) CanonicalText() string {
	return fmt.Sprintf("%s. %s [%s]", i.Title, i.Description, i.Community)
}

// Interaction represents a user-item interaction event.
// Multiple interactions per (user, item) pair may coexist.
type Interaction struct {
	// ID is the row identifier.
	ID int `json:"id"`

	// UserID is the internal user identifier.
	UserID int `json:"user_id"`

	// ItemID is the item acted on.
	ItemID int `json:"item_id"`

	// Type classifies the interaction.
	Type InteractionType `json:"type"`

	// Timestamp is when the interaction occurred, in UTC.
	Timestamp time.Time `json:"timestamp"`
}

// Source identifies the generator that contributed a candidate.
type Source string

const (
	// SourceContent marks candidates from embedding similarity.
	SourceContent Source = "content"
	// SourceCF marks candidates from the collaborative model.
	SourceCF Source = "cf"
	// SourcePopCommunity marks candidates from community popularity.
	SourcePopCommunity Source = "pop-comm"
	// SourcePopGlobal marks candidates from global popularity.
	SourcePopGlobal Source = "pop-global"
	// SourceFallback marks candidates that reached finalization untagged.
	SourceFallback Source = "fallback"
)

// sourceOrder fixes the serialization order of source tags.
var sourceOrder = []Source{SourceContent, SourceCF, SourcePopCommunity, SourcePopGlobal, SourceFallback}

// SourceSet is a set of provenance tags.
type SourceSet map[Source]struct{}

// Add inserts a source tag.
func (s SourceSet) Add(src Source) {
	s[src] = struct{}{}
}

// Has reports whether the set contains the given tag.
func (s SourceSet) Has(src Source) bool {
	_, ok := s[src]
	return ok
}

// List returns the tags in fixed priority order.
func (s SourceSet) List() []Source {
	out := make([]Source, 0, len(s))
	for _, src := range sourceOrder {
		if s.Has(src) {
			out = append(out, src)
		}
	}
	return out
}

// Candidate is an item surfaced by one or more generators, before scoring.
// The source set is never empty after pool finalization.
type Candidate struct {
	// ItemID is the candidate item, unique within a pool.
	ItemID int `json:"item_id"`

	// Sources records which generators contributed it.
	Sources SourceSet `json:"sources"`
}

// Pool is an ordered candidate collection keyed by item ID. It preserves
// first-insertion order, which downstream stages use for tie-breaking.
type Pool struct {
	order   []int
	sources map[int]SourceSet
}

// NewPool creates an empty candidate pool.
func NewPool() *Pool {
	return &Pool{sources: make(map[int]SourceSet)}
}

// Add tags an item with a source, inserting it on first sight.
func (p *Pool) Add(itemID int, src Source) {
	set, ok := p.sources[itemID]
	if !ok {
		set = make(SourceSet)
		p.sources[itemID] = set
		p.order = append(p.order, itemID)
	}
	set.Add(src)
}

// Remove drops an item from the pool if present.
func (p *Pool) Remove(itemID int) {
	if _, ok := p.sources[itemID]; !ok {
		return
	}
	delete(p.sources, itemID)
	for i, id := range p.order {
		if id == itemID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of candidates in the pool.
func (p *Pool) Len() int {
	return len(p.order)
}

// Finalize returns the candidates in first-insertion order. Any candidate
// whose tag set is somehow empty is tagged fallback, so the non-empty
// source-set invariant holds on the output.
func (p *Pool) Finalize() []Candidate {
	out := make([]Candidate, 0, len(p.order))
	for _, id := range p.order {
		set := p.sources[id]
		if len(set) == 0 {
			set = SourceSet{SourceFallback: {}}
		}
		out = append(out, Candidate{ItemID: id, Sources: set})
	}
	return out
}

// Features is the per-candidate feature vector used by the ranker.
type Features struct {
	// ContentSim is the content-similarity proxy (0.8 if the content
	// generator surfaced the item, else 0.5).
	ContentSim float64 `json:"content_sim"`

	// Recency is 1/(1+age_days) of the item's creation time.
	Recency float64 `json:"recency"`

	// Popularity is the popularity signal derived from source tags.
	Popularity float64 `json:"popularity"`

	// CommunityMatch is the community-affinity signal.
	CommunityMatch float64 `json:"community_match"`
}

// ScoredCandidate is a candidate with resolved item metadata, its feature
// vector, and the final scalar score. The full breakdown is retained for
// explanations and auditability.
type ScoredCandidate struct {
	Item     Item     `json:"item"`
	Sources  SourceSet `json:"-"`
	Tags     []Source `json:"tags"`
	Features Features `json:"features"`
	Score    float64  `json:"score"`
}

// PopularityEntry is one row of a decayed popularity ranking.
type PopularityEntry struct {
	ItemID int     `json:"item_id"`
	Score  float64 `json:"score"`
}

// InteractionStats summarizes engagement with a single item.
type InteractionStats struct {
	Total    int `json:"total"`
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// Store is the persistence collaborator consumed by the pipeline.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetUser returns a user by ID, or ErrNotFound.
	GetUser(ctx context.Context, id int) (*User, error)

	// GetItem returns an item by ID, or ErrNotFound.
	GetItem(ctx context.Context, id int) (*Item, error)

	// GetItems bulk-resolves items; missing IDs are absent from the result.
	GetItems(ctx context.Context, ids []int) (map[int]Item, error)

	// ListItems returns the full item corpus in ID order.
	ListItems(ctx context.Context) ([]Item, error)

	// ListInteractions returns all interactions.
	ListInteractions(ctx context.Context) ([]Interaction, error)

	// RecentInteractionsByUser returns the user's n most recent interactions,
	// ordered by timestamp descending.
	RecentInteractionsByUser(ctx context.Context, userID, n int) ([]Interaction, error)

	// InteractionStats returns engagement counts for an item.
	InteractionStats(ctx context.Context, itemID int) (InteractionStats, error)
}

// Encoder is the external text-encoding collaborator.
// It turns texts into fixed-dimension vectors.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}
