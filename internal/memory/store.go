// ABOUTME: MemoryStore combines the embedding provider and the vector index
// ABOUTME: Upsert, query with rank tie-breaks, delete, and destructive reindex
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/harper/secondme/internal/llm"
)

// RankMeta carries the metadata used to break similarity ties and to
// collapse near-duplicates.
type RankMeta struct {
	UseCount   int
	LastUsedAt time.Time
	CreatedAt  time.Time
}

// MetaFunc looks up ranking metadata for an indexed entity. May be nil,
// in which case ties keep query order.
type MetaFunc func(kind, entityID string) RankMeta

// Store is the durable vector + metadata index over memory and flowmo
// entries
type Store struct {
	index    *Index
	embedder llm.EmbeddingProvider
	meta     MetaFunc
}

// NewStore creates a Store over the given index and embedding provider
func NewStore(index *Index, embedder llm.EmbeddingProvider, meta MetaFunc) *Store {
	return &Store{index: index, embedder: embedder, meta: meta}
}

// Model returns the active embedding model identifier
func (s *Store) Model() string {
	return s.index.Model()
}

// Upsert embeds the text and stores or replaces the entity's vector
func (s *Store) Upsert(ctx context.Context, kind, entityID, text string) error {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}
	return s.index.Add(ctx, kind, entityID, text, vector)
}

// Query returns up to k entities across the given kinds ranked by cosine
// similarity. Equal scores break by last_used_at descending, then
// created_at descending.
func (s *Store) Query(ctx context.Context, text string, k int, kinds []string) ([]Hit, error) {
	if k <= 0 || len(kinds) == 0 {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	var merged []Hit
	for _, kind := range kinds {
		hits, err := s.index.Query(ctx, kind, vector, k)
		if err != nil {
			return nil, err
		}
		merged = append(merged, hits...)
	}

	s.sortHits(merged)
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

// sortHits orders by score descending with metadata tie-breaks
func (s *Store) sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if !scoresEqual(hits[i].Score, hits[j].Score) {
			return hits[i].Score > hits[j].Score
		}
		if s.meta == nil {
			return false
		}
		mi := s.meta(hits[i].Kind, hits[i].EntityID)
		mj := s.meta(hits[j].Kind, hits[j].EntityID)
		if !mi.LastUsedAt.Equal(mj.LastUsedAt) {
			return mi.LastUsedAt.After(mj.LastUsedAt)
		}
		return mi.CreatedAt.After(mj.CreatedAt)
	})
}

func scoresEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Delete removes an entity's vector
func (s *Store) Delete(ctx context.Context, kind, entityID string) error {
	return s.index.Remove(ctx, kind, entityID)
}

// DeleteAll removes every vector of a kind
func (s *Store) DeleteAll(kind string) error {
	return s.index.RemoveAll(kind)
}

// ReindexItem is one entity to re-embed during a full rebuild
type ReindexItem struct {
	Kind     string
	EntityID string
	Content  string
}

// ReindexAll switches to a new embedding model and re-embeds every item.
// This is an explicit, destructive, user-triggered rebuild; vectors are
// never migrated across models implicitly.
func (s *Store) ReindexAll(ctx context.Context, newModel string, items []ReindexItem) error {
	s.index.SetModel(newModel)

	// Clear any leftover collections from a previous run of this model
	for _, kind := range []string{KindMemory, KindFlowmo} {
		if count, err := s.index.Count(kind); err == nil && count > 0 {
			if err := s.index.RemoveAll(kind); err != nil {
				return err
			}
		}
	}

	for _, item := range items {
		if err := s.Upsert(ctx, item.Kind, item.EntityID, item.Content); err != nil {
			return fmt.Errorf("reindex of %s %s failed: %w", item.Kind, item.EntityID, err)
		}
	}
	return nil
}
