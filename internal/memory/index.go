// ABOUTME: Vector index on chromem-go with per-model collection namespaces
// ABOUTME: Switching embedding models leaves old vectors unreachable, never compared
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Entity kinds held in the index
const (
	KindMemory = "memory"
	KindFlowmo = "flowmo"
)

// Index wraps a chromem-go database. Each (kind, embedding model) pair
// gets its own collection, so vectors from different models are never
// compared against each other.
type Index struct {
	db      *chromem.DB
	modelID string

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// OpenIndex opens or creates a persistent index at the given path
func OpenIndex(path, modelID string) (*Index, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	return &Index{
		db:          db,
		modelID:     modelID,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// NewIndexInMemory creates a non-persistent index (for testing)
func NewIndexInMemory(modelID string) *Index {
	return &Index{
		db:          chromem.NewDB(),
		modelID:     modelID,
		collections: make(map[string]*chromem.Collection),
	}
}

// Model returns the active embedding model identifier
func (ix *Index) Model() string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.modelID
}

// SetModel switches the active embedding model. Collections of the old
// model stay on disk but become unreachable to queries.
func (ix *Index) SetModel(modelID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.modelID = modelID
	ix.collections = make(map[string]*chromem.Collection)
}

func (ix *Index) collectionName(kind string) string {
	return kind + "-" + sanitizeModelID(ix.modelID)
}

// collection returns the active collection for a kind, creating it lazily
func (ix *Index) collection(kind string) (*chromem.Collection, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	name := ix.collectionName(kind)
	if col, ok := ix.collections[name]; ok {
		return col, nil
	}

	col, err := ix.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}
	ix.collections[name] = col
	return col, nil
}

// Add stores or replaces a vector for an entity
func (ix *Index) Add(ctx context.Context, kind, entityID, content string, vector []float32) error {
	col, err := ix.collection(kind)
	if err != nil {
		return err
	}

	// Remove any previous vector first so re-embeds replace cleanly
	_ = col.Delete(ctx, nil, nil, entityID)

	err = col.AddDocument(ctx, chromem.Document{
		ID:        entityID,
		Content:   content,
		Embedding: vector,
		Metadata:  map[string]string{"kind": kind},
	})
	if err != nil {
		return fmt.Errorf("failed to index %s %s: %w", kind, entityID, err)
	}
	return nil
}

// Hit is one similarity search result
type Hit struct {
	EntityID  string
	Kind      string
	Content   string
	Score     float64
	Embedding []float32
}

// Query returns up to k nearest entities of a kind. chromem requires
// nResults to be at most the collection size, so k is clamped first.
func (ix *Index) Query(ctx context.Context, kind string, vector []float32, k int) ([]Hit, error) {
	col, err := ix.collection(kind)
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			EntityID:  r.ID,
			Kind:      kind,
			Content:   r.Content,
			Score:     float64(r.Similarity),
			Embedding: r.Embedding,
		})
	}
	return hits, nil
}

// Remove deletes an entity's vector; missing entries are not an error
func (ix *Index) Remove(ctx context.Context, kind, entityID string) error {
	col, err := ix.collection(kind)
	if err != nil {
		return err
	}
	return col.Delete(ctx, nil, nil, entityID)
}

// RemoveAll drops every vector of a kind for the active model
func (ix *Index) RemoveAll(kind string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	name := ix.collectionName(kind)
	delete(ix.collections, name)
	if err := ix.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	return nil
}

// Count returns the number of indexed entities of a kind
func (ix *Index) Count(kind string) (int, error) {
	col, err := ix.collection(kind)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// sanitizeModelID maps a model identifier onto chromem's collection
// name alphabet
func sanitizeModelID(modelID string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(modelID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	if sb.Len() == 0 {
		return "default"
	}
	return sb.String()
}
