// ABOUTME: RetrievalPlanner turns a user message into a ranked context bundle
// ABOUTME: Kind selection by topic, near-duplicate collapse, top-k cap
package memory

import (
	"context"
)

// nearDuplicateThreshold is the pairwise cosine similarity at or above
// which two retrieved entries count as the same memory.
const nearDuplicateThreshold = 0.98

// Snippet is one retrieved context entry ready for prompt assembly.
// Callers get content and provenance, never raw vectors.
type Snippet struct {
	Content  string  `json:"content"`
	Kind     string  `json:"kind"`
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
}

// Planner produces deduplicated context bundles from the store
type Planner struct {
	store *Store
	meta  MetaFunc
}

// NewPlanner creates a Planner. meta supplies use counts for duplicate
// resolution and may be nil.
func NewPlanner(store *Store, meta MetaFunc) *Planner {
	return &Planner{store: store, meta: meta}
}

// Plan retrieves the context bundle for one turn. Normal topics search
// memories only; the reflection topic searches memories and flowmos
// merged by score. The result is capped at topK.
func (p *Planner) Plan(ctx context.Context, text string, reflective bool, topK int) ([]Snippet, error) {
	if topK <= 0 {
		return nil, nil
	}

	kinds := []string{KindMemory}
	if reflective {
		kinds = append(kinds, KindFlowmo)
	}

	// Over-fetch so duplicate collapse still fills topK
	hits, err := p.store.Query(ctx, text, topK*2, kinds)
	if err != nil {
		return nil, err
	}

	kept := p.dedupe(hits)
	if len(kept) > topK {
		kept = kept[:topK]
	}

	snippets := make([]Snippet, 0, len(kept))
	for _, h := range kept {
		snippets = append(snippets, Snippet{
			Content:  h.Content,
			Kind:     h.Kind,
			EntityID: h.EntityID,
			Score:    h.Score,
		})
	}
	return snippets, nil
}

// dedupe collapses near-identical entries, keeping the one with the
// higher use count. Input is already sorted by rank.
func (p *Planner) dedupe(hits []Hit) []Hit {
	var kept []Hit

	for _, candidate := range hits {
		duplicateOf := -1
		for i, existing := range kept {
			if CosineSimilarity32(candidate.Embedding, existing.Embedding) >= nearDuplicateThreshold {
				duplicateOf = i
				break
			}
		}

		if duplicateOf == -1 {
			kept = append(kept, candidate)
			continue
		}

		if p.useCount(candidate) > p.useCount(kept[duplicateOf]) {
			kept[duplicateOf] = candidate
		}
	}

	return kept
}

func (p *Planner) useCount(h Hit) int {
	if p.meta == nil {
		return 0
	}
	return p.meta(h.Kind, h.EntityID).UseCount
}
