// ABOUTME: Deterministic embedder for tests
// ABOUTME: Hash-seeded vectors so identical text always embeds identically
package memorytest

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder generates deterministic embeddings from a text hash. Identical
// text yields identical unit vectors, so self-similarity is exactly 1.
type Embedder struct {
	dimensions int

	// Fail, when set, makes Embed return this error. Used to exercise
	// degradation paths.
	Fail error
}

// NewEmbedder creates a deterministic test embedder
func NewEmbedder() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed creates a deterministic embedding from text
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Fail != nil {
		return nil, e.Fail
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		// Linear congruential generator keyed on the text hash
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}
