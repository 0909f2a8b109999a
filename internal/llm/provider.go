// ABOUTME: Provider capability interfaces consumed by the engine
// ABOUTME: One adapter per vendor, selected by configuration
package llm

import "context"

// ChatMessage is one message in a completion request window
type ChatMessage struct {
	Role    string
	Content string
}

// CompletionRequest is the assembled prompt for one provider call
type CompletionRequest struct {
	System      string
	Messages    []ChatMessage
	Temperature float32
}

// CompletionProvider produces chat responses, optionally streamed
type CompletionProvider interface {
	// Complete returns the full response in one call
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Stream invokes fn for each token chunk as it arrives. Returning an
	// error from fn aborts the stream.
	Stream(ctx context.Context, req CompletionRequest, fn func(chunk string) error) error
}

// EmbeddingProvider converts text to a fixed-dimension vector
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TitleGenerator produces a short topic title from the first exchange
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, userMessage, assistantMessage string) (string, error)
}

// MemoryExtractor distills durable memories from a conversation window
type MemoryExtractor interface {
	ExtractMemories(ctx context.Context, transcript string, existing []ExistingMemory) (*ExtractionResult, error)
}

// ExistingMemory is a candidate for update during extraction
type ExistingMemory struct {
	ID      string
	Content string
}

// ExtractedMemory is one new memory proposed by extraction
type ExtractedMemory struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// MemoryUpdate is one existing memory the extraction revised
type MemoryUpdate struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ExtractionResult is the structured output of one extraction call
type ExtractionResult struct {
	Add    []ExtractedMemory `json:"add"`
	Update []MemoryUpdate    `json:"update"`
	Reason string            `json:"reason"`
}
