// ABOUTME: Typed errors for provider and embedding failures
// ABOUTME: Lets callers pick between retry, degrade, and surface policies
package llm

import "fmt"

// ProviderError wraps a failed completion provider call
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// EmbeddingError wraps a failed embedding provider call. Callers degrade
// gracefully on this: retrieval proceeds without injected context.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding with %s failed: %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
