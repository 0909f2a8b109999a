// ABOUTME: Settings holds the runtime-tunable knobs stored in the settings table
// ABOUTME: Seeded from static config on first run, editable over the API
package models

import "fmt"

// Settings are the user-adjustable engine parameters
type Settings struct {
	MemoryTopK              int    `json:"memory_top_k"`
	MemorySilentMinutes     int    `json:"memory_silent_minutes"`
	MemoryExtractionEnabled bool   `json:"memory_extraction_enabled"`
	MemoryContextMessages   int    `json:"memory_context_messages"`
	MaxContextMessages      int    `json:"max_context_messages"`
	EmbeddingModel          string `json:"embedding_model"`
}

// Validate checks settings bounds
func (s *Settings) Validate() error {
	if s.MemoryTopK < 1 || s.MemoryTopK > 50 {
		return fmt.Errorf("memory_top_k must be 1-50, got %d", s.MemoryTopK)
	}
	if s.MemorySilentMinutes < 1 {
		return fmt.Errorf("memory_silent_minutes must be positive, got %d", s.MemorySilentMinutes)
	}
	if s.MemoryContextMessages < 1 {
		return fmt.Errorf("memory_context_messages must be positive, got %d", s.MemoryContextMessages)
	}
	if s.MaxContextMessages < 1 {
		return fmt.Errorf("max_context_messages must be positive, got %d", s.MaxContextMessages)
	}
	if s.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model must not be empty")
	}
	return nil
}
