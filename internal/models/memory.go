// ABOUTME: Memory represents a durable distilled fact, preference, or plan
// ABOUTME: Survives deletion of its originating topic (references are nullified)
package models

import "time"

// Memory types
const (
	MemoryTypePersonal   = "personal"
	MemoryTypePreference = "preference"
	MemoryTypeFact       = "fact"
	MemoryTypePlan       = "plan"
	MemoryTypeManual     = "manual"
	MemoryTypeChat       = "chat"
)

// Memory sources
const (
	MemorySourceChat   = "chat"
	MemorySourceManual = "manual"
)

// Memory represents a durable memory entry retrievable by similarity
type Memory struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Type    string `json:"memory_type"`
	Source  string `json:"source"`

	// Set only when source is chat
	SourceTopicID   string `json:"source_topic_id,omitempty"`
	SourceMessageID string `json:"source_message_id,omitempty"`

	UseCount   int       `json:"use_count"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidMemoryType reports whether t is a known memory type
func ValidMemoryType(t string) bool {
	switch t {
	case MemoryTypePersonal, MemoryTypePreference, MemoryTypeFact,
		MemoryTypePlan, MemoryTypeManual, MemoryTypeChat:
		return true
	}
	return false
}

// ValidMemorySource reports whether s is a known memory source
func ValidMemorySource(s string) bool {
	return s == MemorySourceChat || s == MemorySourceManual
}
