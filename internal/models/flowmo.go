// ABOUTME: Flowmo is a lightweight timestamped personal note
// ABOUTME: Captured automatically from reflective chat or added directly
package models

import "time"

// Flowmo sources
const (
	FlowmoSourceChat   = "chat"
	FlowmoSourceDirect = "direct"
)

// Flowmo represents a captured note
type Flowmo struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`

	// Set only when source is chat
	TopicID   string `json:"topic_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ValidFlowmoSource reports whether s is a known flowmo source
func ValidFlowmoSource(s string) bool {
	return s == FlowmoSourceChat || s == FlowmoSourceDirect
}
