// ABOUTME: Topic represents a conversation thread
// ABOUTME: At most one topic is the flowmo reflection topic
package models

import "time"

// DefaultTopicTitle is assigned to topics created without a title.
// Title generation replaces it after the first exchange.
const DefaultTopicTitle = "New Conversation"

// FlowmoTopicTitle is the title of the singleton reflection topic.
const FlowmoTopicTitle = "Flowmo"

// Topic represents a conversation thread
type Topic struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	IsFlowmo bool   `json:"is_flowmo"`

	// Capture boundary for the reflection topic. Persisted explicitly so
	// gate decisions stay deterministic even if messages are deleted.
	FlowmoBoundaryMessageID string    `json:"flowmo_boundary_message_id,omitempty"`
	FlowmoBoundaryAt        time.Time `json:"flowmo_boundary_at,omitempty"`

	// ExtractedMessageID is the id of the newest message the idle
	// extraction process has already considered.
	ExtractedMessageID string `json:"extracted_message_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
