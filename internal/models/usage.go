// ABOUTME: UsageRecord logs each turn a memory was injected into a prompt
// ABOUTME: Append-only; drives use_count and last_used_at on the memory row
package models

import "time"

// UsageRecord is one append-only entry in the memory usage log
type UsageRecord struct {
	ID        int64     `json:"id"`
	MemoryID  string    `json:"memory_id"`
	TopicID   string    `json:"topic_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	UsedAt    time.Time `json:"used_at"`
}

// UsageDetail is a usage record joined with the title of the topic it
// occurred in, for the memory detail view.
type UsageDetail struct {
	UsageRecord
	TopicTitle string `json:"topic_title,omitempty"`
}
