// ABOUTME: Message represents one turn half inside a topic
// ABOUTME: Owned by its topic and cascade-deleted with it
package models

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single user or assistant message
type Message struct {
	ID      string `json:"id"`
	TopicID string `json:"topic_id"`
	Role    string `json:"role"`
	Content string `json:"content"`

	// Incomplete marks an assistant message whose stream failed midway.
	// The partial content is preserved rather than discarded.
	Incomplete bool `json:"incomplete,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ValidRole reports whether role is a known message role
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
