// ABOUTME: Streaming event protocol shared by server and client sides
// ABOUTME: Zero-or-more chunks followed by exactly one done or error event
package stream

// Event type discriminators
const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// Done carries the terminal payload of a successful turn
type Done struct {
	MessageID         string `json:"message_id"`
	UserMessageID     string `json:"user_message_id"`
	FullContent       string `json:"full_content"`
	TopicTitleUpdated bool   `json:"topic_title_updated"`
}

// Sink receives ordered protocol events for one turn
type Sink interface {
	Chunk(content string) error
	Done(d Done) error
	Error(message string) error
}

// Event is the decoded wire representation, one frame per event
type Event struct {
	Type              string `json:"type"`
	Content           string `json:"content,omitempty"`
	Message           string `json:"message,omitempty"`
	MessageID         string `json:"message_id,omitempty"`
	UserMessageID     string `json:"user_message_id,omitempty"`
	FullContent       string `json:"full_content,omitempty"`
	TopicTitleUpdated bool   `json:"topic_title_updated,omitempty"`
}
