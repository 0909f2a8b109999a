// ABOUTME: SSE writer framing protocol events as data lines over HTTP
// ABOUTME: Buffer sink collects the same events for the synchronous path
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type chunkEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type doneEvent struct {
	Type string `json:"type"`
	Done
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SSEWriter frames events as `data: {json}\n\n` lines and flushes each
// one immediately
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares the response for event streaming
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

func (s *SSEWriter) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Chunk emits one content chunk event
func (s *SSEWriter) Chunk(content string) error {
	return s.send(chunkEvent{Type: EventChunk, Content: content})
}

// Done emits the terminal success event
func (s *SSEWriter) Done(d Done) error {
	return s.send(doneEvent{Type: EventDone, Done: d})
}

// Error emits the terminal error event
func (s *SSEWriter) Error(message string) error {
	return s.send(errorEvent{Type: EventError, Message: message})
}

// BufferSink collects events in memory. The synchronous send path runs
// the same turn pipeline through it and returns a single JSON response.
type BufferSink struct {
	Chunks   []string
	Terminal *Event
}

// Chunk records one content chunk
func (b *BufferSink) Chunk(content string) error {
	b.Chunks = append(b.Chunks, content)
	return nil
}

// Done records the terminal success event
func (b *BufferSink) Done(d Done) error {
	b.Terminal = &Event{
		Type:              EventDone,
		MessageID:         d.MessageID,
		UserMessageID:     d.UserMessageID,
		FullContent:       d.FullContent,
		TopicTitleUpdated: d.TopicTitleUpdated,
	}
	return nil
}

// Error records the terminal error event
func (b *BufferSink) Error(message string) error {
	b.Terminal = &Event{Type: EventError, Message: message}
	return nil
}

// FullContent joins all recorded chunks
func (b *BufferSink) FullContent() string {
	var out string
	for _, c := range b.Chunks {
		out += c
	}
	return out
}
