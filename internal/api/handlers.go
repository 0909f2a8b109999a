// ABOUTME: HTTP handlers for topics, messages, and the streaming endpoint
// ABOUTME: Missing rows map to 404, validation failures to 400
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harper/secondme/internal/core"
	"github.com/harper/secondme/internal/memory"
	"github.com/harper/secondme/internal/models"
	"github.com/harper/secondme/internal/storage/sqlite"
	"github.com/harper/secondme/internal/stream"
)

// EmbeddingModelSetter lets the reindex endpoint point the embedding
// adapter at the new model. Optional; nil skips the switch.
type EmbeddingModelSetter interface {
	SetEmbeddingModel(model string)
}

// Handlers carries the engine components the HTTP surface needs
type Handlers struct {
	topics       *sqlite.TopicStore
	messages     *sqlite.MessageStore
	memories     *sqlite.MemoryStore
	flowmos      *sqlite.FlowmoStore
	usage        *sqlite.UsageStore
	settings     *sqlite.SettingsStore
	store        *memory.Store
	orchestrator *core.Orchestrator
	embedder     EmbeddingModelSetter
}

// HandlerDeps collects the handlers' collaborators
type HandlerDeps struct {
	Topics       *sqlite.TopicStore
	Messages     *sqlite.MessageStore
	Memories     *sqlite.MemoryStore
	Flowmos      *sqlite.FlowmoStore
	Usage        *sqlite.UsageStore
	Settings     *sqlite.SettingsStore
	Store        *memory.Store
	Orchestrator *core.Orchestrator
	Embedder     EmbeddingModelSetter
}

// NewHandlers creates the handler set
func NewHandlers(deps HandlerDeps) *Handlers {
	return &Handlers{
		topics:       deps.Topics,
		messages:     deps.Messages,
		memories:     deps.Memories,
		flowmos:      deps.Flowmos,
		usage:        deps.Usage,
		settings:     deps.Settings,
		store:        deps.Store,
		orchestrator: deps.Orchestrator,
		embedder:     deps.Embedder,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

// queryInt parses an integer query parameter with a fallback
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// Health reports liveness
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createTopicRequest struct {
	Title string `json:"title"`
}

// CreateTopic creates a new conversation topic
func (h *Handlers) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = models.DefaultTopicTitle
	}

	topic := &models.Topic{
		ID:    uuid.NewString(),
		Title: title,
	}
	if err := h.topics.Save(topic); err != nil {
		log.Printf("[API] failed to create topic: %v", err)
		http.Error(w, "Failed to create topic", http.StatusInternalServerError)
		return
	}

	saved, err := h.topics.GetByID(topic.ID)
	if err != nil {
		log.Printf("[API] failed to load created topic: %v", err)
		http.Error(w, "Failed to create topic", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// ListTopics returns all topics, most recently active first
func (h *Handlers) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.List()
	if err != nil {
		log.Printf("[API] failed to list topics: %v", err)
		http.Error(w, "Failed to list topics", http.StatusInternalServerError)
		return
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	writeJSON(w, http.StatusOK, topics)
}

type topicDetailResponse struct {
	*models.Topic
	Messages []models.Message `json:"messages"`
}

// GetTopic returns one topic with its messages
func (h *Handlers) GetTopic(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")

	topic, err := h.topics.GetByID(topicID)
	if err != nil {
		log.Printf("[API] failed to get topic %s: %v", topicID, err)
		http.Error(w, "Failed to get topic", http.StatusInternalServerError)
		return
	}
	if topic == nil {
		http.Error(w, "Topic not found", http.StatusNotFound)
		return
	}

	messages, err := h.messages.ListByTopic(topicID)
	if err != nil {
		log.Printf("[API] failed to list messages for %s: %v", topicID, err)
		http.Error(w, "Failed to get topic", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	writeJSON(w, http.StatusOK, topicDetailResponse{Topic: topic, Messages: messages})
}

type updateTopicRequest struct {
	Title string `json:"title"`
}

// UpdateTopic renames a topic
func (h *Handlers) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")

	var req updateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	topic, err := h.topics.GetByID(topicID)
	if err != nil {
		log.Printf("[API] failed to get topic %s: %v", topicID, err)
		http.Error(w, "Failed to update topic", http.StatusInternalServerError)
		return
	}
	if topic == nil {
		http.Error(w, "Topic not found", http.StatusNotFound)
		return
	}

	if err := h.topics.UpdateTitle(topicID, title); err != nil {
		log.Printf("[API] failed to update topic %s: %v", topicID, err)
		http.Error(w, "Failed to update topic", http.StatusInternalServerError)
		return
	}

	updated, err := h.topics.GetByID(topicID)
	if err != nil {
		log.Printf("[API] failed to load updated topic %s: %v", topicID, err)
		http.Error(w, "Failed to update topic", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTopic deletes a topic, aborting any in-flight stream on it first
func (h *Handlers) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")

	topic, err := h.topics.GetByID(topicID)
	if err != nil {
		log.Printf("[API] failed to get topic %s: %v", topicID, err)
		http.Error(w, "Failed to delete topic", http.StatusInternalServerError)
		return
	}
	if topic == nil {
		http.Error(w, "Topic not found", http.StatusNotFound)
		return
	}

	h.orchestrator.CancelTopic(topicID)

	if err := h.topics.Delete(topicID); err != nil {
		log.Printf("[API] failed to delete topic %s: %v", topicID, err)
		http.Error(w, "Failed to delete topic", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMessages returns a topic's messages in chronological order
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")

	topic, err := h.topics.GetByID(topicID)
	if err != nil {
		log.Printf("[API] failed to get topic %s: %v", topicID, err)
		http.Error(w, "Failed to list messages", http.StatusInternalServerError)
		return
	}
	if topic == nil {
		http.Error(w, "Topic not found", http.StatusNotFound)
		return
	}

	messages, err := h.messages.ListByTopic(topicID)
	if err != nil {
		log.Printf("[API] failed to list messages for %s: %v", topicID, err)
		http.Error(w, "Failed to list messages", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	UserMessage       *models.Message  `json:"user_message"`
	AssistantMessage  *models.Message  `json:"assistant_message"`
	TopicTitleUpdated bool             `json:"topic_title_updated"`
	MemoriesUsed      []memory.Snippet `json:"memories_used"`
}

// SendMessage runs a turn synchronously and returns the full exchange
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var sink stream.BufferSink
	result, err := h.orchestrator.SendMessage(r.Context(), topicID, req.Content, &sink)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyMessage):
			http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		case errors.Is(err, core.ErrTopicNotFound):
			http.Error(w, "Topic not found", http.StatusNotFound)
		default:
			log.Printf("[API] failed turn on topic %s: %v", topicID, err)
			http.Error(w, "Failed to generate response", http.StatusBadGateway)
		}
		return
	}

	snippets := result.Snippets
	if snippets == nil {
		snippets = []memory.Snippet{}
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:       result.UserMessage,
		AssistantMessage:  result.AssistantMessage,
		TopicTitleUpdated: result.TopicTitleUpdated,
		MemoriesUsed:      snippets,
	})
}

// StreamMessage runs a turn with the response streamed as SSE events
func (h *Handlers) StreamMessage(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	// Validate before committing to the event-stream content type
	topic, err := h.topics.GetByID(topicID)
	if err != nil {
		log.Printf("[API] failed to get topic %s: %v", topicID, err)
		http.Error(w, "Failed to stream response", http.StatusInternalServerError)
		return
	}
	if topic == nil {
		http.Error(w, "Topic not found", http.StatusNotFound)
		return
	}

	writer, err := stream.NewSSEWriter(w)
	if err != nil {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Terminal events, including failures, travel inside the stream
	if _, err := h.orchestrator.SendMessage(r.Context(), topicID, req.Content, writer); err != nil {
		log.Printf("[API] stream turn on topic %s ended with error: %v", topicID, err)
	}
}

// GetFlowmoTopic returns the singleton reflection topic, creating it on
// first access
func (h *Handlers) GetFlowmoTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := h.orchestrator.EnsureFlowmoTopic()
	if err != nil {
		log.Printf("[API] failed to ensure flowmo topic: %v", err)
		http.Error(w, "Failed to get flowmo topic", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}
