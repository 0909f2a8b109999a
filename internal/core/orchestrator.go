// ABOUTME: ConversationOrchestrator runs the full turn pipeline for one message
// ABOUTME: Persist, gate, retrieve, stream, record usage, title, notify extraction
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harper/secondme/internal/llm"
	"github.com/harper/secondme/internal/memory"
	"github.com/harper/secondme/internal/models"
	"github.com/harper/secondme/internal/storage/sqlite"
	"github.com/harper/secondme/internal/stream"
	"github.com/harper/secondme/internal/util"
)

var (
	// ErrTopicNotFound is returned when the target topic does not exist
	ErrTopicNotFound = errors.New("topic not found")
	// ErrEmptyMessage is returned for blank message content
	ErrEmptyMessage = errors.New("message content is empty")
)

// Provider is the completion capability the orchestrator needs
type Provider interface {
	llm.CompletionProvider
	llm.TitleGenerator
}

// TurnResult summarizes one completed turn
type TurnResult struct {
	UserMessage       *models.Message
	AssistantMessage  *models.Message
	Snippets          []memory.Snippet
	TopicTitleUpdated bool
}

// Orchestrator coordinates one conversation turn end to end. Turns on
// the same topic serialize; turns on different topics run concurrently.
type Orchestrator struct {
	topics    *sqlite.TopicStore
	messages  *sqlite.MessageStore
	memories  *sqlite.MemoryStore
	flowmos   *sqlite.FlowmoStore
	usage     *sqlite.UsageStore
	settings  *sqlite.SettingsStore
	store     *memory.Store
	planner   *memory.Planner
	provider  Provider
	gate      *FlowmoGate
	scheduler *Scheduler

	retryDelay time.Duration
	now        func() time.Time

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	cancels map[string]context.CancelFunc
}

// OrchestratorDeps collects the orchestrator's collaborators
type OrchestratorDeps struct {
	Topics    *sqlite.TopicStore
	Messages  *sqlite.MessageStore
	Memories  *sqlite.MemoryStore
	Flowmos   *sqlite.FlowmoStore
	Usage     *sqlite.UsageStore
	Settings  *sqlite.SettingsStore
	Store     *memory.Store
	Planner   *memory.Planner
	Provider  Provider
	Gate      *FlowmoGate
	Scheduler *Scheduler

	// RetryDelay is the base backoff before the single stream retry.
	// Zero means one second.
	RetryDelay time.Duration

	// Now overrides the clock (for testing)
	Now func() time.Time
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	retryDelay := deps.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		topics:     deps.Topics,
		messages:   deps.Messages,
		memories:   deps.Memories,
		flowmos:    deps.Flowmos,
		usage:      deps.Usage,
		settings:   deps.Settings,
		store:      deps.Store,
		planner:    deps.Planner,
		provider:   deps.Provider,
		gate:       deps.Gate,
		scheduler:  deps.Scheduler,
		retryDelay: retryDelay,
		now:        now,
		locks:      make(map[string]*sync.Mutex),
		cancels:    make(map[string]context.CancelFunc),
	}
}

// SendMessage runs one turn: persists the user message, assembles
// context, streams the assistant response into sink, and persists the
// outcome. Exactly one terminal event reaches the sink unless the turn
// is cancelled.
func (o *Orchestrator) SendMessage(ctx context.Context, topicID, text string, sink stream.Sink) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	lock := o.topicLock(topicID)
	lock.Lock()
	defer lock.Unlock()

	topic, err := o.topics.GetByID(topicID)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, ErrTopicNotFound
	}

	turnCtx, cancel := context.WithCancel(ctx)
	o.registerCancel(topicID, cancel)
	defer o.unregisterCancel(topicID, cancel)

	now := o.now().UTC()

	userMsg := &models.Message{
		ID:        uuid.NewString(),
		TopicID:   topicID,
		Role:      models.RoleUser,
		Content:   text,
		CreatedAt: now,
	}
	if err := o.messages.Save(userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}
	if err := o.topics.Touch(topicID, now); err != nil {
		return nil, err
	}

	settings, err := o.settings.Load()
	if err != nil {
		log.Printf("[Orchestrator] failed to load settings, using defaults: %v", err)
	}

	window, err := o.contextWindow(turnCtx, topic, userMsg, settings.MaxContextMessages)
	if err != nil {
		return nil, err
	}

	snippets := o.retrieve(turnCtx, text, topic.IsFlowmo, settings.MemoryTopK)

	contents := make([]string, 0, len(snippets))
	for _, s := range snippets {
		contents = append(contents, s.Content)
	}

	req := llm.CompletionRequest{
		System:      llm.BuildSystemPrompt(topic.IsFlowmo, contents),
		Messages:    toChatMessages(window),
		Temperature: 0.7,
	}

	full, err := o.streamResponse(turnCtx, req, sink)
	if turnCtx.Err() != nil {
		// Cancelled mid-stream (client gone or topic deleted). Nothing is
		// persisted and no terminal event is sent.
		return nil, turnCtx.Err()
	}
	if err != nil {
		if full != "" {
			partial := &models.Message{
				ID:         uuid.NewString(),
				TopicID:    topicID,
				Role:       models.RoleAssistant,
				Content:    full,
				Incomplete: true,
				CreatedAt:  o.now().UTC(),
			}
			if saveErr := o.messages.Save(partial); saveErr != nil {
				log.Printf("[Orchestrator] failed to save partial response: %v", saveErr)
			}
		}
		if sinkErr := sink.Error(err.Error()); sinkErr != nil {
			log.Printf("[Orchestrator] failed to send error event: %v", sinkErr)
		}
		return nil, err
	}

	assistantMsg := &models.Message{
		ID:        uuid.NewString(),
		TopicID:   topicID,
		Role:      models.RoleAssistant,
		Content:   full,
		CreatedAt: o.now().UTC(),
	}
	if err := o.messages.Save(assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	o.recordUsage(snippets, topicID, assistantMsg.ID)

	titleUpdated := o.maybeGenerateTitle(turnCtx, topic, text, full)

	if err := sink.Done(stream.Done{
		MessageID:         assistantMsg.ID,
		UserMessageID:     userMsg.ID,
		FullContent:       full,
		TopicTitleUpdated: titleUpdated,
	}); err != nil {
		log.Printf("[Orchestrator] failed to send done event: %v", err)
	}

	if o.scheduler != nil && !topic.IsFlowmo {
		o.scheduler.Notify(topicID)
	}

	return &TurnResult{
		UserMessage:       userMsg,
		AssistantMessage:  assistantMsg,
		Snippets:          snippets,
		TopicTitleUpdated: titleUpdated,
	}, nil
}

// contextWindow selects the messages sent to the provider. The flowmo
// gate's side effects (capture, boundary move, retraction) happen here.
func (o *Orchestrator) contextWindow(ctx context.Context, topic *models.Topic, userMsg *models.Message, maxMessages int) ([]models.Message, error) {
	if !topic.IsFlowmo {
		return o.messages.ListRecent(topic.ID, maxMessages)
	}

	switch o.gate.Classify(topic.FlowmoBoundaryAt, userMsg.CreatedAt, userMsg.Content) {
	case Retraction:
		prev, err := o.flowmos.LatestChatByTopic(topic.ID)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			if err := o.flowmos.Delete(prev.ID); err != nil {
				return nil, fmt.Errorf("failed to retract flowmo: %w", err)
			}
			if err := o.store.Delete(ctx, memory.KindFlowmo, prev.ID); err != nil {
				log.Printf("[Orchestrator] failed to remove retracted flowmo vector: %v", err)
			}
			log.Printf("[Orchestrator] retracted flowmo %s", prev.ID)
		}
		return []models.Message{*userMsg}, nil

	case NewCapture:
		flowmo := &models.Flowmo{
			ID:        uuid.NewString(),
			Content:   userMsg.Content,
			Source:    models.FlowmoSourceChat,
			TopicID:   topic.ID,
			MessageID: userMsg.ID,
			CreatedAt: userMsg.CreatedAt,
		}
		if err := o.flowmos.Save(flowmo); err != nil {
			return nil, fmt.Errorf("failed to save flowmo: %w", err)
		}
		if err := o.store.Upsert(ctx, memory.KindFlowmo, flowmo.ID, flowmo.Content); err != nil {
			// Row is kept; the vector catches up on the next reindex
			log.Printf("[Orchestrator] failed to index flowmo %s: %v", flowmo.ID, err)
		}
		if err := o.topics.SetFlowmoBoundary(topic.ID, userMsg.ID, userMsg.CreatedAt); err != nil {
			return nil, err
		}
		return []models.Message{*userMsg}, nil

	default: // Continuation
		return o.messages.ListFromMessage(topic.ID, topic.FlowmoBoundaryMessageID)
	}
}

// retrieve runs the planner. Retrieval failure degrades to an empty
// context bundle rather than failing the turn.
func (o *Orchestrator) retrieve(ctx context.Context, text string, reflective bool, topK int) []memory.Snippet {
	snippets, err := o.planner.Plan(ctx, text, reflective, topK)
	if err != nil {
		log.Printf("[Orchestrator] retrieval unavailable, continuing without context: %v", err)
		return nil
	}
	return snippets
}

// streamResponse streams the completion into sink, accumulating the full
// text. A provider failure before any bytes were emitted is retried
// once; after bytes have reached the sink the failure is final, because
// a retry would duplicate visible output.
func (o *Orchestrator) streamResponse(ctx context.Context, req llm.CompletionRequest, sink stream.Sink) (string, error) {
	var full strings.Builder
	emitted := false

	run := func() error {
		return o.provider.Stream(ctx, req, func(chunk string) error {
			if chunk == "" {
				return nil
			}
			emitted = true
			full.WriteString(chunk)
			return sink.Chunk(chunk)
		})
	}

	err := run()
	if err != nil && !emitted && ctx.Err() == nil {
		log.Printf("[Orchestrator] stream failed before output, retrying: %v", err)
		time.Sleep(util.CalculateBackoff(o.retryDelay, 1))
		err = run()
	}

	return full.String(), err
}

// recordUsage logs one usage entry per distinct memory injected into the
// completed turn and bumps its counters. Flowmo snippets carry no usage
// accounting.
func (o *Orchestrator) recordUsage(snippets []memory.Snippet, topicID, messageID string) {
	now := o.now().UTC()
	seen := make(map[string]bool)

	for _, s := range snippets {
		if s.Kind != memory.KindMemory || seen[s.EntityID] {
			continue
		}
		seen[s.EntityID] = true

		if err := o.usage.Record(s.EntityID, topicID, messageID, now); err != nil {
			log.Printf("[Orchestrator] failed to record memory usage: %v", err)
			continue
		}
		if err := o.memories.MarkUsed(s.EntityID, now); err != nil {
			log.Printf("[Orchestrator] failed to bump memory use count: %v", err)
		}
	}
}

// maybeGenerateTitle titles an untitled topic after its first exchange.
// Failure is silent; the topic keeps its default title.
func (o *Orchestrator) maybeGenerateTitle(ctx context.Context, topic *models.Topic, userText, assistantText string) bool {
	if topic.IsFlowmo || topic.Title != models.DefaultTopicTitle {
		return false
	}

	count, err := o.messages.CountByTopic(topic.ID)
	if err != nil || count != 2 {
		return false
	}

	title, err := o.provider.GenerateTitle(ctx, userText, assistantText)
	if err != nil {
		log.Printf("[Orchestrator] title generation failed: %v", err)
		return false
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}

	if err := o.topics.UpdateTitle(topic.ID, title); err != nil {
		log.Printf("[Orchestrator] failed to update topic title: %v", err)
		return false
	}
	return true
}

// CancelTopic aborts any in-flight turn on the topic and releases its
// per-topic state. Called before topic deletion so a streaming response
// stops instead of writing into a deleted topic, and so the lock map
// does not keep an entry per deleted topic forever. An aborted turn
// still holds its own lock pointer; a later turn on a recreated id gets
// a fresh one.
func (o *Orchestrator) CancelTopic(topicID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cancel, ok := o.cancels[topicID]; ok {
		cancel()
		delete(o.cancels, topicID)
	}
	delete(o.locks, topicID)
}

// EnsureFlowmoTopic returns the singleton reflection topic, creating it
// on first use
func (o *Orchestrator) EnsureFlowmoTopic() (*models.Topic, error) {
	topic, err := o.topics.GetFlowmoTopic()
	if err != nil {
		return nil, err
	}
	if topic != nil {
		return topic, nil
	}

	now := o.now().UTC()
	topic = &models.Topic{
		ID:        uuid.NewString(),
		Title:     models.FlowmoTopicTitle,
		IsFlowmo:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.topics.Save(topic); err != nil {
		return nil, fmt.Errorf("failed to create flowmo topic: %w", err)
	}
	return topic, nil
}

func (o *Orchestrator) topicLock(topicID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[topicID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[topicID] = lock
	}
	return lock
}

func (o *Orchestrator) registerCancel(topicID string, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancels[topicID] = cancel
}

func (o *Orchestrator) unregisterCancel(topicID string, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.cancels, topicID)
	cancel()
}

// toChatMessages maps stored messages onto the provider request shape
func toChatMessages(window []models.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(window))
	for _, msg := range window {
		out = append(out, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}
