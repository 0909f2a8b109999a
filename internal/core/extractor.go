// ABOUTME: Background memory extraction scheduler with per-topic silence timers
// ABOUTME: Watermark-based, so overlapping or repeated runs never re-extract
package core

import (
	"context"
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
)

// relatedMemoryLimit caps how many existing memories are offered to the
// extraction call as update candidates
const relatedMemoryLimit = 10

// extractionTimeout bounds one background extraction run
const extractionTimeout = 2 * time.Minute

// Scheduler runs memory extraction after a topic has been silent for the
// configured number of minutes. Each new message resets that topic's
// timer. Extraction is idempotent: a per-topic watermark records the
// last message already processed.
type Scheduler struct {
	topics    *sqlite.TopicStore
	messages  *sqlite.MessageStore
	memories  *sqlite.MemoryStore
	settings  *sqlite.SettingsStore
	store     *memory.Store
	extractor llm.MemoryExtractor
	now       func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	locks   map[string]*sync.Mutex
	stopped bool
}

// NewScheduler creates a Scheduler over the given stores and extractor
func NewScheduler(topics *sqlite.TopicStore, messages *sqlite.MessageStore,
	memories *sqlite.MemoryStore, settings *sqlite.SettingsStore,
	store *memory.Store, extractor llm.MemoryExtractor) *Scheduler {

	return &Scheduler{
		topics:    topics,
		messages:  messages,
		memories:  memories,
		settings:  settings,
		store:     store,
		extractor: extractor,
		now:       time.Now,
		timers:    make(map[string]*time.Timer),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Notify resets the silence timer for a topic. Called after each
// completed turn.
func (s *Scheduler) Notify(topicID string) {
	settings, err := s.settings.Load()
	if err != nil {
		log.Printf("[Extractor] failed to load settings: %v", err)
	}
	if !settings.MemoryExtractionEnabled {
		return
	}

	silence := time.Duration(settings.MemorySilentMinutes) * time.Minute

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if timer, ok := s.timers[topicID]; ok {
		timer.Stop()
	}
	s.timers[topicID] = time.AfterFunc(silence, func() {
		s.fire(topicID)
	})
}

func (s *Scheduler) fire(topicID string) {
	ctx, cancel := context.WithTimeout(context.Background(), extractionTimeout)
	defer cancel()

	count, err := s.ExtractNow(ctx, topicID)
	if err != nil {
		log.Printf("[Extractor] extraction for topic %s failed: %v", topicID, err)
		return
	}
	if count > 0 {
		log.Printf("[Extractor] topic %s: %d memories written", topicID, count)
	}
}

// ExtractNow runs extraction for a topic immediately. Returns the number
// of memories added or updated. Safe to call concurrently with timer
// fires; runs for the same topic serialize and the watermark makes the
// second run a no-op.
func (s *Scheduler) ExtractNow(ctx context.Context, topicID string) (int, error) {
	lock := s.topicLock(topicID)
	lock.Lock()
	defer lock.Unlock()

	topic, err := s.topics.GetByID(topicID)
	if err != nil {
		return 0, err
	}
	if topic == nil || topic.IsFlowmo {
		// Flowmo captures are already first-class entries; extracting
		// from the reflection topic would duplicate them as memories
		return 0, nil
	}

	fresh, err := s.messages.ListAfterMessage(topicID, topic.ExtractedMessageID)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	settings, err := s.settings.Load()
	if err != nil {
		log.Printf("[Extractor] failed to load settings: %v", err)
	}

	window, err := s.messages.ListRecent(topicID, len(fresh)+settings.MemoryContextMessages)
	if err != nil {
		return 0, err
	}

	existing := s.relatedMemories(ctx, fresh)

	result, err := s.extractor.ExtractMemories(ctx, formatTranscript(window), existing)
	if err != nil {
		// Watermark stays put, so the next run retries these messages
		return 0, err
	}

	lastID := fresh[len(fresh)-1].ID
	count := 0

	for _, add := range result.Add {
		content := strings.TrimSpace(add.Content)
		if content == "" {
			continue
		}
		memType := add.Type
		if !models.ValidMemoryType(memType) {
			memType = models.MemoryTypeFact
		}

		mem := &models.Memory{
			ID:              uuid.NewString(),
			Content:         content,
			Type:            memType,
			Source:          models.MemorySourceChat,
			SourceTopicID:   topicID,
			SourceMessageID: lastID,
			CreatedAt:       s.now().UTC(),
		}
		if err := s.memories.Save(mem); err != nil {
			return count, fmt.Errorf("failed to save extracted memory: %w", err)
		}
		if err := s.store.Upsert(ctx, memory.KindMemory, mem.ID, mem.Content); err != nil {
			log.Printf("[Extractor] failed to index memory %s: %v", mem.ID, err)
		}
		count++
	}

	for _, update := range result.Update {
		content := strings.TrimSpace(update.Content)
		if content == "" {
			continue
		}
		mem, err := s.memories.GetByID(update.ID)
		if err != nil {
			return count, err
		}
		if mem == nil {
			continue
		}
		if err := s.memories.UpdateContent(mem.ID, content, mem.Type); err != nil {
			return count, fmt.Errorf("failed to update memory %s: %w", mem.ID, err)
		}
		if err := s.store.Upsert(ctx, memory.KindMemory, mem.ID, content); err != nil {
			log.Printf("[Extractor] failed to reindex memory %s: %v", mem.ID, err)
		}
		count++
	}

	if err := s.topics.SetExtractedMessage(topicID, lastID); err != nil {
		return count, fmt.Errorf("failed to advance extraction watermark: %w", err)
	}

	return count, nil
}

// relatedMemories retrieves existing memories similar to the fresh
// messages, as update candidates. Retrieval failure degrades to none.
func (s *Scheduler) relatedMemories(ctx context.Context, fresh []models.Message) []llm.ExistingMemory {
	var parts []string
	for _, msg := range fresh {
		if msg.Role == models.RoleUser {
			parts = append(parts, msg.Content)
		}
	}
	if len(parts) == 0 {
		for _, msg := range fresh {
			parts = append(parts, msg.Content)
		}
	}

	hits, err := s.store.Query(ctx, strings.Join(parts, "\n"), relatedMemoryLimit, []string{memory.KindMemory})
	if err != nil {
		log.Printf("[Extractor] related-memory lookup failed, extracting without candidates: %v", err)
		return nil
	}

	existing := make([]llm.ExistingMemory, 0, len(hits))
	for _, h := range hits {
		existing = append(existing, llm.ExistingMemory{ID: h.EntityID, Content: h.Content})
	}
	return existing
}

// Stop cancels all pending timers. In-flight extractions finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) topicLock(topicID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[topicID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[topicID] = lock
	}
	return lock
}

// formatTranscript renders a message window for the extraction prompt
func formatTranscript(window []models.Message) string {
	var sb strings.Builder
	for _, msg := range window {
		speaker := "User"
		if msg.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, msg.Content)
	}
	return sb.String()
}
