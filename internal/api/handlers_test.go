// ABOUTME: httptest coverage for the REST and SSE endpoints
// ABOUTME: Full wiring over in-memory sqlite and the deterministic embedder
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/harper/secondme/internal/core"
	"github.com/harper/secondme/internal/llm"
	"github.com/harper/secondme/internal/memory"
	"github.com/harper/secondme/internal/memory/memorytest"
	"github.com/harper/secondme/internal/models"
	"github.com/harper/secondme/internal/storage/sqlite"
	"github.com/harper/secondme/internal/stream"
)

// staticProvider answers every completion with fixed chunks
type staticProvider struct {
	chunks []string
	title  string
}

func (p *staticProvider) Stream(ctx context.Context, req llm.CompletionRequest, fn func(chunk string) error) error {
	for _, c := range p.chunks {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *staticProvider) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return strings.Join(p.chunks, ""), nil
}

func (p *staticProvider) GenerateTitle(ctx context.Context, u, a string) (string, error) {
	return p.title, nil
}

type apiFixture struct {
	router   http.Handler
	topics   *sqlite.TopicStore
	memories *sqlite.MemoryStore
	flowmos  *sqlite.FlowmoStore
	settings *sqlite.SettingsStore
	store    *memory.Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	defaults := models.Settings{
		MemoryTopK:              5,
		MemorySilentMinutes:     2,
		MemoryExtractionEnabled: false,
		MemoryContextMessages:   6,
		MaxContextMessages:      100,
		EmbeddingModel:          "test-embed",
	}

	topics := sqlite.NewTopicStore(db)
	messages := sqlite.NewMessageStore(db)
	memories := sqlite.NewMemoryStore(db)
	flowmos := sqlite.NewFlowmoStore(db)
	usage := sqlite.NewUsageStore(db)
	settings := sqlite.NewSettingsStore(db, defaults)

	meta := func(kind, entityID string) memory.RankMeta {
		if kind != memory.KindMemory {
			return memory.RankMeta{}
		}
		mem, err := memories.GetByID(entityID)
		if err != nil || mem == nil {
			return memory.RankMeta{}
		}
		return memory.RankMeta{UseCount: mem.UseCount, LastUsedAt: mem.LastUsedAt, CreatedAt: mem.CreatedAt}
	}

	store := memory.NewStore(memory.NewIndexInMemory("test-embed"), memorytest.NewEmbedder(), meta)
	planner := memory.NewPlanner(store, meta)

	provider := &staticProvider{chunks: []string{"hel", "lo"}, title: "Generated Title"}
	orch := core.NewOrchestrator(core.OrchestratorDeps{
		Topics:     topics,
		Messages:   messages,
		Memories:   memories,
		Flowmos:    flowmos,
		Usage:      usage,
		Settings:   settings,
		Store:      store,
		Planner:    planner,
		Provider:   provider,
		Gate:       core.NewFlowmoGate(5*time.Minute, nil),
		RetryDelay: time.Millisecond,
	})

	handlers := NewHandlers(HandlerDeps{
		Topics:       topics,
		Messages:     messages,
		Memories:     memories,
		Flowmos:      flowmos,
		Usage:        usage,
		Settings:     settings,
		Store:        store,
		Orchestrator: orch,
	})

	return &apiFixture{
		router:   NewRouter(handlers),
		topics:   topics,
		memories: memories,
		flowmos:  flowmos,
		settings: settings,
		store:    store,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %v, want 200", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestTopicLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/topics", map[string]string{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %v, want 201: %s", rec.Code, rec.Body.String())
	}
	created := decode[models.Topic](t, rec)
	if created.Title != models.DefaultTopicTitle {
		t.Errorf("title = %v, want default", created.Title)
	}

	rec = f.do(t, http.MethodGet, "/api/topics", nil)
	topics := decode[[]models.Topic](t, rec)
	if len(topics) != 1 {
		t.Errorf("topic count = %v, want 1", len(topics))
	}

	rec = f.do(t, http.MethodGet, "/api/topics/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %v, want 200", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/topics/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing topic status = %v, want 404", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/api/topics/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %v, want 204", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, "/api/topics/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %v, want 404", rec.Code)
	}
}

func TestUpdateTopic(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/topics", map[string]string{"title": "Before"})
	created := decode[models.Topic](t, rec)

	rec = f.do(t, http.MethodPatch, "/api/topics/"+created.ID, map[string]string{"title": "After"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %v, want 200: %s", rec.Code, rec.Body.String())
	}
	updated := decode[models.Topic](t, rec)
	if updated.Title != "After" {
		t.Errorf("title = %v, want After", updated.Title)
	}

	persisted, err := f.topics.GetByID(created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if persisted.Title != "After" {
		t.Errorf("persisted title = %v, want After", persisted.Title)
	}

	rec = f.do(t, http.MethodPatch, "/api/topics/"+created.ID, map[string]string{"title": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank title status = %v, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodPatch, "/api/topics/"+uuid.NewString(), map[string]string{"title": "Ghost"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing topic status = %v, want 404", rec.Code)
	}
}

func TestSendMessageSync(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/topics", map[string]string{"title": "Chat"})
	topic := decode[models.Topic](t, rec)

	rec = f.do(t, http.MethodPost, "/api/topics/"+topic.ID+"/messages", map[string]string{"content": "hi there"})
	if rec.Code != http.StatusOK {
		t.Fatalf("send status = %v, want 200: %s", rec.Code, rec.Body.String())
	}

	resp := decode[sendMessageResponse](t, rec)
	if resp.AssistantMessage == nil || resp.AssistantMessage.Content != "hello" {
		t.Errorf("assistant message = %+v, want hello", resp.AssistantMessage)
	}
	if resp.UserMessage == nil || resp.UserMessage.Content != "hi there" {
		t.Errorf("user message = %+v", resp.UserMessage)
	}
	if resp.MemoriesUsed == nil {
		t.Error("memories_used should be an array, not null")
	}

	rec = f.do(t, http.MethodPost, "/api/topics/"+topic.ID+"/messages", map[string]string{"content": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank content status = %v, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/topics/"+uuid.NewString()+"/messages", map[string]string{"content": "hi"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing topic status = %v, want 404", rec.Code)
	}
}

func TestStreamMessage(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/topics", map[string]string{"title": "Chat"})
	topic := decode[models.Topic](t, rec)

	rec = f.do(t, http.MethodPost, "/api/topics/"+topic.ID+"/messages/stream", map[string]string{"content": "hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("stream status = %v, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %v, want text/event-stream", ct)
	}

	dec := stream.NewDecoder(rec.Body)
	var chunks []string
	var terminal *stream.Event
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if ev.Type == stream.EventChunk {
			chunks = append(chunks, ev.Content)
		} else {
			terminal = ev
		}
	}

	if strings.Join(chunks, "") != "hello" {
		t.Errorf("chunks = %v, want hello", chunks)
	}
	if terminal == nil || terminal.Type != stream.EventDone {
		t.Fatalf("terminal = %+v, want done", terminal)
	}
	if terminal.FullContent != "hello" {
		t.Errorf("full_content = %v, want hello", terminal.FullContent)
	}

	rec = f.do(t, http.MethodPost, "/api/topics/"+uuid.NewString()+"/messages/stream", map[string]string{"content": "hi"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing topic stream status = %v, want 404", rec.Code)
	}
}

func TestFlowmoTopicGetOrCreate(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/flowmo/topic", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", rec.Code)
	}
	first := decode[models.Topic](t, rec)
	if !first.IsFlowmo {
		t.Error("flowmo topic should have is_flowmo set")
	}

	rec = f.do(t, http.MethodGet, "/api/flowmo/topic", nil)
	second := decode[models.Topic](t, rec)
	if first.ID != second.ID {
		t.Errorf("flowmo topic IDs differ: %v vs %v", first.ID, second.ID)
	}
}

func TestMemoryEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/memories", map[string]string{"content": "User prefers tea over coffee"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %v, want 201: %s", rec.Code, rec.Body.String())
	}
	created := decode[models.Memory](t, rec)
	if created.Type != models.MemoryTypeManual || created.Source != models.MemorySourceManual {
		t.Errorf("created memory = %+v, want manual/manual", created)
	}

	rec = f.do(t, http.MethodPost, "/api/memories", map[string]string{"content": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty content status = %v, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/memories?limit=10", nil)
	list := decode[memoryListResponse](t, rec)
	if list.Total != 1 || len(list.Memories) != 1 {
		t.Errorf("list = %+v, want one memory", list)
	}

	rec = f.do(t, http.MethodGet, "/api/memories/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %v, want 200", rec.Code)
	}
	detail := decode[memoryDetailResponse](t, rec)
	if detail.Usage == nil {
		t.Error("usage should be an array, not null")
	}

	rec = f.do(t, http.MethodPut, "/api/memories/"+created.ID, map[string]string{"content": "User prefers oolong tea"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %v, want 200", rec.Code)
	}
	updated := decode[models.Memory](t, rec)
	if updated.Content != "User prefers oolong tea" {
		t.Errorf("updated content = %v", updated.Content)
	}

	rec = f.do(t, http.MethodDelete, "/api/memories/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %v, want 204", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/memories/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted memory status = %v, want 404", rec.Code)
	}
}

func TestDeleteAllMemories(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/api/memories", map[string]string{"content": "one"})
	f.do(t, http.MethodPost, "/api/memories", map[string]string{"content": "two"})

	rec := f.do(t, http.MethodDelete, "/api/memories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", rec.Code)
	}
	body := decode[map[string]int64](t, rec)
	if body["deleted"] != 2 {
		t.Errorf("deleted = %v, want 2", body["deleted"])
	}

	count, err := f.store.Query(context.Background(), "one", 5, []string{memory.KindMemory})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(count) != 0 {
		t.Errorf("index should be empty after delete-all, got %v hits", len(count))
	}
}

func TestFlowmoEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/flowmos", map[string]string{"content": "quiet rainy afternoon"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %v, want 201: %s", rec.Code, rec.Body.String())
	}
	created := decode[models.Flowmo](t, rec)
	if created.Source != models.FlowmoSourceDirect {
		t.Errorf("source = %v, want direct", created.Source)
	}

	rec = f.do(t, http.MethodGet, "/api/flowmos", nil)
	list := decode[flowmoListResponse](t, rec)
	if list.Total != 1 {
		t.Errorf("total = %v, want 1", list.Total)
	}

	rec = f.do(t, http.MethodDelete, "/api/flowmos/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %v, want 204", rec.Code)
	}

	f.do(t, http.MethodPost, "/api/flowmos", map[string]string{"content": "another"})
	rec = f.do(t, http.MethodDelete, "/api/flowmos", nil)
	body := decode[map[string]int64](t, rec)
	if body["deleted"] != 1 {
		t.Errorf("deleted = %v, want 1", body["deleted"])
	}
}

func TestSettingsEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %v, want 200", rec.Code)
	}
	settings := decode[models.Settings](t, rec)
	if settings.MemoryTopK != 5 {
		t.Errorf("default top k = %v, want 5", settings.MemoryTopK)
	}

	settings.MemoryTopK = 8
	rec = f.do(t, http.MethodPut, "/api/settings", settings)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %v, want 200: %s", rec.Code, rec.Body.String())
	}

	reloaded, err := f.settings.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.MemoryTopK != 8 {
		t.Errorf("persisted top k = %v, want 8", reloaded.MemoryTopK)
	}

	settings.MemoryTopK = 0
	rec = f.do(t, http.MethodPut, "/api/settings", settings)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid settings status = %v, want 400", rec.Code)
	}
}

func TestReindexSwitchesModel(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/api/memories", map[string]string{"content": "User grew up in Ohio"})
	f.do(t, http.MethodPost, "/api/flowmos", map[string]string{"content": "long walk today"})

	rec := f.do(t, http.MethodPost, "/api/memories/reindex", map[string]string{"embedding_model": "next-embed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reindex status = %v, want 200: %s", rec.Code, rec.Body.String())
	}

	resp := decode[reindexResponse](t, rec)
	if resp.Memories != 1 || resp.Flowmos != 1 {
		t.Errorf("reindex counts = %+v, want 1 memory, 1 flowmo", resp)
	}
	if f.store.Model() != "next-embed" {
		t.Errorf("store model = %v, want next-embed", f.store.Model())
	}

	hits, err := f.store.Query(context.Background(), "User grew up in Ohio", 5, []string{memory.KindMemory})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("hits after reindex = %v, want 1", len(hits))
	}
}
