// ABOUTME: HTTP handlers for the memory archive, flowmos, and settings
// ABOUTME: Mutations keep the relational rows and the vector index in step
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harper/secondme/internal/memory"
	"github.com/harper/secondme/internal/models"
	"github.com/harper/secondme/internal/storage/sqlite"
)

const defaultPageSize = 50

type memoryListResponse struct {
	Memories []models.Memory `json:"memories"`
	Total    int             `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// ListMemories returns a page of memories, excluding raw chat rows
func (h *Handlers) ListMemories(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	offset := queryInt(r, "offset", 0)
	source := r.URL.Query().Get("source")

	if source != "" && !models.ValidMemorySource(source) {
		http.Error(w, "Invalid source filter", http.StatusBadRequest)
		return
	}

	memories, err := h.memories.List(limit, offset, source)
	if err != nil {
		log.Printf("[API] failed to list memories: %v", err)
		http.Error(w, "Failed to list memories", http.StatusInternalServerError)
		return
	}
	total, err := h.memories.Count(source)
	if err != nil {
		log.Printf("[API] failed to count memories: %v", err)
		http.Error(w, "Failed to list memories", http.StatusInternalServerError)
		return
	}

	if memories == nil {
		memories = []models.Memory{}
	}
	writeJSON(w, http.StatusOK, memoryListResponse{
		Memories: memories,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

type createMemoryRequest struct {
	Content string `json:"content"`
	Type    string `json:"memory_type"`
}

// CreateMemory adds a manual memory and indexes it
func (h *Handlers) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		http.Error(w, "Memory content cannot be empty", http.StatusBadRequest)
		return
	}
	memType := req.Type
	if memType == "" {
		memType = models.MemoryTypeManual
	}
	if !models.ValidMemoryType(memType) {
		http.Error(w, "Invalid memory type", http.StatusBadRequest)
		return
	}

	mem := &models.Memory{
		ID:      uuid.NewString(),
		Content: content,
		Type:    memType,
		Source:  models.MemorySourceManual,
	}
	if err := h.memories.Save(mem); err != nil {
		log.Printf("[API] failed to save memory: %v", err)
		http.Error(w, "Failed to create memory", http.StatusInternalServerError)
		return
	}
	if err := h.store.Upsert(r.Context(), memory.KindMemory, mem.ID, mem.Content); err != nil {
		log.Printf("[API] failed to index memory %s: %v", mem.ID, err)
	}

	saved, err := h.memories.GetByID(mem.ID)
	if err != nil {
		log.Printf("[API] failed to load created memory: %v", err)
		http.Error(w, "Failed to create memory", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

type memoryDetailResponse struct {
	*models.Memory
	Usage []models.UsageDetail `json:"usage"`
}

// GetMemory returns one memory with its usage history
func (h *Handlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	memoryID := chi.URLParam(r, "memoryID")

	mem, err := h.memories.GetByID(memoryID)
	if err != nil {
		log.Printf("[API] failed to get memory %s: %v", memoryID, err)
		http.Error(w, "Failed to get memory", http.StatusInternalServerError)
		return
	}
	if mem == nil {
		http.Error(w, "Memory not found", http.StatusNotFound)
		return
	}

	usage, err := h.usage.ListByMemory(memoryID, defaultPageSize)
	if err != nil {
		log.Printf("[API] failed to list usage for %s: %v", memoryID, err)
		http.Error(w, "Failed to get memory", http.StatusInternalServerError)
		return
	}
	if usage == nil {
		usage = []models.UsageDetail{}
	}

	writeJSON(w, http.StatusOK, memoryDetailResponse{Memory: mem, Usage: usage})
}

type updateMemoryRequest struct {
	Content string `json:"content"`
	Type    string `json:"memory_type"`
}

// UpdateMemory revises a memory's content and re-embeds it
func (h *Handlers) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	memoryID := chi.URLParam(r, "memoryID")

	var req updateMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		http.Error(w, "Memory content cannot be empty", http.StatusBadRequest)
		return
	}

	mem, err := h.memories.GetByID(memoryID)
	if err != nil {
		log.Printf("[API] failed to get memory %s: %v", memoryID, err)
		http.Error(w, "Failed to update memory", http.StatusInternalServerError)
		return
	}
	if mem == nil {
		http.Error(w, "Memory not found", http.StatusNotFound)
		return
	}

	memType := req.Type
	if memType == "" {
		memType = mem.Type
	}
	if !models.ValidMemoryType(memType) {
		http.Error(w, "Invalid memory type", http.StatusBadRequest)
		return
	}

	if err := h.memories.UpdateContent(memoryID, content, memType); err != nil {
		log.Printf("[API] failed to update memory %s: %v", memoryID, err)
		http.Error(w, "Failed to update memory", http.StatusInternalServerError)
		return
	}
	if err := h.store.Upsert(r.Context(), memory.KindMemory, memoryID, content); err != nil {
		log.Printf("[API] failed to reindex memory %s: %v", memoryID, err)
	}

	updated, err := h.memories.GetByID(memoryID)
	if err != nil {
		log.Printf("[API] failed to load updated memory: %v", err)
		http.Error(w, "Failed to update memory", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteMemory removes a memory row and its vector
func (h *Handlers) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	memoryID := chi.URLParam(r, "memoryID")

	mem, err := h.memories.GetByID(memoryID)
	if err != nil {
		log.Printf("[API] failed to get memory %s: %v", memoryID, err)
		http.Error(w, "Failed to delete memory", http.StatusInternalServerError)
		return
	}
	if mem == nil {
		http.Error(w, "Memory not found", http.StatusNotFound)
		return
	}

	if err := h.memories.Delete(memoryID); err != nil {
		log.Printf("[API] failed to delete memory %s: %v", memoryID, err)
		http.Error(w, "Failed to delete memory", http.StatusInternalServerError)
		return
	}
	if err := h.store.Delete(r.Context(), memory.KindMemory, memoryID); err != nil {
		log.Printf("[API] failed to remove memory vector %s: %v", memoryID, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllMemories clears the memory archive and its index
func (h *Handlers) DeleteAllMemories(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.memories.DeleteAll()
	if err != nil {
		log.Printf("[API] failed to delete memories: %v", err)
		http.Error(w, "Failed to delete memories", http.StatusInternalServerError)
		return
	}
	if err := h.store.DeleteAll(memory.KindMemory); err != nil {
		log.Printf("[API] failed to clear memory index: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

type reindexRequest struct {
	EmbeddingModel string `json:"embedding_model"`
}

type reindexResponse struct {
	EmbeddingModel string `json:"embedding_model"`
	Memories       int    `json:"memories"`
	Flowmos        int    `json:"flowmos"`
}

// ReindexMemories re-embeds every memory and flowmo, optionally under a
// new embedding model. This is the only path that migrates vectors
// across models.
func (h *Handlers) ReindexMemories(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	settings, err := h.settings.Load()
	if err != nil {
		log.Printf("[API] failed to load settings: %v", err)
		http.Error(w, "Failed to reindex", http.StatusInternalServerError)
		return
	}

	model := strings.TrimSpace(req.EmbeddingModel)
	if model == "" {
		model = settings.EmbeddingModel
	}

	memories, err := h.memories.All()
	if err != nil {
		log.Printf("[API] failed to load memories: %v", err)
		http.Error(w, "Failed to reindex", http.StatusInternalServerError)
		return
	}
	flowmos, err := h.flowmos.All()
	if err != nil {
		log.Printf("[API] failed to load flowmos: %v", err)
		http.Error(w, "Failed to reindex", http.StatusInternalServerError)
		return
	}

	items := make([]memory.ReindexItem, 0, len(memories)+len(flowmos))
	for _, m := range memories {
		items = append(items, memory.ReindexItem{Kind: memory.KindMemory, EntityID: m.ID, Content: m.Content})
	}
	for _, f := range flowmos {
		items = append(items, memory.ReindexItem{Kind: memory.KindFlowmo, EntityID: f.ID, Content: f.Content})
	}

	if h.embedder != nil {
		h.embedder.SetEmbeddingModel(model)
	}

	if err := h.store.ReindexAll(r.Context(), model, items); err != nil {
		log.Printf("[API] reindex failed: %v", err)
		http.Error(w, "Failed to reindex", http.StatusBadGateway)
		return
	}

	if err := h.settings.Set(sqlite.SettingEmbeddingModel, model); err != nil {
		log.Printf("[API] failed to persist embedding model: %v", err)
	}

	writeJSON(w, http.StatusOK, reindexResponse{
		EmbeddingModel: model,
		Memories:       len(memories),
		Flowmos:        len(flowmos),
	})
}

type flowmoListResponse struct {
	Flowmos []models.Flowmo `json:"flowmos"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListFlowmos returns a page of flowmos, newest first
func (h *Handlers) ListFlowmos(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	offset := queryInt(r, "offset", 0)

	flowmos, err := h.flowmos.List(limit, offset)
	if err != nil {
		log.Printf("[API] failed to list flowmos: %v", err)
		http.Error(w, "Failed to list flowmos", http.StatusInternalServerError)
		return
	}
	total, err := h.flowmos.Count()
	if err != nil {
		log.Printf("[API] failed to count flowmos: %v", err)
		http.Error(w, "Failed to list flowmos", http.StatusInternalServerError)
		return
	}

	if flowmos == nil {
		flowmos = []models.Flowmo{}
	}
	writeJSON(w, http.StatusOK, flowmoListResponse{
		Flowmos: flowmos,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

type createFlowmoRequest struct {
	Content string `json:"content"`
}

// CreateFlowmo adds a direct flowmo and indexes it
func (h *Handlers) CreateFlowmo(w http.ResponseWriter, r *http.Request) {
	var req createFlowmoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		http.Error(w, "Flowmo content cannot be empty", http.StatusBadRequest)
		return
	}

	flowmo := &models.Flowmo{
		ID:      uuid.NewString(),
		Content: content,
		Source:  models.FlowmoSourceDirect,
	}
	if err := h.flowmos.Save(flowmo); err != nil {
		log.Printf("[API] failed to save flowmo: %v", err)
		http.Error(w, "Failed to create flowmo", http.StatusInternalServerError)
		return
	}
	if err := h.store.Upsert(r.Context(), memory.KindFlowmo, flowmo.ID, flowmo.Content); err != nil {
		log.Printf("[API] failed to index flowmo %s: %v", flowmo.ID, err)
	}

	saved, err := h.flowmos.GetByID(flowmo.ID)
	if err != nil {
		log.Printf("[API] failed to load created flowmo: %v", err)
		http.Error(w, "Failed to create flowmo", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteFlowmo removes a flowmo row and its vector
func (h *Handlers) DeleteFlowmo(w http.ResponseWriter, r *http.Request) {
	flowmoID := chi.URLParam(r, "flowmoID")

	flowmo, err := h.flowmos.GetByID(flowmoID)
	if err != nil {
		log.Printf("[API] failed to get flowmo %s: %v", flowmoID, err)
		http.Error(w, "Failed to delete flowmo", http.StatusInternalServerError)
		return
	}
	if flowmo == nil {
		http.Error(w, "Flowmo not found", http.StatusNotFound)
		return
	}

	if err := h.flowmos.Delete(flowmoID); err != nil {
		log.Printf("[API] failed to delete flowmo %s: %v", flowmoID, err)
		http.Error(w, "Failed to delete flowmo", http.StatusInternalServerError)
		return
	}
	if err := h.store.Delete(r.Context(), memory.KindFlowmo, flowmoID); err != nil {
		log.Printf("[API] failed to remove flowmo vector %s: %v", flowmoID, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllFlowmos clears every flowmo and the flowmo index
func (h *Handlers) DeleteAllFlowmos(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.flowmos.DeleteAll()
	if err != nil {
		log.Printf("[API] failed to delete flowmos: %v", err)
		http.Error(w, "Failed to delete flowmos", http.StatusInternalServerError)
		return
	}
	if err := h.store.DeleteAll(memory.KindFlowmo); err != nil {
		log.Printf("[API] failed to clear flowmo index: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// GetSettings returns the runtime-tunable settings
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Load()
	if err != nil {
		log.Printf("[API] failed to load settings: %v", err)
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings validates and persists the full settings document.
// Changing embedding_model here only takes effect after a reindex.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := settings.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.settings.Save(settings); err != nil {
		log.Printf("[API] failed to save settings: %v", err)
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
