// ABOUTME: MCP tool handler implementations over the memory archive
// ABOUTME: Tool failures return result errors, never protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/secondme/internal/memory"
	"github.com/harper/secondme/internal/models"
	"github.com/harper/secondme/internal/storage/sqlite"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	memories *sqlite.MemoryStore
	flowmos  *sqlite.FlowmoStore
	store    *memory.Store
}

// SearchMemories handles the search_memories tool
func (h *Handlers) SearchMemories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	maxResults := request.GetInt("max_results", 5)
	includeFlowmos := request.GetBool("include_flowmos", false)

	kinds := []string{memory.KindMemory}
	if includeFlowmos {
		kinds = append(kinds, memory.KindFlowmo)
	}

	hits, err := h.store.Query(ctx, query, maxResults, kinds)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("memory search failed: %v", err)), nil
	}

	results := make([]map[string]interface{}, 0, len(hits))
	for _, hit := range hits {
		results = append(results, map[string]interface{}{
			"id":      hit.EntityID,
			"kind":    hit.Kind,
			"content": hit.Content,
			"score":   hit.Score,
		})
	}

	response := map[string]interface{}{
		"results": results,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// AddMemory handles the add_memory tool
func (h *Handlers) AddMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required and must be a string"), nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return mcp.NewToolResultError("content must not be empty"), nil
	}

	memType := request.GetString("memory_type", models.MemoryTypeManual)
	if !models.ValidMemoryType(memType) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown memory type: %s", memType)), nil
	}

	mem := &models.Memory{
		ID:      uuid.NewString(),
		Content: content,
		Type:    memType,
		Source:  models.MemorySourceManual,
	}
	if err := h.memories.Save(mem); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save memory: %v", err)), nil
	}
	if err := h.store.Upsert(ctx, memory.KindMemory, mem.ID, mem.Content); err != nil {
		log.Printf("[MCP] failed to index memory %s: %v", mem.ID, err)
	}

	response := map[string]interface{}{
		"id":          mem.ID,
		"content":     mem.Content,
		"memory_type": mem.Type,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// ListMemories handles the list_memories tool
func (h *Handlers) ListMemories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	offset := request.GetInt("offset", 0)

	memories, err := h.memories.List(limit, offset, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list memories: %v", err)), nil
	}
	total, err := h.memories.Count("")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to count memories: %v", err)), nil
	}

	entries := make([]map[string]interface{}, 0, len(memories))
	for _, mem := range memories {
		entries = append(entries, map[string]interface{}{
			"id":          mem.ID,
			"content":     mem.Content,
			"memory_type": mem.Type,
			"source":      mem.Source,
			"use_count":   mem.UseCount,
			"created_at":  mem.CreatedAt.Format(time.RFC3339),
		})
	}

	response := map[string]interface{}{
		"memories": entries,
		"total":    total,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// AddFlowmo handles the add_flowmo tool
func (h *Handlers) AddFlowmo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required and must be a string"), nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return mcp.NewToolResultError("content must not be empty"), nil
	}

	flowmo := &models.Flowmo{
		ID:      uuid.NewString(),
		Content: content,
		Source:  models.FlowmoSourceDirect,
	}
	if err := h.flowmos.Save(flowmo); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save flowmo: %v", err)), nil
	}
	if err := h.store.Upsert(ctx, memory.KindFlowmo, flowmo.ID, flowmo.Content); err != nil {
		log.Printf("[MCP] failed to index flowmo %s: %v", flowmo.ID, err)
	}

	response := map[string]interface{}{
		"id":      flowmo.ID,
		"content": flowmo.Content,
		"source":  flowmo.Source,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// ListFlowmos handles the list_flowmos tool
func (h *Handlers) ListFlowmos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	offset := request.GetInt("offset", 0)

	flowmos, err := h.flowmos.List(limit, offset)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list flowmos: %v", err)), nil
	}
	total, err := h.flowmos.Count()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to count flowmos: %v", err)), nil
	}

	entries := make([]map[string]interface{}, 0, len(flowmos))
	for _, f := range flowmos {
		entries = append(entries, map[string]interface{}{
			"id":         f.ID,
			"content":    f.Content,
			"source":     f.Source,
			"created_at": f.CreatedAt.Format(time.RFC3339),
		})
	}

	response := map[string]interface{}{
		"flowmos": entries,
		"total":   total,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}
