// ABOUTME: MCP tool definitions and registration for the memory archive
// ABOUTME: Defines JSON schemas for the 5 memory and flowmo tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/secondme/internal/memory"
	"github.com/harper/secondme/internal/storage/sqlite"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, memories *sqlite.MemoryStore, flowmos *sqlite.FlowmoStore, store *memory.Store) *Handlers {
	handlers := &Handlers{
		memories: memories,
		flowmos:  flowmos,
		store:    store,
	}

	// 1. search_memories - similarity search over the archive
	server.AddTool(mcp.Tool{
		Name:        "search_memories",
		Description: "Search the user's memory archive by semantic similarity. Returns the closest memories with scores.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results to return (default: 5)",
					"default":     5,
				},
				"include_flowmos": map[string]interface{}{
					"type":        "boolean",
					"description": "Also search captured flowmos (default: false)",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchMemories)

	// 2. add_memory - store a manual memory
	server.AddTool(mcp.Tool{
		Name:        "add_memory",
		Description: "Add a memory about the user to the archive. Use for durable facts, preferences, and plans.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "The memory content, a single self-contained sentence",
				},
				"memory_type": map[string]interface{}{
					"type":        "string",
					"description": "One of personal, preference, fact, plan, manual (default: manual)",
				},
			},
			Required: []string{"content"},
		},
	}, handlers.AddMemory)

	// 3. list_memories - page through stored memories
	server.AddTool(mcp.Tool{
		Name:        "list_memories",
		Description: "List stored memories, newest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of memories to return (default: 20)",
					"default":     20,
				},
				"offset": map[string]interface{}{
					"type":        "number",
					"description": "Number of memories to skip (default: 0)",
					"default":     0,
				},
			},
		},
	}, handlers.ListMemories)

	// 4. add_flowmo - capture a flowmo directly
	server.AddTool(mcp.Tool{
		Name:        "add_flowmo",
		Description: "Capture a flowmo: a short timestamped personal note or moment.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "The flowmo text",
				},
			},
			Required: []string{"content"},
		},
	}, handlers.AddFlowmo)

	// 5. list_flowmos - page through captured flowmos
	server.AddTool(mcp.Tool{
		Name:        "list_flowmos",
		Description: "List captured flowmos, newest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of flowmos to return (default: 20)",
					"default":     20,
				},
				"offset": map[string]interface{}{
					"type":        "number",
					"description": "Number of flowmos to skip (default: 0)",
					"default":     0,
				},
			},
		},
	}, handlers.ListFlowmos)

	return handlers
}
