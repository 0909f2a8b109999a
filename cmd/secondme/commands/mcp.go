// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents like Claude to use the memory archive via stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/secondme/internal/config"
	"github.com/harper/secondme/internal/llm"
	"github.com/harper/secondme/internal/mcp"
	"github.com/harper/secondme/internal/memory"
	"github.com/harper/secondme/internal/storage/sqlite"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs SecondMe as an MCP (Model Context Protocol) server, enabling
LLM agents like Claude to search and extend the memory archive
via stdio.

Configure in Claude Desktop's config file to enable memory tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  secondme mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "secondme": {
  #       "command": "secondme",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil && !quiet {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := sqlite.Open(filepath.Join(cfg.DataDir, "secondme.db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	memories := sqlite.NewMemoryStore(db)
	flowmos := sqlite.NewFlowmoStore(db)
	settingsStore := sqlite.NewSettingsStore(db, cfg.SettingsDefaults())

	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	index, err := memory.OpenIndex(filepath.Join(cfg.DataDir, "vectors"), settings.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}

	client, err := llm.NewClient(&llm.ClientConfig{
		APIKey:         cfg.ProviderAPIKey,
		BaseURL:        cfg.ProviderBaseURL,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: settings.EmbeddingModel,
		Timeout:        cfg.Timeout,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	meta := func(kind, entityID string) memory.RankMeta {
		if kind != memory.KindMemory {
			return memory.RankMeta{}
		}
		mem, err := memories.GetByID(entityID)
		if err != nil || mem == nil {
			return memory.RankMeta{}
		}
		return memory.RankMeta{
			UseCount:   mem.UseCount,
			LastUsedAt: mem.LastUsedAt,
			CreatedAt:  mem.CreatedAt,
		}
	}
	store := memory.NewStore(index, client, meta)

	server := mcpserver.NewMCPServer(
		"SecondMe Memory Archive",
		versionInfo.Version,
	)
	mcp.RegisterTools(server, memories, flowmos, store)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		log.Println("SecondMe MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, shutting down...")
		}

	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
