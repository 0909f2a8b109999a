// ABOUTME: Serve command starts the HTTP API for the conversation engine
// ABOUTME: Wires storage, vector index, LLM client, orchestrator, and router
package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/secondme/internal/api"
	"github.com/harper/secondme/internal/config"
	"github.com/harper/secondme/internal/core"
	"github.com/harper/secondme/internal/llm"
	"github.com/harper/secondme/internal/memory"
	"github.com/harper/secondme/internal/storage/sqlite"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SecondMe HTTP API server",
		Long: `Start the SecondMe HTTP API server.

Serves the conversation API: topics, messages with SSE streaming,
the memory archive, flowmos, and runtime settings. Background memory
extraction runs inside the same process.`,
		RunE: runServe,
		Example: `  # Start with defaults (listens on :8000)
  secondme serve

  # Custom address and data directory
  SERVER_ADDR=:9000 SECONDME_DATA_DIR=/data/secondme secondme serve`,
	}

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil && !quiet {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.ProviderAPIKey == "" {
		return fmt.Errorf("PROVIDER_API_KEY (or OPENAI_API_KEY) must be set")
	}

	db, err := sqlite.Open(filepath.Join(cfg.DataDir, "secondme.db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	topics := sqlite.NewTopicStore(db)
	messages := sqlite.NewMessageStore(db)
	memories := sqlite.NewMemoryStore(db)
	flowmos := sqlite.NewFlowmoStore(db)
	usage := sqlite.NewUsageStore(db)
	settingsStore := sqlite.NewSettingsStore(db, cfg.SettingsDefaults())

	// The settings table wins over env config once it has been written
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
	planner := memory.NewPlanner(store, meta)

	gate := core.NewFlowmoGate(cfg.FlowmoInterval, nil)
	scheduler := core.NewScheduler(topics, messages, memories, settingsStore, store, client)
	defer scheduler.Stop()

	orchestrator := core.NewOrchestrator(core.OrchestratorDeps{
		Topics:     topics,
		Messages:   messages,
		Memories:   memories,
		Flowmos:    flowmos,
		Usage:      usage,
		Settings:   settingsStore,
		Store:      store,
		Planner:    planner,
		Provider:   client,
		Gate:       gate,
		Scheduler:  scheduler,
		RetryDelay: cfg.RetryDelay,
	})

	handlers := api.NewHandlers(api.HandlerDeps{
		Topics:       topics,
		Messages:     messages,
		Memories:     memories,
		Flowmos:      flowmos,
		Usage:        usage,
		Settings:     settingsStore,
		Store:        store,
		Orchestrator: orchestrator,
		Embedder:     client,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if !quiet {
			log.Printf("[Server] listening on %s (data dir %s)", cfg.ListenAddr, cfg.DataDir)
		}
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("[Server] shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] graceful shutdown failed: %v", err)
		}

		if !quiet {
			log.Println("[Server] shutdown complete")
		}

	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
