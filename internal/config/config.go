// ABOUTME: Centralized configuration for the secondme engine
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/harper/secondme/internal/models"
	"github.com/harper/secondme/internal/storage/sqlite"
)

// Config holds all static configuration for the engine. Runtime-tunable
// knobs live in the settings table and only take their defaults from
// here on first run.
type Config struct {
	// Server settings
	ListenAddr string
	DataDir    string

	// Provider settings (OpenAI-compatible)
	ProviderName    string
	ProviderBaseURL string
	ProviderAPIKey  string
	ChatModel       string
	EmbeddingModel  string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration

	// Flowmo settings
	FlowmoInterval time.Duration

	// Memory extraction defaults (seed the settings table)
	MemoryTopK              int
	MemorySilentMinutes     int
	MemoryExtractionEnabled bool
	MemoryContextMessages   int
	MaxContextMessages      int

	// Charm settings
	CharmHost   string
	CharmDBName string
	AutoSync    bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		ListenAddr:      getEnv("SERVER_ADDR", ":8000"),
		DataDir:         getEnv("SECONDME_DATA_DIR", sqlite.DefaultDataDir()),
		ProviderName:    getEnv("PROVIDER_NAME", "openai"),
		ProviderBaseURL: os.Getenv("PROVIDER_BASE_URL"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", os.Getenv("OPENAI_API_KEY")),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		Timeout:         getEnvDuration("PROVIDER_TIMEOUT", 60*time.Second),
		MaxRetries:      getEnvInt("PROVIDER_MAX_RETRIES", 3),
		RetryDelay:      getEnvDuration("PROVIDER_RETRY_DELAY", 2*time.Second),

		FlowmoInterval: time.Duration(getEnvInt("FLOWMO_INTERVAL_MINUTES", 5)) * time.Minute,

		MemoryTopK:              getEnvInt("MEMORY_TOP_K", 5),
		MemorySilentMinutes:     getEnvInt("MEMORY_SILENT_MINUTES", 2),
		MemoryExtractionEnabled: getEnvBool("MEMORY_EXTRACTION_ENABLED", true),
		MemoryContextMessages:   getEnvInt("MEMORY_CONTEXT_MESSAGES", 6),
		MaxContextMessages:      getEnvInt("MAX_CONTEXT_MESSAGES", 100),

		CharmHost:   getEnv("CHARM_HOST", "charm.2389.dev"),
		CharmDBName: getEnv("CHARM_DB", "secondme"),
		AutoSync:    getEnvBool("CHARM_AUTO_SYNC", true),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.FlowmoInterval <= 0 {
		return fmt.Errorf("FLOWMO_INTERVAL_MINUTES must be positive, got %v", c.FlowmoInterval)
	}
	if c.MemoryTopK < 1 || c.MemoryTopK > 50 {
		return fmt.Errorf("MEMORY_TOP_K must be 1-50, got %d", c.MemoryTopK)
	}
	if c.MemorySilentMinutes < 1 {
		return fmt.Errorf("MEMORY_SILENT_MINUTES must be positive, got %d", c.MemorySilentMinutes)
	}
	if c.MemoryContextMessages < 1 {
		return fmt.Errorf("MEMORY_CONTEXT_MESSAGES must be positive, got %d", c.MemoryContextMessages)
	}
	if c.MaxContextMessages < 1 {
		return fmt.Errorf("MAX_CONTEXT_MESSAGES must be positive, got %d", c.MaxContextMessages)
	}
	return nil
}

// SettingsDefaults maps the static config onto the runtime settings
// document used to seed the settings table
func (c *Config) SettingsDefaults() models.Settings {
	return models.Settings{
		MemoryTopK:              c.MemoryTopK,
		MemorySilentMinutes:     c.MemorySilentMinutes,
		MemoryExtractionEnabled: c.MemoryExtractionEnabled,
		MemoryContextMessages:   c.MemoryContextMessages,
		MaxContextMessages:      c.MaxContextMessages,
		EmbeddingModel:          c.EmbeddingModel,
	}
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
