// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies environment variable parsing and validation
package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify defaults
	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %s, want :8000", cfg.ListenAddr)
	}
	if cfg.ProviderName != "openai" {
		t.Errorf("ProviderName = %s, want openai", cfg.ProviderName)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %s, want gpt-4o-mini", cfg.ChatModel)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %s, want text-embedding-3-small", cfg.EmbeddingModel)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.RetryDelay)
	}
	if cfg.FlowmoInterval != 5*time.Minute {
		t.Errorf("FlowmoInterval = %v, want 5m", cfg.FlowmoInterval)
	}
	if cfg.MemoryTopK != 5 {
		t.Errorf("MemoryTopK = %d, want 5", cfg.MemoryTopK)
	}
	if cfg.MemorySilentMinutes != 2 {
		t.Errorf("MemorySilentMinutes = %d, want 2", cfg.MemorySilentMinutes)
	}
	if !cfg.MemoryExtractionEnabled {
		t.Error("MemoryExtractionEnabled = false, want true")
	}
	if cfg.MemoryContextMessages != 6 {
		t.Errorf("MemoryContextMessages = %d, want 6", cfg.MemoryContextMessages)
	}
	if cfg.MaxContextMessages != 100 {
		t.Errorf("MaxContextMessages = %d, want 100", cfg.MaxContextMessages)
	}
	if cfg.CharmHost != "charm.2389.dev" {
		t.Errorf("CharmHost = %s, want charm.2389.dev", cfg.CharmHost)
	}
	if cfg.CharmDBName != "secondme" {
		t.Errorf("CharmDBName = %s, want secondme", cfg.CharmDBName)
	}
	if !cfg.AutoSync {
		t.Error("AutoSync = false, want true")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	// Set custom environment variables
	os.Clearenv()
	os.Setenv("SERVER_ADDR", ":9001")
	os.Setenv("SECONDME_DATA_DIR", "/tmp/secondme-test")
	os.Setenv("PROVIDER_NAME", "ollama")
	os.Setenv("PROVIDER_BASE_URL", "http://localhost:11434/v1")
	os.Setenv("PROVIDER_API_KEY", "test-key")
	os.Setenv("CHAT_MODEL", "llama3")
	os.Setenv("EMBEDDING_MODEL", "nomic-embed-text")
	os.Setenv("PROVIDER_TIMEOUT", "90s")
	os.Setenv("PROVIDER_MAX_RETRIES", "5")
	os.Setenv("PROVIDER_RETRY_DELAY", "3s")
	os.Setenv("FLOWMO_INTERVAL_MINUTES", "10")
	os.Setenv("MEMORY_TOP_K", "8")
	os.Setenv("MEMORY_EXTRACTION_ENABLED", "false")
	os.Setenv("CHARM_HOST", "custom.charm.sh")
	os.Setenv("CHARM_DB", "test_db")
	os.Setenv("CHARM_AUTO_SYNC", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify custom values
	if cfg.ListenAddr != ":9001" {
		t.Errorf("ListenAddr = %s, want :9001", cfg.ListenAddr)
	}
	if cfg.DataDir != "/tmp/secondme-test" {
		t.Errorf("DataDir = %s, want /tmp/secondme-test", cfg.DataDir)
	}
	if cfg.ProviderName != "ollama" {
		t.Errorf("ProviderName = %s, want ollama", cfg.ProviderName)
	}
	if cfg.ProviderBaseURL != "http://localhost:11434/v1" {
		t.Errorf("ProviderBaseURL = %s", cfg.ProviderBaseURL)
	}
	if cfg.ProviderAPIKey != "test-key" {
		t.Errorf("ProviderAPIKey = %s, want test-key", cfg.ProviderAPIKey)
	}
	if cfg.ChatModel != "llama3" {
		t.Errorf("ChatModel = %s, want llama3", cfg.ChatModel)
	}
	if cfg.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("EmbeddingModel = %s, want nomic-embed-text", cfg.EmbeddingModel)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Timeout)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 3*time.Second {
		t.Errorf("RetryDelay = %v, want 3s", cfg.RetryDelay)
	}
	if cfg.FlowmoInterval != 10*time.Minute {
		t.Errorf("FlowmoInterval = %v, want 10m", cfg.FlowmoInterval)
	}
	if cfg.MemoryTopK != 8 {
		t.Errorf("MemoryTopK = %d, want 8", cfg.MemoryTopK)
	}
	if cfg.MemoryExtractionEnabled {
		t.Error("MemoryExtractionEnabled = true, want false")
	}
	if cfg.CharmHost != "custom.charm.sh" {
		t.Errorf("CharmHost = %s, want custom.charm.sh", cfg.CharmHost)
	}
	if cfg.CharmDBName != "test_db" {
		t.Errorf("CharmDBName = %s, want test_db", cfg.CharmDBName)
	}
	if cfg.AutoSync {
		t.Error("AutoSync = true, want false")
	}
}

func TestLoad_LegacyOpenAIKey(t *testing.T) {
	os.Clearenv()
	os.Setenv("OPENAI_API_KEY", "legacy-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ProviderAPIKey != "legacy-key" {
		t.Errorf("ProviderAPIKey = %s, want fallback to OPENAI_API_KEY", cfg.ProviderAPIKey)
	}
}

func TestValidate_InvalidMaxRetries(t *testing.T) {
	cfg := validConfig()
	cfg.MaxRetries = 15

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for MaxRetries > 10")
	}

	cfg.MaxRetries = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for MaxRetries < 0")
	}
}

func TestValidate_InvalidBounds(t *testing.T) {
	cfg := validConfig()
	cfg.FlowmoInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for zero flowmo interval")
	}

	cfg = validConfig()
	cfg.MemoryTopK = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for MemoryTopK < 1")
	}

	cfg = validConfig()
	cfg.MemoryTopK = 51
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for MemoryTopK > 50")
	}

	cfg = validConfig()
	cfg.MaxContextMessages = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for MaxContextMessages < 1")
	}
}

func TestSettingsDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.MemoryTopK = 7
	cfg.EmbeddingModel = "custom-embed"

	defaults := cfg.SettingsDefaults()
	if defaults.MemoryTopK != 7 {
		t.Errorf("MemoryTopK = %d, want 7", defaults.MemoryTopK)
	}
	if defaults.EmbeddingModel != "custom-embed" {
		t.Errorf("EmbeddingModel = %s, want custom-embed", defaults.EmbeddingModel)
	}
	if err := defaults.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		MaxRetries:            3,
		FlowmoInterval:        5 * time.Minute,
		MemoryTopK:            5,
		MemorySilentMinutes:   2,
		MemoryContextMessages: 6,
		MaxContextMessages:    100,
		EmbeddingModel:        "text-embedding-3-small",
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		defaultVal bool
		want       bool
	}{
		{"empty uses default true", "", true, true},
		{"empty uses default false", "", false, false},
		{"true", "true", false, true},
		{"1", "1", false, true},
		{"false", "false", true, false},
		{"0", "0", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			got := getEnvBool("TEST_BOOL", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}
