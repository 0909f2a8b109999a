// ABOUTME: Settings key-value storage for runtime-tunable engine parameters
// ABOUTME: Seeded from static config on first run, read at decision time
package sqlite

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/harper/secondme/internal/models"
)

// Setting keys
const (
	SettingMemoryTopK              = "memory_top_k"
	SettingMemorySilentMinutes     = "memory_silent_minutes"
	SettingMemoryExtractionEnabled = "memory_extraction_enabled"
	SettingMemoryContextMessages   = "memory_context_messages"
	SettingMaxContextMessages      = "max_context_messages"
	SettingEmbeddingModel          = "embedding_model"
)

// SettingsStore handles the settings table
type SettingsStore struct {
	db       *DB
	defaults models.Settings
}

// NewSettingsStore creates a new SettingsStore with the given defaults
func NewSettingsStore(db *DB, defaults models.Settings) *SettingsStore {
	return &SettingsStore{db: db, defaults: defaults}
}

// Get retrieves a raw setting value; ok is false when the key is unset
func (s *SettingsStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores a raw setting value
func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	return err
}

// Load reads all settings, falling back to defaults for unset keys
func (s *SettingsStore) Load() (models.Settings, error) {
	out := s.defaults

	if v, ok, err := s.Get(SettingMemoryTopK); err != nil {
		return out, err
	} else if ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.MemoryTopK = n
		}
	}

	if v, ok, err := s.Get(SettingMemorySilentMinutes); err != nil {
		return out, err
	} else if ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.MemorySilentMinutes = n
		}
	}

	if v, ok, err := s.Get(SettingMemoryExtractionEnabled); err != nil {
		return out, err
	} else if ok {
		out.MemoryExtractionEnabled = v == "true" || v == "1"
	}

	if v, ok, err := s.Get(SettingMemoryContextMessages); err != nil {
		return out, err
	} else if ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.MemoryContextMessages = n
		}
	}

	if v, ok, err := s.Get(SettingMaxContextMessages); err != nil {
		return out, err
	} else if ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.MaxContextMessages = n
		}
	}

	if v, ok, err := s.Get(SettingEmbeddingModel); err != nil {
		return out, err
	} else if ok && v != "" {
		out.EmbeddingModel = v
	}

	return out, nil
}

// Save persists every settings field
func (s *SettingsStore) Save(settings models.Settings) error {
	pairs := map[string]string{
		SettingMemoryTopK:              strconv.Itoa(settings.MemoryTopK),
		SettingMemorySilentMinutes:     strconv.Itoa(settings.MemorySilentMinutes),
		SettingMemoryExtractionEnabled: strconv.FormatBool(settings.MemoryExtractionEnabled),
		SettingMemoryContextMessages:   strconv.Itoa(settings.MemoryContextMessages),
		SettingMaxContextMessages:      strconv.Itoa(settings.MaxContextMessages),
		SettingEmbeddingModel:          settings.EmbeddingModel,
	}

	for key, value := range pairs {
		if err := s.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}
