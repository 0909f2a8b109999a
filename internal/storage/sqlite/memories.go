// ABOUTME: Memory storage operations for SQLite
// ABOUTME: Implements CRUD, pagination, and usage counter updates
package sqlite

import (
	"database/sql"
	"time"

	"github.com/harper/secondme/internal/models"
)

// MemoryStore handles memory row persistence
type MemoryStore struct {
	db *DB
}

// NewMemoryStore creates a new MemoryStore
func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

// Save saves a memory
func (s *MemoryStore) Save(mem *models.Memory) error {
	createdAt := mem.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := mem.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.db.Exec(`
		INSERT INTO memories (id, content, memory_type, source, source_topic_id, source_message_id, use_count, last_used_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			memory_type = excluded.memory_type,
			updated_at = excluded.updated_at
	`, mem.ID, mem.Content, mem.Type, mem.Source,
		nullString(mem.SourceTopicID), nullString(mem.SourceMessageID),
		mem.UseCount, nullTime(mem.LastUsedAt), createdAt, updatedAt)

	return err
}

// GetByID retrieves a memory by its ID
func (s *MemoryStore) GetByID(memoryID string) (*models.Memory, error) {
	row := s.db.QueryRow(`
		SELECT id, content, memory_type, source, source_topic_id, source_message_id, use_count, last_used_at, created_at, updated_at
		FROM memories
		WHERE id = ?
	`, memoryID)

	var (
		mem       models.Memory
		topicID   sql.NullString
		messageID sql.NullString
		lastUsed  sql.NullTime
	)

	err := row.Scan(&mem.ID, &mem.Content, &mem.Type, &mem.Source,
		&topicID, &messageID, &mem.UseCount, &lastUsed, &mem.CreatedAt, &mem.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	applyMemoryNulls(&mem, topicID, messageID, lastUsed)
	return &mem, nil
}

// List returns memories ordered newest first. Raw chat-type rows are
// excluded from the listing; an optional source filters further.
func (s *MemoryStore) List(limit, offset int, source string) ([]models.Memory, error) {
	query := `
		SELECT id, content, memory_type, source, source_topic_id, source_message_id, use_count, last_used_at, created_at, updated_at
		FROM memories
		WHERE memory_type != 'chat'
	`
	args := []interface{}{}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMemories(rows)
}

// Count returns the number of listable memories for the given source filter
func (s *MemoryStore) Count(source string) (int, error) {
	query := "SELECT COUNT(*) FROM memories WHERE memory_type != 'chat'"
	args := []interface{}{}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}

	var count int
	err := s.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

// All returns every memory row, for reindexing and backup
func (s *MemoryStore) All() ([]models.Memory, error) {
	rows, err := s.db.Query(`
		SELECT id, content, memory_type, source, source_topic_id, source_message_id, use_count, last_used_at, created_at, updated_at
		FROM memories
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMemories(rows)
}

// UpdateContent updates a memory's content and type
func (s *MemoryStore) UpdateContent(memoryID, content, memoryType string) error {
	_, err := s.db.Exec(`
		UPDATE memories SET content = ?, memory_type = ?, updated_at = ? WHERE id = ?
	`, content, memoryType, time.Now().UTC(), memoryID)
	return err
}

// MarkUsed increments use_count and stamps last_used_at
func (s *MemoryStore) MarkUsed(memoryID string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE memories SET use_count = use_count + 1, last_used_at = ? WHERE id = ?
	`, at, memoryID)
	return err
}

// Delete deletes a memory by its ID
func (s *MemoryStore) Delete(memoryID string) error {
	_, err := s.db.Exec("DELETE FROM memories WHERE id = ?", memoryID)
	return err
}

// DeleteAll deletes every memory row and returns the count removed
func (s *MemoryStore) DeleteAll() (int64, error) {
	result, err := s.db.Exec("DELETE FROM memories")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// scanMemories scans rows into a slice of Memory
func scanMemories(rows *sql.Rows) ([]models.Memory, error) {
	var memories []models.Memory

	for rows.Next() {
		var (
			mem       models.Memory
			topicID   sql.NullString
			messageID sql.NullString
			lastUsed  sql.NullTime
		)

		err := rows.Scan(&mem.ID, &mem.Content, &mem.Type, &mem.Source,
			&topicID, &messageID, &mem.UseCount, &lastUsed, &mem.CreatedAt, &mem.UpdatedAt)
		if err != nil {
			return nil, err
		}

		applyMemoryNulls(&mem, topicID, messageID, lastUsed)
		memories = append(memories, mem)
	}

	return memories, rows.Err()
}

func applyMemoryNulls(mem *models.Memory, topicID, messageID sql.NullString, lastUsed sql.NullTime) {
	if topicID.Valid {
		mem.SourceTopicID = topicID.String
	}
	if messageID.Valid {
		mem.SourceMessageID = messageID.String
	}
	if lastUsed.Valid {
		mem.LastUsedAt = lastUsed.Time
	}
}
