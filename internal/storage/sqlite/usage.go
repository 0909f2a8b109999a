// ABOUTME: Memory usage log operations for SQLite
// ABOUTME: Append-only records of prompt injections, joined for the detail view
package sqlite

import (
	"database/sql"
	"time"

	"github.com/harper/secondme/internal/models"
)

// UsageStore handles the memory usage log
type UsageStore struct {
	db *DB
}

// NewUsageStore creates a new UsageStore
func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

// Record appends one usage entry
func (s *UsageStore) Record(memoryID, topicID, messageID string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO memory_usage (memory_id, topic_id, message_id, used_at)
		VALUES (?, ?, ?, ?)
	`, memoryID, nullString(topicID), nullString(messageID), at)
	return err
}

// ListByMemory returns a memory's usage entries newest first, joined
// with the topic title where the topic still exists
func (s *UsageStore) ListByMemory(memoryID string, limit int) ([]models.UsageDetail, error) {
	rows, err := s.db.Query(`
		SELECT u.id, u.memory_id, u.topic_id, u.message_id, u.used_at, t.title
		FROM memory_usage u
		LEFT JOIN topics t ON t.id = u.topic_id
		WHERE u.memory_id = ?
		ORDER BY u.used_at DESC, u.id DESC
		LIMIT ?
	`, memoryID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var details []models.UsageDetail
	for rows.Next() {
		var (
			d         models.UsageDetail
			topicID   sql.NullString
			messageID sql.NullString
			title     sql.NullString
		)

		err := rows.Scan(&d.ID, &d.MemoryID, &topicID, &messageID, &d.UsedAt, &title)
		if err != nil {
			return nil, err
		}

		if topicID.Valid {
			d.TopicID = topicID.String
		}
		if messageID.Valid {
			d.MessageID = messageID.String
		}
		if title.Valid {
			d.TopicTitle = title.String
		}
		details = append(details, d)
	}

	return details, rows.Err()
}

// CountByMemory returns the number of usage entries for a memory
func (s *UsageStore) CountByMemory(memoryID string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM memory_usage WHERE memory_id = ?
	`, memoryID).Scan(&count)
	return count, err
}
