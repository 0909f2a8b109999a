// ABOUTME: Flowmo storage operations for SQLite
// ABOUTME: Implements CRUD and the latest-chat-capture lookup for retraction
package sqlite

import (
	"database/sql"
	"time"

	"github.com/harper/secondme/internal/models"
)

// FlowmoStore handles flowmo persistence
type FlowmoStore struct {
	db *DB
}

// NewFlowmoStore creates a new FlowmoStore
func NewFlowmoStore(db *DB) *FlowmoStore {
	return &FlowmoStore{db: db}
}

// Save saves a flowmo
func (s *FlowmoStore) Save(f *models.Flowmo) error {
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO flowmos (id, content, source, topic_id, message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content
	`, f.ID, f.Content, f.Source, nullString(f.TopicID), nullString(f.MessageID), createdAt)

	return err
}

// GetByID retrieves a flowmo by its ID
func (s *FlowmoStore) GetByID(flowmoID string) (*models.Flowmo, error) {
	row := s.db.QueryRow(`
		SELECT id, content, source, topic_id, message_id, created_at
		FROM flowmos
		WHERE id = ?
	`, flowmoID)

	return scanFlowmoRow(row)
}

// List returns flowmos ordered newest first
func (s *FlowmoStore) List(limit, offset int) ([]models.Flowmo, error) {
	rows, err := s.db.Query(`
		SELECT id, content, source, topic_id, message_id, created_at
		FROM flowmos
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanFlowmos(rows)
}

// Count returns the total number of flowmos
func (s *FlowmoStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM flowmos").Scan(&count)
	return count, err
}

// All returns every flowmo row, for reindexing and backup
func (s *FlowmoStore) All() ([]models.Flowmo, error) {
	rows, err := s.db.Query(`
		SELECT id, content, source, topic_id, message_id, created_at
		FROM flowmos
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanFlowmos(rows)
}

// LatestChatByTopic returns the most recent chat-captured flowmo for a
// topic, or nil if none exists. Used by retraction handling.
func (s *FlowmoStore) LatestChatByTopic(topicID string) (*models.Flowmo, error) {
	row := s.db.QueryRow(`
		SELECT id, content, source, topic_id, message_id, created_at
		FROM flowmos
		WHERE topic_id = ? AND source = 'chat'
		ORDER BY created_at DESC
		LIMIT 1
	`, topicID)

	return scanFlowmoRow(row)
}

// Delete deletes a flowmo by its ID
func (s *FlowmoStore) Delete(flowmoID string) error {
	_, err := s.db.Exec("DELETE FROM flowmos WHERE id = ?", flowmoID)
	return err
}

// DeleteAll deletes every flowmo row and returns the count removed
func (s *FlowmoStore) DeleteAll() (int64, error) {
	result, err := s.db.Exec("DELETE FROM flowmos")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanFlowmoRow(row *sql.Row) (*models.Flowmo, error) {
	var (
		f         models.Flowmo
		topicID   sql.NullString
		messageID sql.NullString
	)

	err := row.Scan(&f.ID, &f.Content, &f.Source, &topicID, &messageID, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if topicID.Valid {
		f.TopicID = topicID.String
	}
	if messageID.Valid {
		f.MessageID = messageID.String
	}
	return &f, nil
}

func scanFlowmos(rows *sql.Rows) ([]models.Flowmo, error) {
	var flowmos []models.Flowmo

	for rows.Next() {
		var (
			f         models.Flowmo
			topicID   sql.NullString
			messageID sql.NullString
		)

		err := rows.Scan(&f.ID, &f.Content, &f.Source, &topicID, &messageID, &f.CreatedAt)
		if err != nil {
			return nil, err
		}

		if topicID.Valid {
			f.TopicID = topicID.String
		}
		if messageID.Valid {
			f.MessageID = messageID.String
		}
		flowmos = append(flowmos, f)
	}

	return flowmos, rows.Err()
}
