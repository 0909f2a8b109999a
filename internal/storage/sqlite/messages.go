// ABOUTME: Message storage operations for SQLite
// ABOUTME: Implements message persistence and window queries for prompt assembly
package sqlite

import (
	"database/sql"
	"time"

	"github.com/harper/secondme/internal/models"
)

// MessageStore handles message persistence
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a new MessageStore
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Save saves a message
func (s *MessageStore) Save(msg *models.Message) error {
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (id, topic_id, role, content, incomplete, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			incomplete = excluded.incomplete
	`, msg.ID, msg.TopicID, msg.Role, msg.Content, msg.Incomplete, createdAt)

	return err
}

// GetByID retrieves a message by its ID
func (s *MessageStore) GetByID(messageID string) (*models.Message, error) {
	var msg models.Message

	err := s.db.QueryRow(`
		SELECT id, topic_id, role, content, incomplete, created_at
		FROM messages
		WHERE id = ?
	`, messageID).Scan(&msg.ID, &msg.TopicID, &msg.Role, &msg.Content,
		&msg.Incomplete, &msg.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByTopic returns all messages of a topic in chronological order
func (s *MessageStore) ListByTopic(topicID string) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, topic_id, role, content, incomplete, created_at
		FROM messages
		WHERE topic_id = ?
		ORDER BY created_at ASC, id ASC
	`, topicID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// ListRecent returns the last n messages of a topic in chronological order
func (s *MessageStore) ListRecent(topicID string, n int) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, topic_id, role, content, incomplete, created_at FROM (
			SELECT id, topic_id, role, content, incomplete, created_at
			FROM messages
			WHERE topic_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, topicID, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// ListFromMessage returns a topic's messages from the given message on,
// inclusive, in chronological order. Anchoring on the message id keeps
// a pre-boundary message sharing the anchor's timestamp out of the
// window. Used for the flowmo continuation window.
func (s *MessageStore) ListFromMessage(topicID, fromID string) ([]models.Message, error) {
	if fromID == "" {
		return s.ListByTopic(topicID)
	}

	rows, err := s.db.Query(`
		SELECT m.id, m.topic_id, m.role, m.content, m.incomplete, m.created_at
		FROM messages m, messages w
		WHERE w.id = ? AND m.topic_id = ?
		  AND (m.created_at > w.created_at OR (m.created_at = w.created_at AND m.id >= w.id))
		ORDER BY m.created_at ASC, m.id ASC
	`, fromID, topicID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// ListAfterMessage returns a topic's messages strictly after the given
// message, in chronological order. An empty afterID returns everything.
// Used by the extraction watermark.
func (s *MessageStore) ListAfterMessage(topicID, afterID string) ([]models.Message, error) {
	if afterID == "" {
		return s.ListByTopic(topicID)
	}

	rows, err := s.db.Query(`
		SELECT m.id, m.topic_id, m.role, m.content, m.incomplete, m.created_at
		FROM messages m, messages w
		WHERE w.id = ? AND m.topic_id = ?
		  AND (m.created_at > w.created_at OR (m.created_at = w.created_at AND m.id > w.id))
		ORDER BY m.created_at ASC, m.id ASC
	`, afterID, topicID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// CountByTopic returns the number of messages in a topic
func (s *MessageStore) CountByTopic(topicID string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM messages WHERE topic_id = ?
	`, topicID).Scan(&count)
	return count, err
}

// scanMessages scans rows into a slice of Message
func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var messages []models.Message

	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.TopicID, &msg.Role, &msg.Content,
			&msg.Incomplete, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
