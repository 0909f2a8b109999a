// ABOUTME: Topic storage operations for SQLite
// ABOUTME: Implements CRUD plus boundary and watermark pointer updates
package sqlite

import (
	"database/sql"
	"time"

	"github.com/harper/secondme/internal/models"
)

// TopicStore handles topic persistence
type TopicStore struct {
	db *DB
}

// NewTopicStore creates a new TopicStore
func NewTopicStore(db *DB) *TopicStore {
	return &TopicStore{db: db}
}

// Save saves a topic
func (s *TopicStore) Save(topic *models.Topic) error {
	createdAt := topic.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := topic.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.db.Exec(`
		INSERT INTO topics (id, title, is_flowmo, flowmo_boundary_message_id, flowmo_boundary_at, extracted_message_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			is_flowmo = excluded.is_flowmo,
			flowmo_boundary_message_id = excluded.flowmo_boundary_message_id,
			flowmo_boundary_at = excluded.flowmo_boundary_at,
			extracted_message_id = excluded.extracted_message_id,
			updated_at = excluded.updated_at
	`, topic.ID, topic.Title, topic.IsFlowmo,
		nullString(topic.FlowmoBoundaryMessageID), nullTime(topic.FlowmoBoundaryAt),
		nullString(topic.ExtractedMessageID), createdAt, updatedAt)

	return err
}

// GetByID retrieves a topic by its ID
func (s *TopicStore) GetByID(topicID string) (*models.Topic, error) {
	row := s.db.QueryRow(`
		SELECT id, title, is_flowmo, flowmo_boundary_message_id, flowmo_boundary_at, extracted_message_id, created_at, updated_at
		FROM topics
		WHERE id = ?
	`, topicID)

	return scanTopic(row)
}

// GetFlowmoTopic retrieves the singleton reflection topic, or nil if it
// has not been created yet
func (s *TopicStore) GetFlowmoTopic() (*models.Topic, error) {
	row := s.db.QueryRow(`
		SELECT id, title, is_flowmo, flowmo_boundary_message_id, flowmo_boundary_at, extracted_message_id, created_at, updated_at
		FROM topics
		WHERE is_flowmo = 1
		LIMIT 1
	`)

	return scanTopic(row)
}

// List returns all topics ordered by most recent activity
func (s *TopicStore) List() ([]models.Topic, error) {
	rows, err := s.db.Query(`
		SELECT id, title, is_flowmo, flowmo_boundary_message_id, flowmo_boundary_at, extracted_message_id, created_at, updated_at
		FROM topics
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var topics []models.Topic
	for rows.Next() {
		topic, err := scanTopicRow(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *topic)
	}
	return topics, rows.Err()
}

// UpdateTitle updates a topic's title
func (s *TopicStore) UpdateTitle(topicID, title string) error {
	_, err := s.db.Exec(`
		UPDATE topics SET title = ?, updated_at = ? WHERE id = ?
	`, title, time.Now().UTC(), topicID)
	return err
}

// Touch bumps a topic's updated_at to the given time
func (s *TopicStore) Touch(topicID string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE topics SET updated_at = ? WHERE id = ?
	`, at, topicID)
	return err
}

// SetFlowmoBoundary moves the capture boundary pointer
func (s *TopicStore) SetFlowmoBoundary(topicID, messageID string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE topics SET flowmo_boundary_message_id = ?, flowmo_boundary_at = ? WHERE id = ?
	`, messageID, at, topicID)
	return err
}

// SetExtractedMessage advances the extraction watermark
func (s *TopicStore) SetExtractedMessage(topicID, messageID string) error {
	_, err := s.db.Exec(`
		UPDATE topics SET extracted_message_id = ? WHERE id = ?
	`, messageID, topicID)
	return err
}

// Delete deletes a topic; its messages cascade with it
func (s *TopicStore) Delete(topicID string) error {
	_, err := s.db.Exec("DELETE FROM topics WHERE id = ?", topicID)
	return err
}

func scanTopic(row *sql.Row) (*models.Topic, error) {
	var (
		topic      models.Topic
		boundaryID sql.NullString
		boundaryAt sql.NullTime
		extracted  sql.NullString
	)

	err := row.Scan(&topic.ID, &topic.Title, &topic.IsFlowmo,
		&boundaryID, &boundaryAt, &extracted, &topic.CreatedAt, &topic.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	applyTopicNulls(&topic, boundaryID, boundaryAt, extracted)
	return &topic, nil
}

func scanTopicRow(rows *sql.Rows) (*models.Topic, error) {
	var (
		topic      models.Topic
		boundaryID sql.NullString
		boundaryAt sql.NullTime
		extracted  sql.NullString
	)

	err := rows.Scan(&topic.ID, &topic.Title, &topic.IsFlowmo,
		&boundaryID, &boundaryAt, &extracted, &topic.CreatedAt, &topic.UpdatedAt)
	if err != nil {
		return nil, err
	}

	applyTopicNulls(&topic, boundaryID, boundaryAt, extracted)
	return &topic, nil
}

func applyTopicNulls(topic *models.Topic, boundaryID sql.NullString, boundaryAt sql.NullTime, extracted sql.NullString) {
	if boundaryID.Valid {
		topic.FlowmoBoundaryMessageID = boundaryID.String
	}
	if boundaryAt.Valid {
		topic.FlowmoBoundaryAt = boundaryAt.Time
	}
	if extracted.Valid {
		topic.ExtractedMessageID = extracted.String
	}
}

// nullString converts an empty string to sql.NullString
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTime converts a zero time to sql.NullTime
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: t, Valid: true}
}
