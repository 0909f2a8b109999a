// ABOUTME: Tests for topic storage operations
// ABOUTME: Verifies CRUD, boundary pointer, and watermark updates
package sqlite

import (
	"testing"
	"time"

	"github.com/harper/secondme/internal/models"
)

func TestTopicCRUD(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	store := NewTopicStore(db)

	topic := &models.Topic{
		ID:        "topic_1",
		Title:     "Trip planning",
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Save(topic); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	retrieved, err := store.GetByID("topic_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if retrieved == nil {
		t.Fatal("GetByID() returned nil")
	}
	if retrieved.Title != "Trip planning" {
		t.Errorf("Title = %v, want Trip planning", retrieved.Title)
	}
	if retrieved.IsFlowmo {
		t.Error("IsFlowmo = true, want false")
	}

	if err := store.UpdateTitle("topic_1", "Japan trip"); err != nil {
		t.Fatalf("UpdateTitle() error = %v", err)
	}
	updated, err := store.GetByID("topic_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.Title != "Japan trip" {
		t.Errorf("Title = %v, want Japan trip", updated.Title)
	}

	if err := store.Delete("topic_1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	deleted, err := store.GetByID("topic_1")
	if err != nil {
		t.Fatalf("GetByID() after delete error = %v", err)
	}
	if deleted != nil {
		t.Error("GetByID() should return nil after delete")
	}
}

func TestTopicList(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	store := NewTopicStore(db)

	base := time.Now().UTC()
	topics := []*models.Topic{
		{ID: "t1", Title: "oldest", CreatedAt: base.Add(-2 * time.Hour), UpdatedAt: base.Add(-2 * time.Hour)},
		{ID: "t2", Title: "newest", CreatedAt: base.Add(-1 * time.Hour), UpdatedAt: base},
		{ID: "t3", Title: "middle", CreatedAt: base.Add(-90 * time.Minute), UpdatedAt: base.Add(-time.Hour)},
	}
	for _, topic := range topics {
		if err := store.Save(topic); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() count = %v, want 3", len(list))
	}
	if list[0].Title != "newest" {
		t.Errorf("List()[0].Title = %v, want newest", list[0].Title)
	}
}

func TestFlowmoTopicSingleton(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	store := NewTopicStore(db)

	missing, err := store.GetFlowmoTopic()
	if err != nil {
		t.Fatalf("GetFlowmoTopic() error = %v", err)
	}
	if missing != nil {
		t.Error("GetFlowmoTopic() should return nil before creation")
	}

	topic := &models.Topic{
		ID:       "flowmo_topic",
		Title:    models.FlowmoTopicTitle,
		IsFlowmo: true,
	}
	if err := store.Save(topic); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	found, err := store.GetFlowmoTopic()
	if err != nil {
		t.Fatalf("GetFlowmoTopic() error = %v", err)
	}
	if found == nil {
		t.Fatal("GetFlowmoTopic() returned nil")
	}
	if found.ID != "flowmo_topic" {
		t.Errorf("ID = %v, want flowmo_topic", found.ID)
	}
	if !found.IsFlowmo {
		t.Error("IsFlowmo = false, want true")
	}
}

func TestFlowmoBoundaryPointer(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	store := NewTopicStore(db)

	topic := &models.Topic{ID: "ft", Title: models.FlowmoTopicTitle, IsFlowmo: true}
	if err := store.Save(topic); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.GetByID("ft")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !loaded.FlowmoBoundaryAt.IsZero() {
		t.Error("FlowmoBoundaryAt should be zero before first capture")
	}

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	if err := store.SetFlowmoBoundary("ft", "msg_42", at); err != nil {
		t.Fatalf("SetFlowmoBoundary() error = %v", err)
	}

	loaded, err = store.GetByID("ft")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if loaded.FlowmoBoundaryMessageID != "msg_42" {
		t.Errorf("FlowmoBoundaryMessageID = %v, want msg_42", loaded.FlowmoBoundaryMessageID)
	}
	if !loaded.FlowmoBoundaryAt.Equal(at) {
		t.Errorf("FlowmoBoundaryAt = %v, want %v", loaded.FlowmoBoundaryAt, at)
	}
}

func TestExtractionWatermark(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	store := NewTopicStore(db)

	topic := &models.Topic{ID: "t1", Title: "chat"}
	if err := store.Save(topic); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.SetExtractedMessage("t1", "msg_9"); err != nil {
		t.Fatalf("SetExtractedMessage() error = %v", err)
	}

	loaded, err := store.GetByID("t1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if loaded.ExtractedMessageID != "msg_9" {
		t.Errorf("ExtractedMessageID = %v, want msg_9", loaded.ExtractedMessageID)
	}
}
