// ABOUTME: Tests for flowmo storage operations
// ABOUTME: Verifies CRUD, latest-capture lookup, and nullify-on-delete
package sqlite

import (
	"fmt"
	"testing"
	"time"

	"github.com/harper/secondme/internal/models"
)

func TestFlowmoCRUD(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	store := NewFlowmoStore(db)

	f := &models.Flowmo{
		ID:      "f1",
		Content: "Shipped the importer today",
		Source:  models.FlowmoSourceDirect,
	}
	if err := store.Save(f); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	retrieved, err := store.GetByID("f1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if retrieved == nil {
		t.Fatal("GetByID() returned nil")
	}
	if retrieved.Source != models.FlowmoSourceDirect {
		t.Errorf("Source = %v, want direct", retrieved.Source)
	}

	if err := store.Delete("f1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	deleted, err := store.GetByID("f1")
	if err != nil {
		t.Fatalf("GetByID() after delete error = %v", err)
	}
	if deleted != nil {
		t.Error("GetByID() should return nil after delete")
	}
}

func TestFlowmoLatestChatByTopic(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	topicStore := NewTopicStore(db)
	if err := topicStore.Save(&models.Topic{ID: "ft", Title: models.FlowmoTopicTitle, IsFlowmo: true}); err != nil {
		t.Fatalf("Save topic error = %v", err)
	}

	store := NewFlowmoStore(db)
	base := time.Now().UTC()

	flowmos := []*models.Flowmo{
		{ID: "f1", Content: "first capture", Source: models.FlowmoSourceChat, TopicID: "ft", CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "f2", Content: "direct note", Source: models.FlowmoSourceDirect, CreatedAt: base.Add(-time.Hour)},
		{ID: "f3", Content: "latest capture", Source: models.FlowmoSourceChat, TopicID: "ft", CreatedAt: base},
	}
	for _, f := range flowmos {
		if err := store.Save(f); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	latest, err := store.LatestChatByTopic("ft")
	if err != nil {
		t.Fatalf("LatestChatByTopic() error = %v", err)
	}
	if latest == nil {
		t.Fatal("LatestChatByTopic() returned nil")
	}
	if latest.ID != "f3" {
		t.Errorf("ID = %v, want f3 (most recent chat capture)", latest.ID)
	}
}

func TestFlowmoNullifyOnTopicDelete(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	topicStore := NewTopicStore(db)
	msgStore := NewMessageStore(db)
	store := NewFlowmoStore(db)

	if err := topicStore.Save(&models.Topic{ID: "ft", Title: models.FlowmoTopicTitle, IsFlowmo: true}); err != nil {
		t.Fatalf("Save topic error = %v", err)
	}
	if err := msgStore.Save(&models.Message{ID: "msg1", TopicID: "ft", Role: models.RoleUser, Content: "note"}); err != nil {
		t.Fatalf("Save message error = %v", err)
	}

	f := &models.Flowmo{ID: "f1", Content: "note", Source: models.FlowmoSourceChat, TopicID: "ft", MessageID: "msg1"}
	if err := store.Save(f); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := topicStore.Delete("ft"); err != nil {
		t.Fatalf("Delete topic error = %v", err)
	}

	survived, err := store.GetByID("f1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if survived == nil {
		t.Fatal("Flowmo should survive topic deletion")
	}
	if survived.TopicID != "" || survived.MessageID != "" {
		t.Errorf("references = (%v,%v), want empty after topic delete", survived.TopicID, survived.MessageID)
	}
}

func TestFlowmoListAndDeleteAll(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	store := NewFlowmoStore(db)

	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		f := &models.Flowmo{
			ID:        fmt.Sprintf("f%d", i),
			Content:   fmt.Sprintf("note %d", i),
			Source:    models.FlowmoSourceDirect,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Save(f); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	list, err := store.List(2, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() count = %v, want 2", len(list))
	}
	if list[0].ID != "f3" {
		t.Errorf("List()[0].ID = %v, want f3 (newest first)", list[0].ID)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 4 {
		t.Errorf("Count() = %v, want 4", count)
	}

	removed, err := store.DeleteAll()
	if err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if removed != 4 {
		t.Errorf("DeleteAll() = %v, want 4", removed)
	}
}
