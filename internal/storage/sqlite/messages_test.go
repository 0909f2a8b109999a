// ABOUTME: Tests for message storage operations
// ABOUTME: Verifies window queries, cascade deletion, and incomplete flag
package sqlite

import (
	"fmt"
	"testing"
	"time"

	"github.com/harper/secondme/internal/models"
)

func seedTopic(t *testing.T, db *DB, id string) {
	t.Helper()
	if err := NewTopicStore(db).Save(&models.Topic{ID: id, Title: "test"}); err != nil {
		t.Fatalf("Save topic error = %v", err)
	}
}

func TestMessageSaveAndList(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	seedTopic(t, db, "t1")
	store := NewMessageStore(db)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		msg := &models.Message{
			ID:        fmt.Sprintf("m%d", i),
			TopicID:   "t1",
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Save(msg); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	all, err := store.ListByTopic("t1")
	if err != nil {
		t.Fatalf("ListByTopic() error = %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("ListByTopic() count = %v, want 5", len(all))
	}
	if all[0].ID != "m0" || all[4].ID != "m4" {
		t.Errorf("ListByTopic() order = %v..%v, want m0..m4", all[0].ID, all[4].ID)
	}

	count, err := store.CountByTopic("t1")
	if err != nil {
		t.Fatalf("CountByTopic() error = %v", err)
	}
	if count != 5 {
		t.Errorf("CountByTopic() = %v, want 5", count)
	}
}

func TestMessageListRecent(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	seedTopic(t, db, "t1")
	store := NewMessageStore(db)

	base := time.Now().UTC()
	for i := 0; i < 10; i++ {
		msg := &models.Message{
			ID:        fmt.Sprintf("m%d", i),
			TopicID:   "t1",
			Role:      models.RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Save(msg); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	recent, err := store.ListRecent("t1", 3)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("ListRecent() count = %v, want 3", len(recent))
	}
	// Chronological order, last three
	if recent[0].ID != "m7" || recent[2].ID != "m9" {
		t.Errorf("ListRecent() = %v..%v, want m7..m9", recent[0].ID, recent[2].ID)
	}
}

func TestMessageListFromMessage(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	seedTopic(t, db, "t1")
	store := NewMessageStore(db)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		msg := &models.Message{
			ID:        fmt.Sprintf("m%d", i),
			TopicID:   "t1",
			Role:      models.RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Save(msg); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	window, err := store.ListFromMessage("t1", "m2")
	if err != nil {
		t.Fatalf("ListFromMessage() error = %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("ListFromMessage() count = %v, want 2 (anchor inclusive)", len(window))
	}
	if window[0].ID != "m2" {
		t.Errorf("ListFromMessage()[0].ID = %v, want m2", window[0].ID)
	}

	all, err := store.ListFromMessage("t1", "")
	if err != nil {
		t.Fatalf("ListFromMessage(empty) error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("ListFromMessage(empty) count = %v, want 4", len(all))
	}
}

func TestMessageListFromMessageSharedTimestamp(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	seedTopic(t, db, "t1")
	store := NewMessageStore(db)

	// m1 and the anchor m2 share an exact timestamp; only the anchor
	// and later messages belong to the window
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, m := range []models.Message{
		{ID: "m1", TopicID: "t1", Role: models.RoleUser, Content: "earlier", CreatedAt: at},
		{ID: "m2", TopicID: "t1", Role: models.RoleUser, Content: "anchor", CreatedAt: at},
		{ID: "m3", TopicID: "t1", Role: models.RoleAssistant, Content: "later", CreatedAt: at.Add(time.Second)},
	} {
		msg := m
		if err := store.Save(&msg); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	window, err := store.ListFromMessage("t1", "m2")
	if err != nil {
		t.Fatalf("ListFromMessage() error = %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("ListFromMessage() count = %v, want 2", len(window))
	}
	if window[0].ID != "m2" || window[1].ID != "m3" {
		t.Errorf("ListFromMessage() = %v,%v, want m2,m3", window[0].ID, window[1].ID)
	}
}

func TestMessageListAfterMessage(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	seedTopic(t, db, "t1")
	store := NewMessageStore(db)

	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		msg := &models.Message{
			ID:        fmt.Sprintf("m%d", i),
			TopicID:   "t1",
			Role:      models.RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Save(msg); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	after, err := store.ListAfterMessage("t1", "m1")
	if err != nil {
		t.Fatalf("ListAfterMessage() error = %v", err)
	}
	if len(after) != 2 {
		t.Fatalf("ListAfterMessage() count = %v, want 2 (strictly after)", len(after))
	}
	if after[0].ID != "m2" || after[1].ID != "m3" {
		t.Errorf("ListAfterMessage() = %v,%v, want m2,m3", after[0].ID, after[1].ID)
	}

	all, err := store.ListAfterMessage("t1", "")
	if err != nil {
		t.Fatalf("ListAfterMessage(empty) error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("ListAfterMessage(empty) count = %v, want 4", len(all))
	}
}

func TestMessageIncompleteFlag(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	seedTopic(t, db, "t1")
	store := NewMessageStore(db)

	msg := &models.Message{
		ID:         "m_partial",
		TopicID:    "t1",
		Role:       models.RoleAssistant,
		Content:    "the stream cut off he",
		Incomplete: true,
	}
	if err := store.Save(msg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	retrieved, err := store.GetByID("m_partial")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !retrieved.Incomplete {
		t.Error("Incomplete = false, want true")
	}
}

func TestMessageCascadeOnTopicDelete(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	seedTopic(t, db, "t1")
	topicStore := NewTopicStore(db)
	msgStore := NewMessageStore(db)

	msg := &models.Message{ID: "m1", TopicID: "t1", Role: models.RoleUser, Content: "hi"}
	if err := msgStore.Save(msg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := topicStore.Delete("t1"); err != nil {
		t.Fatalf("Delete topic error = %v", err)
	}

	deleted, err := msgStore.GetByID("m1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if deleted != nil {
		t.Error("Message should be cascade-deleted with its topic")
	}
}
