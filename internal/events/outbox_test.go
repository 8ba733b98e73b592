package events

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stmt := `CREATE TABLE billing_events (
		id BIGINT PRIMARY KEY,
		event_type TEXT NOT NULL,
		source_id BIGINT NOT NULL,
		payload TEXT,
		dedupe_key TEXT UNIQUE,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func newTestNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func TestOutboxPublish(t *testing.T) {
	db := newOutboxTestDB(t)
	outbox := NewOutbox(db, newTestNode(t))
	ctx := context.Background()

	err := outbox.Publish(ctx, Event{
		Type:     EventInvoiceCreated,
		SourceID: 42,
		Payload:  map[string]any{"amount": 100000},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM billing_events`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}

func TestOutboxPublishDedupe(t *testing.T) {
	db := newOutboxTestDB(t)
	outbox := NewOutbox(db, newTestNode(t))
	ctx := context.Background()

	event := Event{
		Type:      EventInvoicePaid,
		SourceID:  42,
		DedupeKey: "invoice.paid:42",
	}
	for i := 0; i < 3; i++ {
		if err := outbox.Publish(ctx, event); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM billing_events WHERE dedupe_key = ?`, event.DedupeKey).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected deduped single event, got %d", count)
	}
}

func TestOutboxPublishValidation(t *testing.T) {
	db := newOutboxTestDB(t)
	outbox := NewOutbox(db, newTestNode(t))
	ctx := context.Background()

	if err := outbox.Publish(ctx, Event{SourceID: 1}); err == nil {
		t.Fatal("expected error for missing event type")
	}
	if err := outbox.Publish(ctx, Event{Type: EventInvoiceCreated}); err == nil {
		t.Fatal("expected error for missing source id")
	}
	if err := outbox.PublishTx(ctx, nil, Event{Type: EventInvoiceCreated, SourceID: 1}); err == nil {
		t.Fatal("expected error for nil transaction")
	}
}

func TestOutboxPublishTxRollback(t *testing.T) {
	db := newOutboxTestDB(t)
	outbox := NewOutbox(db, newTestNode(t))
	ctx := context.Background()

	tx := db.Begin()
	if err := outbox.PublishTx(ctx, tx, Event{Type: EventInvoiceCreated, SourceID: 7}); err != nil {
		t.Fatalf("publish tx: %v", err)
	}
	tx.Rollback()

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM billing_events`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to discard event, got %d rows", count)
	}
}
