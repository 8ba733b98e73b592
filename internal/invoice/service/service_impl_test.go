package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/actorcontext"
	auditservice "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/audit/service"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/clock"
	directoryservice "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory/service"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/events"
	invoicedomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/invoice/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/hub"
	messagingservice "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/service"
	notificationservice "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/notification/service"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	statements := []string{
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			role TEXT NOT NULL,
			password_hash TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE clients (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE,
			company_name TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE influencers (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE projects (
			id BIGINT PRIMARY KEY,
			client_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			project_id BIGINT NOT NULL,
			client_id BIGINT NOT NULL,
			influencer_id BIGINT NOT NULL,
			invoice_number TEXT NOT NULL UNIQUE,
			amount BIGINT NOT NULL,
			tax_amount BIGINT NOT NULL,
			total_amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			due_at DATETIME NOT NULL,
			paid_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE notifications (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			payload TEXT,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME
		)`,
		`CREATE TABLE project_messages (
			id BIGINT PRIMARY KEY,
			project_id BIGINT NOT NULL,
			sender_id BIGINT,
			kind TEXT NOT NULL DEFAULT 'user',
			body TEXT NOT NULL,
			created_at DATETIME
		)`,
		`CREATE TABLE billing_events (
			id BIGINT PRIMARY KEY,
			event_type TEXT NOT NULL,
			source_id BIGINT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME
		)`,
		`CREATE TABLE audit_logs (
			id BIGINT PRIMARY KEY,
			actor_id BIGINT,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT,
			metadata TEXT,
			created_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}

	seeds := []string{
		`INSERT INTO users (id, email, display_name, role) VALUES
			(10, 'client@example.com', 'Acme', 'CLIENT'),
			(20, 'creator@example.com', 'Hana', 'INFLUENCER'),
			(11, 'other@example.com', 'Other Co', 'CLIENT')`,
		`INSERT INTO clients (id, user_id, company_name) VALUES
			(100, 10, 'Acme'),
			(101, 11, 'Other Co')`,
		`INSERT INTO influencers (id, user_id, display_name) VALUES (200, 20, 'Hana')`,
		`INSERT INTO projects (id, client_id, title) VALUES (300, 100, '夏キャンペーン')`,
	}
	for _, stmt := range seeds {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

func newInvoiceService(t *testing.T, db *gorm.DB) invoicedomain.Service {
	t.Helper()
	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	directory := directoryservice.NewService(directoryservice.Params{DB: db, Log: log})
	notifications := notificationservice.NewService(notificationservice.Params{DB: db, Log: log, GenID: node})
	messages := messagingservice.NewService(messagingservice.Params{
		DB:              db,
		Log:             log,
		GenID:           node,
		Hub:             hub.New(log),
		DirectorySvc:    directory,
		NotificationSvc: notifications,
	})
	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node})

	return NewService(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         clock.FixedClock{At: testNow},
		Directory:     directory,
		Notifications: notifications,
		Messages:      messages,
		Outbox:        events.NewOutbox(db, node),
		Audit:         audit,
	})
}

func clientCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{UserID: 10, Role: actorcontext.RoleClient})
}

func influencerCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{UserID: 20, Role: actorcontext.RoleInfluencer})
}

func countRows(t *testing.T, db *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count query: %v", err)
	}
	return count
}

func mustCreate(t *testing.T, svc invoicedomain.Service, amount int64) *invoicedomain.Invoice {
	t.Helper()
	inv, err := svc.Create(clientCtx(), invoicedomain.CreateInvoiceRequest{
		ProjectID:    300,
		InfluencerID: 200,
		Amount:       amount,
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

func TestCreateComputesTaxAndDueDate(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	inv := mustCreate(t, svc, 100000)
	if inv.TaxAmount != 10000 {
		t.Errorf("tax = %d, want 10000", inv.TaxAmount)
	}
	if inv.TotalAmount != 110000 {
		t.Errorf("total = %d, want 110000", inv.TotalAmount)
	}
	if inv.Status != invoicedomain.StatusPending {
		t.Errorf("status = %s, want PENDING", inv.Status)
	}
	if want := testNow.Add(30 * 24 * time.Hour); !inv.DueAt.Equal(want) {
		t.Errorf("due = %v, want %v", inv.DueAt, want)
	}
	if inv.PaidAt != nil {
		t.Errorf("paid_at should be nil on creation")
	}
}

func TestCreateFloorsTax(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	// 10% of 1999 is 199.9; integer yen floors it.
	inv := mustCreate(t, svc, 1999)
	if inv.TaxAmount != 199 {
		t.Errorf("tax = %d, want 199", inv.TaxAmount)
	}
	if inv.TotalAmount != 2198 {
		t.Errorf("total = %d, want 2198", inv.TotalAmount)
	}
}

func TestCreateRejectsNegativeAmount(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	_, err := svc.Create(clientCtx(), invoicedomain.CreateInvoiceRequest{
		ProjectID:    300,
		InfluencerID: 200,
		Amount:       -1,
	})
	if !errors.Is(err, invoicedomain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateRequiresProjectOwnership(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	otherClient := actorcontext.WithActor(context.Background(), actorcontext.Actor{UserID: 11, Role: actorcontext.RoleClient})
	_, err := svc.Create(otherClient, invoicedomain.CreateInvoiceRequest{
		ProjectID:    300,
		InfluencerID: 200,
		Amount:       1000,
	})
	if !errors.Is(err, invoicedomain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owning client, got %v", err)
	}
}

func TestCreateForbiddenForInfluencer(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	_, err := svc.Create(influencerCtx(), invoicedomain.CreateInvoiceRequest{
		ProjectID:    300,
		InfluencerID: 200,
		Amount:       1000,
	})
	if !errors.Is(err, invoicedomain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateDispatchesSideEffects(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	inv := mustCreate(t, svc, 50000)

	// Notification lands on the owning client's user.
	if got := countRows(t, db, `SELECT COUNT(*) FROM notifications WHERE user_id = 10 AND type = 'PAYMENT_COMPLETED'`); got != 1 {
		t.Errorf("client notifications = %d, want 1", got)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM project_messages WHERE project_id = 300 AND kind = 'system'`); got != 1 {
		t.Errorf("system messages = %d, want 1", got)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM billing_events WHERE event_type = 'invoice.created' AND source_id = ?`, inv.ID); got != 1 {
		t.Errorf("outbox events = %d, want 1", got)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM audit_logs WHERE action = 'invoice.create'`); got != 1 {
		t.Errorf("audit rows = %d, want 1", got)
	}
}

func TestCreateSurvivesNotificationFailure(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	// Dropping the sink table makes every notification write fail; the
	// invoice must still persist.
	if err := db.Exec(`DROP TABLE notifications`).Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}

	inv := mustCreate(t, svc, 1000)
	if got := countRows(t, db, `SELECT COUNT(*) FROM invoices WHERE id = ?`, inv.ID); got != 1 {
		t.Fatalf("invoice not persisted after notification failure")
	}
}

func TestGetByIDRoundTrip(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	created := mustCreate(t, svc, 100000)

	fetched, err := svc.GetByID(clientCtx(), created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if fetched.Amount != created.Amount ||
		fetched.TaxAmount != created.TaxAmount ||
		fetched.TotalAmount != created.TotalAmount ||
		fetched.Status != created.Status ||
		fetched.InvoiceNumber != created.InvoiceNumber {
		t.Fatalf("round-trip mismatch: created %+v fetched %+v", created, fetched)
	}
}

func TestGetByIDAccessControl(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	inv := mustCreate(t, svc, 1000)

	// The payee influencer can read it.
	if _, err := svc.GetByID(influencerCtx(), inv.ID); err != nil {
		t.Fatalf("influencer read: %v", err)
	}

	// An unrelated client cannot.
	otherClient := actorcontext.WithActor(context.Background(), actorcontext.Actor{UserID: 11, Role: actorcontext.RoleClient})
	if _, err := svc.GetByID(otherClient, inv.ID); !errors.Is(err, invoicedomain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	_, err := svc.GetByID(clientCtx(), 999999)
	if !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestMarkAsPaid(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	inv := mustCreate(t, svc, 100000)

	paid, err := svc.MarkAsPaid(clientCtx(), inv.ID)
	if err != nil {
		t.Fatalf("mark as paid: %v", err)
	}
	if paid.Status != invoicedomain.StatusPaid {
		t.Errorf("status = %s, want PAID", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Errorf("paid_at not set")
	}

	// Exactly one payment notification reaches the influencer's user.
	if got := countRows(t, db, `SELECT COUNT(*) FROM notifications WHERE user_id = 20 AND type = 'PAYMENT_COMPLETED'`); got != 1 {
		t.Errorf("influencer notifications = %d, want 1", got)
	}
}

func TestMarkAsPaidAtMostOnce(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	inv := mustCreate(t, svc, 100000)

	if _, err := svc.MarkAsPaid(clientCtx(), inv.ID); err != nil {
		t.Fatalf("first mark as paid: %v", err)
	}
	_, err := svc.MarkAsPaid(clientCtx(), inv.ID)
	if !errors.Is(err, invoicedomain.ErrInvoiceNotPending) {
		t.Fatalf("expected ErrInvoiceNotPending on second call, got %v", err)
	}

	if got := countRows(t, db, `SELECT COUNT(*) FROM notifications WHERE user_id = 20 AND type = 'PAYMENT_COMPLETED'`); got != 1 {
		t.Fatalf("influencer notifications = %d, want exactly 1", got)
	}
}

func TestMarkAsPaidNotFound(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	_, err := svc.MarkAsPaid(clientCtx(), 999999)
	if !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestMarkAsOverdueEmitsNoNotification(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	inv := mustCreate(t, svc, 1000)
	before := countRows(t, db, `SELECT COUNT(*) FROM notifications`)

	overdue, err := svc.MarkAsOverdue(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("mark as overdue: %v", err)
	}
	if overdue.Status != invoicedomain.StatusOverdue {
		t.Errorf("status = %s, want OVERDUE", overdue.Status)
	}

	after := countRows(t, db, `SELECT COUNT(*) FROM notifications`)
	if after != before {
		t.Fatalf("overdue transition created %d notifications", after-before)
	}
}

func TestMarkAsOverdueRejectsPaid(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	inv := mustCreate(t, svc, 1000)
	if _, err := svc.MarkAsPaid(clientCtx(), inv.ID); err != nil {
		t.Fatalf("mark as paid: %v", err)
	}

	_, err := svc.MarkAsOverdue(context.Background(), inv.ID)
	if !errors.Is(err, invoicedomain.ErrInvoiceNotPending) {
		t.Fatalf("expected ErrInvoiceNotPending, got %v", err)
	}
}

func TestListPendingOldestFirst(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	first := mustCreate(t, svc, 1000)
	second := mustCreate(t, svc, 2000)
	paid := mustCreate(t, svc, 3000)
	if _, err := svc.MarkAsPaid(clientCtx(), paid.ID); err != nil {
		t.Fatalf("mark as paid: %v", err)
	}

	// Fixed clock gives equal created_at, so order the two rows apart.
	if err := db.Exec(`UPDATE invoices SET created_at = ? WHERE id = ?`, testNow.Add(-time.Hour), second.ID).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	resp, err := svc.ListPending(influencerCtx(), invoicedomain.ListPendingRequest{})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(resp.Invoices) != 2 {
		t.Fatalf("pending = %d, want 2", len(resp.Invoices))
	}
	if resp.Invoices[0].ID != second.ID || resp.Invoices[1].ID != first.ID {
		t.Fatalf("expected oldest first, got %v then %v", resp.Invoices[0].ID, resp.Invoices[1].ID)
	}
}

func TestListPendingNoProfileIsEmpty(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)
	mustCreate(t, svc, 1000)

	// User 99 is authenticated but has no influencer profile.
	ctx := actorcontext.WithActor(context.Background(), actorcontext.Actor{UserID: 99, Role: actorcontext.RoleInfluencer})
	resp, err := svc.ListPending(ctx, invoicedomain.ListPendingRequest{})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(resp.Invoices) != 0 {
		t.Fatalf("expected empty list, got %d", len(resp.Invoices))
	}
}

func TestSummaryBuckets(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	mustCreate(t, svc, 1000) // stays PENDING: total 1100
	paid := mustCreate(t, svc, 2000)
	if _, err := svc.MarkAsPaid(clientCtx(), paid.ID); err != nil {
		t.Fatalf("mark as paid: %v", err)
	}

	summary, err := svc.Summary(influencerCtx())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalEarnings != 3300 {
		t.Errorf("total = %d, want 3300", summary.TotalEarnings)
	}
	if summary.Pending != 1100 {
		t.Errorf("pending = %d, want 1100", summary.Pending)
	}
	if summary.Paid != 2200 {
		t.Errorf("paid = %d, want 2200", summary.Paid)
	}
}

func TestSummaryCountsOverdueInTotalOnly(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	overdue := mustCreate(t, svc, 5000)
	if _, err := svc.MarkAsOverdue(context.Background(), overdue.ID); err != nil {
		t.Fatalf("mark as overdue: %v", err)
	}

	summary, err := svc.Summary(influencerCtx())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalEarnings != 5500 {
		t.Errorf("total = %d, want 5500", summary.TotalEarnings)
	}
	if summary.Pending != 0 || summary.Paid != 0 {
		t.Errorf("overdue leaked into buckets: %+v", summary)
	}
}

func TestSummaryNoProfileIsZero(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	ctx := actorcontext.WithActor(context.Background(), actorcontext.Actor{UserID: 99, Role: actorcontext.RoleInfluencer})
	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary != (invoicedomain.InvoiceSummary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestInvoiceNumberPersistedFormat(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newInvoiceService(t, db)

	inv := mustCreate(t, svc, 1000)
	if want := "INV-20250601-"; len(inv.InvoiceNumber) != len(want)+4 || inv.InvoiceNumber[:len(want)] != want {
		t.Fatalf("invoice number %q does not match INV-20250601-NNNN", inv.InvoiceNumber)
	}
}
