package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service is the invoice ledger. All mutations go through the database;
// invoice state is never cached across requests.
type Service interface {
	// Create persists a new PENDING invoice for the caller's project and
	// dispatches best-effort side effects (notification, chat message,
	// outbox event). The invoice write is authoritative: side-effect
	// failures are logged, never surfaced.
	Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)

	// GetByID returns a single invoice. The caller must be the owning
	// client's user or the payee influencer's user.
	GetByID(ctx context.Context, invoiceID snowflake.ID) (*Invoice, error)

	// ListPending returns the caller's PENDING invoices oldest first.
	// A caller with no profile gets an empty page, not an error.
	ListPending(ctx context.Context, req ListPendingRequest) (ListPendingResponse, error)

	// MarkAsPaid performs the atomic PENDING to PAID transition and
	// notifies the payee influencer exactly once. A non-PENDING invoice
	// yields ErrInvoiceNotPending.
	MarkAsPaid(ctx context.Context, invoiceID snowflake.ID) (*Invoice, error)

	// MarkAsOverdue performs the PENDING to OVERDUE transition. Emits no
	// notification. Invoked by the overdue sweep, not by end users.
	MarkAsOverdue(ctx context.Context, invoiceID snowflake.ID) (*Invoice, error)

	// Summary aggregates the calling influencer's earnings.
	Summary(ctx context.Context) (InvoiceSummary, error)
}

var (
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidProject    = errors.New("invalid_project")
	ErrInvalidInfluencer = errors.New("invalid_influencer")
	ErrInvoiceNotFound   = errors.New("invoice_not_found")
	ErrInvoiceNotPending = errors.New("invoice_not_pending")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("unauthenticated")
)
