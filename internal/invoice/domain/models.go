package domain

import (
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus is the invoice lifecycle state. PENDING is the only
// non-terminal state: an invoice moves once to PAID or OVERDUE and
// never transitions again.
type InvoiceStatus string

const (
	StatusPending InvoiceStatus = "PENDING"
	StatusPaid    InvoiceStatus = "PAID"
	StatusOverdue InvoiceStatus = "OVERDUE"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transition.
func (s InvoiceStatus) Terminal() bool {
	return s == StatusPaid || s == StatusOverdue
}

// Invoice is a billable record linking a project, a paying client and a
// receiving influencer. Amounts are integer yen; TotalAmount is always
// Amount + TaxAmount. Invoices are never deleted.
type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProjectID     snowflake.ID  `gorm:"not null;index" json:"project_id"`
	ClientID      snowflake.ID  `gorm:"not null;index" json:"client_id"`
	InfluencerID  snowflake.ID  `gorm:"not null;index" json:"influencer_id"`
	InvoiceNumber string        `gorm:"type:text;not null;uniqueIndex" json:"invoice_number"`
	Amount        int64         `gorm:"not null" json:"amount"`
	TaxAmount     int64         `gorm:"not null" json:"tax_amount"`
	TotalAmount   int64         `gorm:"not null" json:"total_amount"`
	Status        InvoiceStatus `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	DueAt         time.Time     `gorm:"not null" json:"due_at"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// CreateInvoiceRequest carries the billing confirmation for a matched
// project/influencer pair. Amount is pre-tax, in integer yen.
type CreateInvoiceRequest struct {
	ProjectID    snowflake.ID `json:"project_id"`
	InfluencerID snowflake.ID `json:"influencer_id"`
	Amount       int64        `json:"amount"`
}

type ListPendingRequest struct {
	pagination.Pagination
}

type ListPendingResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// InvoiceSummary aggregates an influencer's earnings. OVERDUE invoices
// count toward TotalEarnings only.
type InvoiceSummary struct {
	TotalEarnings int64 `json:"total_earnings"`
	Pending       int64 `json:"pending"`
	Paid          int64 `json:"paid"`
}
