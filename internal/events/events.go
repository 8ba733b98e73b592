package events

// Billing event types published to the outbox for downstream consumers
// (analytics, mail digests).
const (
	EventInvoiceCreated = "invoice.created"
	EventInvoicePaid    = "invoice.paid"
	EventInvoiceOverdue = "invoice.overdue"
)

// InvoicePayload captures the minimal data needed to follow up on an
// invoice transition.
type InvoicePayload struct {
	InvoiceID    string `json:"invoice_id"`
	ProjectID    string `json:"project_id,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	InfluencerID string `json:"influencer_id,omitempty"`
	TotalAmount  int64  `json:"total_amount"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p InvoicePayload) ToMap() map[string]any {
	payload := map[string]any{
		"invoice_id":   p.InvoiceID,
		"total_amount": p.TotalAmount,
	}
	if p.ProjectID != "" {
		payload["project_id"] = p.ProjectID
	}
	if p.ClientID != "" {
		payload["client_id"] = p.ClientID
	}
	if p.InfluencerID != "" {
		payload["influencer_id"] = p.InfluencerID
	}
	return payload
}
