package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/actorcontext"
	auditdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/audit/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/clock"
	directorydomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/events"
	invoicedomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/invoice/domain"
	messagingdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/domain"
	notificationdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/notification/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	taxRatePercent = 10
	dueInDays      = 30
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Directory     directorydomain.Service
	Notifications notificationdomain.Service
	Messages      messagingdomain.Service
	Outbox        *events.Outbox
	Audit         auditdomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	directory     directorydomain.Service
	notifications notificationdomain.Service
	messages      messagingdomain.Service
	outbox        *events.Outbox
	audit         auditdomain.Service
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("invoice.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		directory:     p.Directory,
		notifications: p.Notifications,
		messages:      p.Messages,
		outbox:        p.Outbox,
		audit:         p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrUnauthenticated
	}
	if actor.Role != actorcontext.RoleClient {
		return nil, invoicedomain.ErrForbidden
	}
	if req.Amount < 0 {
		return nil, invoicedomain.ErrInvalidAmount
	}
	if req.ProjectID == 0 {
		return nil, invoicedomain.ErrInvalidProject
	}
	if req.InfluencerID == 0 {
		return nil, invoicedomain.ErrInvalidInfluencer
	}

	client, err := s.directory.ClientByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, directorydomain.ErrClientNotFound) {
			return nil, invoicedomain.ErrForbidden
		}
		return nil, err
	}

	project, err := s.directory.ProjectByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, directorydomain.ErrProjectNotFound) {
			return nil, invoicedomain.ErrInvalidProject
		}
		return nil, err
	}
	if project.ClientID != client.ID {
		return nil, invoicedomain.ErrForbidden
	}

	if _, err := s.directory.UserIDByInfluencerID(ctx, req.InfluencerID); err != nil {
		if errors.Is(err, directorydomain.ErrInfluencerNotFound) {
			return nil, invoicedomain.ErrInvalidInfluencer
		}
		return nil, err
	}

	now := s.clock.Now()
	tax := req.Amount * taxRatePercent / 100
	record := invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		ProjectID:     project.ID,
		ClientID:      client.ID,
		InfluencerID:  req.InfluencerID,
		InvoiceNumber: invoicedomain.GenerateInvoiceNumber(now),
		Amount:        req.Amount,
		TaxAmount:     tax,
		TotalAmount:   req.Amount + tax,
		Status:        invoicedomain.StatusPending,
		DueAt:         now.Add(dueInDays * 24 * time.Hour),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// Invoice-number collision. The 4-digit suffix is random, so
		// regenerate once and retry before giving up.
		record.InvoiceNumber = invoicedomain.GenerateInvoiceNumber(now)
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			s.log.Error("insert invoice after number retry",
				zap.String("invoice_number", record.InvoiceNumber),
				zap.Error(err),
			)
			return nil, err
		}
	}

	s.dispatchCreated(ctx, actor, &record, project.Title)
	return &record, nil
}

// dispatchCreated runs the best-effort side effects of invoice
// creation. The invoice row is already committed; every failure here is
// logged and swallowed.
func (s *Service) dispatchCreated(ctx context.Context, actor actorcontext.Actor, inv *invoicedomain.Invoice, projectTitle string) {
	log := s.log.With(
		zap.Int64("invoice_id", int64(inv.ID)),
		zap.String("invoice_number", inv.InvoiceNumber),
	)

	clientUserID, err := s.directory.UserIDByClientID(ctx, inv.ClientID)
	if err != nil {
		log.Warn("resolve client user for invoice notification", zap.Error(err))
	} else {
		_, err = s.notifications.Create(ctx, notificationdomain.CreateNotificationRequest{
			UserID:  clientUserID,
			Type:    notificationdomain.TypePaymentCompleted,
			Title:   "請求書が発行されました",
			Message: fmt.Sprintf("「%s」の請求書 %s(%s)が発行されました。", projectTitle, inv.InvoiceNumber, FormatJPY(inv.TotalAmount)),
			Payload: map[string]any{
				"invoice_id": inv.ID.String(),
				"project_id": inv.ProjectID.String(),
			},
		})
		if err != nil {
			log.Warn("create invoice notification", zap.Error(err))
		}
	}

	body := fmt.Sprintf("請求書 %s を発行しました。合計金額: %s(税込)", inv.InvoiceNumber, FormatJPY(inv.TotalAmount))
	if _, err := s.messages.PostSystemMessage(ctx, inv.ProjectID, body); err != nil {
		log.Warn("post invoice system message", zap.Error(err))
	}

	err = s.outbox.Publish(ctx, events.Event{
		Type:     events.EventInvoiceCreated,
		SourceID: inv.ID,
		Payload: events.InvoicePayload{
			InvoiceID:    inv.ID.String(),
			ProjectID:    inv.ProjectID.String(),
			ClientID:     inv.ClientID.String(),
			InfluencerID: inv.InfluencerID.String(),
			TotalAmount:  inv.TotalAmount,
		}.ToMap(),
		DedupeKey: events.EventInvoiceCreated + ":" + inv.ID.String(),
	})
	if err != nil {
		log.Warn("publish invoice.created", zap.Error(err))
	}

	err = s.audit.Record(ctx, auditdomain.Entry{
		ActorID:    actor.UserID,
		Action:     "invoice.create",
		TargetType: "invoice",
		TargetID:   inv.ID.String(),
		Metadata: map[string]any{
			"invoice_number": inv.InvoiceNumber,
			"total_amount":   inv.TotalAmount,
		},
	})
	if err != nil {
		log.Warn("audit invoice.create", zap.Error(err))
	}
}

func (s *Service) GetByID(ctx context.Context, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrUnauthenticated
	}

	var record invoicedomain.Invoice
	err := s.db.WithContext(ctx).Where("id = ?", invoiceID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrInvoiceNotFound
		}
		return nil, err
	}

	if err := s.authorize(ctx, actor, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// authorize checks that the actor is a party to the invoice: the owning
// client's user, the payee influencer's user, or an admin.
func (s *Service) authorize(ctx context.Context, actor actorcontext.Actor, inv *invoicedomain.Invoice) error {
	switch actor.Role {
	case actorcontext.RoleAdmin:
		return nil
	case actorcontext.RoleClient:
		client, err := s.directory.ClientByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, directorydomain.ErrClientNotFound) {
				return invoicedomain.ErrForbidden
			}
			return err
		}
		if client.ID != inv.ClientID {
			return invoicedomain.ErrForbidden
		}
		return nil
	case actorcontext.RoleInfluencer:
		influencer, err := s.directory.InfluencerByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, directorydomain.ErrInfluencerNotFound) {
				return invoicedomain.ErrForbidden
			}
			return err
		}
		if influencer.ID != inv.InfluencerID {
			return invoicedomain.ErrForbidden
		}
		return nil
	default:
		return invoicedomain.ErrForbidden
	}
}

func (s *Service) ListPending(ctx context.Context, req invoicedomain.ListPendingRequest) (invoicedomain.ListPendingResponse, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return invoicedomain.ListPendingResponse{}, invoicedomain.ErrUnauthenticated
	}

	var column string
	var profileID snowflake.ID
	switch actor.Role {
	case actorcontext.RoleClient:
		client, err := s.directory.ClientByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, directorydomain.ErrClientNotFound) {
				return emptyPage(), nil
			}
			return invoicedomain.ListPendingResponse{}, err
		}
		column, profileID = "client_id", client.ID
	case actorcontext.RoleInfluencer:
		influencer, err := s.directory.InfluencerByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, directorydomain.ErrInfluencerNotFound) {
				return emptyPage(), nil
			}
			return invoicedomain.ListPendingResponse{}, err
		}
		column, profileID = "influencer_id", influencer.ID
	default:
		return invoicedomain.ListPendingResponse{}, invoicedomain.ErrForbidden
	}

	offset := req.Offset()
	limit := req.Limit()

	invoices := make([]invoicedomain.Invoice, 0, limit)
	err := s.db.WithContext(ctx).
		Where(column+" = ? AND status = ?", profileID, invoicedomain.StatusPending).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return invoicedomain.ListPendingResponse{}, err
	}

	return invoicedomain.ListPendingResponse{
		PageInfo: pagination.PageInfo{NextPageToken: pagination.NextToken(offset, limit, len(invoices))},
		Invoices: invoices,
	}, nil
}

func emptyPage() invoicedomain.ListPendingResponse {
	return invoicedomain.ListPendingResponse{Invoices: []invoicedomain.Invoice{}}
}

func (s *Service) MarkAsPaid(ctx context.Context, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrUnauthenticated
	}
	if actor.Role != actorcontext.RoleClient && actor.Role != actorcontext.RoleAdmin {
		return nil, invoicedomain.ErrForbidden
	}

	var record invoicedomain.Invoice
	err := s.db.WithContext(ctx).Where("id = ?", invoiceID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrInvoiceNotFound
		}
		return nil, err
	}
	if err := s.authorize(ctx, actor, &record); err != nil {
		return nil, err
	}

	// Single conditional write. Concurrent callers race on the status
	// guard: exactly one sees RowsAffected == 1, so the payment
	// notification fires at most once per invoice.
	now := s.clock.Now()
	res := s.db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, paid_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		invoicedomain.StatusPaid, now, now, invoiceID, invoicedomain.StatusPending,
	)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, invoicedomain.ErrInvoiceNotPending
	}

	record.Status = invoicedomain.StatusPaid
	record.PaidAt = &now
	record.UpdatedAt = now

	s.dispatchPaid(ctx, actor, &record)
	return &record, nil
}

func (s *Service) dispatchPaid(ctx context.Context, actor actorcontext.Actor, inv *invoicedomain.Invoice) {
	log := s.log.With(
		zap.Int64("invoice_id", int64(inv.ID)),
		zap.String("invoice_number", inv.InvoiceNumber),
	)

	influencerUserID, err := s.directory.UserIDByInfluencerID(ctx, inv.InfluencerID)
	if err != nil {
		log.Warn("resolve influencer user for payment notification", zap.Error(err))
	} else {
		_, err = s.notifications.Create(ctx, notificationdomain.CreateNotificationRequest{
			UserID:  influencerUserID,
			Type:    notificationdomain.TypePaymentCompleted,
			Title:   "支払いが完了しました",
			Message: fmt.Sprintf("請求書 %s の支払い(%s)が完了しました。", inv.InvoiceNumber, FormatJPY(inv.TotalAmount)),
			Payload: map[string]any{
				"invoice_id": inv.ID.String(),
				"project_id": inv.ProjectID.String(),
			},
		})
		if err != nil {
			log.Warn("create payment notification", zap.Error(err))
		}
	}

	body := fmt.Sprintf("請求書 %s の支払いが完了しました。", inv.InvoiceNumber)
	if _, err := s.messages.PostSystemMessage(ctx, inv.ProjectID, body); err != nil {
		log.Warn("post payment system message", zap.Error(err))
	}

	err = s.outbox.Publish(ctx, events.Event{
		Type:     events.EventInvoicePaid,
		SourceID: inv.ID,
		Payload: events.InvoicePayload{
			InvoiceID:    inv.ID.String(),
			InfluencerID: inv.InfluencerID.String(),
			TotalAmount:  inv.TotalAmount,
		}.ToMap(),
		DedupeKey: events.EventInvoicePaid + ":" + inv.ID.String(),
	})
	if err != nil {
		log.Warn("publish invoice.paid", zap.Error(err))
	}

	err = s.audit.Record(ctx, auditdomain.Entry{
		ActorID:    actor.UserID,
		Action:     "invoice.mark_paid",
		TargetType: "invoice",
		TargetID:   inv.ID.String(),
		Metadata:   map[string]any{"total_amount": inv.TotalAmount},
	})
	if err != nil {
		log.Warn("audit invoice.mark_paid", zap.Error(err))
	}
}

// MarkAsOverdue flips a PENDING invoice to OVERDUE. No notification is
// emitted on this transition.
func (s *Service) MarkAsOverdue(ctx context.Context, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	var record invoicedomain.Invoice
	err := s.db.WithContext(ctx).Where("id = ?", invoiceID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrInvoiceNotFound
		}
		return nil, err
	}

	now := s.clock.Now()
	res := s.db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		invoicedomain.StatusOverdue, now, invoiceID, invoicedomain.StatusPending,
	)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, invoicedomain.ErrInvoiceNotPending
	}

	record.Status = invoicedomain.StatusOverdue
	record.UpdatedAt = now

	log := s.log.With(zap.Int64("invoice_id", int64(invoiceID)))
	err = s.outbox.Publish(ctx, events.Event{
		Type:     events.EventInvoiceOverdue,
		SourceID: invoiceID,
		Payload: events.InvoicePayload{
			InvoiceID:   invoiceID.String(),
			TotalAmount: record.TotalAmount,
		}.ToMap(),
		DedupeKey: events.EventInvoiceOverdue + ":" + invoiceID.String(),
	})
	if err != nil {
		log.Warn("publish invoice.overdue", zap.Error(err))
	}

	err = s.audit.Record(ctx, auditdomain.Entry{
		Action:     "invoice.mark_overdue",
		TargetType: "invoice",
		TargetID:   invoiceID.String(),
	})
	if err != nil {
		log.Warn("audit invoice.mark_overdue", zap.Error(err))
	}

	return &record, nil
}

func (s *Service) Summary(ctx context.Context) (invoicedomain.InvoiceSummary, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return invoicedomain.InvoiceSummary{}, invoicedomain.ErrUnauthenticated
	}
	if actor.Role != actorcontext.RoleInfluencer {
		return invoicedomain.InvoiceSummary{}, invoicedomain.ErrForbidden
	}

	influencer, err := s.directory.InfluencerByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, directorydomain.ErrInfluencerNotFound) {
			return invoicedomain.InvoiceSummary{}, nil
		}
		return invoicedomain.InvoiceSummary{}, err
	}

	// OVERDUE rows count toward total_earnings but neither bucket.
	var summary invoicedomain.InvoiceSummary
	err = s.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(total_amount), 0) AS total_earnings,
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN total_amount ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'PAID' THEN total_amount ELSE 0 END), 0) AS paid
		FROM invoices
		WHERE influencer_id = ?`, influencer.ID,
	).Scan(&summary).Error
	if err != nil {
		return invoicedomain.InvoiceSummary{}, err
	}
	return summary, nil
}
