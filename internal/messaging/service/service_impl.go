package service

import (
	"context"
	"strings"
	"time"

	directorydomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/hub"
	notificationdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/notification/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Hub             *hub.Hub
	DirectorySvc    directorydomain.Service
	NotificationSvc notificationdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	hub             *hub.Hub
	directorySvc    directorydomain.Service
	notificationSvc notificationdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("messaging.service"),
		genID:           p.GenID,
		hub:             p.Hub,
		directorySvc:    p.DirectorySvc,
		notificationSvc: p.NotificationSvc,
	}
}

func (s *Service) PostSystemMessage(ctx context.Context, projectID snowflake.ID, body string) (*domain.ProjectMessage, error) {
	if projectID == 0 {
		return nil, domain.ErrInvalidProject
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyBody
	}

	record := domain.ProjectMessage{
		ID:        s.genID.Generate(),
		ProjectID: projectID,
		Kind:      domain.KindSystem,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}

	s.broadcast(ctx, record)
	return &record, nil
}

func (s *Service) PostUserMessage(ctx context.Context, projectID, senderID snowflake.ID, body string) (*domain.ProjectMessage, error) {
	if projectID == 0 {
		return nil, domain.ErrInvalidProject
	}
	if senderID == 0 {
		return nil, domain.ErrInvalidSender
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyBody
	}

	record := domain.ProjectMessage{
		ID:        s.genID.Generate(),
		ProjectID: projectID,
		SenderID:  &senderID,
		Kind:      domain.KindUser,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}

	s.notifyCounterpart(ctx, record, senderID)
	s.broadcast(ctx, record)
	return &record, nil
}

func (s *Service) ListByProject(ctx context.Context, projectID snowflake.ID, req domain.ListMessagesRequest) (domain.ListMessagesResponse, error) {
	var resp domain.ListMessagesResponse
	if projectID == 0 {
		return resp, domain.ErrInvalidProject
	}

	limit := req.Limit()
	offset := req.Offset()

	var rows []domain.ProjectMessage
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return resp, err
	}

	resp.Messages = rows
	resp.NextPageToken = pagination.NextToken(offset, limit, len(rows))
	return resp, nil
}

// notifyCounterpart records a MESSAGE_RECEIVED notification for the
// project owner when someone else writes into the chat. Best-effort.
func (s *Service) notifyCounterpart(ctx context.Context, message domain.ProjectMessage, senderID snowflake.ID) {
	ownerUserID, err := s.projectOwnerUserID(ctx, message.ProjectID)
	if err != nil {
		s.log.Warn("resolve message counterpart failed",
			zap.String("project_id", message.ProjectID.String()),
			zap.Error(err),
		)
		return
	}
	if ownerUserID == 0 || ownerUserID == senderID {
		return
	}

	_, err = s.notificationSvc.Create(ctx, notificationdomain.CreateNotificationRequest{
		UserID:  ownerUserID,
		Type:    notificationdomain.TypeMessageReceived,
		Title:   "新しいメッセージ",
		Message: "プロジェクトに新しいメッセージが届きました",
		Payload: map[string]any{
			"project_id": message.ProjectID.String(),
			"message_id": message.ID.String(),
		},
	})
	if err != nil {
		s.log.Warn("message notification dispatch failed",
			zap.String("project_id", message.ProjectID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) broadcast(ctx context.Context, message domain.ProjectMessage) {
	if s.hub == nil {
		return
	}
	recipients := make([]snowflake.ID, 0, 2)
	if ownerUserID, err := s.projectOwnerUserID(ctx, message.ProjectID); err == nil && ownerUserID != 0 {
		recipients = append(recipients, ownerUserID)
	}
	if message.SenderID != nil {
		recipients = append(recipients, *message.SenderID)
	}
	if len(recipients) > 0 {
		s.hub.Broadcast(message, recipients...)
	}
}

func (s *Service) projectOwnerUserID(ctx context.Context, projectID snowflake.ID) (snowflake.ID, error) {
	project, err := s.directorySvc.ProjectByID(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return s.directorySvc.UserIDByClientID(ctx, project.ClientID)
}
