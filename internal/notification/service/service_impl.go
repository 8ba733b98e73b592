package service

import (
	"context"
	"strings"
	"time"

	notificationdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/notification/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/observability/logger"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) notificationdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req notificationdomain.CreateNotificationRequest) (*notificationdomain.Notification, error) {
	if req.UserID == 0 {
		return nil, notificationdomain.ErrInvalidUser
	}
	if !req.Type.Valid() {
		return nil, notificationdomain.ErrInvalidType
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, notificationdomain.ErrInvalidTitle
	}

	record := notificationdomain.Notification{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     title,
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: time.Now().UTC(),
	}
	if req.Payload != nil {
		record.Payload = datatypes.JSONMap(req.Payload)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	s.log.Debug("notification created",
		zap.Int64("user_id", int64(record.UserID)),
		zap.String("type", string(record.Type)),
		zap.Any("payload", logger.MaskPayload(req.Payload)),
	)
	return &record, nil
}

func (s *Service) List(ctx context.Context, userID snowflake.ID, req notificationdomain.ListNotificationRequest) (notificationdomain.ListNotificationResponse, error) {
	var resp notificationdomain.ListNotificationResponse
	if userID == 0 {
		return resp, notificationdomain.ErrInvalidUser
	}

	limit := req.Limit()
	offset := req.Offset()

	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if req.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []notificationdomain.Notification
	if err := query.Find(&rows).Error; err != nil {
		return resp, err
	}

	var unread int64
	if err := s.db.WithContext(ctx).
		Model(&notificationdomain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return resp, err
	}

	resp.Notifications = rows
	resp.UnreadCount = unread
	resp.NextPageToken = pagination.NextToken(offset, limit, len(rows))
	return resp, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID snowflake.ID) error {
	if userID == 0 {
		return notificationdomain.ErrInvalidUser
	}
	result := s.db.WithContext(ctx).
		Model(&notificationdomain.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notificationdomain.ErrNotificationNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID snowflake.ID) error {
	if userID == 0 {
		return notificationdomain.ErrInvalidUser
	}
	return s.db.WithContext(ctx).
		Model(&notificationdomain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (s *Service) Delete(ctx context.Context, userID, notificationID snowflake.ID) error {
	if userID == 0 {
		return notificationdomain.ErrInvalidUser
	}
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&notificationdomain.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notificationdomain.ErrNotificationNotFound
	}
	return nil
}
