package domain

import (
	"context"
	"errors"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

// CreateNotificationRequest is a write into the sink.
type CreateNotificationRequest struct {
	UserID  snowflake.ID
	Type    NotificationType
	Title   string
	Message string
	Payload map[string]any
}

type ListNotificationRequest struct {
	pagination.Pagination
	UnreadOnly bool
}

type ListNotificationResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}

// Service is the notification sink plus the user-facing read surface.
// Create failures never propagate to billing callers; the ledger logs
// and continues.
type Service interface {
	Create(ctx context.Context, req CreateNotificationRequest) (*Notification, error)
	List(ctx context.Context, userID snowflake.ID, req ListNotificationRequest) (ListNotificationResponse, error)
	MarkRead(ctx context.Context, userID, notificationID snowflake.ID) error
	MarkAllRead(ctx context.Context, userID snowflake.ID) error
	Delete(ctx context.Context, userID, notificationID snowflake.ID) error
}

var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidType          = errors.New("invalid_notification_type")
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrNotificationNotFound = errors.New("notification_not_found")
)
