package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// NotificationType enumerates the in-app notification kinds.
type NotificationType string

const (
	TypePaymentCompleted    NotificationType = "PAYMENT_COMPLETED"
	TypeMessageReceived     NotificationType = "MESSAGE_RECEIVED"
	TypeProjectMatched      NotificationType = "PROJECT_MATCHED"
	TypeApplicationReceived NotificationType = "APPLICATION_RECEIVED"
)

// Valid reports whether the type is a known notification kind.
func (t NotificationType) Valid() bool {
	switch t {
	case TypePaymentCompleted, TypeMessageReceived, TypeProjectMatched, TypeApplicationReceived:
		return true
	default:
		return false
	}
}

// Notification is a durable in-app message for one user. Rows are
// created once and only the read flag ever changes.
type Notification struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID      `gorm:"not null;index" json:"user_id"`
	Type      NotificationType  `gorm:"type:text;not null" json:"type"`
	Title     string            `gorm:"type:text;not null" json:"title"`
	Message   string            `gorm:"type:text;not null" json:"message"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb" json:"payload,omitempty"`
	IsRead    bool              `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }
