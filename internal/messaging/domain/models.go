package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MessageKind separates participant messages from platform-authored
// system lines (billing confirmations and similar).
type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindSystem MessageKind = "system"
)

// ProjectMessage is one chat line on a project. System messages carry a
// nil sender.
type ProjectMessage struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProjectID snowflake.ID  `gorm:"not null;index" json:"project_id"`
	SenderID  *snowflake.ID `gorm:"index" json:"sender_id,omitempty"`
	Kind      MessageKind   `gorm:"type:text;not null;default:'user'" json:"kind"`
	Body      string        `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ProjectMessage) TableName() string { return "project_messages" }
