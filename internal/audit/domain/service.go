package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrMissingAction = errors.New("missing_action")

// Entry describes a single action to record.
type Entry struct {
	ActorID    snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type Service interface {
	// Record writes an audit row. Failures are returned so callers can
	// decide whether the write is load-bearing; most callers log and move on.
	Record(ctx context.Context, entry Entry) error

	// RecentByTarget returns the newest entries for a target, newest first.
	RecentByTarget(ctx context.Context, targetType, targetID string, limit int) ([]AuditLog, error)
}
