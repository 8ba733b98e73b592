package actorcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Role is the marketplace-wide user role.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleInfluencer Role = "INFLUENCER"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether the role is one the platform knows.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleInfluencer, RoleAdmin:
		return true
	default:
		return false
	}
}

// Actor identifies the authenticated caller of a request.
type Actor struct {
	UserID snowflake.ID
	Role   Role
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor stores the authenticated caller on the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		return ctx
	}
	return context.WithValue(ctx, actorKey, actor)
}

// FromContext returns the caller stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey).(Actor)
	if !ok || actor.UserID == 0 {
		return Actor{}, false
	}
	return actor, true
}
