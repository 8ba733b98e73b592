package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service resolves marketplace identities: user to profile, profile to
// user, and project ownership.
type Service interface {
	ClientByUserID(ctx context.Context, userID snowflake.ID) (*Client, error)
	InfluencerByUserID(ctx context.Context, userID snowflake.ID) (*Influencer, error)
	UserIDByClientID(ctx context.Context, clientID snowflake.ID) (snowflake.ID, error)
	UserIDByInfluencerID(ctx context.Context, influencerID snowflake.ID) (snowflake.ID, error)
	ProjectByID(ctx context.Context, projectID snowflake.ID) (*Project, error)
}

var (
	ErrInvalidUser        = errors.New("invalid_user")
	ErrClientNotFound     = errors.New("client_not_found")
	ErrInfluencerNotFound = errors.New("influencer_not_found")
	ErrProjectNotFound    = errors.New("project_not_found")
)
