package domain

import (
	"context"
	"errors"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type ListMessagesRequest struct {
	pagination.Pagination
}

type ListMessagesResponse struct {
	pagination.PageInfo
	Messages []ProjectMessage `json:"messages"`
}

// Service is the project chat sink. PostSystemMessage is the write used
// by billing side effects; its failures are logged and swallowed by the
// caller, never surfaced.
type Service interface {
	PostSystemMessage(ctx context.Context, projectID snowflake.ID, body string) (*ProjectMessage, error)
	PostUserMessage(ctx context.Context, projectID, senderID snowflake.ID, body string) (*ProjectMessage, error)
	ListByProject(ctx context.Context, projectID snowflake.ID, req ListMessagesRequest) (ListMessagesResponse, error)
}

var (
	ErrInvalidProject = errors.New("invalid_project")
	ErrInvalidSender  = errors.New("invalid_sender")
	ErrEmptyBody      = errors.New("empty_message_body")
)
