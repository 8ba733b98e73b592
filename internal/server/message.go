package server

import (
	"net/http"
	"strings"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/actorcontext"
	messagingdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type postMessageRequest struct {
	Body string `json:"body"`
}

func (s *Server) ListProjectMessages(c *gin.Context) {
	projectID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_project_id", "invalid project id"))
		return
	}

	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.messageSvc.ListByProject(c.Request.Context(), projectID, messagingdomain.ListMessagesRequest{
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PostProjectMessage(c *gin.Context) {
	actor, ok := actorcontext.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	projectID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_project_id", "invalid project id"))
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		AbortWithError(c, newValidationError("body", "required", "message body is required"))
		return
	}

	resp, err := s.messageSvc.PostUserMessage(c.Request.Context(), projectID, actor.UserID, req.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// ServeWebsocket upgrades the connection and registers it with the chat
// hub for message fan-out.
func (s *Server) ServeWebsocket(c *gin.Context) {
	actor, ok := actorcontext.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.hub.Serve(c.Writer, c.Request, actor.UserID); err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
	}
}
