package server

import (
	"strings"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/actorcontext"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthRequired extracts the bearer token, verifies it and installs the
// actor into the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.verifier.Verify(strings.TrimSpace(raw))
		if err != nil {
			s.log.Debug("token rejected",
				zap.String("authorization", logger.MaskAuthorization(header)),
				zap.Error(err),
			)
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(actorcontext.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. Admins pass every
// gate.
func RequireRole(roles ...actorcontext.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorcontext.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if actor.Role == actorcontext.RoleAdmin {
			c.Next()
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}
