package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/actorcontext"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/auth/password"
	directorydomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}

	var user directorydomain.User
	err := s.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		AbortWithError(c, err)
		return
	}
	if user.PasswordHash == nil || !password.Verify(*user.PasswordHash, req.Password) {
		s.log.Warn("login rejected",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("client_ip", c.ClientIP()),
		)
		AbortWithError(c, ErrUnauthorized)
		return
	}

	actor := actorcontext.Actor{UserID: user.ID, Role: actorcontext.Role(user.Role)}
	token, err := s.verifier.Issue(actor, tokenTTL)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"token":      token,
		"user_id":    user.ID.String(),
		"role":       user.Role,
		"expires_in": int(tokenTTL.Seconds()),
	}})
}
