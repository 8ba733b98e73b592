package server

import (
	"errors"
	"net/http"

	authinternal "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/auth"
	directorydomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory/domain"
	invoicedomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/invoice/domain"
	messagingdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/domain"
	notificationdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/notification/domain"
	"github.com/gin-gonic/gin"
)

// APIError is the wire shape of every non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string { return e.Code }

var (
	ErrNotFound     = &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrUnauthorized = &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "authentication required"}
	ErrForbidden    = &APIError{Status: http.StatusForbidden, Code: "forbidden", Message: "insufficient permissions"}
	ErrRateLimited  = &APIError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
)

func invalidRequestError() *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "request body or query is malformed"}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

// AbortWithError maps a domain error onto an HTTP response and stops
// the handler chain.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, invoicedomain.ErrUnauthenticated),
		errors.Is(err, authinternal.ErrMissingToken),
		errors.Is(err, authinternal.ErrInvalidToken),
		errors.Is(err, authinternal.ErrTokenExpired):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, invoicedomain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, directorydomain.ErrProjectNotFound),
		errors.Is(err, directorydomain.ErrClientNotFound),
		errors.Is(err, directorydomain.ErrInfluencerNotFound),
		errors.Is(err, notificationdomain.ErrNotificationNotFound):
		status, code = http.StatusNotFound, err.Error()
	case errors.Is(err, invoicedomain.ErrInvoiceNotPending):
		status, code = http.StatusConflict, err.Error()
	case errors.Is(err, invoicedomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrInvalidProject),
		errors.Is(err, invoicedomain.ErrInvalidInfluencer),
		errors.Is(err, messagingdomain.ErrInvalidProject),
		errors.Is(err, messagingdomain.ErrEmptyBody),
		errors.Is(err, notificationdomain.ErrInvalidUser):
		status, code = http.StatusBadRequest, err.Error()
	}

	message := "internal server error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{"error": &APIError{Status: status, Code: code, Message: message}})
}
