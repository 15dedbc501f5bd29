package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

// envelope is the body of every API response.
type envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, code int, message string, data any) {
	c.JSON(code, envelope{Status: code < http.StatusBadRequest, Message: message, Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, envelope{Status: false, Message: message})
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the envelope. Unclassified errors are logged and
// hidden behind a generic message.
func respondError(c *gin.Context, l *zap.Logger, err error) {
	code := statusFor(err)
	msg, ok := domain.Message(err)
	if !ok || code == http.StatusInternalServerError {
		logger.FromGin(l, c).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	fail(c, code, msg)
}

// bindError turns a gin binding failure into a 400 with a readable message.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fail(c, http.StatusBadRequest, describe(verrs[0]))
		return
	}
	fail(c, http.StatusBadRequest, "Invalid request body")
}

func describe(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please enter %s", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("Invalid %s", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
