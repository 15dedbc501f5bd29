package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

const callerIDKey = "caller_id"

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type userLookup interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

// authenticate requires a valid bearer token and stores the caller id on
// the context.
func authenticate(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			fail(c, http.StatusUnauthorized, "No token provided")
			return
		}
		callerID, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			fail(c, http.StatusForbidden, "Unauthorized access!")
			return
		}
		c.Set(callerIDKey, callerID)
		c.Next()
	}
}

// ownerRule is the denial returned when the caller is not the path user.
type ownerRule struct {
	status  int
	message string
}

// requireOwner checks that :userId is well formed, equals the caller and
// names an existing user. The identity comparison runs before the lookup so
// a denied caller learns nothing about other accounts.
func requireOwner(users userLookup, l *zap.Logger, rules map[string]ownerRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		pathID := c.Param("userId")
		if !domain.ValidID(pathID) {
			fail(c, http.StatusBadRequest, "Invalid userId")
			return
		}
		if pathID != c.GetString(callerIDKey) {
			rule, ok := rules[c.Request.Method]
			if !ok {
				rule = ownerRule{status: http.StatusForbidden, message: "Unauthorized access!"}
			}
			fail(c, rule.status, rule.message)
			return
		}
		if _, err := users.Get(c.Request.Context(), pathID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				fail(c, http.StatusNotFound, "User not found")
				return
			}
			respondError(c, l, err)
			return
		}
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	return c.GetString(callerIDKey)
}

var (
	cartOwnerRules = map[string]ownerRule{
		http.MethodPost:   {http.StatusUnauthorized, "Unauthorized! You are not the owner of this cart"},
		http.MethodPut:    {http.StatusUnauthorized, "Unauthorized! You are not the owner of this cart"},
		http.MethodGet:    {http.StatusUnauthorized, "Unauthorized! You are not the owner of this cart"},
		http.MethodDelete: {http.StatusUnauthorized, "Unauthorized! You are not the owner of this cart"},
	}
	orderOwnerRules = map[string]ownerRule{
		http.MethodPost: {http.StatusForbidden, "Unauthorized! You are not allowed to create Order"},
		http.MethodPut:  {http.StatusForbidden, "Unauthorized! You are not allowed to update Order"},
		http.MethodGet:  {http.StatusForbidden, "Unauthorized! You are not allowed to view Orders"},
	}
	profileOwnerRules = map[string]ownerRule{
		http.MethodGet: {http.StatusUnauthorized, "Unauthorized! You are not the owner of this profile"},
		http.MethodPut: {http.StatusUnauthorized, "Unauthorized! You are not allowed to update this profile"},
	}
)
