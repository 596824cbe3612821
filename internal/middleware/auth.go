package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/handler"
	"github.com/jwalitptl/notify-api/pkg/auth"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"

	// RoleService marks service-to-service tokens (the ticket layer's
	// event ingest credential).
	RoleService = "service"
)

type AuthMiddleware struct {
	validator auth.Validator
}

func NewAuthMiddleware(validator auth.Validator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the bearer token and sets the caller identity in
// context. Token issuance belongs to the account service; this only
// validates.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.validator.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireService restricts a route to service-to-service callers.
func (m *AuthMiddleware) RequireService() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != RoleService {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("service token required"))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller's id from context.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
