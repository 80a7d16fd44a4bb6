package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUserKey is the gin context key carrying the authenticated user id.
const ContextUserKey = "user_id"

// TokenClaims is the validated content of an access token.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
}

// TokenValidator validates access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*TokenClaims, error)
}

// Auth rejects requests without a valid Bearer token.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, validator)
		if !ok {
			c.Abort()
			return
		}
		c.Set(ContextUserKey, claims.UserID)
		c.Next()
	}
}

// OptionalAuth resolves the viewer when a valid token is present and lets
// anonymous requests through. Per-viewer flags stay false without a viewer.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		claims, ok := bearerClaims(c, validator)
		if !ok {
			c.Abort()
			return
		}
		c.Set(ContextUserKey, claims.UserID)
		c.Next()
	}
}

func bearerClaims(c *gin.Context, validator TokenValidator) (*TokenClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"errors": "missing authorization header"})
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{"errors": "invalid authorization header format"})
		return nil, false
	}

	claims, err := validator.ValidateToken(parts[1])
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"errors": "invalid or expired token"})
		return nil, false
	}
	return claims, true
}

// Viewer returns the authenticated user id, if any.
func Viewer(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
