package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/scribehub/identity-core/internal/core/domain"
)

const (
	sessionKey    = contextKey("session")
	principalKey  = contextKey("principal")
	authMethodKey = contextKey("authMethod")
)

// Recognized values stored under authMethodKey.
const (
	AuthMethodSession = "session"
	AuthMethodBearer  = "bearer_token"
)

// GetSessionFromContext retrieves the resolved session record from the Gin
// context. A nil record means the request carried no valid session cookie.
func GetSessionFromContext(c *gin.Context) *domain.SessionRecord {
	val, exists := c.Get(string(sessionKey))
	if !exists {
		return nil
	}
	record, _ := val.(*domain.SessionRecord)
	return record
}

// GetPrincipalFromContext retrieves the resolved principal set by
// RequirePrincipal. The boolean is false on routes outside its protection.
func GetPrincipalFromContext(c *gin.Context) (*domain.Principal, bool) {
	val, exists := c.Get(string(principalKey))
	if !exists {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}

// GetUserIDFromContext returns the authenticated user's id, or false for
// guests and unprotected routes.
func GetUserIDFromContext(c *gin.Context) (int64, bool) {
	principal, ok := GetPrincipalFromContext(c)
	if !ok || principal.User == nil {
		return 0, false
	}
	return principal.User.UserID, true
}
