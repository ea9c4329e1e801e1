package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
)

// SessionResolver attaches the session record referenced by the request's
// cookie, if any. An absent or invalid cookie simply means no session, and
// the guard decides downstream what that implies. Only a session store
// failure aborts: the cookie may still reference live state, so it must
// survive until the store answers.
func SessionResolver(sessionSvc portssvc.SessionSvc, cookieName string, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(cookieName)
		if err != nil || cookie == "" {
			c.Next()
			return
		}
		record, err := sessionSvc.Resolve(c.Request.Context(), cookie)
		if err != nil {
			if !errors.Is(err, apperrors.ErrUnauthorized) {
				GetLoggerFromCtx(c.Request.Context()).Error("session store unavailable",
					slog.String("error", err.Error()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			// Forged or expired cookie: clear it so the client stops sending it.
			c.SetCookie(cookieName, "", -1, "/", "", secureCookies, true)
			c.Next()
			return
		}
		c.Set(string(sessionKey), record)
		c.Next()
	}
}

// BearerTokenAuth authenticates programmatic callers presenting an opaque
// API token in the Authorization header. Requests without a bearer header
// pass through untouched so the session path can handle them.
func BearerTokenAuth(tokenSvc portssvc.BearerTokenSvc, userSvc portssvc.UserSvcFacade) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.Next()
			return
		}

		logger := GetLoggerFromCtx(c.Request.Context())
		userID, err := tokenSvc.Validate(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, apperrors.ErrTokenNotValid) || errors.Is(err, apperrors.ErrNotFound) ||
				errors.Is(err, apperrors.ErrUnauthorized) {
				logger.Warn("bearer token rejected", slog.String("error", err.Error()))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			logger.Error("bearer token validation failed", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		user, err := userSvc.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				// The token outlived its owner.
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			logger.Error("bearer token owner lookup failed", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(string(principalKey), &domain.Principal{Kind: domain.PrincipalUser, User: user})
		c.Set(string(authMethodKey), AuthMethodBearer)
		c.Next()
	}
}

// RequirePrincipal resolves the request's principal through the session
// guard, unless an earlier middleware (bearer token) already produced one.
// Requests that resolve to neither a user nor a guest are rejected.
func RequirePrincipal(guard portssvc.SessionGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetPrincipalFromContext(c); ok {
			c.Next()
			return
		}

		principal, err := guard.ResolvePrincipal(c.Request.Context(), GetSessionFromContext(c))
		if err != nil {
			if errors.Is(err, apperrors.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
				return
			}
			GetLoggerFromCtx(c.Request.Context()).Error("principal resolution failed",
				slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.Set(string(principalKey), principal)
		c.Set(string(authMethodKey), AuthMethodSession)
		c.Next()
	}
}

// RequireUser rejects guests on routes that need a full account, such as
// token management.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipalFromContext(c)
		if !ok || principal.User == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "A registered account is required"})
			return
		}
		c.Next()
	}
}
