package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/middleware"
	"github.com/scribehub/identity-core/internal/platform/config"
)

// ErrorResponse is a generic error response structure for handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps service-layer sentinels onto HTTP statuses. Anything
// unrecognized is a 500 whose detail stays in the log, not the response.
func respondError(c *gin.Context, err error) {
	var denied *apperrors.DeniedError
	switch {
	case errors.As(err, &denied):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: denied.Reason})
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrTokenNotValid),
		errors.Is(err, apperrors.ErrNoLocalIdentity):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
	case errors.Is(err, apperrors.ErrForbidden), errors.Is(err, apperrors.ErrRegistrationDisabled):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
	case errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Already exists"})
	case errors.Is(err, apperrors.ErrTooManyTokens):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Token limit reached"})
	default:
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("request failed",
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

// sessionManager centralizes cookie handling and the login-time session
// rotation every interactive handler needs.
type sessionManager struct {
	sessionSvc portssvc.SessionSvc
	cookieName string
	lifetime   time.Duration
	secure     bool
}

func newSessionManager(sessionSvc portssvc.SessionSvc, cfg *config.Config) *sessionManager {
	return &sessionManager{
		sessionSvc: sessionSvc,
		cookieName: cfg.SessionCookieName,
		lifetime:   cfg.SessionLifetime,
		secure:     cfg.IsProduction,
	}
}

func (m *sessionManager) setCookie(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, int(m.lifetime.Seconds()), "/", "", m.secure, true)
}

func (m *sessionManager) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}

// ensure returns the request's session, minting a fresh one when absent.
func (m *sessionManager) ensure(c *gin.Context) (*domain.SessionRecord, error) {
	if record := middleware.GetSessionFromContext(c); record != nil {
		return record, nil
	}
	record, cookie, err := m.sessionSvc.Begin(c.Request.Context())
	if err != nil {
		return nil, err
	}
	m.setCookie(c, cookie)
	return record, nil
}

// establishLogin rotates the session id at the authentication boundary: the
// pre-login session is destroyed and a fresh record carries the login state.
// The SSO handshake is preserved so the ID token hint survives for logout.
func (m *sessionManager) establishLogin(c *gin.Context, userID int64, kind domain.ProviderKind, instance string) (*domain.SessionRecord, error) {
	ctx := c.Request.Context()

	var sso *domain.SSOHandshake
	if old := middleware.GetSessionFromContext(c); old != nil {
		sso = old.SSO
		if err := m.sessionSvc.Terminate(ctx, old.SessionID); err != nil {
			middleware.GetLoggerFromCtx(ctx).Warn("failed to terminate pre-login session",
				slog.String("error", err.Error()))
		}
	}

	record, cookie, err := m.sessionSvc.Begin(ctx)
	if err != nil {
		return nil, err
	}
	record.Login = domain.LoginState{UserID: userID, Kind: kind, ProviderInstance: instance}
	record.SSO = sso
	if err := m.sessionSvc.Save(ctx, record); err != nil {
		return nil, err
	}
	m.setCookie(c, cookie)
	return record, nil
}

// endSession destroys the current session and clears its cookie.
func (m *sessionManager) endSession(c *gin.Context) error {
	record := middleware.GetSessionFromContext(c)
	m.clearCookie(c)
	if record == nil {
		return nil
	}
	return m.sessionSvc.Terminate(c.Request.Context(), record.SessionID)
}
