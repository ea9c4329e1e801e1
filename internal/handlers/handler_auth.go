package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/dto"
	"github.com/scribehub/identity-core/internal/middleware"
)

// AuthHandler handles local-password and guest authentication plus logout.
type AuthHandler struct {
	localSvc     portssvc.LocalAuthSvc
	guestSvc     portssvc.GuestAuthSvc
	federatedSvc portssvc.FederatedAuthSvc
	userSvc      portssvc.UserSvcFacade
	sessions     *sessionManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(services *portssvc.ServiceContainer, sessions *sessionManager) *AuthHandler {
	return &AuthHandler{
		localSvc:     services.Local,
		guestSvc:     services.Guest,
		federatedSvc: services.Federated,
		userSvc:      services.User,
		sessions:     sessions,
	}
}

// Register creates a local account and logs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	user, err := h.localSvc.Register(c.Request.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.sessions.establishLogin(c, user.UserID, domain.ProviderLocal, "local"); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.LoginResponse{User: dto.ToUserResponse(user)})
}

// Login authenticates a username/password pair against local identities.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	identity, err := h.localSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := h.userSvc.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.sessions.establishLogin(c, user.UserID, domain.ProviderLocal, "local"); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LoginResponse{User: dto.ToUserResponse(user)})
}

// GuestLogin starts a guest session where deployment policy allows it.
func (h *AuthHandler) GuestLogin(c *gin.Context) {
	var req dto.GuestLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	session, err := h.sessions.ensure(c)
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := h.guestSvc.BeginGuest(c.Request.Context(), session, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.sessions.sessionSvc.Save(c.Request.Context(), session); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.LoginResponse{User: dto.ToUserResponse(user)})
}

// Logout terminates the current session. For federated logins the response
// carries the provider's end-session URL so the client can finish the chain.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := middleware.GetSessionFromContext(c)

	var providerLogout string
	if session != nil {
		url, err := h.federatedSvc.LogoutURL(c.Request.Context(), session)
		if err == nil {
			providerLogout = url
		}
	}

	if err := h.sessions.endSession(c); err != nil {
		middleware.GetLoggerFromCtx(c.Request.Context()).Warn("session termination failed",
			slog.String("error", err.Error()))
	}
	c.JSON(http.StatusOK, dto.LogoutResponse{ProviderLogoutURL: providerLogout})
}

// ChangePassword updates the caller's local password after re-verification.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.localSvc.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
