package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/dto"
	"github.com/scribehub/identity-core/internal/middleware"
	"github.com/scribehub/identity-core/internal/platform/config"
)

// SSOHandler drives the federated login flow: redirect out, callback in,
// optional registration confirmation, and the provider-initiated
// backchannel logout.
type SSOHandler struct {
	federatedSvc portssvc.FederatedAuthSvc
	identitySvc  portssvc.IdentitySvc
	userSvc      portssvc.UserSvcFacade
	sessions     *sessionManager
	instances    map[string]config.FederatedInstance
}

// NewSSOHandler creates a new SSOHandler.
func NewSSOHandler(services *portssvc.ServiceContainer, sessions *sessionManager, cfg *config.Config) *SSOHandler {
	instances := make(map[string]config.FederatedInstance, len(cfg.FederatedInstances))
	for _, inst := range cfg.FederatedInstances {
		instances[inst.ID] = inst
	}
	return &SSOHandler{
		federatedSvc: services.Federated,
		identitySvc:  services.Identity,
		userSvc:      services.User,
		sessions:     sessions,
		instances:    instances,
	}
}

// BeginLogin parks the PKCE handshake in the session and redirects the
// browser to the provider.
func (h *SSOHandler) BeginLogin(c *gin.Context) {
	instanceID := c.Param("instance")

	session, err := h.sessions.ensure(c)
	if err != nil {
		respondError(c, err)
		return
	}
	authURL, err := h.federatedSvc.BeginLogin(c.Request.Context(), instanceID, session)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.sessions.sessionSvc.Save(c.Request.Context(), session); err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the code exchange. An existing linked account is logged
// in directly; an unknown subject gets its provider proposal back for
// confirmation.
func (h *SSOHandler) Callback(c *gin.Context) {
	instanceID := c.Param("instance")
	ctx := c.Request.Context()

	session := middleware.GetSessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "No login in progress"})
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing code or state"})
		return
	}

	profile, err := h.federatedSvc.CompleteLogin(ctx, instanceID, session, code, state)
	// The one-time handshake values were consumed either way.
	if saveErr := h.sessions.sessionSvc.Save(ctx, session); saveErr != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("failed to persist session after callback",
			slog.String("error", saveErr.Error()))
	}
	if err != nil {
		respondError(c, err)
		return
	}

	identity, err := h.federatedSvc.ResolveIdentity(ctx, instanceID, profile.SubjectID)
	if err != nil {
		respondError(c, err)
		return
	}

	if identity != nil {
		if err := h.identitySvc.MaybeSyncProfile(ctx, identity, *profile); err != nil {
			middleware.GetLoggerFromCtx(ctx).Warn("federated profile sync failed",
				slog.String("error", err.Error()))
		}
		user, err := h.logIn(c, identity.UserID, instanceID)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := dto.ToUserResponse(user)
		c.JSON(http.StatusOK, dto.SSOCallbackResult{LoggedIn: true, User: &resp})
		return
	}

	proposal := dto.ToProposalResponse(*profile)
	c.JSON(http.StatusOK, dto.SSOCallbackResult{LoggedIn: false, Proposal: &proposal})
}

// ConfirmRegistration turns a pending provider proposal into an account,
// honoring the caller's edits where policy permits, and logs it in.
func (h *SSOHandler) ConfirmRegistration(c *gin.Context) {
	instanceID := c.Param("instance")
	ctx := c.Request.Context()

	session := middleware.GetSessionFromContext(c)
	if session == nil || session.Pending == nil || session.Pending.ProviderInstance != instanceID {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "No pending registration"})
		return
	}
	inst, ok := h.instances[instanceID]
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}

	var req dto.ConfirmRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	pending := session.Pending
	user, _, err := h.identitySvc.CreateUserWithIdentity(ctx, pending.Proposal,
		portssvc.ProfileEdits{Username: req.Username, DisplayName: req.DisplayName, PhotoURL: req.PhotoURL},
		pending.Kind, instanceID, pending.SubjectID, inst.SyncSource)
	if err != nil {
		respondError(c, err)
		return
	}

	session.Pending = nil
	if _, err := h.sessions.establishLogin(c, user.UserID, domain.ProviderFederated, instanceID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.LoginResponse{User: dto.ToUserResponse(user)})
}

// BackchannelLogout receives the provider's signed logout token on the
// server-to-server channel. Per the protocol the response is uncached and a
// token naming no live session is still a success.
func (h *SSOHandler) BackchannelLogout(c *gin.Context) {
	instanceID := c.Param("instance")

	logoutToken := c.PostForm("logout_token")
	if logoutToken == "" {
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing logout_token"})
		return
	}

	if err := h.federatedSvc.ProcessBackchannelLogout(c.Request.Context(), instanceID, logoutToken); err != nil {
		c.Header("Cache-Control", "no-store")
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
}

// logIn rotates the session into an authenticated one and returns the user.
func (h *SSOHandler) logIn(c *gin.Context, userID int64, instanceID string) (*domain.User, error) {
	user, err := h.userSvc.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}
	if _, err := h.sessions.establishLogin(c, userID, domain.ProviderFederated, instanceID); err != nil {
		return nil, err
	}
	return user, nil
}
