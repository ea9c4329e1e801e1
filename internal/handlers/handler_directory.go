package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/dto"
)

// DirectoryHandler handles logins against configured external directories.
type DirectoryHandler struct {
	directorySvc portssvc.DirectoryAuthSvc
	userSvc      portssvc.UserSvcFacade
	sessions     *sessionManager
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(services *portssvc.ServiceContainer, sessions *sessionManager) *DirectoryHandler {
	return &DirectoryHandler{
		directorySvc: services.Directory,
		userSvc:      services.User,
		sessions:     sessions,
	}
}

// Login authenticates against the directory instance named in the path.
// Directory-reported refusals come back as 401 with a user-safe reason;
// connectivity problems are a 500 that reveals nothing about the account.
func (h *DirectoryHandler) Login(c *gin.Context) {
	instanceID := c.Param("instance")

	var req dto.DirectoryLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	identity, err := h.directorySvc.Login(c.Request.Context(), instanceID, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := h.userSvc.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.sessions.establishLogin(c, user.UserID, domain.ProviderDirectory, instanceID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LoginResponse{User: dto.ToUserResponse(user)})
}
