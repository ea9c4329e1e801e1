package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scribehub/identity-core/internal/dto"
	"github.com/scribehub/identity-core/internal/middleware"
)

// MeHandler exposes the caller's resolved principal.
type MeHandler struct{}

// Me returns the normalized principal for the current request: a user with
// its profile, or a bare guest.
func (h *MeHandler) Me(c *gin.Context) {
	principal, ok := middleware.GetPrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, dto.ToMeResponse(principal))
}

// HealthHandler reports process liveness plus optional dependency pings.
type HealthHandler struct {
	pings map[string]func(*gin.Context) error
}

// NewHealthHandler creates a HealthHandler checking the named dependencies.
func NewHealthHandler(pings map[string]func(*gin.Context) error) *HealthHandler {
	return &HealthHandler{pings: pings}
}

// Health returns 200 when every dependency answers, 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.pings))
	for name, ping := range h.pings {
		if err := ping(c); err != nil {
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "dependencies": deps})
}
