package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/dto"
	"github.com/scribehub/identity-core/internal/middleware"
)

// TokenHandler handles HTTP requests for bearer token management.
type TokenHandler struct {
	tokenSvc portssvc.BearerTokenSvc
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokenSvc portssvc.BearerTokenSvc) *TokenHandler {
	return &TokenHandler{tokenSvc: tokenSvc}
}

// CreateToken issues a new token. The secret appears in this response and
// nowhere else, ever.
func (h *TokenHandler) CreateToken(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	var req dto.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	tokenString, token, err := h.tokenSvc.Issue(c.Request.Context(), userID, req.Label,
		time.Duration(req.ExpiresIn)*time.Second)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateTokenResponse{
		Token:   tokenString,
		Details: dto.ToTokenResponse(*token),
	})
}

// ListTokens returns the caller's token metadata, newest first.
func (h *TokenHandler) ListTokens(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	tokens, err := h.tokenSvc.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTokenResponseList(tokens))
}

// RevokeToken deletes one of the caller's tokens by key id.
func (h *TokenHandler) RevokeToken(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	keyID := c.Param("keyID")
	if keyID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing key id"})
		return
	}

	if err := h.tokenSvc.Revoke(c.Request.Context(), userID, keyID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
