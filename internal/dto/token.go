package dto

import (
	"time"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// CreateTokenRequest is the body for issuing a new API token.
type CreateTokenRequest struct {
	Label string `json:"label" binding:"required,min=3,max=100"`
	// ExpiresIn is the requested lifetime in seconds. Omitted or zero means
	// the maximum permitted lifetime.
	ExpiresIn int64 `json:"expiresIn,omitempty"`
}

// TokenResponse is the metadata view of a token. The secret never appears
// here.
type TokenResponse struct {
	KeyID      string     `json:"keyID"`
	Label      string     `json:"label"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// CreateTokenResponse carries the one-time token string plus its metadata.
type CreateTokenResponse struct {
	Token   string        `json:"token"`
	Details TokenResponse `json:"details"`
}

// ToTokenResponse converts a domain.BearerToken to its response DTO.
func ToTokenResponse(token domain.BearerToken) TokenResponse {
	return TokenResponse{
		KeyID:      token.KeyID,
		Label:      token.Label,
		CreatedAt:  token.CreatedAt,
		ExpiresAt:  token.ExpiresAt,
		LastUsedAt: token.LastUsedAt,
	}
}

// ToTokenResponseList converts a slice of tokens to response DTOs.
func ToTokenResponseList(tokens []domain.BearerToken) []TokenResponse {
	responses := make([]TokenResponse, len(tokens))
	for i, token := range tokens {
		responses[i] = ToTokenResponse(token)
	}
	return responses
}
