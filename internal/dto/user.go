package dto

import (
	"time"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// UserResponse is the external representation of a user account.
type UserResponse struct {
	UserID      int64     `json:"userID"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToUserResponse converts a domain.User to its response DTO.
func ToUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		UserID:      user.UserID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		PhotoURL:    user.PhotoURL,
		CreatedAt:   user.CreatedAt,
	}
}

// MeResponse is the normalized principal returned by the profile endpoint.
type MeResponse struct {
	Kind string        `json:"kind"`
	User *UserResponse `json:"user,omitempty"`
}

// ToMeResponse converts a resolved principal to its response DTO.
func ToMeResponse(principal *domain.Principal) MeResponse {
	resp := MeResponse{Kind: string(principal.Kind)}
	if principal.User != nil {
		user := ToUserResponse(principal.User)
		resp.User = &user
	}
	return resp
}
