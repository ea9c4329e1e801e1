package repositories

import (
	"context"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// UserRepository defines data access for user accounts.
type UserRepository interface {
	// CreateUser inserts a new user and fills in the generated UserID and
	// CreatedAt. A username collision surfaces apperrors.ErrDuplicate.
	CreateUser(ctx context.Context, user *domain.User) error

	// FindUserByID returns the user or apperrors.ErrNotFound.
	FindUserByID(ctx context.Context, userID int64) (*domain.User, error)

	// FindUserByUsername matches case-insensitively and returns
	// apperrors.ErrNotFound when absent.
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// UpdateProfile overwrites display name, email and photo URL.
	UpdateProfile(ctx context.Context, user domain.User) error
}
