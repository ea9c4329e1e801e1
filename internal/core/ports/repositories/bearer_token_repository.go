package repositories

import (
	"context"
	"time"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// BearerTokenRepository defines data access for long-lived API tokens.
type BearerTokenRepository interface {
	// Create persists a new token record.
	Create(ctx context.Context, token *domain.BearerToken) error

	// FindByKeyID returns the token or apperrors.ErrNotFound.
	FindByKeyID(ctx context.Context, keyID string) (*domain.BearerToken, error)

	// ListByUserID returns all tokens held by a user, newest first.
	ListByUserID(ctx context.Context, userID int64) ([]domain.BearerToken, error)

	// CountByUserID returns the number of tokens a user currently holds.
	CountByUserID(ctx context.Context, userID int64) (int, error)

	// UpdateLastUsed records the time a token last validated successfully.
	UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error

	// Delete removes a token, returning apperrors.ErrNotFound when absent.
	Delete(ctx context.Context, keyID string) error

	// DeleteExpired removes all tokens whose expiry precedes the given time
	// and returns the number removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
