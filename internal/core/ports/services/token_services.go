package services

import (
	"context"
	"time"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// BearerTokenSvc defines operations for opaque API token management.
type BearerTokenSvc interface {
	// Issue creates a new token for the user. The returned string is the
	// only time the secret is visible; storage keeps only its hash.
	// Requested expiry is clamped to the configured maximum lifetime and
	// defaults to it when zero. Exceeding the per-user ceiling surfaces
	// apperrors.ErrTooManyTokens.
	Issue(ctx context.Context, userID int64, label string, requestedExpiry time.Duration) (string, *domain.BearerToken, error)

	// Validate checks a token string and returns the owning user id.
	// Structural or cryptographic failures surface apperrors.ErrTokenNotValid;
	// an unknown key id surfaces apperrors.ErrNotFound.
	Validate(ctx context.Context, tokenString string) (int64, error)

	// List returns the user's tokens, newest first.
	List(ctx context.Context, userID int64) ([]domain.BearerToken, error)

	// Revoke deletes one of the user's tokens by key id.
	Revoke(ctx context.Context, userID int64, keyID string) error

	// SweepExpired deletes all expired tokens and returns the count removed.
	SweepExpired(ctx context.Context) (int64, error)
}
