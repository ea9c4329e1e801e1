package repositories

import (
	"context"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// SessionStore defines storage for ephemeral session records. The store owns
// expiry: every Put (re)arms the configured time-to-live.
type SessionStore interface {
	// Put stores the record and maintains the user and provider-session
	// lookup indexes.
	Put(ctx context.Context, record *domain.SessionRecord) error

	// Get returns the record or apperrors.ErrNotFound once expired or deleted.
	Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error)

	// Delete removes a single session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, sessionID string) error

	// DeleteByUserID removes every session belonging to a user and returns
	// the number removed.
	DeleteByUserID(ctx context.Context, userID int64) (int, error)

	// DeleteByProviderSession removes the session established through the
	// given federated instance and provider session id, returning the
	// number removed (zero when none matched).
	DeleteByProviderSession(ctx context.Context, instanceID, providerSessionID string) (int, error)
}
