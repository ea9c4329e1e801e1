package repositories

import (
	"context"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// IdentityRepository defines data access for provider identities.
type IdentityRepository interface {
	// Create inserts a new identity for an existing user. Violating the
	// (kind, instance, subject) or (user, instance) uniqueness surfaces
	// apperrors.ErrDuplicate.
	Create(ctx context.Context, identity *domain.Identity) error

	// FindByExternalSubject returns the identity matching the provider
	// tuple, or apperrors.ErrNotFound.
	FindByExternalSubject(ctx context.Context, kind domain.ProviderKind, instance, subjectID string) (*domain.Identity, error)

	// FindLocalByUserID returns the user's local password identity, or
	// apperrors.ErrNotFound.
	FindLocalByUserID(ctx context.Context, userID int64) (*domain.Identity, error)

	// UpdatePasswordHash replaces the stored password hash of a local identity.
	UpdatePasswordHash(ctx context.Context, identityID int64, passwordHash string) error

	// CreateUserWithIdentity inserts the user row and its first identity in
	// a single transaction. On any failure both inserts are rolled back and
	// neither row is ever visible to other callers.
	CreateUserWithIdentity(ctx context.Context, user *domain.User, identity *domain.Identity) error
}
