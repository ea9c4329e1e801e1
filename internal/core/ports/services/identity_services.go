package services

import (
	"context"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// ProfileEdits carries the user-confirmed profile fields collected during
// registration. They are honored only where deployment policy permits.
type ProfileEdits struct {
	Username    string
	DisplayName string
	PhotoURL    string
}

// IdentitySvc links external subjects to internal users and keeps profiles
// in sync. It is the only path through which providers create accounts.
type IdentitySvc interface {
	// FindByExternalSubject returns the identity for a provider tuple or
	// apperrors.ErrNotFound.
	FindByExternalSubject(ctx context.Context, kind domain.ProviderKind, instance, subjectID string) (*domain.Identity, error)

	// Link attaches a new identity to an existing user. A uniqueness
	// violation surfaces apperrors.ErrDuplicate.
	Link(ctx context.Context, userID int64, kind domain.ProviderKind, instance, subjectID string, syncSource bool) (*domain.Identity, error)

	// CreateUserWithIdentity transactionally creates a user and its first
	// identity from a provider proposal, applying confirmed edits only when
	// configuration permits profile edits / username choice.
	CreateUserWithIdentity(ctx context.Context, proposal domain.ExternalProfile, edits ProfileEdits, kind domain.ProviderKind, instance, subjectID string, syncSource bool) (*domain.User, *domain.Identity, error)

	// MaybeSyncProfile applies non-empty proposed fields to the owning user
	// when the identity is that user's sync source.
	MaybeSyncProfile(ctx context.Context, identity *domain.Identity, proposal domain.ExternalProfile) error
}

// UserSvcFacade defines the minimal user lookup surface other services need.
type UserSvcFacade interface {
	GetUserByID(ctx context.Context, userID int64) (*domain.User, error)
}
