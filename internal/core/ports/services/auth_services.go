package services

import (
	"context"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// LocalAuthSvc authenticates against locally stored password hashes.
type LocalAuthSvc interface {
	// Register strength-checks the password before any persistence, then
	// creates the user and its local identity in one transaction.
	Register(ctx context.Context, username, password, displayName string) (*domain.User, error)

	// Authenticate verifies a username/password pair. A missing local
	// identity surfaces apperrors.ErrNoLocalIdentity; a mismatch surfaces
	// apperrors.ErrUnauthorized.
	Authenticate(ctx context.Context, username, password string) (*domain.Identity, error)

	// ChangePassword re-verifies the current password before strength
	// checking and storing the new hash.
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
}

// DirectoryAuthSvc authenticates against external directories.
type DirectoryAuthSvc interface {
	// Login binds against the directory instance and, on success, creates
	// or profile-syncs the matching identity. Directory-reported credential
	// failures surface apperrors.ErrUnauthorized with a user-safe message;
	// connectivity and protocol errors are internal.
	Login(ctx context.Context, instanceID, username, password string) (*domain.Identity, error)
}

// GuestAuthSvc creates not-yet-registered guest accounts where policy allows.
type GuestAuthSvc interface {
	// BeginGuest creates a guest user (no username) with a guest identity
	// and binds it to the session, or returns apperrors.ErrForbidden when
	// guest access is disabled.
	BeginGuest(ctx context.Context, session *domain.SessionRecord, displayName string) (*domain.User, error)
}
