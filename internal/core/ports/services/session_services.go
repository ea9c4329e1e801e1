package services

import (
	"context"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// SessionSvc manages server-side session records and their signed cookie
// representation.
type SessionSvc interface {
	// Begin creates a fresh session record and returns it with the signed
	// cookie value referencing it.
	Begin(ctx context.Context) (*domain.SessionRecord, string, error)

	// Resolve verifies the cookie value's signature and loads the record.
	// Bad signatures and unknown or expired sessions surface
	// apperrors.ErrUnauthorized.
	Resolve(ctx context.Context, cookieValue string) (*domain.SessionRecord, error)

	// Save persists mutations made during a protocol step and re-arms the TTL.
	Save(ctx context.Context, record *domain.SessionRecord) error

	// Terminate destroys a single session.
	Terminate(ctx context.Context, sessionID string) error

	// TerminateAllForUser destroys every session of a user, returning the count.
	TerminateAllForUser(ctx context.Context, userID int64) (int, error)

	// TerminateByProviderSession destroys the session matching a federated
	// provider's session id, returning the count (zero is not an error).
	TerminateByProviderSession(ctx context.Context, instanceID, providerSessionID string) (int, error)
}

// SessionGuard is the single chokepoint turning a request's session into a
// resolved principal or a denial.
type SessionGuard interface {
	// ResolvePrincipal returns an authenticated or guest principal, or
	// apperrors.ErrUnauthorized when neither applies. A session referencing
	// a deleted user is treated as not logged in, never as a server error.
	ResolvePrincipal(ctx context.Context, session *domain.SessionRecord) (*domain.Principal, error)
}
