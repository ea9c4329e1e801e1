package services

import (
	"context"

	"github.com/scribehub/identity-core/internal/core/domain"
)

// FederatedAuthSvc drives the authorization-code-with-PKCE login flow and
// its asynchronous backchannel logout callback.
type FederatedAuthSvc interface {
	// BeginLogin generates the PKCE verifier and anti-CSRF state, stores
	// both in the session's handshake sub-state, and returns the provider's
	// authorization URL.
	BeginLogin(ctx context.Context, instanceID string, session *domain.SessionRecord) (string, error)

	// CompleteLogin exchanges the callback code against the stored
	// verifier, verifies the ID token, fetches userinfo, and stores the
	// mapped profile in the session's pending-registration sub-state. A
	// state mismatch or missing verifier fails closed.
	CompleteLogin(ctx context.Context, instanceID string, session *domain.SessionRecord, code, state string) (*domain.ExternalProfile, error)

	// ResolveIdentity returns the identity for a provider subject, nil when
	// none exists and registration is permitted, or
	// apperrors.ErrRegistrationDisabled when policy forbids registration.
	ResolveIdentity(ctx context.Context, instanceID, subjectID string) (*domain.Identity, error)

	// LogoutURL returns the provider's end-session URL with the stored ID
	// token hint, or "" when the provider has none or the session was not
	// established through it.
	LogoutURL(ctx context.Context, session *domain.SessionRecord) (string, error)

	// ProcessBackchannelLogout verifies a signed logout token and
	// terminates the matching session (sid) or all of the subject's
	// sessions (sub). Zero matching sessions is success.
	ProcessBackchannelLogout(ctx context.Context, instanceID, logoutToken string) error
}
