package services

import (
	"context"
	"errors"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
)

// sessionGuard implements SessionGuard: the single chokepoint turning an
// inbound request's session into a resolved principal or a denial.
type sessionGuard struct {
	userSvc      portssvc.UserSvcFacade
	guestEnabled bool
}

// NewSessionGuard creates a new instance of sessionGuard.
func NewSessionGuard(userSvc portssvc.UserSvcFacade, guestEnabled bool) portssvc.SessionGuard {
	return &sessionGuard{userSvc: userSvc, guestEnabled: guestEnabled}
}

// ResolvePrincipal resolves exactly one of {authenticated user, guest,
// denied}. A session referencing a deleted user is indistinguishable from
// "not logged in", never a server error.
func (g *sessionGuard) ResolvePrincipal(ctx context.Context, session *domain.SessionRecord) (*domain.Principal, error) {
	if session == nil || !session.Login.Authenticated() {
		return g.guestOrDeny()
	}

	user, err := g.userSvc.GetUserByID(ctx, session.Login.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return g.guestOrDeny()
		}
		return nil, err
	}

	kind := domain.PrincipalUser
	if session.Login.Kind == domain.ProviderGuest {
		kind = domain.PrincipalGuest
	}
	return &domain.Principal{Kind: kind, User: user}, nil
}

func (g *sessionGuard) guestOrDeny() (*domain.Principal, error) {
	if g.guestEnabled {
		return &domain.Principal{Kind: domain.PrincipalGuest}, nil
	}
	return nil, apperrors.ErrUnauthorized
}
