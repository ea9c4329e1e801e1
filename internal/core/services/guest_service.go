package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	"github.com/scribehub/identity-core/internal/core/ports/repositories"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
)

// guestAuthService implements GuestAuthSvc: explicit creation of
// not-yet-registered guest accounts, gated by the global guest policy.
type guestAuthService struct {
	identityRepo repositories.IdentityRepository
	guestEnabled bool
}

func NewGuestAuthService(identityRepo repositories.IdentityRepository, guestEnabled bool) portssvc.GuestAuthSvc {
	return &guestAuthService{identityRepo: identityRepo, guestEnabled: guestEnabled}
}

// BeginGuest creates a guest user (empty username) with its guest identity
// and binds it to the session.
func (s *guestAuthService) BeginGuest(ctx context.Context, session *domain.SessionRecord, displayName string) (*domain.User, error) {
	if !s.guestEnabled {
		return nil, fmt.Errorf("guest access is disabled: %w", apperrors.ErrForbidden)
	}
	if displayName == "" {
		displayName = "Guest"
	}

	user := &domain.User{DisplayName: displayName}
	identity := &domain.Identity{
		Kind:             domain.ProviderGuest,
		ProviderInstance: "guest",
		// Guests have no external provider; a random subject keeps the
		// uniqueness tuple satisfied.
		SubjectID: uuid.NewString(),
	}
	if err := s.identityRepo.CreateUserWithIdentity(ctx, user, identity); err != nil {
		return nil, err
	}

	session.Login = domain.LoginState{
		UserID:           user.UserID,
		Kind:             domain.ProviderGuest,
		ProviderInstance: "guest",
	}
	return user, nil
}
