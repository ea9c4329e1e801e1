package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nbutton23/zxcvbn-go"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	"github.com/scribehub/identity-core/internal/core/ports/repositories"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/crypt"
	"github.com/scribehub/identity-core/internal/platform/metrics"
)

// localAuthService implements LocalAuthSvc: registration and login against
// locally stored argon2id password hashes.
type localAuthService struct {
	identitySvc  portssvc.IdentitySvc
	identityRepo repositories.IdentityRepository
	userRepo     repositories.UserRepository

	minScore  int
	minLength int
}

// NewLocalAuthService creates a new instance of localAuthService.
func NewLocalAuthService(identitySvc portssvc.IdentitySvc, identityRepo repositories.IdentityRepository, userRepo repositories.UserRepository, minScore, minLength int) portssvc.LocalAuthSvc {
	return &localAuthService{
		identitySvc:  identitySvc,
		identityRepo: identityRepo,
		userRepo:     userRepo,
		minScore:     minScore,
		minLength:    minLength,
	}
}

// checkStrength enforces the password policy. This is a policy violation,
// not a denial, so the message is specific and actionable.
func (s *localAuthService) checkStrength(password string, userInputs ...string) error {
	if len(password) < s.minLength {
		return fmt.Errorf("password must be at least %d characters: %w", s.minLength, apperrors.ErrWeakPassword)
	}
	if zxcvbn.PasswordStrength(password, userInputs).Score < s.minScore {
		return fmt.Errorf("password is too guessable: %w", apperrors.ErrWeakPassword)
	}
	return nil
}

// Register strength-checks the password before any persistence, then creates
// the user and its local identity in one transaction.
func (s *localAuthService) Register(ctx context.Context, username, password, displayName string) (*domain.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", apperrors.ErrValidation)
	}
	if err := s.checkStrength(password, username, displayName); err != nil {
		return nil, err
	}

	hash, err := crypt.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{Username: username, DisplayName: displayName}
	identity := &domain.Identity{
		Kind:             domain.ProviderLocal,
		ProviderInstance: "local",
		PasswordHash:     hash,
	}
	if err := s.identityRepo.CreateUserWithIdentity(ctx, user, identity); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies a username/password pair against the user's local
// identity. The handler collapses every failure into the same generic
// response; the distinct sentinels exist for logging and tests.
func (s *localAuthService) Authenticate(ctx context.Context, username, password string) (*domain.Identity, error) {
	user, err := s.userRepo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			metrics.AuthAttempts.WithLabelValues(string(domain.ProviderLocal), metrics.OutcomeDenied).Inc()
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}

	identity, err := s.identityRepo.FindLocalByUserID(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			metrics.AuthAttempts.WithLabelValues(string(domain.ProviderLocal), metrics.OutcomeDenied).Inc()
			return nil, apperrors.ErrNoLocalIdentity
		}
		return nil, err
	}

	if !crypt.VerifyPassword(password, identity.PasswordHash) {
		metrics.AuthAttempts.WithLabelValues(string(domain.ProviderLocal), metrics.OutcomeDenied).Inc()
		return nil, apperrors.ErrUnauthorized
	}

	metrics.AuthAttempts.WithLabelValues(string(domain.ProviderLocal), metrics.OutcomeSuccess).Inc()
	return identity, nil
}

// ChangePassword re-verifies the current password before strength-checking
// and storing the new hash.
func (s *localAuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	identity, err := s.identityRepo.FindLocalByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrNoLocalIdentity
		}
		return err
	}

	if !crypt.VerifyPassword(currentPassword, identity.PasswordHash) {
		return apperrors.ErrUnauthorized
	}
	if err := s.checkStrength(newPassword); err != nil {
		return err
	}

	hash, err := crypt.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.identityRepo.UpdatePasswordHash(ctx, identity.IdentityID, hash)
}
