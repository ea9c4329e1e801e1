package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	"github.com/scribehub/identity-core/internal/core/ports/repositories"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
)

// identityService implements the IdentitySvc interface. It is the single
// path through which providers attach external subjects to user accounts.
type identityService struct {
	identityRepo repositories.IdentityRepository
	userRepo     repositories.UserRepository
	logger       *slog.Logger

	allowProfileEdits   bool
	allowUsernameChoice bool
}

// NewIdentityService creates a new instance of identityService.
func NewIdentityService(identityRepo repositories.IdentityRepository, userRepo repositories.UserRepository, logger *slog.Logger, allowProfileEdits, allowUsernameChoice bool) portssvc.IdentitySvc {
	return &identityService{
		identityRepo:        identityRepo,
		userRepo:            userRepo,
		logger:              logger,
		allowProfileEdits:   allowProfileEdits,
		allowUsernameChoice: allowUsernameChoice,
	}
}

func (s *identityService) FindByExternalSubject(ctx context.Context, kind domain.ProviderKind, instance, subjectID string) (*domain.Identity, error) {
	return s.identityRepo.FindByExternalSubject(ctx, kind, instance, subjectID)
}

// Link attaches a new identity to an existing user. Uniqueness violations
// surface as a conflict rather than being silently ignored.
func (s *identityService) Link(ctx context.Context, userID int64, kind domain.ProviderKind, instance, subjectID string, syncSource bool) (*domain.Identity, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown provider kind %q: %w", kind, apperrors.ErrValidation)
	}
	identity := &domain.Identity{
		UserID:           userID,
		Kind:             kind,
		ProviderInstance: instance,
		SubjectID:        subjectID,
		SyncSource:       syncSource,
	}
	if err := s.identityRepo.Create(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// CreateUserWithIdentity creates the user and its first identity in one
// transaction. Confirmed edits are honored only where configuration permits;
// otherwise the provider-supplied proposal is authoritative.
func (s *identityService) CreateUserWithIdentity(ctx context.Context, proposal domain.ExternalProfile, edits portssvc.ProfileEdits, kind domain.ProviderKind, instance, subjectID string, syncSource bool) (*domain.User, *domain.Identity, error) {
	if !kind.Valid() {
		return nil, nil, fmt.Errorf("unknown provider kind %q: %w", kind, apperrors.ErrValidation)
	}

	username := proposal.Username
	if s.allowUsernameChoice && edits.Username != "" {
		username = edits.Username
	}
	displayName := proposal.DisplayName
	photo := proposal.PhotoURL
	if s.allowProfileEdits {
		if edits.DisplayName != "" {
			displayName = edits.DisplayName
		}
		if edits.PhotoURL != "" {
			photo = edits.PhotoURL
		}
	}

	user := &domain.User{
		Username:    strings.ToLower(username),
		DisplayName: displayName,
		Email:       proposal.Email,
		PhotoURL:    photo,
	}
	identity := &domain.Identity{
		Kind:             kind,
		ProviderInstance: instance,
		SubjectID:        subjectID,
		SyncSource:       syncSource,
	}

	if err := s.identityRepo.CreateUserWithIdentity(ctx, user, identity); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, nil, err
		}
		// Infrastructure failure: full detail stays in the log, the caller
		// sees an opaque internal error.
		s.logger.Error("transactional user+identity creation failed",
			slog.String("provider", string(kind)),
			slog.String("instance", instance),
			slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("failed to create account")
	}
	return user, identity, nil
}

// MaybeSyncProfile applies provider-proposed profile fields to the owning
// user, but only for the user's designated sync-source identity and only for
// non-empty fields.
func (s *identityService) MaybeSyncProfile(ctx context.Context, identity *domain.Identity, proposal domain.ExternalProfile) error {
	if identity == nil || !identity.SyncSource {
		return nil
	}

	user, err := s.userRepo.FindUserByID(ctx, identity.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user for profile sync: %w", err)
	}

	changed := false
	if proposal.DisplayName != "" && proposal.DisplayName != user.DisplayName {
		user.DisplayName = proposal.DisplayName
		changed = true
	}
	if proposal.Email != "" && proposal.Email != user.Email {
		user.Email = proposal.Email
		changed = true
	}
	if proposal.PhotoURL != "" && proposal.PhotoURL != user.PhotoURL {
		user.PhotoURL = proposal.PhotoURL
		changed = true
	}
	if !changed {
		return nil
	}
	return s.userRepo.UpdateProfile(ctx, *user)
}
