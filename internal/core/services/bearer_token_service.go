package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	"github.com/scribehub/identity-core/internal/core/ports/repositories"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/crypt"
	"github.com/scribehub/identity-core/internal/platform/metrics"
)

const (
	// tokenPrefix identifies the token format/version in the first segment.
	tokenPrefix = "scrb"

	tokenSecretBytes = 64
	tokenKeyIDBytes  = 8
	// 64 random bytes encode to exactly 86 unpadded url-safe characters.
	tokenSecretEncodedLen = 86
)

// bearerTokenService implements the BearerTokenSvc interface.
type bearerTokenService struct {
	tokenRepo        repositories.BearerTokenRepository
	logger           *slog.Logger
	maxTokenLifetime time.Duration
	maxTokensPerUser int
	now              func() time.Time
}

// NewBearerTokenService creates a new instance of bearerTokenService.
func NewBearerTokenService(tokenRepo repositories.BearerTokenRepository, logger *slog.Logger, maxLifetime time.Duration, maxPerUser int) portssvc.BearerTokenSvc {
	return &bearerTokenService{
		tokenRepo:        tokenRepo,
		logger:           logger,
		maxTokenLifetime: maxLifetime,
		maxTokensPerUser: maxPerUser,
		now:              time.Now,
	}
}

// Issue generates a new opaque token for the user. The caller sees the
// secret exactly once; only its hash is persisted.
func (s *bearerTokenService) Issue(ctx context.Context, userID int64, label string, requestedExpiry time.Duration) (string, *domain.BearerToken, error) {
	if userID == 0 {
		return "", nil, fmt.Errorf("user id is required: %w", apperrors.ErrValidation)
	}
	if label == "" {
		return "", nil, fmt.Errorf("token label is required: %w", apperrors.ErrValidation)
	}

	count, err := s.tokenRepo.CountByUserID(ctx, userID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to count tokens: %w", err)
	}
	if count >= s.maxTokensPerUser {
		return "", nil, apperrors.ErrTooManyTokens
	}

	// Clamp to the maximum lifetime; zero or negative requests take the maximum.
	lifetime := requestedExpiry
	if lifetime <= 0 || lifetime > s.maxTokenLifetime {
		lifetime = s.maxTokenLifetime
	}

	secret, err := crypt.RandomSecret(tokenSecretBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token secret: %w", err)
	}
	keyID, err := crypt.RandomSecret(tokenKeyIDBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token key id: %w", err)
	}

	token := &domain.BearerToken{
		KeyID:      keyID,
		UserID:     userID,
		Label:      label,
		SecretHash: crypt.HashTokenSecret(secret),
		ExpiresAt:  s.now().Add(lifetime),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", nil, fmt.Errorf("failed to save token: %w", err)
	}

	return tokenPrefix + "." + keyID + "." + secret, token, nil
}

// Validate parses and checks a token string, returning the owning user id.
// The expiry check deliberately precedes the hash comparison so invalid
// input short-circuits before the costly constant-time work.
func (s *bearerTokenService) Validate(ctx context.Context, tokenString string) (int64, error) {
	segments := strings.Split(tokenString, ".")
	if len(segments) != 3 {
		return 0, apperrors.ErrTokenNotValid
	}
	prefix, keyID, secret := segments[0], segments[1], segments[2]
	if prefix != tokenPrefix || keyID == "" || secret == "" {
		return 0, apperrors.ErrTokenNotValid
	}
	if len(secret) != tokenSecretEncodedLen {
		return 0, apperrors.ErrTokenNotValid
	}

	token, err := s.tokenRepo.FindByKeyID(ctx, keyID)
	if err != nil {
		return 0, err
	}

	if token.IsExpired(s.now()) {
		return 0, apperrors.ErrTokenNotValid
	}

	if !crypt.ConstantTimeEquals(crypt.HashTokenSecret(secret), token.SecretHash) {
		return 0, apperrors.ErrTokenNotValid
	}

	// Last-used bookkeeping happens off the request path; a failure here
	// must not fail an otherwise valid token.
	usedAt := s.now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.tokenRepo.UpdateLastUsed(ctx, token.KeyID, usedAt); err != nil {
			s.logger.Warn("failed to record token last-used time",
				slog.String("key_id", token.KeyID), slog.String("error", err.Error()))
		}
	}()

	return token.UserID, nil
}

// List returns the user's tokens, newest first.
func (s *bearerTokenService) List(ctx context.Context, userID int64) ([]domain.BearerToken, error) {
	tokens, err := s.tokenRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

// Revoke deletes one of the user's tokens by key id.
func (s *bearerTokenService) Revoke(ctx context.Context, userID int64, keyID string) error {
	token, err := s.tokenRepo.FindByKeyID(ctx, keyID)
	if err != nil {
		return err
	}
	// Revoking another user's token reads as "not found", not "forbidden".
	if token.UserID != userID {
		return apperrors.ErrNotFound
	}
	return s.tokenRepo.Delete(ctx, keyID)
}

// SweepExpired removes all tokens whose expiry has passed.
func (s *bearerTokenService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.tokenRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired tokens: %w", err)
	}
	metrics.TokensSwept.Add(float64(deleted))
	return deleted, nil
}

// RunSweeper runs SweepExpired once shortly after start and then on a fixed
// schedule until the context is cancelled. Failures are logged, not fatal.
func RunSweeper(ctx context.Context, svc portssvc.BearerTokenSvc, logger *slog.Logger, interval time.Duration) {
	sweep := func() {
		deleted, err := svc.SweepExpired(ctx)
		if err != nil {
			logger.Error("token sweep failed", slog.String("error", err.Error()))
			return
		}
		if deleted > 0 {
			logger.Info("swept expired bearer tokens", slog.Int64("deleted", deleted))
		}
	}

	startup := time.NewTimer(time.Minute)
	defer startup.Stop()
	select {
	case <-ctx.Done():
		return
	case <-startup.C:
		sweep()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
