package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	"github.com/scribehub/identity-core/internal/core/ports/repositories"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/crypt"
	"github.com/scribehub/identity-core/internal/platform/metrics"
)

const sessionIDBytes = 32

// sessionService implements SessionSvc. Session records live in the store;
// the cookie value carries only the opaque id and an HMAC signature that is
// verified before any store lookup.
type sessionService struct {
	store         repositories.SessionStore
	signingSecret []byte
}

// NewSessionService creates a new instance of sessionService.
func NewSessionService(store repositories.SessionStore, signingSecret string) portssvc.SessionSvc {
	return &sessionService{store: store, signingSecret: []byte(signingSecret)}
}

func (s *sessionService) sign(sessionID string) string {
	mac := hmac.New(sha256.New, s.signingSecret)
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Begin creates a fresh session record and returns its signed cookie value.
func (s *sessionService) Begin(ctx context.Context) (*domain.SessionRecord, string, error) {
	sessionID, err := crypt.RandomSecret(sessionIDBytes)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session id: %w", err)
	}
	record := &domain.SessionRecord{SessionID: sessionID}
	if err := s.store.Put(ctx, record); err != nil {
		return nil, "", err
	}
	return record, sessionID + "." + s.sign(sessionID), nil
}

// Resolve verifies the cookie signature before touching the store; a forged
// or truncated value never reaches storage.
func (s *sessionService) Resolve(ctx context.Context, cookieValue string) (*domain.SessionRecord, error) {
	idx := strings.LastIndexByte(cookieValue, '.')
	if idx <= 0 || idx == len(cookieValue)-1 {
		return nil, apperrors.ErrUnauthorized
	}
	sessionID, signature := cookieValue[:idx], cookieValue[idx+1:]
	if !crypt.ConstantTimeEquals(signature, s.sign(sessionID)) {
		return nil, apperrors.ErrUnauthorized
	}

	record, err := s.store.Get(ctx, sessionID)
	if err != nil {
		// Expired or deleted server-side state reads as "not logged in";
		// a store outage must not masquerade as a credential denial.
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return record, nil
}

// Save persists mutations made during a protocol step, re-arming the TTL.
func (s *sessionService) Save(ctx context.Context, record *domain.SessionRecord) error {
	return s.store.Put(ctx, record)
}

// Terminate destroys a single session.
func (s *sessionService) Terminate(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	metrics.SessionsTerminated.WithLabelValues("logout").Inc()
	return nil
}

// TerminateAllForUser destroys every session of a user.
func (s *sessionService) TerminateAllForUser(ctx context.Context, userID int64) (int, error) {
	deleted, err := s.store.DeleteByUserID(ctx, userID)
	if err != nil {
		return deleted, err
	}
	metrics.SessionsTerminated.WithLabelValues("bulk").Add(float64(deleted))
	return deleted, nil
}

// TerminateByProviderSession destroys the session matching a federated
// provider's session id. Zero matches is success.
func (s *sessionService) TerminateByProviderSession(ctx context.Context, instanceID, providerSessionID string) (int, error) {
	deleted, err := s.store.DeleteByProviderSession(ctx, instanceID, providerSessionID)
	if err != nil {
		return deleted, err
	}
	metrics.SessionsTerminated.WithLabelValues("backchannel").Add(float64(deleted))
	return deleted, nil
}
