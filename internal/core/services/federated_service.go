package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/crypt"
	"github.com/scribehub/identity-core/internal/platform/config"
	"github.com/scribehub/identity-core/internal/platform/metrics"
)

// backchannelLogoutEvent is the standard event key a logout token must carry.
const backchannelLogoutEvent = "http://schemas.openid.net/event/backchannel-logout"

const stateBytes = 24

// federatedAuthService implements FederatedAuthSvc: the authorization-code-
// with-PKCE login flow and the asynchronous backchannel logout callback.
type federatedAuthService struct {
	instances   map[string]config.FederatedInstance
	identitySvc portssvc.IdentitySvc
	sessionSvc  portssvc.SessionSvc
	cache       *issuerCache
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewFederatedAuthService creates a new instance of federatedAuthService.
func NewFederatedAuthService(instances []config.FederatedInstance, identitySvc portssvc.IdentitySvc, sessionSvc portssvc.SessionSvc, logger *slog.Logger) portssvc.FederatedAuthSvc {
	byID := make(map[string]config.FederatedInstance, len(instances))
	for _, inst := range instances {
		byID[inst.ID] = inst
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}
	return &federatedAuthService{
		instances:   byID,
		identitySvc: identitySvc,
		sessionSvc:  sessionSvc,
		cache:       newIssuerCache(httpClient, logger),
		httpClient:  httpClient,
		logger:      logger,
	}
}

// RunIssuerRefresher periodically re-fetches issuer metadata and key sets.
// A stale or unreachable issuer logs an error and stays unusable until the
// next cycle; it never crashes the process.
func (s *federatedAuthService) RunIssuerRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for id, inst := range s.instances {
				if _, err := s.cache.refresh(ctx, id, inst.IssuerURL); err != nil {
					s.logger.Error("issuer metadata refresh failed",
						slog.String("instance", id), slog.String("error", err.Error()))
				}
			}
		}
	}
}

// RunIssuerRefresher starts the refresh loop for a container-built federated
// service. Other implementations are a no-op.
func RunIssuerRefresher(ctx context.Context, svc portssvc.FederatedAuthSvc, interval time.Duration) {
	if s, ok := svc.(*federatedAuthService); ok {
		s.RunIssuerRefresher(ctx, interval)
	}
}

func (s *federatedAuthService) instance(instanceID string) (config.FederatedInstance, error) {
	inst, ok := s.instances[instanceID]
	if !ok {
		return config.FederatedInstance{}, fmt.Errorf("unknown federated instance %q: %w", instanceID, apperrors.ErrNotFound)
	}
	return inst, nil
}

func (s *federatedAuthService) oauthConfig(inst config.FederatedInstance, entry *issuerEntry) *oauth2.Config {
	scopes := inst.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}
	return &oauth2.Config{
		ClientID:     inst.ClientID,
		ClientSecret: inst.ClientSecret,
		RedirectURL:  inst.RedirectURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  entry.metadata.AuthorizationEndpoint,
			TokenURL: entry.metadata.TokenEndpoint,
		},
	}
}

// BeginLogin generates the PKCE verifier and anti-CSRF state, parks both in
// the session, and returns the authorization URL with the derived challenge.
func (s *federatedAuthService) BeginLogin(ctx context.Context, instanceID string, session *domain.SessionRecord) (string, error) {
	inst, err := s.instance(instanceID)
	if err != nil {
		return "", err
	}
	entry, err := s.cache.get(ctx, instanceID, inst.IssuerURL)
	if err != nil {
		s.logger.Error("federated login unavailable", slog.String("instance", instanceID), slog.String("error", err.Error()))
		return "", fmt.Errorf("identity provider unavailable")
	}

	verifier := oauth2.GenerateVerifier()
	state, err := crypt.RandomSecret(stateBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	session.SSO = &domain.SSOHandshake{
		InstanceID:   instanceID,
		CodeVerifier: verifier,
		State:        state,
	}

	return s.oauthConfig(inst, entry).AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// CompleteLogin consumes the callback. The stored state must match and the
// verifier must be present, otherwise the flow fails closed and the one-time
// values are discarded.
func (s *federatedAuthService) CompleteLogin(ctx context.Context, instanceID string, session *domain.SessionRecord, code, state string) (*domain.ExternalProfile, error) {
	inst, err := s.instance(instanceID)
	if err != nil {
		return nil, err
	}

	handshake := session.SSO
	// Whatever happens next, the verifier and state are single-use.
	defer func() {
		if session.SSO != nil {
			session.SSO.CodeVerifier = ""
			session.SSO.State = ""
		}
	}()

	if handshake == nil || handshake.InstanceID != instanceID ||
		handshake.CodeVerifier == "" || handshake.State == "" ||
		!crypt.ConstantTimeEquals(handshake.State, state) {
		metrics.AuthAttempts.WithLabelValues(string(domain.ProviderFederated), metrics.OutcomeDenied).Inc()
		return nil, apperrors.ErrUnauthorized
	}

	entry, err := s.cache.get(ctx, instanceID, inst.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("identity provider unavailable")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	oauthCfg := s.oauthConfig(inst, entry)
	token, err := oauthCfg.Exchange(ctx, code, oauth2.VerifierOption(handshake.CodeVerifier))
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(string(domain.ProviderFederated), metrics.OutcomeDenied).Inc()
		s.logger.Warn("code exchange failed", slog.String("instance", instanceID), slog.String("error", err.Error()))
		return nil, apperrors.ErrUnauthorized
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, apperrors.ErrUnauthorized
	}
	idClaims, err := s.verifyIssuerToken(entry, inst, rawIDToken)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(string(domain.ProviderFederated), metrics.OutcomeDenied).Inc()
		s.logger.Warn("id token rejected", slog.String("instance", instanceID), slog.String("error", err.Error()))
		return nil, apperrors.ErrUnauthorized
	}

	userinfo, err := s.fetchUserinfo(ctx, oauthCfg, entry, token)
	if err != nil {
		s.logger.Error("userinfo fetch failed", slog.String("instance", instanceID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("identity provider unavailable")
	}

	profile := mapClaims(inst, userinfo, idClaims)
	if profile.SubjectID == "" {
		return nil, fmt.Errorf("provider response missing subject claim")
	}

	sid, _ := idClaims["sid"].(string)
	session.SSO = &domain.SSOHandshake{
		InstanceID:        instanceID,
		IDToken:           rawIDToken,
		ProviderSessionID: sid,
	}
	session.Pending = &domain.PendingRegistration{
		Kind:             domain.ProviderFederated,
		ProviderInstance: instanceID,
		SubjectID:        profile.SubjectID,
		Proposal:         *profile,
	}

	metrics.AuthAttempts.WithLabelValues(string(domain.ProviderFederated), metrics.OutcomeSuccess).Inc()
	return profile, nil
}

// verifyIssuerToken checks a JWT's signature against the issuer's published
// keys and its iss/aud binding to this instance.
func (s *federatedAuthService) verifyIssuerToken(entry *issuerEntry, inst config.FederatedInstance, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithIssuer(entry.metadata.Issuer),
		jwt.WithAudience(inst.ClientID),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if key, ok := entry.keys[kid]; ok {
			return key, nil
		}
		// Issuers with a single key may omit kid.
		if kid == "" && len(entry.keys) == 1 {
			for _, key := range entry.keys {
				return key, nil
			}
		}
		return nil, fmt.Errorf("no key matching kid %q", kid)
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *federatedAuthService) fetchUserinfo(ctx context.Context, cfg *oauth2.Config, entry *issuerEntry, token *oauth2.Token) (map[string]any, error) {
	if entry.metadata.UserinfoEndpoint == "" {
		return map[string]any{}, nil
	}
	resp, err := cfg.Client(ctx, token).Get(entry.metadata.UserinfoEndpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %s", resp.Status)
	}
	var userinfo map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return nil, fmt.Errorf("invalid userinfo response: %w", err)
	}
	return userinfo, nil
}

// mapClaims applies the instance's configurable field mapping, preferring
// userinfo over ID-token claims.
func mapClaims(inst config.FederatedInstance, userinfo map[string]any, idClaims jwt.MapClaims) *domain.ExternalProfile {
	pick := func(claim, fallback string) string {
		name := claim
		if name == "" {
			name = fallback
		}
		if v, ok := userinfo[name].(string); ok && v != "" {
			return v
		}
		v, _ := idClaims[name].(string)
		return v
	}
	return &domain.ExternalProfile{
		SubjectID:   pick(inst.SubjectClaim, "sub"),
		Username:    pick(inst.UsernameClaim, "preferred_username"),
		DisplayName: pick(inst.DisplayNameClaim, "name"),
		Email:       pick(inst.EmailClaim, "email"),
		PhotoURL:    pick(inst.PhotoClaim, "picture"),
	}
}

// ResolveIdentity returns the identity for a subject, nil when none exists
// and registration is open, or a forbidden error when policy forbids it so
// the caller never silently offers registration.
func (s *federatedAuthService) ResolveIdentity(ctx context.Context, instanceID, subjectID string) (*domain.Identity, error) {
	inst, err := s.instance(instanceID)
	if err != nil {
		return nil, err
	}
	identity, err := s.identitySvc.FindByExternalSubject(ctx, domain.ProviderFederated, instanceID, subjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if !inst.RegistrationEnabled {
				return nil, apperrors.ErrRegistrationDisabled
			}
			return nil, nil
		}
		return nil, err
	}
	return identity, nil
}

// LogoutURL returns the provider's end-session URL with the ID token hint,
// or "" when the session was not established through a federated provider or
// the provider publishes no end-session endpoint.
func (s *federatedAuthService) LogoutURL(ctx context.Context, session *domain.SessionRecord) (string, error) {
	if session == nil || session.SSO == nil || session.Login.Kind != domain.ProviderFederated {
		return "", nil
	}
	inst, err := s.instance(session.SSO.InstanceID)
	if err != nil {
		return "", nil
	}
	entry, err := s.cache.get(ctx, inst.ID, inst.IssuerURL)
	if err != nil || entry.metadata.EndSessionEndpoint == "" {
		return "", nil
	}

	logoutURL, err := url.Parse(entry.metadata.EndSessionEndpoint)
	if err != nil {
		return "", nil
	}
	q := logoutURL.Query()
	if session.SSO.IDToken != "" {
		q.Set("id_token_hint", session.SSO.IDToken)
	}
	q.Set("client_id", inst.ClientID)
	logoutURL.RawQuery = q.Encode()
	return logoutURL.String(), nil
}

// ProcessBackchannelLogout verifies a signed logout token and terminates the
// sessions it names. The operation is idempotent: zero matching sessions is
// success, because the identity provider cannot distinguish stale state from
// a client bug and must not retry forever.
func (s *federatedAuthService) ProcessBackchannelLogout(ctx context.Context, instanceID, logoutToken string) error {
	inst, err := s.instance(instanceID)
	if err != nil {
		return err
	}
	entry, err := s.cache.get(ctx, instanceID, inst.IssuerURL)
	if err != nil {
		return fmt.Errorf("identity provider unavailable")
	}

	claims, err := s.verifyIssuerToken(entry, inst, logoutToken)
	if err != nil {
		return fmt.Errorf("logout token rejected: %w", apperrors.ErrValidation)
	}
	if err := validateLogoutClaims(claims); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), apperrors.ErrValidation)
	}

	if sid, _ := claims["sid"].(string); sid != "" {
		deleted, err := s.sessionSvc.TerminateByProviderSession(ctx, instanceID, sid)
		if err != nil {
			return err
		}
		s.logger.Info("backchannel logout by sid",
			slog.String("instance", instanceID), slog.Int("terminated", deleted))
		return nil
	}

	sub, _ := claims["sub"].(string)
	identity, err := s.identitySvc.FindByExternalSubject(ctx, domain.ProviderFederated, instanceID, sub)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Unknown subject: nothing to terminate, still success.
			return nil
		}
		return err
	}
	deleted, err := s.sessionSvc.TerminateAllForUser(ctx, identity.UserID)
	if err != nil {
		return err
	}
	s.logger.Info("backchannel logout by sub",
		slog.String("instance", instanceID), slog.Int("terminated", deleted))
	return nil
}

// validateLogoutClaims enforces the logout-token profile: required claims
// present, the backchannel event named, nonce explicitly absent, and at
// least one of sub/sid.
func validateLogoutClaims(claims jwt.MapClaims) error {
	for _, required := range []string{"iss", "aud", "iat", "jti"} {
		if _, ok := claims[required]; !ok {
			return fmt.Errorf("missing required claim %q", required)
		}
	}
	if _, present := claims["nonce"]; present {
		return fmt.Errorf("nonce claim is forbidden in logout tokens")
	}

	events, ok := claims["events"].(map[string]any)
	if !ok {
		return fmt.Errorf("missing events claim")
	}
	if _, ok := events[backchannelLogoutEvent]; !ok {
		return fmt.Errorf("missing backchannel-logout event")
	}

	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	if sub == "" && sid == "" {
		return fmt.Errorf("logout token must carry sub or sid")
	}
	return nil
}
