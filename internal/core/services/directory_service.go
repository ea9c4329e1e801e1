package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/platform/config"
	"github.com/scribehub/identity-core/internal/platform/metrics"
)

// directoryConn is the subset of *ldap.Conn the provider uses; tests inject
// a fake.
type directoryConn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// directoryDialer opens a connection to one configured directory instance.
type directoryDialer func(inst config.DirectoryInstance) (directoryConn, error)

// directoryAuthService implements DirectoryAuthSvc: bind-and-search
// authentication against one or more external directories.
type directoryAuthService struct {
	instances   map[string]config.DirectoryInstance
	identitySvc portssvc.IdentitySvc
	logger      *slog.Logger
	dial        directoryDialer
}

// NewDirectoryAuthService creates a new instance of directoryAuthService.
func NewDirectoryAuthService(instances []config.DirectoryInstance, identitySvc portssvc.IdentitySvc, logger *slog.Logger) portssvc.DirectoryAuthSvc {
	byID := make(map[string]config.DirectoryInstance, len(instances))
	for _, inst := range instances {
		byID[inst.ID] = inst
	}
	return &directoryAuthService{
		instances:   byID,
		identitySvc: identitySvc,
		logger:      logger,
		dial:        dialDirectory,
	}
}

func dialDirectory(inst config.DirectoryInstance) (directoryConn, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: inst.InsecureTLS} //nolint:gosec // operator-configured for test directories
	conn, err := ldap.DialURL(inst.URL, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, err
	}
	if inst.StartTLS {
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// Known directory result sub-codes reported alongside invalid-credentials,
// translated into stable user-safe denial messages. Everything else stays a
// generic denial so account enumeration learns nothing.
var directoryDenialReasons = map[string]string{
	"530": "login not permitted at this time",
	"531": "login not permitted from this workstation",
	"532": "password expired",
	"533": "account disabled",
	"701": "account expired",
	"773": "password must be reset",
	"775": "account locked",
}

// Login performs the bind-search-rebind sequence against the instance and
// reconciles the mapped attributes with the identity store.
func (s *directoryAuthService) Login(ctx context.Context, instanceID, username, password string) (*domain.Identity, error) {
	inst, ok := s.instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("unknown directory instance %q: %w", instanceID, apperrors.ErrNotFound)
	}
	// An empty password would turn the verification bind into an anonymous
	// bind, which many directories report as success.
	if username == "" || password == "" {
		return nil, apperrors.ErrUnauthorized
	}

	profile, err := s.authenticate(inst, username, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			metrics.AuthAttempts.WithLabelValues(string(domain.ProviderDirectory), metrics.OutcomeDenied).Inc()
			return nil, err
		}
		metrics.AuthAttempts.WithLabelValues(string(domain.ProviderDirectory), metrics.OutcomeError).Inc()
		s.logger.Error("directory authentication failed",
			slog.String("instance", instanceID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("directory unavailable")
	}

	identity, err := s.identitySvc.FindByExternalSubject(ctx, domain.ProviderDirectory, instanceID, profile.SubjectID)
	switch {
	case err == nil:
		if err := s.identitySvc.MaybeSyncProfile(ctx, identity, *profile); err != nil {
			s.logger.Warn("directory profile sync failed",
				slog.String("instance", instanceID), slog.String("error", err.Error()))
		}
	case errors.Is(err, apperrors.ErrNotFound):
		_, identity, err = s.identitySvc.CreateUserWithIdentity(ctx, *profile, portssvc.ProfileEdits{},
			domain.ProviderDirectory, instanceID, profile.SubjectID, inst.SyncSource)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues(string(domain.ProviderDirectory), metrics.OutcomeSuccess).Inc()
	return identity, nil
}

// authenticate performs the wire exchange and maps the configured attributes
// onto a normalized profile.
func (s *directoryAuthService) authenticate(inst config.DirectoryInstance, username, password string) (*domain.ExternalProfile, error) {
	conn, err := s.dial(inst)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to directory: %w", err)
	}
	defer conn.Close()

	if err := conn.Bind(inst.BindDN, inst.BindPassword); err != nil {
		return nil, fmt.Errorf("service bind failed: %w", err)
	}

	attrs := []string{inst.SubjectAttr, inst.UsernameAttr, inst.DisplayNameAttr, inst.EmailAttr}
	if inst.PhotoAttr != "" {
		attrs = append(attrs, inst.PhotoAttr)
	}
	req := ldap.NewSearchRequest(
		inst.SearchBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 10, false,
		fmt.Sprintf(inst.SearchFilter, ldap.EscapeFilter(username)),
		attrs,
		nil,
	)
	result, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("directory search failed: %w", err)
	}
	if len(result.Entries) == 0 {
		// Unknown user reads the same as a wrong password.
		return nil, apperrors.ErrUnauthorized
	}
	if len(result.Entries) > 1 {
		return nil, fmt.Errorf("search filter matched %d entries", len(result.Entries))
	}
	entry := result.Entries[0]

	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, classifyBindError(err)
	}

	subject := entry.GetAttributeValue(inst.SubjectAttr)
	if subject == "" {
		return nil, fmt.Errorf("directory entry missing subject attribute %q", inst.SubjectAttr)
	}
	return &domain.ExternalProfile{
		SubjectID:   subject,
		Username:    entry.GetAttributeValue(inst.UsernameAttr),
		DisplayName: entry.GetAttributeValue(inst.DisplayNameAttr),
		Email:       entry.GetAttributeValue(inst.EmailAttr),
		PhotoURL:    entry.GetAttributeValue(inst.PhotoAttr),
	}, nil
}

// classifyBindError turns a directory-reported credential failure into a
// denial, keeping connectivity and protocol errors fatal.
func classifyBindError(err error) error {
	if !ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
		return fmt.Errorf("verification bind failed: %w", err)
	}
	// Some directories append "data NNN" sub-codes describing why the
	// credentials were refused; the known ones get a user-safe message.
	msg := err.Error()
	for code, reason := range directoryDenialReasons {
		if strings.Contains(msg, "data "+code) {
			return &apperrors.DeniedError{Reason: reason}
		}
	}
	return apperrors.ErrUnauthorized
}
