package services

import (
	"log/slog"

	portsrepo "github.com/scribehub/identity-core/internal/core/ports/repositories"
	portssvc "github.com/scribehub/identity-core/internal/core/ports/services"
	"github.com/scribehub/identity-core/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly
// initialized dependencies.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, logger *slog.Logger) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.User = NewUserService(repos.UserRepo)
	container.Identity = NewIdentityService(repos.IdentityRepo, repos.UserRepo, logger,
		cfg.AllowProfileEdits, cfg.AllowUsernameChoice)
	container.Token = NewBearerTokenService(repos.BearerTokenRepo, logger,
		cfg.MaxTokenLifetime, cfg.MaxTokensPerUser)
	container.Session = NewSessionService(repos.SessionStore, cfg.SessionSigningSecret)
	container.Guard = NewSessionGuard(container.User, cfg.GuestAccessEnabled)
	container.Local = NewLocalAuthService(container.Identity, repos.IdentityRepo, repos.UserRepo,
		cfg.MinPasswordScore, cfg.MinPasswordLength)
	container.Directory = NewDirectoryAuthService(cfg.DirectoryInstances, container.Identity, logger)
	container.Federated = NewFederatedAuthService(cfg.FederatedInstances, container.Identity, container.Session, logger)
	container.Guest = NewGuestAuthService(repos.IdentityRepo, cfg.GuestAccessEnabled)

	return container
}

// Compile-time interface checks.
var (
	_ portssvc.BearerTokenSvc   = (*bearerTokenService)(nil)
	_ portssvc.IdentitySvc      = (*identityService)(nil)
	_ portssvc.SessionSvc       = (*sessionService)(nil)
	_ portssvc.SessionGuard     = (*sessionGuard)(nil)
	_ portssvc.LocalAuthSvc     = (*localAuthService)(nil)
	_ portssvc.DirectoryAuthSvc = (*directoryAuthService)(nil)
	_ portssvc.FederatedAuthSvc = (*federatedAuthService)(nil)
	_ portssvc.GuestAuthSvc     = (*guestAuthService)(nil)
)
