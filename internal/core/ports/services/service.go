package services

// ServiceContainer bundles the service-layer ports handed to handlers and
// background workers.
type ServiceContainer struct {
	User      UserSvcFacade
	Identity  IdentitySvc
	Token     BearerTokenSvc
	Session   SessionSvc
	Guard     SessionGuard
	Local     LocalAuthSvc
	Directory DirectoryAuthSvc
	Federated FederatedAuthSvc
	Guest     GuestAuthSvc
}
