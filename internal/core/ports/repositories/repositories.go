package repositories

// RepositoryProvider bundles the persistence-layer ports handed to the
// service container.
type RepositoryProvider struct {
	UserRepo        UserRepository
	IdentityRepo    IdentityRepository
	BearerTokenRepo BearerTokenRepository
	SessionStore    SessionStore
}
