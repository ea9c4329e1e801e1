package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/scribehub/identity-core/internal/core/ports/repositories"
)

// NewRepositories wires the postgres-backed repositories. The session store
// is redis-backed and added by the caller.
func NewRepositories(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo:        newPgxUserRepository(dbPool),
		IdentityRepo:    newPgxIdentityRepository(dbPool),
		BearerTokenRepo: newPgxBearerTokenRepository(dbPool),
	}
}
