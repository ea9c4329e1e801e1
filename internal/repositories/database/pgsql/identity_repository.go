package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	portsrepo "github.com/scribehub/identity-core/internal/core/ports/repositories"
)

type PgxIdentityRepository struct {
	BaseRepository
}

func newPgxIdentityRepository(db *pgxpool.Pool) portsrepo.IdentityRepository {
	return &PgxIdentityRepository{BaseRepository: BaseRepository{Pool: db}}
}

var _ portsrepo.IdentityRepository = (*PgxIdentityRepository)(nil)

const (
	selectIdentityFields = `
		identity_id, user_id, provider_kind, provider_instance,
		external_subject, password_hash, sync_source, created_at, updated_at
	`

	insertIdentityQuery = `
		INSERT INTO identities (
			user_id, provider_kind, provider_instance, external_subject,
			password_hash, sync_source
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING identity_id, created_at, updated_at
	`

	findIdentityBySubjectQuery = `
		SELECT ` + selectIdentityFields + `
		FROM identities
		WHERE provider_kind = $1 AND provider_instance = $2 AND external_subject = $3
	`

	findLocalIdentityByUserQuery = `
		SELECT ` + selectIdentityFields + `
		FROM identities
		WHERE user_id = $1 AND provider_kind = 'local'
	`

	updatePasswordHashQuery = `
		UPDATE identities
		SET password_hash = $2, updated_at = NOW()
		WHERE identity_id = $1 AND provider_kind = 'local'
	`
)

// Create inserts a new identity for an existing user.
func (r *PgxIdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	return createIdentityRow(ctx, r.Pool, identity)
}

func createIdentityRow(ctx context.Context, q querier, identity *domain.Identity) error {
	err := q.QueryRow(ctx, insertIdentityQuery,
		identity.UserID,
		string(identity.Kind),
		identity.ProviderInstance,
		nullIfEmpty(identity.SubjectID),
		nullIfEmpty(identity.PasswordHash),
		identity.SyncSource,
	).Scan(&identity.IdentityID, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("identity for %s/%s: %w", identity.Kind, identity.ProviderInstance, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

func (r *PgxIdentityRepository) FindByExternalSubject(ctx context.Context, kind domain.ProviderKind, instance, subjectID string) (*domain.Identity, error) {
	row := r.Pool.QueryRow(ctx, findIdentityBySubjectQuery, string(kind), instance, subjectID)
	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find identity by subject: %w", err)
	}
	return identity, nil
}

func (r *PgxIdentityRepository) FindLocalByUserID(ctx context.Context, userID int64) (*domain.Identity, error) {
	row := r.Pool.QueryRow(ctx, findLocalIdentityByUserQuery, userID)
	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find local identity: %w", err)
	}
	return identity, nil
}

func (r *PgxIdentityRepository) UpdatePasswordHash(ctx context.Context, identityID int64, passwordHash string) error {
	tag, err := r.Pool.Exec(ctx, updatePasswordHashQuery, identityID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// identityTx is the slice of pgx.Tx the transactional create needs.
type identityTx interface {
	querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// CreateUserWithIdentity inserts the user and its first identity inside one
// transaction. Any failure rolls back both rows so no orphaned user is ever
// visible to other callers.
func (r *PgxIdentityRepository) CreateUserWithIdentity(ctx context.Context, user *domain.User, identity *domain.Identity) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	return runCreateUserWithIdentity(ctx, tx, user, identity)
}

func runCreateUserWithIdentity(ctx context.Context, tx identityTx, user *domain.User, identity *domain.Identity) error {
	defer func() {
		// Rollback after a successful commit is a no-op error we ignore.
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) && !errors.Is(rbErr, sql.ErrTxDone) {
			_ = rbErr
		}
	}()

	if err := createUserRow(ctx, tx, user); err != nil {
		return err
	}
	identity.UserID = user.UserID
	if err := createIdentityRow(ctx, tx, identity); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user+identity creation: %w", err)
	}
	return nil
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		identity domain.Identity
		kind     string
		subject  sql.NullString
		pwHash   sql.NullString
	)
	err := row.Scan(
		&identity.IdentityID,
		&identity.UserID,
		&kind,
		&identity.ProviderInstance,
		&subject,
		&pwHash,
		&identity.SyncSource,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	identity.Kind = domain.ProviderKind(kind)
	identity.SubjectID = subject.String
	identity.PasswordHash = pwHash.String
	return &identity, nil
}
