package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	portsrepo "github.com/scribehub/identity-core/internal/core/ports/repositories"
)

type PgxUserRepository struct {
	BaseRepository
}

func newPgxUserRepository(db *pgxpool.Pool) portsrepo.UserRepository {
	return &PgxUserRepository{BaseRepository: BaseRepository{Pool: db}}
}

// Ensure PgxUserRepository implements portsrepo.UserRepository
var _ portsrepo.UserRepository = (*PgxUserRepository)(nil)

const (
	selectUserFields = `
		user_id, username, display_name, email, photo_url, created_at
	`

	insertUserQuery = `
		INSERT INTO users (username, display_name, email, photo_url)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, created_at
	`

	findUserByIDQuery = `
		SELECT ` + selectUserFields + `
		FROM users
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	findUserByUsernameQuery = `
		SELECT ` + selectUserFields + `
		FROM users
		WHERE username = $1 AND deleted_at IS NULL
	`

	updateUserProfileQuery = `
		UPDATE users
		SET display_name = $2, email = $3, photo_url = $4
		WHERE user_id = $1 AND deleted_at IS NULL
	`
)

// CreateUser inserts a new user row, letting the database assign the id.
func (r *PgxUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	return createUserRow(ctx, r.Pool, user)
}

// createUserRow is shared between the pool-backed path and the transactional
// user+identity creation in the identity repository.
func createUserRow(ctx context.Context, q querier, user *domain.User) error {
	user.Username = strings.ToLower(user.Username)
	err := q.QueryRow(ctx, insertUserQuery,
		nullIfEmpty(user.Username),
		user.DisplayName,
		nullIfEmpty(user.Email),
		nullIfEmpty(user.PhotoURL),
	).Scan(&user.UserID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", user.Username, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	row := r.Pool.QueryRow(ctx, findUserByIDQuery, userID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return user, nil
}

func (r *PgxUserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.Pool.QueryRow(ctx, findUserByUsernameQuery, strings.ToLower(username))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

func (r *PgxUserRepository) UpdateProfile(ctx context.Context, user domain.User) error {
	tag, err := r.Pool.Exec(ctx, updateUserProfileQuery,
		user.UserID,
		user.DisplayName,
		nullIfEmpty(user.Email),
		nullIfEmpty(user.PhotoURL),
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user     domain.User
		username sql.NullString
		email    sql.NullString
		photo    sql.NullString
	)
	err := row.Scan(
		&user.UserID,
		&username,
		&user.DisplayName,
		&email,
		&photo,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Username = username.String
	user.Email = email.String
	user.PhotoURL = photo.String
	return &user, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
