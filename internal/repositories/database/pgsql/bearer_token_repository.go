package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	portsrepo "github.com/scribehub/identity-core/internal/core/ports/repositories"
)

type PgxBearerTokenRepository struct {
	BaseRepository
}

func newPgxBearerTokenRepository(db *pgxpool.Pool) portsrepo.BearerTokenRepository {
	return &PgxBearerTokenRepository{BaseRepository: BaseRepository{Pool: db}}
}

var _ portsrepo.BearerTokenRepository = (*PgxBearerTokenRepository)(nil)

const (
	selectBearerTokenFields = `
		key_id, user_id, label, secret_hash, created_at, expires_at, last_used_at
	`

	insertBearerTokenQuery = `
		INSERT INTO bearer_tokens (key_id, user_id, label, secret_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	findBearerTokenByKeyIDQuery = `
		SELECT ` + selectBearerTokenFields + `
		FROM bearer_tokens
		WHERE key_id = $1
	`

	listBearerTokensByUserQuery = `
		SELECT ` + selectBearerTokenFields + `
		FROM bearer_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	countBearerTokensByUserQuery = `
		SELECT COUNT(*) FROM bearer_tokens WHERE user_id = $1
	`

	updateBearerTokenLastUsedQuery = `
		UPDATE bearer_tokens SET last_used_at = $2 WHERE key_id = $1
	`

	deleteBearerTokenQuery = `
		DELETE FROM bearer_tokens WHERE key_id = $1
	`

	deleteExpiredBearerTokensQuery = `
		DELETE FROM bearer_tokens WHERE expires_at < $1
	`
)

func (r *PgxBearerTokenRepository) Create(ctx context.Context, token *domain.BearerToken) error {
	err := r.Pool.QueryRow(ctx, insertBearerTokenQuery,
		token.KeyID,
		token.UserID,
		token.Label,
		token.SecretHash,
		token.ExpiresAt,
	).Scan(&token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("token key id collision: %w", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to create bearer token: %w", err)
	}
	return nil
}

func (r *PgxBearerTokenRepository) FindByKeyID(ctx context.Context, keyID string) (*domain.BearerToken, error) {
	row := r.Pool.QueryRow(ctx, findBearerTokenByKeyIDQuery, keyID)
	token, err := scanBearerToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bearer token: %w", err)
	}
	return token, nil
}

func (r *PgxBearerTokenRepository) ListByUserID(ctx context.Context, userID int64) ([]domain.BearerToken, error) {
	rows, err := r.Pool.Query(ctx, listBearerTokensByUserQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bearer tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.BearerToken
	for rows.Next() {
		token, err := scanBearerToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bearer token: %w", err)
		}
		tokens = append(tokens, *token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *PgxBearerTokenRepository) CountByUserID(ctx context.Context, userID int64) (int, error) {
	var count int
	if err := r.Pool.QueryRow(ctx, countBearerTokensByUserQuery, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bearer tokens: %w", err)
	}
	return count, nil
}

func (r *PgxBearerTokenRepository) UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error {
	_, err := r.Pool.Exec(ctx, updateBearerTokenLastUsedQuery, keyID, at)
	if err != nil {
		return fmt.Errorf("failed to update token last-used: %w", err)
	}
	return nil
}

func (r *PgxBearerTokenRepository) Delete(ctx context.Context, keyID string) error {
	tag, err := r.Pool.Exec(ctx, deleteBearerTokenQuery, keyID)
	if err != nil {
		return fmt.Errorf("failed to delete bearer token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxBearerTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.Pool.Exec(ctx, deleteExpiredBearerTokensQuery, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired bearer tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanBearerToken(row pgx.Row) (*domain.BearerToken, error) {
	var (
		token    domain.BearerToken
		lastUsed *time.Time
	)
	err := row.Scan(
		&token.KeyID,
		&token.UserID,
		&token.Label,
		&token.SecretHash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&lastUsed,
	)
	if err != nil {
		return nil, err
	}
	token.LastUsedAt = lastUsed
	return &token, nil
}
