// Package redisstore implements the session store on redis, whose native
// key expiry enforces the configured session lifetime.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scribehub/identity-core/internal/apperrors"
	"github.com/scribehub/identity-core/internal/core/domain"
	portsrepo "github.com/scribehub/identity-core/internal/core/ports/repositories"
)

const (
	recordKeyPrefix = "sess:rec:"
	userKeyPrefix   = "sess:user:"
	sidKeyPrefix    = "sess:sid:"
)

// RedisSessionStore persists session records with a fixed time-to-live and
// maintains the per-user and per-provider-session lookup indexes needed for
// bulk and backchannel termination.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) portsrepo.SessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

var _ portsrepo.SessionStore = (*RedisSessionStore)(nil)

func recordKey(sessionID string) string { return recordKeyPrefix + sessionID }
func userKey(userID int64) string       { return fmt.Sprintf("%s%d", userKeyPrefix, userID) }
func sidKey(instanceID, providerSessionID string) string {
	return sidKeyPrefix + instanceID + ":" + providerSessionID
}

// Put stores the record, re-arming the TTL, and updates the indexes.
func (s *RedisSessionStore) Put(ctx context.Context, record *domain.SessionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(record.SessionID), payload, s.ttl)
	if record.Login.Authenticated() {
		key := userKey(record.Login.UserID)
		pipe.SAdd(ctx, key, record.SessionID)
		// The index outlives its members by at most one session lifetime;
		// stale members are tolerated and skipped on bulk delete.
		pipe.Expire(ctx, key, s.ttl)
	}
	if record.SSO != nil && record.SSO.ProviderSessionID != "" {
		pipe.Set(ctx, sidKey(record.SSO.InstanceID, record.SSO.ProviderSessionID), record.SessionID, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session record: %w", err)
	}
	return nil
}

// Get loads a record, returning apperrors.ErrNotFound once expired or deleted.
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	payload, err := s.client.Get(ctx, recordKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session record: %w", err)
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &record, nil
}

// Delete removes a single session and its index entries. Absent sessions are
// a no-op.
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	record, err := s.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, recordKey(sessionID))
	if record.Login.Authenticated() {
		pipe.SRem(ctx, userKey(record.Login.UserID), sessionID)
	}
	if record.SSO != nil && record.SSO.ProviderSessionID != "" {
		pipe.Del(ctx, sidKey(record.SSO.InstanceID, record.SSO.ProviderSessionID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return nil
}

// DeleteByUserID removes every live session of a user.
func (s *RedisSessionStore) DeleteByUserID(ctx context.Context, userID int64) (int, error) {
	sessionIDs, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list user sessions: %w", err)
	}

	deleted := 0
	for _, sessionID := range sessionIDs {
		removed, err := s.client.Del(ctx, recordKey(sessionID)).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to delete session %s: %w", sessionID, err)
		}
		deleted += int(removed)
	}
	if err := s.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return deleted, fmt.Errorf("failed to drop user session index: %w", err)
	}
	return deleted, nil
}

// DeleteByProviderSession removes the session matching a federated
// provider's session id. Zero matches returns (0, nil).
func (s *RedisSessionStore) DeleteByProviderSession(ctx context.Context, instanceID, providerSessionID string) (int, error) {
	sessionID, err := s.client.Get(ctx, sidKey(instanceID, providerSessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to resolve provider session: %w", err)
	}

	record, err := s.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Record already expired; drop the dangling index entry.
			_ = s.client.Del(ctx, sidKey(instanceID, providerSessionID)).Err()
			return 0, nil
		}
		return 0, err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, recordKey(sessionID))
	pipe.Del(ctx, sidKey(instanceID, providerSessionID))
	if record.Login.Authenticated() {
		pipe.SRem(ctx, userKey(record.Login.UserID), sessionID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete provider session: %w", err)
	}
	return 1, nil
}
