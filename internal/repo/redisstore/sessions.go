package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/hirebase/internal/domain/session"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "auth:refresh:"
	opTimeout     = 500 * time.Millisecond
	minTTL        = time.Second
)

// kvClient is the subset of *redis.Client the store needs.
type kvClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type record struct {
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionsRepo keeps one key per live refresh session under
// auth:refresh:<jti> plus a per-user index set. Revocation deletes the key
// and expiry is left to the key TTL.
type SessionsRepo struct {
	client kvClient
	prefix string
}

func NewSessionsRepo(client *redis.Client) *SessionsRepo {
	return &SessionsRepo{client: client, prefix: defaultPrefix}
}

func (r *SessionsRepo) key(jti string) string {
	return r.prefix + strings.TrimSpace(jti)
}

func (r *SessionsRepo) userKey(userID string) string {
	return r.prefix + "user:" + userID
}

func ttlFor(s session.Session) time.Duration {
	ttl := s.ExpiresAt.Sub(s.CreatedAt)
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}

func (r *SessionsRepo) Create(ctx context.Context, s session.Session) error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("session id is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	payload, err := json.Marshal(record{
		UserID:    s.UserID,
		TokenHash: s.TokenHash,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	})
	if err != nil {
		return err
	}

	ttl := ttlFor(s)

	if err := r.client.Set(ctx, r.key(s.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	if err := r.client.SAdd(ctx, r.userKey(s.UserID), s.ID).Err(); err != nil {
		return fmt.Errorf("redis index session: %w", err)
	}

	// the index lives at least as long as the newest session
	return r.client.Expire(ctx, r.userKey(s.UserID), ttl).Err()
}

// Rotate consumes the old session with GETDEL, so of two concurrent
// exchanges of the same token only one sees it. A consumed session is gone
// even when the hash check fails afterwards.
func (r *SessionsRepo) Rotate(ctx context.Context, oldID, tokenHash string, next session.Session) error {
	if strings.TrimSpace(oldID) == "" {
		return session.ErrNotFound
	}

	getCtx, cancel := context.WithTimeout(ctx, opTimeout)
	raw, err := r.client.GetDel(getCtx, r.key(oldID)).Bytes()
	cancel()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.ErrNotFound
		}
		return fmt.Errorf("redis getdel session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}

	old := session.Session{
		ID:        oldID,
		UserID:    rec.UserID,
		TokenHash: rec.TokenHash,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}

	if err := old.CheckRotatable(tokenHash, next.UserID, next.CreatedAt); err != nil {
		return err
	}

	return r.Create(ctx, next)
}

func (r *SessionsRepo) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis list sessions: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.key(id))
	}

	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis revoke sessions: %w", err)
	}

	if err := r.client.Del(ctx, r.userKey(userID)).Err(); err != nil {
		return n, fmt.Errorf("redis drop session index: %w", err)
	}

	return n, nil
}

// PurgeExpired is a no-op: redis expires session keys on its own.
func (r *SessionsRepo) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
