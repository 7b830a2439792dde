// Package session keeps console sessions in Redis, keyed by the value of
// the sessionid cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/debugconsole/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const keyPrefix = "debugconsole:session:"

// Session is a stored console session. User is nil for anonymous sessions.
type Session struct {
	Key       string       `json:"-"`
	User      *models.User `json:"user,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// SessionKey returns the session identifier, or "" for a nil session.
func (s *Session) SessionKey() string {
	if s == nil {
		return ""
	}
	return s.Key
}

// Store is the subset of RedisStore used by handlers and middleware.
type Store interface {
	Create(ctx context.Context, user *models.User) (*Session, error)
	Get(ctx context.Context, key string) (*Session, error)
	Delete(ctx context.Context, key string) error
	// TTL is the lifetime given to new sessions.
	TTL() time.Duration
}

type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis: client,
		ttl:   ttl,
	}
}

// TTL returns the lifetime given to new sessions.
func (s *RedisStore) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session for user and returns it with a fresh
// 32-character key.
func (s *RedisStore) Create(ctx context.Context, user *models.User) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		Key:       newKey(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if user.IsAuthenticated() {
		sess.User = user
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, redisKey(sess.Key), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Session, error) {
	if key == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.redis.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	sess.Key = key
	return &sess, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return keyPrefix + key
}

func newKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
