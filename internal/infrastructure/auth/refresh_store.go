package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RefreshTokenStore tracks live refresh tokens so they can be rotated and revoked
type RefreshTokenStore interface {
	// Save registers a refresh token ID for userID until ttl elapses
	Save(ctx context.Context, userID, jti string, ttl time.Duration) error
	// Consume removes the token ID; false if it was not live (revoked, reused or expired)
	Consume(ctx context.Context, userID, jti string) (bool, error)
	// RevokeAll removes every refresh token of userID
	RevokeAll(ctx context.Context, userID string) error
}

// RedisRefreshTokenStore keeps refresh:{userID}:{jti} keys
type RedisRefreshTokenStore struct {
	client *redis.Client
}

// NewRedisRefreshTokenStore creates the store
func NewRedisRefreshTokenStore(client *redis.Client) *RedisRefreshTokenStore {
	return &RedisRefreshTokenStore{client: client}
}

func refreshKey(userID, jti string) string {
	return "refresh:" + userID + ":" + jti
}

// Save implements RefreshTokenStore
func (s *RedisRefreshTokenStore) Save(ctx context.Context, userID, jti string, ttl time.Duration) error {
	if err := s.client.Set(ctx, refreshKey(userID, jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// Consume implements RefreshTokenStore. DEL is atomic, so a token can be
// consumed at most once even under concurrent reissue.
func (s *RedisRefreshTokenStore) Consume(ctx context.Context, userID, jti string) (bool, error) {
	n, err := s.client.Del(ctx, refreshKey(userID, jti)).Result()
	if err != nil {
		return false, fmt.Errorf("consume refresh token: %w", err)
	}
	return n > 0, nil
}

// RevokeAll implements RefreshTokenStore
func (s *RedisRefreshTokenStore) RevokeAll(ctx context.Context, userID string) error {
	iter := s.client.Scan(ctx, 0, refreshKey(userID, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan refresh tokens: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// NewRefreshTokenStore returns the Redis store when client answers a ping.
// Otherwise, with allowFallback, it returns an in-memory store; refresh tokens
// then do not survive restarts and are not shared between instances.
func NewRefreshTokenStore(ctx context.Context, client *redis.Client, allowFallback bool, logger *zap.Logger) (RefreshTokenStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var pingErr error
	if client != nil {
		if pingErr = client.Ping(ctx).Err(); pingErr == nil {
			return NewRedisRefreshTokenStore(client), nil
		}
	} else {
		pingErr = fmt.Errorf("no redis client configured")
	}

	if !allowFallback {
		return nil, fmt.Errorf("redis required for refresh tokens but unavailable: %w", pingErr)
	}
	logger.Warn("Redis unavailable, falling back to in-memory refresh token store", zap.Error(pingErr))
	return NewInMemoryRefreshTokenStore(), nil
}

// InMemoryRefreshTokenStore is a single-process store for development and tests
type InMemoryRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]map[string]time.Time
}

// NewInMemoryRefreshTokenStore creates an empty store
func NewInMemoryRefreshTokenStore() *InMemoryRefreshTokenStore {
	return &InMemoryRefreshTokenStore{tokens: make(map[string]map[string]time.Time)}
}

// Save implements RefreshTokenStore
func (s *InMemoryRefreshTokenStore) Save(_ context.Context, userID, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens[userID] == nil {
		s.tokens[userID] = make(map[string]time.Time)
	}
	s.tokens[userID][jti] = time.Now().Add(ttl)
	return nil
}

// Consume implements RefreshTokenStore
func (s *InMemoryRefreshTokenStore) Consume(_ context.Context, userID, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.tokens[userID][jti]
	if !ok {
		return false, nil
	}
	delete(s.tokens[userID], jti)
	return time.Now().Before(exp), nil
}

// RevokeAll implements RefreshTokenStore
func (s *InMemoryRefreshTokenStore) RevokeAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, userID)
	return nil
}

var (
	_ RefreshTokenStore = (*RedisRefreshTokenStore)(nil)
	_ RefreshTokenStore = (*InMemoryRefreshTokenStore)(nil)
)
