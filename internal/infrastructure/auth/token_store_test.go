package auth

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roovies/concert-reservation/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBlacklist(t *testing.T, b TokenBlacklist) {
	ctx := context.Background()

	listed, err := b.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, b.AddToBlacklist(ctx, "jti-1", time.Minute))
	listed, err = b.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, listed)

	issued := time.Now().Add(-time.Minute)
	require.NoError(t, b.InvalidateUser(ctx, "user-1", time.Hour))
	invalid, err := b.IsUserInvalidated(ctx, "user-1", issued)
	require.NoError(t, err)
	assert.True(t, invalid)

	invalid, err = b.IsUserInvalidated(ctx, "user-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, invalid, "tokens issued after invalidation stay valid")

	invalid, err = b.IsUserInvalidated(ctx, "user-2", issued)
	require.NoError(t, err)
	assert.False(t, invalid)
}

func exerciseRefreshStore(t *testing.T, s RefreshTokenStore) {
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "u1", "a", time.Hour))
	require.NoError(t, s.Save(ctx, "u1", "b", time.Hour))

	ok, err := s.Consume(ctx, "u1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Consume(ctx, "u1", "a")
	require.NoError(t, err)
	assert.False(t, ok, "a refresh token is single use")

	require.NoError(t, s.RevokeAll(ctx, "u1"))
	ok, err = s.Consume(ctx, "u1", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryTokenBlacklist(t *testing.T) {
	exerciseBlacklist(t, NewInMemoryTokenBlacklist())
}

func TestInMemoryRefreshTokenStore(t *testing.T) {
	exerciseRefreshStore(t, NewInMemoryRefreshTokenStore())
}

func TestNewRefreshTokenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to memory when allowed", func(t *testing.T) {
		store, err := NewRefreshTokenStore(ctx, nil, true, nil)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryRefreshTokenStore{}, store)
		exerciseRefreshStore(t, store)
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		t.Cleanup(func() { _ = rdb.Close() })
		store, err := NewRefreshTokenStore(ctx, rdb, false, nil)
		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("uses redis when reachable", func(t *testing.T) {
		store, err := NewRefreshTokenStore(ctx, testutil.NewRedisClient(t), false, nil)
		require.NoError(t, err)
		assert.IsType(t, &RedisRefreshTokenStore{}, store)
	})
}

func TestRedisTokenBlacklist(t *testing.T) {
	exerciseBlacklist(t, NewRedisTokenBlacklist(testutil.NewRedisClient(t)))
}

func TestRedisRefreshTokenStore(t *testing.T) {
	exerciseRefreshStore(t, NewRedisRefreshTokenStore(testutil.NewRedisClient(t)))
}
