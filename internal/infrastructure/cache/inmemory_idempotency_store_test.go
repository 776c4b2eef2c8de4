package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	first, err := store.MarkProcessed(ctx, "h:e1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "h:e1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	processed, _ := store.IsProcessed(ctx, "h:e1")
	assert.True(t, processed)

	now = now.Add(2 * time.Minute)
	processed, _ = store.IsProcessed(ctx, "h:e1")
	assert.False(t, processed, "expired keys are not processed")

	reclaimed, err := store.MarkProcessed(ctx, "h:e1", time.Minute)
	require.NoError(t, err)
	assert.True(t, reclaimed)
}

func TestInMemoryIdempotencyStore_RemoveExpired(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "a", -time.Second)
	_, _ = store.MarkProcessed(ctx, "b", time.Hour)
	store.removeExpired()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.MarkProcessed(context.Background(), "same", time.Hour); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestNewIdempotencyStore_FallsBackWithoutClient(t *testing.T) {
	store, err := NewIdempotencyStore(context.Background(), nil, true, nil)
	require.NoError(t, err)
	defer store.Close()
	_, ok := store.(*InMemoryIdempotencyStore)
	assert.True(t, ok)

	_, err = NewIdempotencyStore(context.Background(), nil, false, nil)
	assert.Error(t, err)
}
