package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisHoldStore_HoldAllIsAllOrNothing(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisHoldStore(client)
	ctx := context.Background()

	schedule := uuid.New()
	alice, bob := uuid.New(), uuid.New()
	s1, s2, s3 := uuid.New(), uuid.New(), uuid.New()

	ok, err := store.HoldAll(ctx, schedule, []uuid.UUID{s1, s2}, alice, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.HoldAll(ctx, schedule, []uuid.UUID{s2, s3}, bob, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := client.Exists(ctx, HoldKey(schedule, s3)).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "no partial hold on conflict")

	held, err := store.IsHeldByUser(ctx, schedule, []uuid.UUID{s1, s2}, alice)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = store.IsHeldByUser(ctx, schedule, []uuid.UUID{s1, s3}, alice)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRedisHoldStore_TTLSeconds(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisHoldStore(client)
	ctx := context.Background()

	schedule, user := uuid.New(), uuid.New()
	s1, s2 := uuid.New(), uuid.New()
	_, err := store.HoldAll(ctx, schedule, []uuid.UUID{s1}, user, 900*time.Second)
	require.NoError(t, err)
	_, err = store.HoldAll(ctx, schedule, []uuid.UUID{s2}, user, 30*time.Second)
	require.NoError(t, err)

	ttl, err := store.TTLSeconds(ctx, schedule, []uuid.UUID{s1, s2})
	require.NoError(t, err)
	assert.InDelta(t, 30, ttl, 2, "smallest TTL wins")

	ttl, err = store.TTLSeconds(ctx, schedule, []uuid.UUID{s1, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), ttl)
}

func TestRedisHoldStore_ReleaseOnlyOwnHolds(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisHoldStore(client)
	ctx := context.Background()

	schedule := uuid.New()
	alice, bob := uuid.New(), uuid.New()
	s1, s2 := uuid.New(), uuid.New()
	_, _ = store.HoldAll(ctx, schedule, []uuid.UUID{s1}, alice, time.Minute)
	_, _ = store.HoldAll(ctx, schedule, []uuid.UUID{s2}, bob, time.Minute)

	n, err := store.Release(ctx, schedule, []uuid.UUID{s1, s2}, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	held, err := store.HeldSeatIDs(ctx, schedule)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]uuid.UUID{s2: bob}, held)
}

func TestRedisHoldIdempotencyStore(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisHoldIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	claimed, err := store.TryProcess(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = store.TryProcess(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, claimed)

	processing, err := store.IsProcessing(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, processing)

	result, err := store.FindResult(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, result, "marker is not a result")

	want := &reservation.HoldSeat{ScheduleID: uuid.New(), SeatIDs: []uuid.UUID{uuid.New()}, UserID: uuid.New(), TTLSeconds: 900}
	require.NoError(t, store.SaveResult(ctx, "key-1", want))

	got, err := store.FindResult(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.RemoveProcessing(ctx, "key-1"))
	got, err = store.FindResult(ctx, "key-1")
	require.NoError(t, err)
	assert.NotNil(t, got, "RemoveProcessing keeps a saved result")
}

func TestRedisHoldIdempotencyStore_RemoveProcessingAllowsRetry(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisHoldIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	_, _ = store.TryProcess(ctx, "k")
	require.NoError(t, store.RemoveProcessing(ctx, "k"))

	claimed, err := store.TryProcess(ctx, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
}
