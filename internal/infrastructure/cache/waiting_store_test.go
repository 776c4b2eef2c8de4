package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/waiting"
	"github.com/roovies/concert-reservation/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdmittedKey(t *testing.T) {
	sid := uuid.New()
	key := waiting.NewUserKey(uuid.New())

	gotSID, gotKey, ok := ParseAdmittedKey(AdmittedKey(sid, key))
	require.True(t, ok)
	assert.Equal(t, sid, gotSID)
	assert.Equal(t, key, gotKey)

	_, _, ok = ParseAdmittedKey("hold:" + sid.String())
	assert.False(t, ok)
	_, _, ok = ParseAdmittedKey(admittedKeyPrefix + "not-a-uuid:x")
	assert.False(t, ok)
}

func TestRedisWaitingStore_QueueOrdering(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisWaitingStore(client, 2, time.Second)
	ctx := context.Background()
	sid := uuid.New()

	base := time.Now()
	keys := []waiting.UserKey{
		waiting.NewUserKey(uuid.New()),
		waiting.NewUserKey(uuid.New()),
		waiting.NewUserKey(uuid.New()),
	}
	for i, k := range keys {
		require.NoError(t, store.Enqueue(ctx, sid, k, base.Add(time.Duration(i)*time.Millisecond)))
	}

	active, err := store.ActiveSchedules(ctx)
	require.NoError(t, err)
	assert.Contains(t, active, sid)

	pos, err := store.Position(ctx, sid, keys[2])
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos.DisplayRank())
	assert.Equal(t, int64(3), pos.TotalWaiting)

	popped, err := store.PopFront(ctx, sid, 2)
	require.NoError(t, err)
	require.Len(t, popped, 2)
	assert.Equal(t, keys[0], popped[0].UserKey)
	assert.Equal(t, keys[1], popped[1].UserKey)

	require.NoError(t, store.Requeue(ctx, sid, popped[1]))
	remaining, err := client.ZRange(ctx, queueKey(sid), 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{keys[1].String(), keys[2].String()}, remaining, "requeue keeps original order")

	pos, err = store.Position(ctx, sid, keys[0])
	require.NoError(t, err)
	assert.Nil(t, pos.Rank)
}

func TestRedisWaitingStore_RemoveDeactivatesEmptyQueue(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisWaitingStore(client, 2, time.Second)
	ctx := context.Background()
	sid := uuid.New()
	key := waiting.NewUserKey(uuid.New())

	require.NoError(t, store.Enqueue(ctx, sid, key, time.Now()))
	removed, err := store.Remove(ctx, sid, key)
	require.NoError(t, err)
	assert.True(t, removed)

	active, err := store.ActiveSchedules(ctx)
	require.NoError(t, err)
	assert.NotContains(t, active, sid)

	removed, err = store.Remove(ctx, sid, key)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRedisWaitingStore_PermitsAndTokens(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisWaitingStore(client, 2, time.Second)
	ctx := context.Background()
	sid := uuid.New()
	key := waiting.NewUserKey(uuid.New())

	ok, err := store.TryAcquirePermits(ctx, sid, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.TryAcquirePermits(ctx, sid, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ReleasePermits(ctx, sid, 1))
	avail, err := store.AvailablePermits(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 1, avail)

	require.NoError(t, store.SaveAdmittedToken(ctx, sid, key, "tok", time.Minute))
	has, err := store.HasAdmittedToken(ctx, sid, key)
	require.NoError(t, err)
	assert.True(t, has)

	deleted, err := store.DeleteAdmittedToken(ctx, sid, key)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.DeleteAdmittedToken(ctx, sid, key)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisWaitingStore_TryAdmitLock(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisWaitingStore(client, 2, 5*time.Second)
	ctx := context.Background()
	sid := uuid.New()

	release, ok, err := store.TryAdmitLock(ctx, sid)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.TryAdmitLock(ctx, sid)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := store.TryAdmitLock(ctx, sid)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

type recordingListener struct {
	mu         sync.Mutex
	statuses   []uuid.UUID
	admissions []waiting.Admission
	statusGot  chan struct{}
	admitGot   chan struct{}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (r *recordingListener) OnStatus(_ context.Context, sid uuid.UUID) {
	r.mu.Lock()
	r.statuses = append(r.statuses, sid)
	r.mu.Unlock()
	signal(r.statusGot)
}

func (r *recordingListener) OnAdmissions(_ context.Context, a []waiting.Admission) {
	r.mu.Lock()
	r.admissions = append(r.admissions, a...)
	r.mu.Unlock()
	signal(r.admitGot)
}

func TestRedisWaitingNotifier_RoundTrip(t *testing.T) {
	client := testutil.NewRedisClient(t)
	notifier := NewRedisWaitingNotifier(client, nil)
	listener := &recordingListener{statusGot: make(chan struct{}, 1), admitGot: make(chan struct{}, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = notifier.Subscribe(ctx, listener) }()

	sid := uuid.New()
	admission := waiting.Admission{ScheduleID: sid, UserKey: waiting.NewUserKey(uuid.New()), Token: "jwt"}

	// Publish until the subscription is live.
	require.Eventually(t, func() bool {
		_ = notifier.PublishStatus(ctx, sid)
		select {
		case <-listener.statusGot:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, notifier.PublishAdmissions(ctx, []waiting.Admission{admission}))
	select {
	case <-listener.admitGot:
	case <-time.After(5 * time.Second):
		t.Fatal("admission not delivered")
	}

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Contains(t, listener.statuses, sid)
	assert.Equal(t, []waiting.Admission{admission}, listener.admissions)
	require.NoError(t, notifier.Close())
}

func TestAdmissionExpiryListener(t *testing.T) {
	client := testutil.NewRedisClient(t)
	store := NewRedisWaitingStore(client, 2, time.Second)
	listener := NewAdmissionExpiryListener(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type expired struct {
		sid uuid.UUID
		key waiting.UserKey
	}
	got := make(chan expired, 1)
	go func() {
		_ = listener.Run(ctx, func(_ context.Context, sid uuid.UUID, key waiting.UserKey) {
			got <- expired{sid, key}
		})
	}()
	time.Sleep(200 * time.Millisecond)

	sid := uuid.New()
	key := waiting.NewUserKey(uuid.New())
	require.NoError(t, store.SaveAdmittedToken(ctx, sid, key, "tok", 100*time.Millisecond))

	// Redis expires keys lazily or on its sweep; touching the key forces it.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-got:
			assert.Equal(t, sid, e.sid)
			assert.Equal(t, key, e.key)
			return
		case <-deadline:
			t.Fatal("expiry not observed")
		case <-time.After(100 * time.Millisecond):
			_, _ = store.HasAdmittedToken(ctx, sid, key)
		}
	}
}
