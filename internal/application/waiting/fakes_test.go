package waiting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/waiting"
	"github.com/roovies/concert-reservation/internal/infrastructure/auth"
)

// memQueue mirrors RedisWaitingStore in memory
type memQueue struct {
	mu         sync.Mutex
	maxPermits int
	used       map[uuid.UUID]int
	queues     map[uuid.UUID][]waiting.Entry
	active     map[uuid.UUID]bool
	tokens     map[string]string
	lockHeld   map[uuid.UUID]bool
	saveErr    error
}

func newMemQueue(maxPermits int) *memQueue {
	return &memQueue{
		maxPermits: maxPermits,
		used:       make(map[uuid.UUID]int),
		queues:     make(map[uuid.UUID][]waiting.Entry),
		active:     make(map[uuid.UUID]bool),
		tokens:     make(map[string]string),
		lockHeld:   make(map[uuid.UUID]bool),
	}
}

func tokenKey(sid uuid.UUID, key waiting.UserKey) string { return sid.String() + "|" + key.String() }

func (q *memQueue) TryAcquirePermits(_ context.Context, sid uuid.UUID, n int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.maxPermits-q.used[sid] < n {
		return false, nil
	}
	q.used[sid] += n
	return true, nil
}

func (q *memQueue) AvailablePermits(_ context.Context, sid uuid.UUID) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxPermits - q.used[sid], nil
}

func (q *memQueue) ReleasePermits(_ context.Context, sid uuid.UUID, n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used[sid] = max(0, q.used[sid]-n)
	return nil
}

func (q *memQueue) TryAdmitLock(_ context.Context, sid uuid.UUID) (func(), bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lockHeld[sid] {
		return func() {}, false, nil
	}
	q.lockHeld[sid] = true
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.lockHeld, sid)
	}, true, nil
}

func (q *memQueue) Enqueue(_ context.Context, sid uuid.UUID, key waiting.UserKey, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.insert(sid, waiting.Entry{UserKey: key, Score: float64(at.UnixMilli())})
	return nil
}

func (q *memQueue) Requeue(_ context.Context, sid uuid.UUID, entry waiting.Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.insert(sid, entry)
	return nil
}

func (q *memQueue) insert(sid uuid.UUID, entry waiting.Entry) {
	q.queues[sid] = append(q.queues[sid], entry)
	sort.SliceStable(q.queues[sid], func(i, j int) bool { return q.queues[sid][i].Score < q.queues[sid][j].Score })
	q.active[sid] = true
}

func (q *memQueue) Position(_ context.Context, sid uuid.UUID, key waiting.UserKey) (waiting.Position, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos := waiting.Position{UserKey: key, TotalWaiting: int64(len(q.queues[sid]))}
	for i, e := range q.queues[sid] {
		if e.UserKey == key {
			rank := int64(i)
			pos.Rank = &rank
		}
	}
	return pos, nil
}

func (q *memQueue) Remove(_ context.Context, sid uuid.UUID, key waiting.UserKey) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := false
	kept := q.queues[sid][:0]
	for _, e := range q.queues[sid] {
		if e.UserKey == key {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	q.queues[sid] = kept
	if len(kept) == 0 {
		delete(q.active, sid)
	}
	return removed, nil
}

func (q *memQueue) Size(_ context.Context, sid uuid.UUID) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.queues[sid])), nil
}

func (q *memQueue) PopFront(_ context.Context, sid uuid.UUID, n int) ([]waiting.Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n = min(n, len(q.queues[sid]))
	popped := append([]waiting.Entry(nil), q.queues[sid][:n]...)
	q.queues[sid] = q.queues[sid][n:]
	return popped, nil
}

func (q *memQueue) ActiveSchedules(context.Context) ([]uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(q.active))
	for id := range q.active {
		ids = append(ids, id)
	}
	return ids, nil
}

func (q *memQueue) isActive(sid uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active[sid]
}

func (q *memQueue) Deactivate(_ context.Context, sid uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, sid)
	return nil
}

func (q *memQueue) SaveAdmittedToken(_ context.Context, sid uuid.UUID, key waiting.UserKey, token string, _ time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.saveErr != nil {
		return q.saveErr
	}
	q.tokens[tokenKey(sid, key)] = token
	return nil
}

func (q *memQueue) DeleteAdmittedToken(_ context.Context, sid uuid.UUID, key waiting.UserKey) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.tokens[tokenKey(sid, key)]
	delete(q.tokens, tokenKey(sid, key))
	return ok, nil
}

func (q *memQueue) HasAdmittedToken(_ context.Context, sid uuid.UUID, key waiting.UserKey) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.tokens[tokenKey(sid, key)]
	return ok, nil
}

func (q *memQueue) usedPermits(sid uuid.UUID) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used[sid]
}

// recordingNotifier captures broadcasts instead of publishing them
type recordingNotifier struct {
	mu         sync.Mutex
	statuses   []uuid.UUID
	admissions []waiting.Admission
}

func (n *recordingNotifier) PublishStatus(_ context.Context, sid uuid.UUID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, sid)
	return nil
}

func (n *recordingNotifier) PublishAdmissions(_ context.Context, admissions []waiting.Admission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admissions = append(n.admissions, admissions...)
	return nil
}

// stubTokens issues opaque tokens and remembers their claims
type stubTokens struct {
	mu     sync.Mutex
	n      int
	issued map[string]*auth.AdmissionClaims
	fail   bool
}

func newStubTokens() *stubTokens {
	return &stubTokens{issued: make(map[string]*auth.AdmissionClaims)}
}

func (s *stubTokens) GenerateAdmissionToken(userKey string, scheduleID uuid.UUID, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", errors.New("signing failed")
	}
	s.n++
	token := fmt.Sprintf("token-%d", s.n)
	s.issued[token] = &auth.AdmissionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl))},
		UserKey:          userKey,
		ScheduleID:       scheduleID.String(),
		TokenType:        auth.TokenTypeAdmission,
	}
	return token, nil
}

func (s *stubTokens) ValidateAdmissionToken(token string) (*auth.AdmissionClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claims, ok := s.issued[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}
