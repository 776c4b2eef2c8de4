package waiting

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/waiting"
)

// SSE event names
const (
	EventConnected    = "connected"
	EventStatusUpdate = "reservation-waiting-status-update"
	EventAdmit        = "admit"
)

const subscriptionBuffer = 16

// Event is one message pushed to a subscribed client
type Event struct {
	Name string
	Data any
}

// StatusEvent reports a session's place in line
type StatusEvent struct {
	ScheduleID   uuid.UUID `json:"scheduleId"`
	Rank         int64     `json:"rank"`
	TotalWaiting int64     `json:"totalWaiting"`
	UserKey      string    `json:"userKey"`
	Timestamp    int64     `json:"timestamp"`
}

// AdmitEvent delivers an admission token
type AdmitEvent struct {
	Token      string    `json:"token"`
	ScheduleID uuid.UUID `json:"scheduleId"`
	UserKey    string    `json:"userKey"`
}

// Subscription is one client stream on this instance
type Subscription struct {
	ScheduleID uuid.UUID
	UserKey    waiting.UserKey

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	admitted  atomic.Bool
}

func newSubscription(scheduleID uuid.UUID, key waiting.UserKey) *Subscription {
	return &Subscription{
		ScheduleID: scheduleID,
		UserKey:    key,
		events:     make(chan Event, subscriptionBuffer),
		done:       make(chan struct{}),
	}
}

// Events delivers pushed messages
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed when the subscription is removed
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Admitted reports whether an admission token was delivered
func (s *Subscription) Admitted() bool { return s.admitted.Load() }

// offer queues ev without blocking; false when the client is not keeping up
func (s *Subscription) offer(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// emitters tracks the subscriptions held by this instance
type emitters struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[waiting.UserKey]*Subscription
}

func newEmitters() *emitters {
	return &emitters{subs: make(map[uuid.UUID]map[waiting.UserKey]*Subscription)}
}

// add registers sub, replacing and closing any stream for the same session
func (e *emitters) add(sub *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bySchedule, ok := e.subs[sub.ScheduleID]
	if !ok {
		bySchedule = make(map[waiting.UserKey]*Subscription)
		e.subs[sub.ScheduleID] = bySchedule
	}
	if old, ok := bySchedule[sub.UserKey]; ok {
		old.close()
	}
	bySchedule[sub.UserKey] = sub
}

// remove drops sub if it is still the registered stream for its session
func (e *emitters) remove(sub *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bySchedule := e.subs[sub.ScheduleID]
	if bySchedule[sub.UserKey] == sub {
		delete(bySchedule, sub.UserKey)
		if len(bySchedule) == 0 {
			delete(e.subs, sub.ScheduleID)
		}
	}
	sub.close()
}

func (e *emitters) get(scheduleID uuid.UUID, key waiting.UserKey) (*Subscription, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sub, ok := e.subs[scheduleID][key]
	return sub, ok
}

func (e *emitters) forSchedule(scheduleID uuid.UUID) []*Subscription {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Subscription, 0, len(e.subs[scheduleID]))
	for _, sub := range e.subs[scheduleID] {
		out = append(out, sub)
	}
	return out
}

func (e *emitters) count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, bySchedule := range e.subs {
		n += len(bySchedule)
	}
	return n
}
