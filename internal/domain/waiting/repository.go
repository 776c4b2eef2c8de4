package waiting

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QueueStore is the shared waiting-room state: per-schedule permits, the
// ordered queue, the set of schedules with an active queue and admitted tokens.
type QueueStore interface {
	// TryAcquirePermits takes n permits atomically; false if fewer remain
	TryAcquirePermits(ctx context.Context, scheduleID uuid.UUID, n int) (bool, error)
	// AvailablePermits returns the free permit count
	AvailablePermits(ctx context.Context, scheduleID uuid.UUID) (int, error)
	// ReleasePermits returns n permits, never exceeding the maximum
	ReleasePermits(ctx context.Context, scheduleID uuid.UUID, n int) error

	// TryAdmitLock takes the per-schedule admission lock without waiting
	TryAdmitLock(ctx context.Context, scheduleID uuid.UUID) (release func(), ok bool, err error)

	// Enqueue appends a session and marks the schedule as having an active queue
	Enqueue(ctx context.Context, scheduleID uuid.UUID, key UserKey, at time.Time) error
	// Requeue puts a popped session back at its original score
	Requeue(ctx context.Context, scheduleID uuid.UUID, entry Entry) error
	// Position returns a session's rank and the queue length
	Position(ctx context.Context, scheduleID uuid.UUID, key UserKey) (Position, error)
	// Remove deletes a session; deactivates the schedule when the queue empties
	Remove(ctx context.Context, scheduleID uuid.UUID, key UserKey) (bool, error)
	// Size returns the number of queued sessions
	Size(ctx context.Context, scheduleID uuid.UUID) (int64, error)
	// PopFront removes and returns up to n sessions in arrival order
	PopFront(ctx context.Context, scheduleID uuid.UUID, n int) ([]Entry, error)

	// ActiveSchedules lists schedules with an active queue
	ActiveSchedules(ctx context.Context) ([]uuid.UUID, error)
	// Deactivate removes the schedule from the active set
	Deactivate(ctx context.Context, scheduleID uuid.UUID) error

	// SaveAdmittedToken stores an admission token with a TTL
	SaveAdmittedToken(ctx context.Context, scheduleID uuid.UUID, key UserKey, token string, ttl time.Duration) error
	// DeleteAdmittedToken removes an admission token; true if it existed
	DeleteAdmittedToken(ctx context.Context, scheduleID uuid.UUID, key UserKey) (bool, error)
	// HasAdmittedToken reports whether the token is still live
	HasAdmittedToken(ctx context.Context, scheduleID uuid.UUID, key UserKey) (bool, error)
}

// Notifier fans waiting-room events out to every server instance
type Notifier interface {
	// PublishStatus asks all instances to push queue positions for a schedule
	PublishStatus(ctx context.Context, scheduleID uuid.UUID) error
	// PublishAdmissions asks all instances to deliver admission tokens
	PublishAdmissions(ctx context.Context, admissions []Admission) error
}
