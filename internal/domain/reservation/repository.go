package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReservationRepository defines the interface for reservation persistence
type ReservationRepository interface {
	// Save creates a reservation with its details
	Save(ctx context.Context, reservation *Reservation) error

	// Update persists a status change using optimistic locking
	Update(ctx context.Context, reservation *Reservation) error

	// FindByID loads a reservation with its details
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// FindByPaymentID loads the reservation created by a payment
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*Reservation, error)

	// FindByUserID lists a user's reservations, newest first
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Reservation, error)

	// FindReservedSeatIDs returns seats on a schedule held by HOLD or CONFIRMED reservations
	FindReservedSeatIDs(ctx context.Context, scheduleID uuid.UUID) ([]uuid.UUID, error)
}

// HoldStore keeps temporary seat holds, keyed per schedule and seat
type HoldStore interface {
	// HoldAll sets every seat as held by userID for ttl.
	// Returns false without writing anything if any seat is already held.
	HoldAll(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID, ttl time.Duration) (bool, error)

	// IsHeldByUser reports whether userID holds every seat
	IsHeldByUser(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (bool, error)

	// TTLSeconds returns the smallest remaining TTL of the user's holds; -2 if any is missing
	TTLSeconds(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) (int64, error)

	// Release deletes holds owned by userID and returns how many were removed
	Release(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (int, error)

	// HeldSeatIDs lists every currently held seat on a schedule, with its holder
	HeldSeatIDs(ctx context.Context, scheduleID uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
}

// HoldIdempotencyStore de-duplicates hold requests by idempotency key
type HoldIdempotencyStore interface {
	// TryProcess claims the key with a processing marker; false if already claimed
	TryProcess(ctx context.Context, key string) (bool, error)

	// IsProcessing reports whether the key holds the processing marker
	IsProcessing(ctx context.Context, key string) (bool, error)

	// FindResult returns the stored result, or nil if none
	FindResult(ctx context.Context, key string) (*HoldSeat, error)

	// SaveResult overwrites the marker with the final result
	SaveResult(ctx context.Context, key string, result *HoldSeat) error

	// RemoveProcessing deletes the processing marker so the client may retry
	RemoveProcessing(ctx context.Context, key string) error
}
