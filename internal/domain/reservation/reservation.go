package reservation

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// Status is the lifecycle state of a reservation
type Status string

const (
	StatusHold      Status = "HOLD"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Reservation is the aggregate root for a paid booking of one or more seats
type Reservation struct {
	shared.BaseAggregateRoot
	UserID    uuid.UUID
	PaymentID uuid.UUID
	Status    Status
	Details   []Detail
}

// Detail is a single reserved seat on a schedule
type Detail struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	ScheduleID    uuid.UUID
	SeatID        uuid.UUID
}

type scheduleSeat struct {
	scheduleID uuid.UUID
	seatID     uuid.UUID
}

// NewConfirmedReservation creates a confirmed reservation of seats on a schedule
func NewConfirmedReservation(userID, paymentID, scheduleID uuid.UUID, seatIDs []uuid.UUID) (*Reservation, error) {
	r := &Reservation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		PaymentID:         paymentID,
		Status:            StatusConfirmed,
	}
	details := make([]Detail, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		details = append(details, Detail{
			ID:            uuid.New(),
			ReservationID: r.ID,
			ScheduleID:    scheduleID,
			SeatID:        seatID,
		})
	}
	if err := r.setDetails(details); err != nil {
		return nil, err
	}
	return r, nil
}

// Restore rebuilds a reservation loaded from storage, re-checking its invariants
func Restore(base shared.BaseAggregateRoot, userID, paymentID uuid.UUID, status Status, details []Detail) (*Reservation, error) {
	r := &Reservation{
		BaseAggregateRoot: base,
		UserID:            userID,
		PaymentID:         paymentID,
		Status:            status,
	}
	if err := r.setDetails(details); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reservation) setDetails(details []Detail) error {
	if len(details) == 0 {
		return shared.NewDomainError("INVALID_RESERVATION", "Reservation details cannot be empty")
	}
	seen := make(map[scheduleSeat]struct{}, len(details))
	for _, d := range details {
		if d.ReservationID != r.ID {
			return shared.NewDomainError("INVALID_RESERVATION", "Detail does not belong to this reservation")
		}
		key := scheduleSeat{scheduleID: d.ScheduleID, seatID: d.SeatID}
		if _, dup := seen[key]; dup {
			return shared.NewDomainError("INVALID_RESERVATION", "The same seat cannot be reserved twice for one schedule")
		}
		seen[key] = struct{}{}
	}
	r.Details = details
	return nil
}

// Cancel cancels a confirmed reservation
func (r *Reservation) Cancel() error {
	if r.Status != StatusConfirmed {
		return shared.NewDomainError("INVALID_STATE", "Only confirmed reservations can be cancelled")
	}
	r.Status = StatusCancelled
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// SeatIDs returns reserved seat IDs grouped by schedule
func (r *Reservation) SeatIDs() map[uuid.UUID][]uuid.UUID {
	out := make(map[uuid.UUID][]uuid.UUID)
	for _, d := range r.Details {
		out[d.ScheduleID] = append(out[d.ScheduleID], d.SeatID)
	}
	return out
}

// ScheduleIDs returns the distinct schedules covered by the reservation
func (r *Reservation) ScheduleIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, 1)
	for _, d := range r.Details {
		if _, ok := seen[d.ScheduleID]; ok {
			continue
		}
		seen[d.ScheduleID] = struct{}{}
		ids = append(ids, d.ScheduleID)
	}
	return ids
}
