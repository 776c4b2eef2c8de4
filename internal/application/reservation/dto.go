package reservation

import (
	"time"

	"github.com/google/uuid"
	venueapp "github.com/roovies/concert-reservation/internal/application/venue"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
)

// HoldSeatsInput is a request to hold seats on a schedule
type HoldSeatsInput struct {
	IdempotencyKey string
	ScheduleID     uuid.UUID
	SeatIDs        []uuid.UUID
	UserID         uuid.UUID
}

// AvailableSeatsDTO lists seats that can still be held on a schedule
type AvailableSeatsDTO struct {
	ScheduleID    uuid.UUID          `json:"schedule_id"`
	Date          string             `json:"date"`
	IsAllReserved bool               `json:"is_all_reserved"`
	Seats         []venueapp.SeatDTO `json:"seats"`
}

// ReservationDTO is a confirmed or cancelled booking
type ReservationDTO struct {
	ID        uuid.UUID         `json:"id"`
	PaymentID uuid.UUID         `json:"payment_id"`
	Status    string            `json:"status"`
	Seats     []ReservedSeatDTO `json:"seats"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ReservedSeatDTO is one seat of a reservation
type ReservedSeatDTO struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	SeatID     uuid.UUID `json:"seat_id"`
}

// ToReservationDTO converts a reservation
func ToReservationDTO(r *reservation.Reservation) ReservationDTO {
	seats := make([]ReservedSeatDTO, len(r.Details))
	for i, d := range r.Details {
		seats[i] = ReservedSeatDTO{ScheduleID: d.ScheduleID, SeatID: d.SeatID}
	}
	return ReservationDTO{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Status:    string(r.Status),
		Seats:     seats,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
