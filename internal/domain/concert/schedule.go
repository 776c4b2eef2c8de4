package concert

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// ReservationStatus tells whether a schedule still has seats
type ReservationStatus string

const (
	ReservationStatusAvailable ReservationStatus = "AVAILABLE"
	ReservationStatusSoldOut   ReservationStatus = "SOLD_OUT"
)

// Schedule is one performance day of a concert at a venue
type Schedule struct {
	shared.BaseEntity
	ConcertID         uuid.UUID
	Date              time.Time
	TotalSeats        int
	AvailableSeats    int
	ReservationStatus ReservationStatus
	VenueID           uuid.UUID
	Version           int
}

// NewSchedule creates a schedule; availableSeats cannot exceed totalSeats
func NewSchedule(concertID uuid.UUID, date time.Time, venueID uuid.UUID, totalSeats, availableSeats int) (*Schedule, error) {
	if totalSeats < 0 || availableSeats < 0 {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", "Seat counts cannot be negative")
	}
	if availableSeats > totalSeats {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", "Available seats cannot exceed total seats")
	}
	status := ReservationStatusAvailable
	if availableSeats == 0 {
		status = ReservationStatusSoldOut
	}
	return &Schedule{
		BaseEntity:        shared.NewBaseEntity(),
		ConcertID:         concertID,
		Date:              DateOf(date),
		TotalSeats:        totalSeats,
		AvailableSeats:    availableSeats,
		ReservationStatus: status,
		VenueID:           venueID,
		Version:           1,
	}, nil
}

// IsSoldOut returns true when no seats remain
func (s *Schedule) IsSoldOut() bool {
	return s.ReservationStatus == ReservationStatusSoldOut
}

// DecreaseAvailableSeats books count seats and returns the remaining count
func (s *Schedule) DecreaseAvailableSeats(count int) (int, error) {
	if count <= 0 {
		return s.AvailableSeats, shared.NewDomainError("INVALID_INPUT", "Seat count must be positive")
	}
	remaining := s.AvailableSeats - count
	if remaining < 0 {
		return s.AvailableSeats, shared.NewDomainError("INSUFFICIENT_SEATS", "Cannot reserve more seats than remain")
	}
	if remaining == 0 {
		s.ReservationStatus = ReservationStatusSoldOut
	}
	s.AvailableSeats = remaining
	s.UpdatedAt = time.Now()
	s.Version++
	return remaining, nil
}

// IncreaseAvailableSeats returns count seats after a cancellation
func (s *Schedule) IncreaseAvailableSeats(count int) (int, error) {
	if count <= 0 {
		return s.AvailableSeats, shared.NewDomainError("INVALID_INPUT", "Seat count must be positive")
	}
	if s.AvailableSeats+count > s.TotalSeats {
		return s.AvailableSeats, shared.NewDomainError("INVALID_STATE", "Available seats cannot exceed total seats")
	}
	s.AvailableSeats += count
	s.ReservationStatus = ReservationStatusAvailable
	s.UpdatedAt = time.Now()
	s.Version++
	return s.AvailableSeats, nil
}
