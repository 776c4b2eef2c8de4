// Package venue serves venue and seat-map queries.
package venue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
	"github.com/roovies/concert-reservation/internal/domain/venue"
	"go.uber.org/zap"
)

// SeatDTO is one seat of a venue
type SeatDTO struct {
	ID         uuid.UUID         `json:"id"`
	Row        string            `json:"row"`
	SeatNumber int               `json:"seat_number"`
	SeatType   string            `json:"seat_type"`
	Price      valueobject.Money `json:"price"`
}

// VenueDTO is a venue, optionally with its seats
type VenueDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	TotalSeats int       `json:"total_seats"`
	Seats      []SeatDTO `json:"seats,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateVenueInput seeds a venue with its seat map
type CreateVenueInput struct {
	Name  string
	Seats []CreateSeatInput
}

// CreateSeatInput describes one seat to create
type CreateSeatInput struct {
	Row        string
	SeatNumber int
	SeatType   venue.SeatType
	Price      int64
}

// Service handles venue operations
type Service struct {
	venueRepo venue.VenueRepository
	logger    *zap.Logger
}

// NewService creates a new venue service
func NewService(venueRepo venue.VenueRepository, logger *zap.Logger) *Service {
	return &Service{venueRepo: venueRepo, logger: logger}
}

// CreateVenue stores a venue and its seats
func (s *Service) CreateVenue(ctx context.Context, input CreateVenueInput) (*VenueDTO, error) {
	v, err := venue.NewVenue(input.Name)
	if err != nil {
		return nil, err
	}
	for _, seat := range input.Seats {
		price, err := valueobject.NewMoneyFromInt(seat.Price)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_SEAT", err.Error())
		}
		if _, err := v.AddSeat(seat.Row, seat.SeatNumber, seat.SeatType, price); err != nil {
			return nil, err
		}
	}
	if err := s.venueRepo.Save(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info("Venue created", zap.String("venue_id", v.ID.String()), zap.Int("seats", v.TotalSeats))
	return toVenueDTO(v), nil
}

// GetVenue returns a venue without seats
func (s *Service) GetVenue(ctx context.Context, id uuid.UUID) (*VenueDTO, error) {
	v, err := s.venueRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toVenueDTO(v), nil
}

// GetVenueWithSeats returns a venue with its seat map
func (s *Service) GetVenueWithSeats(ctx context.Context, id uuid.UUID) (*VenueDTO, error) {
	v, err := s.venueRepo.FindByIDWithSeats(ctx, id)
	if err != nil {
		return nil, err
	}
	return toVenueDTO(v), nil
}

// GetSeatsTotalPrice sums seat prices. An empty list costs nothing; an
// unknown seat is NOT_FOUND.
func (s *Service) GetSeatsTotalPrice(ctx context.Context, seatIDs []uuid.UUID) (valueobject.Money, error) {
	if len(seatIDs) == 0 {
		return valueobject.ZeroMoney(), nil
	}
	unique := make(map[uuid.UUID]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		unique[id] = struct{}{}
	}
	seats, err := s.venueRepo.FindSeatsByIDs(ctx, seatIDs)
	if err != nil {
		return valueobject.Money{}, err
	}
	if len(seats) != len(unique) {
		return valueobject.Money{}, shared.NewDomainError("NOT_FOUND", "One or more seats do not exist")
	}
	return venue.TotalPrice(seats), nil
}

func toVenueDTO(v *venue.Venue) *VenueDTO {
	dto := &VenueDTO{
		ID:         v.ID,
		Name:       v.Name,
		TotalSeats: v.TotalSeats,
		CreatedAt:  v.CreatedAt,
	}
	if len(v.Seats) > 0 {
		dto.Seats = make([]SeatDTO, len(v.Seats))
		for i, seat := range v.Seats {
			dto.Seats[i] = ToSeatDTO(seat)
		}
	}
	return dto
}

// ToSeatDTO converts a seat
func ToSeatDTO(seat venue.Seat) SeatDTO {
	return SeatDTO{
		ID:         seat.ID,
		Row:        seat.Row,
		SeatNumber: seat.SeatNumber,
		SeatType:   string(seat.SeatType),
		Price:      seat.Price,
	}
}
