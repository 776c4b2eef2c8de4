package venue

import (
	"strings"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
)

// SeatType classifies a seat for pricing
type SeatType string

const (
	SeatTypeStandard SeatType = "STANDARD"
	SeatTypeVIP      SeatType = "VIP"
	SeatTypePremium  SeatType = "PREMIUM"
)

// IsValid reports whether the seat type is known
func (t SeatType) IsValid() bool {
	switch t {
	case SeatTypeStandard, SeatTypeVIP, SeatTypePremium:
		return true
	}
	return false
}

// Venue is a concert hall with a fixed seat map
type Venue struct {
	shared.BaseAggregateRoot
	Name       string
	TotalSeats int
	Seats      []Seat
}

// Seat is a single seat in a venue
type Seat struct {
	shared.BaseEntity
	VenueID    uuid.UUID
	Row        string
	SeatNumber int
	SeatType   SeatType
	Price      valueobject.Money
}

// NewVenue creates a venue with no seats yet
func NewVenue(name string) (*Venue, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_VENUE", "Venue name cannot be empty")
	}
	return &Venue{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Seats:             make([]Seat, 0),
	}, nil
}

// AddSeat adds a seat to the venue's seat map. Row+number must be unique.
func (v *Venue) AddSeat(row string, number int, seatType SeatType, price valueobject.Money) (*Seat, error) {
	row = strings.TrimSpace(row)
	if row == "" || number <= 0 {
		return nil, shared.NewDomainError("INVALID_SEAT", "Seat row and number are required")
	}
	if !seatType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SEAT", "Unknown seat type")
	}
	for _, s := range v.Seats {
		if s.Row == row && s.SeatNumber == number {
			return nil, shared.NewDomainError("DUPLICATE_SEAT", "Seat already exists in venue")
		}
	}
	seat := Seat{
		BaseEntity: shared.NewBaseEntity(),
		VenueID:    v.ID,
		Row:        row,
		SeatNumber: number,
		SeatType:   seatType,
		Price:      price,
	}
	v.Seats = append(v.Seats, seat)
	v.TotalSeats = len(v.Seats)
	return &v.Seats[len(v.Seats)-1], nil
}

// SeatIDs returns the IDs of every seat in the venue
func (v *Venue) SeatIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(v.Seats))
	for i, s := range v.Seats {
		ids[i] = s.ID
	}
	return ids
}

// TotalPrice sums the prices of the given seats. Empty input sums to zero.
func TotalPrice(seats []Seat) valueobject.Money {
	prices := make([]valueobject.Money, len(seats))
	for i, s := range seats {
		prices[i] = s.Price
	}
	return valueobject.SumMoney(prices...)
}
