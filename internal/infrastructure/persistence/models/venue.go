package models

import (
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
	"github.com/roovies/concert-reservation/internal/domain/venue"
	"github.com/shopspring/decimal"
)

// VenueModel is the persistence model for the Venue aggregate.
type VenueModel struct {
	AggregateModel
	Name       string           `gorm:"type:varchar(200);not null"`
	TotalSeats int              `gorm:"not null;default:0"`
	Seats      []VenueSeatModel `gorm:"foreignKey:VenueID"`
}

// TableName returns the table name for GORM
func (VenueModel) TableName() string {
	return "venues"
}

// VenueSeatModel is a seat row of a venue's seat map.
type VenueSeatModel struct {
	BaseModel
	VenueID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_venue_seat_position,priority:1"`
	SeatRow    string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_venue_seat_position,priority:2"`
	SeatNumber int             `gorm:"not null;uniqueIndex:idx_venue_seat_position,priority:3"`
	SeatType   venue.SeatType  `gorm:"type:varchar(20);not null"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

// TableName returns the table name for GORM
func (VenueSeatModel) TableName() string {
	return "venue_seats"
}

// ToDomain converts the persistence model to a domain Venue.
// Seats are included only if they were preloaded.
func (m *VenueModel) ToDomain() *venue.Venue {
	v := &venue.Venue{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		TotalSeats:        m.TotalSeats,
		Seats:             make([]venue.Seat, 0, len(m.Seats)),
	}
	for i := range m.Seats {
		v.Seats = append(v.Seats, m.Seats[i].ToDomain())
	}
	return v
}

// ToDomain converts the persistence model to a domain Seat
func (m *VenueSeatModel) ToDomain() venue.Seat {
	price, err := valueobject.NewMoney(m.Price)
	if err != nil {
		price = valueobject.ZeroMoney()
	}
	return venue.Seat{
		BaseEntity: m.BaseModel.ToDomain(),
		VenueID:    m.VenueID,
		Row:        m.SeatRow,
		SeatNumber: m.SeatNumber,
		SeatType:   m.SeatType,
		Price:      price,
	}
}

// VenueModelFromDomain creates a persistence model, including seats, from a domain Venue
func VenueModelFromDomain(v *venue.Venue) *VenueModel {
	m := &VenueModel{
		Name:       v.Name,
		TotalSeats: v.TotalSeats,
		Seats:      make([]VenueSeatModel, 0, len(v.Seats)),
	}
	m.FromDomainAggregateRoot(v.BaseAggregateRoot)
	for _, s := range v.Seats {
		seat := VenueSeatModel{
			VenueID:    v.ID,
			SeatRow:    s.Row,
			SeatNumber: s.SeatNumber,
			SeatType:   s.SeatType,
			Price:      s.Price.Amount(),
		}
		seat.FromDomainBaseEntity(s.BaseEntity)
		m.Seats = append(m.Seats, seat)
	}
	return m
}
