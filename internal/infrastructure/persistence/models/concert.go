package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
)

// ConcertModel is the persistence model for the Concert aggregate.
type ConcertModel struct {
	AggregateModel
	Title       string          `gorm:"type:varchar(200);not null"`
	Description string          `gorm:"type:text"`
	MinPrice    int64           `gorm:"not null;default:0"`
	StartDate   time.Time       `gorm:"type:date;not null;index"`
	EndDate     time.Time       `gorm:"type:date;not null"`
	Schedules   []ScheduleModel `gorm:"foreignKey:ConcertID"`
}

// TableName returns the table name for GORM
func (ConcertModel) TableName() string {
	return "concerts"
}

// ScheduleModel is one performance day of a concert.
type ScheduleModel struct {
	BaseModel
	ConcertID         uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_schedule_concert_date,priority:1"`
	ScheduleDate      time.Time                 `gorm:"type:date;not null;uniqueIndex:idx_schedule_concert_date,priority:2"`
	TotalSeats        int                       `gorm:"not null"`
	AvailableSeats    int                       `gorm:"not null"`
	ReservationStatus concert.ReservationStatus `gorm:"type:varchar(20);not null;default:AVAILABLE"`
	VenueID           uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Version           int                       `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (ScheduleModel) TableName() string {
	return "concert_schedules"
}

// ToDomain converts the persistence model to a domain Concert.
// Schedules are included only if they were preloaded.
func (m *ConcertModel) ToDomain() *concert.Concert {
	minPrice, err := valueobject.NewAmount(m.MinPrice)
	if err != nil {
		minPrice = valueobject.ZeroAmount()
	}
	c := &concert.Concert{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Title:             m.Title,
		Description:       m.Description,
		MinPrice:          minPrice,
		StartDate:         concert.DateOf(m.StartDate),
		EndDate:           concert.DateOf(m.EndDate),
		Schedules:         make([]*concert.Schedule, 0, len(m.Schedules)),
	}
	for i := range m.Schedules {
		c.Schedules = append(c.Schedules, m.Schedules[i].ToDomain())
	}
	return c
}

// ToDomain converts the persistence model to a domain Schedule
func (m *ScheduleModel) ToDomain() *concert.Schedule {
	return &concert.Schedule{
		BaseEntity:        m.BaseModel.ToDomain(),
		ConcertID:         m.ConcertID,
		Date:              concert.DateOf(m.ScheduleDate),
		TotalSeats:        m.TotalSeats,
		AvailableSeats:    m.AvailableSeats,
		ReservationStatus: m.ReservationStatus,
		VenueID:           m.VenueID,
		Version:           m.Version,
	}
}

// ConcertModelFromDomain creates a persistence model, including schedules, from a domain Concert
func ConcertModelFromDomain(c *concert.Concert) *ConcertModel {
	m := &ConcertModel{
		Title:       c.Title,
		Description: c.Description,
		MinPrice:    c.MinPrice.Value(),
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		Schedules:   make([]ScheduleModel, 0, len(c.Schedules)),
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	for _, s := range c.Schedules {
		m.Schedules = append(m.Schedules, *ScheduleModelFromDomain(s))
	}
	return m
}

// ScheduleModelFromDomain creates a persistence model from a domain Schedule
func ScheduleModelFromDomain(s *concert.Schedule) *ScheduleModel {
	m := &ScheduleModel{
		ConcertID:         s.ConcertID,
		ScheduleDate:      s.Date,
		TotalSeats:        s.TotalSeats,
		AvailableSeats:    s.AvailableSeats,
		ReservationStatus: s.ReservationStatus,
		VenueID:           s.VenueID,
		Version:           s.Version,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}
