package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
)

// ReservationModel is the persistence model for the Reservation aggregate.
type ReservationModel struct {
	AggregateModel
	UserID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	PaymentID uuid.UUID                `gorm:"type:uuid;not null;index"`
	Status    reservation.Status       `gorm:"type:varchar(20);not null;index"`
	Details   []ReservationDetailModel `gorm:"foreignKey:ReservationID"`
}

// TableName returns the table name for GORM
func (ReservationModel) TableName() string {
	return "reservations"
}

// ReservationDetailModel is one reserved seat.
type ReservationDetailModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReservationID uuid.UUID `gorm:"type:uuid;not null;index"`
	ScheduleID    uuid.UUID `gorm:"type:uuid;not null;index:idx_reservation_detail_schedule_seat,priority:1"`
	SeatID        uuid.UUID `gorm:"type:uuid;not null;index:idx_reservation_detail_schedule_seat,priority:2"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReservationDetailModel) TableName() string {
	return "reservation_details"
}

// ToDomain converts the persistence model to a domain Reservation
func (m *ReservationModel) ToDomain() (*reservation.Reservation, error) {
	details := make([]reservation.Detail, 0, len(m.Details))
	for _, d := range m.Details {
		details = append(details, reservation.Detail{
			ID:            d.ID,
			ReservationID: d.ReservationID,
			ScheduleID:    d.ScheduleID,
			SeatID:        d.SeatID,
		})
	}
	return reservation.Restore(m.ToAggregateRoot(), m.UserID, m.PaymentID, m.Status, details)
}

// ReservationModelFromDomain creates a persistence model, including details, from a domain Reservation
func ReservationModelFromDomain(r *reservation.Reservation) *ReservationModel {
	m := &ReservationModel{
		UserID:    r.UserID,
		PaymentID: r.PaymentID,
		Status:    r.Status,
		Details:   make([]ReservationDetailModel, 0, len(r.Details)),
	}
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	for _, d := range r.Details {
		m.Details = append(m.Details, ReservationDetailModel{
			ID:            d.ID,
			ReservationID: r.ID,
			ScheduleID:    d.ScheduleID,
			SeatID:        d.SeatID,
			CreatedAt:     r.CreatedAt,
		})
	}
	return m
}
