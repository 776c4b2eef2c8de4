package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReservationRepository implements reservation.ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// Save inserts a reservation and its details
func (r *GormReservationRepository) Save(ctx context.Context, res *reservation.Reservation) error {
	m := models.ReservationModelFromDomain(res)
	details := m.Details
	m.Details = nil

	db := r.db.WithContext(ctx)
	if err := db.Omit("Details").Create(m).Error; err != nil {
		return err
	}
	return db.Create(&details).Error
}

// Update persists a status change with optimistic locking
func (r *GormReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReservationModel{}).
		Where("id = ? AND version = ?", res.ID, res.Version-1).
		Updates(map[string]any{
			"status":     res.Status,
			"version":    res.Version,
			"updated_at": res.UpdatedAt,
		})
	return optimisticResult(result)
}

// FindByID loads a reservation with its details
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	var m models.ReservationModel
	if err := r.db.WithContext(ctx).Preload("Details").First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Reservation not found")
	}
	return m.ToDomain()
}

// FindByPaymentID loads the reservation created by a payment
func (r *GormReservationRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*reservation.Reservation, error) {
	var m models.ReservationModel
	err := r.db.WithContext(ctx).
		Preload("Details").
		Where("payment_id = ?", paymentID).
		First(&m).Error
	if err != nil {
		return nil, notFound(err, "Reservation not found")
	}
	return m.ToDomain()
}

// FindByUserID lists a user's reservations, newest first
func (r *GormReservationRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*reservation.Reservation, error) {
	var rows []models.ReservationModel
	err := r.db.WithContext(ctx).
		Preload("Details").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*reservation.Reservation, 0, len(rows))
	for i := range rows {
		res, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// FindReservedSeatIDs returns seats on the schedule taken by HOLD or CONFIRMED reservations
func (r *GormReservationRepository) FindReservedSeatIDs(ctx context.Context, scheduleID uuid.UUID) ([]uuid.UUID, error) {
	var seatIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ReservationDetailModel{}).
		Joins("JOIN reservations ON reservations.id = reservation_details.reservation_id").
		Where("reservation_details.schedule_id = ?", scheduleID).
		Where("reservations.status IN ?", []reservation.Status{reservation.StatusHold, reservation.StatusConfirmed}).
		Distinct().
		Pluck("reservation_details.seat_id", &seatIDs).Error
	if err != nil {
		return nil, err
	}
	return seatIDs, nil
}

var _ reservation.ReservationRepository = (*GormReservationRepository)(nil)
