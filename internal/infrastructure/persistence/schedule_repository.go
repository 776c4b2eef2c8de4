package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormScheduleRepository implements concert.ScheduleRepository using GORM
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GormScheduleRepository
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

// FindByID finds a schedule by ID
func (r *GormScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*concert.Schedule, error) {
	var m models.ScheduleModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Schedule not found")
	}
	return m.ToDomain(), nil
}

// FindByConcertAndDate finds the schedule of a concert on a calendar day
func (r *GormScheduleRepository) FindByConcertAndDate(ctx context.Context, concertID uuid.UUID, date time.Time) (*concert.Schedule, error) {
	var m models.ScheduleModel
	err := r.db.WithContext(ctx).
		Where("concert_id = ? AND schedule_date = ?", concertID, concert.DateOf(date)).
		First(&m).Error
	if err != nil {
		return nil, notFound(err, "No schedule exists for this date")
	}
	return m.ToDomain(), nil
}

// FindByIDs loads schedules keyed by ID
func (r *GormScheduleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*concert.Schedule, error) {
	out := make(map[uuid.UUID]*concert.Schedule, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ScheduleModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

// UpdateSeats persists seat counts; the stored version must be one behind
func (r *GormScheduleRepository) UpdateSeats(ctx context.Context, s *concert.Schedule) error {
	result := r.db.WithContext(ctx).
		Model(&models.ScheduleModel{}).
		Where("id = ? AND version = ?", s.ID, s.Version-1).
		Updates(map[string]any{
			"available_seats":    s.AvailableSeats,
			"reservation_status": s.ReservationStatus,
			"version":            s.Version,
			"updated_at":         s.UpdatedAt,
		})
	return optimisticResult(result)
}

var _ concert.ScheduleRepository = (*GormScheduleRepository)(nil)
