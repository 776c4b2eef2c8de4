package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormConcertRepository implements concert.ConcertRepository using GORM
type GormConcertRepository struct {
	db *gorm.DB
}

// NewGormConcertRepository creates a new GormConcertRepository
func NewGormConcertRepository(db *gorm.DB) *GormConcertRepository {
	return &GormConcertRepository{db: db}
}

// Save inserts a concert and its schedules
func (r *GormConcertRepository) Save(ctx context.Context, c *concert.Concert) error {
	m := models.ConcertModelFromDomain(c)
	schedules := m.Schedules
	m.Schedules = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return duplicate(err, "Concert already exists")
		}
		if len(schedules) == 0 {
			return nil
		}
		return duplicate(tx.Create(&schedules).Error, "A schedule already exists for this date")
	})
}

// FindByID loads a concert with schedules ordered by date
func (r *GormConcertRepository) FindByID(ctx context.Context, id uuid.UUID) (*concert.Concert, error) {
	var m models.ConcertModel
	err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("schedule_date ASC")
		}).
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "Concert not found")
	}
	return m.ToDomain(), nil
}

// FindAll lists concerts without schedules, latest start date first
func (r *GormConcertRepository) FindAll(ctx context.Context, page shared.PageRequest) ([]*concert.Concert, int64, error) {
	page = page.Normalize()

	var total int64
	query := r.db.WithContext(ctx).Model(&models.ConcertModel{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ConcertModel
	err := query.
		Order("start_date DESC, id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]*concert.Concert, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, total, nil
}

// FindByIDs loads concerts without schedules keyed by ID
func (r *GormConcertRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*concert.Concert, error) {
	out := make(map[uuid.UUID]*concert.Concert, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ConcertModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

var _ concert.ConcertRepository = (*GormConcertRepository)(nil)
