package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/venue"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVenueRepository implements venue.VenueRepository using GORM
type GormVenueRepository struct {
	db *gorm.DB
}

// NewGormVenueRepository creates a new GormVenueRepository
func NewGormVenueRepository(db *gorm.DB) *GormVenueRepository {
	return &GormVenueRepository{db: db}
}

// Save upserts the venue and replaces its seat map
func (r *GormVenueRepository) Save(ctx context.Context, v *venue.Venue) error {
	m := models.VenueModelFromDomain(v)
	seats := m.Seats
	m.Seats = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(m).Error; err != nil {
			return err
		}
		if err := tx.Where("venue_id = ?", v.ID).Delete(&models.VenueSeatModel{}).Error; err != nil {
			return err
		}
		if len(seats) == 0 {
			return nil
		}
		return tx.CreateInBatches(seats, 200).Error
	})
}

// FindByID returns the venue without seats
func (r *GormVenueRepository) FindByID(ctx context.Context, id uuid.UUID) (*venue.Venue, error) {
	var m models.VenueModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Venue not found")
	}
	return m.ToDomain(), nil
}

// FindByIDWithSeats returns the venue with seats ordered by row and number
func (r *GormVenueRepository) FindByIDWithSeats(ctx context.Context, id uuid.UUID) (*venue.Venue, error) {
	var m models.VenueModel
	err := r.db.WithContext(ctx).
		Preload("Seats", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat_row ASC, seat_number ASC")
		}).
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "Venue not found")
	}
	return m.ToDomain(), nil
}

// FindByIDs returns venues without seats keyed by ID
func (r *GormVenueRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*venue.Venue, error) {
	out := make(map[uuid.UUID]*venue.Venue, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.VenueModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

// FindSeatsByIDs returns the requested seats; unknown IDs are omitted
func (r *GormVenueRepository) FindSeatsByIDs(ctx context.Context, seatIDs []uuid.UUID) ([]venue.Seat, error) {
	if len(seatIDs) == 0 {
		return []venue.Seat{}, nil
	}
	var rows []models.VenueSeatModel
	if err := r.db.WithContext(ctx).Where("id IN ?", seatIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	seats := make([]venue.Seat, 0, len(rows))
	for i := range rows {
		seats = append(seats, rows[i].ToDomain())
	}
	return seats, nil
}

var _ venue.VenueRepository = (*GormVenueRepository)(nil)
