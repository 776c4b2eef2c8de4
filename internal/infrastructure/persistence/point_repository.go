package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPointRepository implements point.PointRepository using GORM
type GormPointRepository struct {
	db *gorm.DB
}

// NewGormPointRepository creates a new GormPointRepository
func NewGormPointRepository(db *gorm.DB) *GormPointRepository {
	return &GormPointRepository{db: db}
}

// FindByUserID returns the user's wallet
func (r *GormPointRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*point.Point, error) {
	var m models.PointModel
	if err := r.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "Point wallet not found")
	}
	return m.ToDomain(), nil
}

// Save inserts the first version of a wallet or updates it with optimistic locking.
// Two concurrent first writes race on the primary key; the loser gets OPTIMISTIC_LOCK_FAILED.
func (r *GormPointRepository) Save(ctx context.Context, p *point.Point) error {
	m := models.PointModelFromDomain(p)
	db := r.db.WithContext(ctx)

	if p.Version <= 1 {
		err := db.Create(m).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrOptimisticLock.WithCause(err)
		}
		return err
	}

	result := db.Model(&models.PointModel{}).
		Where("user_id = ? AND version = ?", p.UserID, p.Version-1).
		Updates(map[string]any{
			"amount":     m.Amount,
			"version":    m.Version,
			"updated_at": m.UpdatedAt,
		})
	return optimisticResult(result)
}

// AppendHistory records a balance change
func (r *GormPointRepository) AppendHistory(ctx context.Context, h *point.History) error {
	return r.db.WithContext(ctx).Create(models.PointHistoryModelFromDomain(h)).Error
}

// FindHistory lists balance changes, newest first
func (r *GormPointRepository) FindHistory(ctx context.Context, userID uuid.UUID, page shared.PageRequest) ([]*point.History, int64, error) {
	page = page.Normalize()

	var total int64
	query := r.db.WithContext(ctx).Model(&models.PointHistoryModel{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PointHistoryModel
	err := query.
		Order("created_at DESC, id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]*point.History, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, total, nil
}

var _ point.PointRepository = (*GormPointRepository)(nil)
