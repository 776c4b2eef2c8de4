package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/identity"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a new user. A duplicate active email is ALREADY_EXISTS.
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	err := r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error
	return duplicate(err, "Email is already registered")
}

// Update saves profile, password and status changes with optimistic locking
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	m := models.UserModelFromDomain(user)
	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ? AND version = ?", user.ID, user.Version-1).
		Updates(map[string]any{
			"password_hash": m.PasswordHash,
			"name":          m.Name,
			"nickname":      m.Nickname,
			"status":        m.Status,
			"deleted_at":    m.DeletedAt,
			"version":       m.Version,
			"updated_at":    m.UpdatedAt,
		})
	return optimisticResult(result)
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "User not found")
	}
	return m.ToDomain(), nil
}

// FindByEmail finds an active user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var m models.UserModel
	err := r.db.WithContext(ctx).
		Where("email = ? AND status = ?", normalizeEmail(email), identity.UserStatusActive).
		First(&m).Error
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return m.ToDomain(), nil
}

// ExistsByEmail checks whether an active user already uses the email
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("email = ? AND status = ?", normalizeEmail(email), identity.UserStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
