package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
)

// PointModel is a user's point wallet. One row per user.
type PointModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Amount    int64     `gorm:"not null;default:0"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PointModel) TableName() string {
	return "points"
}

// ToDomain converts the persistence model to a domain Point
func (m *PointModel) ToDomain() *point.Point {
	return &point.Point{
		UserID:    m.UserID,
		Amount:    amountOrZero(m.Amount),
		Version:   m.Version,
		UpdatedAt: m.UpdatedAt,
	}
}

// PointModelFromDomain creates a persistence model from a domain Point
func PointModelFromDomain(p *point.Point) *PointModel {
	return &PointModel{
		UserID:    p.UserID,
		Amount:    p.Amount.Value(),
		Version:   p.Version,
		CreatedAt: p.UpdatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// PointHistoryModel is an append-only balance change.
type PointHistoryModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID         `gorm:"type:uuid;not null;index:idx_point_history_user_created,priority:1"`
	Type         point.HistoryType `gorm:"type:varchar(20);not null"`
	Amount       int64             `gorm:"not null"`
	BalanceAfter int64             `gorm:"not null"`
	ReferenceID  *uuid.UUID        `gorm:"type:uuid"`
	CreatedAt    time.Time         `gorm:"not null;index:idx_point_history_user_created,priority:2"`
}

// TableName returns the table name for GORM
func (PointHistoryModel) TableName() string {
	return "point_histories"
}

// ToDomain converts the persistence model to a domain History
func (m *PointHistoryModel) ToDomain() *point.History {
	return &point.History{
		ID:           m.ID,
		UserID:       m.UserID,
		Type:         m.Type,
		Amount:       amountOrZero(m.Amount),
		BalanceAfter: amountOrZero(m.BalanceAfter),
		ReferenceID:  m.ReferenceID,
		CreatedAt:    m.CreatedAt,
	}
}

// PointHistoryModelFromDomain creates a persistence model from a domain History
func PointHistoryModelFromDomain(h *point.History) *PointHistoryModel {
	return &PointHistoryModel{
		ID:           h.ID,
		UserID:       h.UserID,
		Type:         h.Type,
		Amount:       h.Amount.Value(),
		BalanceAfter: h.BalanceAfter.Value(),
		ReferenceID:  h.ReferenceID,
		CreatedAt:    h.CreatedAt,
	}
}

func amountOrZero(v int64) valueobject.Amount {
	a, err := valueobject.NewAmount(v)
	if err != nil {
		return valueobject.ZeroAmount()
	}
	return a
}
