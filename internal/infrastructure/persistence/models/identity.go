package models

import (
	"time"

	"github.com/roovies/concert-reservation/internal/domain/identity"
)

// UserModel is the persistence model for the User aggregate.
type UserModel struct {
	AggregateModel
	Email        string              `gorm:"type:varchar(200);not null;index"`
	PasswordHash string              `gorm:"type:varchar(255);not null"`
	Name         string              `gorm:"type:varchar(50);not null"`
	Nickname     string              `gorm:"type:varchar(30);not null"`
	Status       identity.UserStatus `gorm:"type:varchar(20);not null;default:ACTIVE"`
	DeletedAt    *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Name:              m.Name,
		Nickname:          m.Nickname,
		Status:            m.Status,
		DeletedAt:         m.DeletedAt,
	}
}

// UserModelFromDomain creates a persistence model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Nickname:     u.Nickname,
		Status:       u.Status,
		DeletedAt:    u.DeletedAt,
	}
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	return m
}
