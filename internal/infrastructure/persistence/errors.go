package persistence

import (
	"errors"

	"github.com/roovies/concert-reservation/internal/domain/shared"
	"gorm.io/gorm"
)

// notFound maps gorm.ErrRecordNotFound to a NOT_FOUND domain error with message
func notFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewDomainError("NOT_FOUND", message)
	}
	return err
}

// duplicate maps a unique violation to an ALREADY_EXISTS domain error.
// Requires gorm.Config.TranslateError.
func duplicate(err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError("ALREADY_EXISTS", message).WithCause(err)
	}
	return err
}

// optimisticResult interprets the result of a versioned UPDATE
func optimisticResult(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrOptimisticLock
	}
	return nil
}
