package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/kagari-social/kagari/internal/domain"
)

// convertError maps gorm errors onto the domain sentinels.
func convertError(err error, resource string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFoundError{Resource: resource}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.DuplicateError{Resource: resource}
	default:
		return err
	}
}
