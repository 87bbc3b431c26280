package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/thereayou/voxus-chat/internal/apperr"
)

// translate keeps gorm errors inside this package.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrAuthorization),
		errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrPersistence):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(op)
	default:
		return apperr.Persistence(op, err)
	}
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
