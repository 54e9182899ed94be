package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict means another writer updated the session after it
	// was read.
	ErrVersionConflict = errors.New("session version conflict")
	// ErrLimitReached means the conditional usage increment matched no row.
	ErrLimitReached = errors.New("monthly limit reached")
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
