// Package repos is the data access layer: one repository per
// aggregate, all speaking gorm. Methods take an optional transaction;
// pass nil to run against the repo's own handle. Failures surface as
// the sentinel errors below so callers never match on driver error
// text.
package repos

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist or
	// is not visible to the requesting user.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is returned when a uniqueness guarantee would break,
	// e.g. registering an email twice.
	ErrConflict = errors.New("resource conflict")
)

// conn picks the caller's transaction when one is open, otherwise the
// repo's own handle.
func conn(tx, db *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// translate maps gorm's sentinel errors onto this package's.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}
