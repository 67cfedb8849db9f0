package types

import "errors"

// Validation errors. The caller supplied a value of the wrong shape.
var (
	ErrEmptyText          = errors.New("text must not be empty")
	ErrEmptyDescription   = errors.New("description must not be empty")
	ErrEmptyName          = errors.New("project name must not be empty")
	ErrInvalidDisposition = errors.New("invalid disposition")
	ErrNoUpdateFields     = errors.New("no fields to update")
	ErrNoObservations     = errors.New("at least one observation id is required")
	ErrDuplicateLink      = errors.New("observation id repeated")
)

// Lookup and lifecycle errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrBackendDetached = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
	ErrMigrationFailed = errors.New("schema migration failed")
)

var validationErrors = []error{
	ErrEmptyText,
	ErrEmptyDescription,
	ErrEmptyName,
	ErrInvalidDisposition,
	ErrNoUpdateFields,
	ErrNoObservations,
	ErrDuplicateLink,
}

// IsValidation reports whether err wraps one of the validation errors.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
