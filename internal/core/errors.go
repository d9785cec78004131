package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record does not exist, or is soft-deleted
	// where an active record is required.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID is returned when an id is not well formed for the storage backend.
	ErrInvalidID = errors.New("invalid identifier")
	// ErrValidation is the parent of every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when the ledger summary changed under a writer.
	ErrConflict = errors.New("summary version conflict")
	// ErrRecalculation marks a failed aggregate refresh. The triggering mutation
	// is rolled back together with it.
	ErrRecalculation = errors.New("profit recalculation failed")
)

var (
	ErrInvalidKind      = ValidationError{Field: "kind", Message: "must be income or expense"}
	ErrEmptyTitle       = ValidationError{Field: "title", Message: "must not be empty"}
	ErrEmptyConcept     = ValidationError{Field: "concept", Message: "must not be empty"}
	ErrEmptyCategory    = ValidationError{Field: "category", Message: "must not be empty"}
	ErrInvalidAmount    = ValidationError{Field: "amount", Message: "must be a non-negative amount"}
	ErrAmountTooLarge   = ValidationError{Field: "amount", Message: "exceeds the maximum amount"}
	ErrZeroDate         = ValidationError{Field: "date", Message: "must not be zero"}
	ErrInvalidStatus    = ValidationError{Field: "status", Message: "must be Pending, Completed or Cancelled"}
	ErrInvalidFrequency = ValidationError{Field: "frequency", Message: "must be daily, weekly, monthly or yearly"}
)

// ValidationError describes malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrValidation
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
