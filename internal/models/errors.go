package models

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input. Hint carries the
// corrective form, e.g. "confidence must be in [0,1], use 0.45 not 45".
type ValidationError struct {
	Field string
	Hint  string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Hint
	}
	return e.Field + ": " + e.Hint
}

// NotFoundError reports a reference to an id that does not exist.
type NotFoundError struct {
	Kind string
	ID   uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// StorageError wraps an underlying persistence failure so callers can tell
// broken storage apart from bad input.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func Validation(field, hint string) error {
	return &ValidationError{Field: field, Hint: hint}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
