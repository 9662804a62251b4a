package models

import "errors"

var (
	// ErrValidation indicates a missing or malformed field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the targeted document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indicates a lifecycle operation called from the wrong state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflict indicates a duplicate value on a unique field.
	ErrConflict = errors.New("already exists")
	// ErrForbidden indicates the caller may not act on the targeted document.
	ErrForbidden = errors.New("forbidden")
)
