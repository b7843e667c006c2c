package model

import "errors"

var (
	// ErrUnknownKind indicates the factory has no builder registered
	// for the requested entity kind.
	ErrUnknownKind = errors.New("model: unknown entity kind")

	// ErrMissingField indicates a required column was absent from the
	// source row.
	ErrMissingField = errors.New("model: missing field")

	// ErrInvalidField indicates a column was present but its value
	// could not be converted or failed validation.
	ErrInvalidField = errors.New("model: invalid field")
)
