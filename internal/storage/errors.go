package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists in an append-only table.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPositionExists is returned when opening a token that already has an OPEN position.
	ErrPositionExists = errors.New("open position already exists for token")

	// ErrPositionNotOpen is returned when mutating a position that is missing or CLOSED.
	ErrPositionNotOpen = errors.New("position is not open")

	// ErrInsufficientBalance is returned when a BUY costs more than the virtual balance.
	ErrInsufficientBalance = errors.New("insufficient virtual balance")
)
