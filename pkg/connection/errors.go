package connection

import "errors"

// Sentinel errors for connection store operations.
var (
	// ErrNotFound is returned when no connection matches a filter.
	ErrNotFound = errors.New("connection: not found")

	// ErrDuplicate is returned when a provider identity is already linked.
	ErrDuplicate = errors.New("connection: provider account already linked")

	// ErrEmptyFilter is returned by delete operations called without any constraint.
	ErrEmptyFilter = errors.New("connection: empty filter")

	// ErrInvalidConnection is returned when a connection lacks its identifying fields.
	ErrInvalidConnection = errors.New("connection: user id, provider id and provider user id are required")

	// ErrUnitClosed is returned when a committed or rolled back unit is used again.
	ErrUnitClosed = errors.New("connection: unit of work already closed")
)
