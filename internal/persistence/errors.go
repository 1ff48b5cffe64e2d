package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record with the same identity already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrOverlap is returned when a write would leave two meetings overlapping in one room.
	ErrOverlap = errors.New("persistence: overlapping meeting in room")
	// ErrConstraintViolation is returned when a record breaks a storage constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrUnavailable is returned when the store cannot serve the request right now.
	ErrUnavailable = errors.New("persistence: store unavailable")
)
