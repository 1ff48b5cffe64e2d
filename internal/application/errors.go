package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a resource with the same identity is already stored.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrBookingConflict is returned when a booking overlaps existing meetings in its room.
	ErrBookingConflict = errors.New("application: booking conflict")
	// ErrMeetingCompleted is returned when a completed meeting is modified.
	ErrMeetingCompleted = errors.New("application: meeting already completed")
	// ErrStoreUnavailable is returned when the store fails or times out.
	ErrStoreUnavailable = errors.New("application: store unavailable")
	// ErrDeliveryUnavailable is returned when a notification could not be delivered.
	ErrDeliveryUnavailable = errors.New("application: delivery unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
	cause       error
}

// NewValidationError returns a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sortStrings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Unwrap exposes the underlying cause, e.g. scheduler.ErrInvalidRange.
func (v *ValidationError) Unwrap() error {
	if v == nil {
		return nil
	}
	return v.cause
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// addCause records a field error that stems from err.
func (v *ValidationError) addCause(field, message string, err error) {
	v.add(field, message)
	if v.cause == nil {
		v.cause = err
	}
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
	if v.cause == nil {
		v.cause = other.cause
	}
}

// Overlap identifies one existing meeting that collides with a requested booking.
type Overlap struct {
	MeetingID string
	Title     string
	Range     scheduler.TimeRange
}

// ConflictError lists every meeting that overlaps a rejected booking.
type ConflictError struct {
	RoomID   string
	Overlaps []Overlap
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	ids := make([]string, len(e.Overlaps))
	for i, o := range e.Overlaps {
		ids[i] = o.MeetingID
	}
	return fmt.Sprintf("booking conflict in room %s with %s", e.RoomID, strings.Join(ids, ", "))
}

// Is matches ErrBookingConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrBookingConflict
}

func newConflictError(roomID string, bookings []scheduler.Booking) *ConflictError {
	overlaps := make([]Overlap, len(bookings))
	for i, b := range bookings {
		overlaps[i] = Overlap{MeetingID: b.ID, Title: b.Title, Range: b.Range}
	}
	return &ConflictError{RoomID: roomID, Overlaps: overlaps}
}

// mapStoreError translates persistence failures into application errors.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrOverlap):
		return ErrBookingConflict
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("record", "violates a storage constraint")
		return vErr
	default:
		// timeouts, driver failures and persistence.ErrUnavailable
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}
