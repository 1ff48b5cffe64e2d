package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "is required", "end": "must be after start"}}
	if got := withFields.Error(); got != "validation failed: end, title" {
		t.Fatalf("expected sorted field names in message, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{}
	other.addCause("second", "another", scheduler.ErrInvalidRange)
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}
	if !errors.Is(base, scheduler.ErrInvalidRange) {
		t.Fatalf("expected merge to carry the cause")
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestConflictError(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	err := newConflictError("room-a", []scheduler.Booking{
		{ID: "m1", Title: "Standup", RoomID: "room-a", Range: scheduler.TimeRange{Start: start, End: start.Add(time.Hour)}},
		{ID: "m2", Title: "Review", RoomID: "room-a", Range: scheduler.TimeRange{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)}},
	})

	if !errors.Is(err, ErrBookingConflict) {
		t.Fatalf("expected conflict error to match ErrBookingConflict")
	}
	wrapped := fmt.Errorf("create: %w", err)
	var conflict *ConflictError
	if !errors.As(wrapped, &conflict) {
		t.Fatalf("expected errors.As to find ConflictError")
	}
	if len(conflict.Overlaps) != 2 || conflict.Overlaps[0].MeetingID != "m1" || conflict.Overlaps[1].Title != "Review" {
		t.Fatalf("unexpected overlaps: %+v", conflict.Overlaps)
	}
	if got := err.Error(); got != "booking conflict in room room-a with m1, m2" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMapStoreError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "not found", in: persistence.ErrNotFound, want: ErrNotFound},
		{name: "duplicate", in: fmt.Errorf("insert: %w", persistence.ErrDuplicate), want: ErrAlreadyExists},
		{name: "overlap", in: persistence.ErrOverlap, want: ErrBookingConflict},
		{name: "unavailable", in: persistence.ErrUnavailable, want: ErrStoreUnavailable},
		{name: "deadline", in: context.DeadlineExceeded, want: ErrStoreUnavailable},
		{name: "driver", in: errors.New("disk I/O error"), want: ErrStoreUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := mapStoreError(tt.in); !errors.Is(got, tt.want) {
				t.Fatalf("mapStoreError(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	t.Run("constraint", func(t *testing.T) {
		t.Parallel()
		var vErr *ValidationError
		if !errors.As(mapStoreError(persistence.ErrConstraintViolation), &vErr) || vErr.FieldErrors["record"] == "" {
			t.Fatalf("expected constraint violation to become a validation error")
		}
	})

	if mapStoreError(nil) != nil {
		t.Fatalf("expected nil to map to nil")
	}
}
