package application

import (
	"context"
	"log/slog"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// ConflictDetector admits or rejects a candidate range against a room's bookings.
type ConflictDetector struct {
	meetings MeetingFinder
	logger   *slog.Logger
}

// NewConflictDetector constructs a detector reading bookings from meetings.
func NewConflictDetector(meetings MeetingFinder, logger *slog.Logger) *ConflictDetector {
	return &ConflictDetector{meetings: meetings, logger: defaultLogger(logger)}
}

// CheckConflict returns nil when candidate fits in the room and a *ConflictError
// listing every overlapping meeting otherwise. excludeMeetingID skips the meeting
// being updated. A room without bookings, including one not created yet, never conflicts.
func (d *ConflictDetector) CheckConflict(ctx context.Context, roomID string, candidate scheduler.TimeRange, excludeMeetingID string) error {
	if err := candidate.Validate(); err != nil {
		return err
	}

	stored, err := d.meetings.ListMeetings(ctx, persistence.MeetingFilter{
		RoomID:      roomID,
		Overlapping: &persistence.Window{Start: candidate.Start, End: candidate.End},
		ExcludeID:   excludeMeetingID,
	})
	if err != nil {
		return mapStoreError(err)
	}

	overlaps, err := scheduler.DetectConflicts(toBookings(stored), roomID, candidate, excludeMeetingID)
	if err != nil {
		return err
	}
	if len(overlaps) == 0 {
		return nil
	}

	serviceLogger(ctx, d.logger, "ConflictDetector", "CheckConflict",
		"room_id", roomID,
		"overlaps", len(overlaps),
	).DebugContext(ctx, "booking rejected")
	return newConflictError(roomID, overlaps)
}
