package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// AvailabilityCache stores the per-day availability of rooms.
type AvailabilityCache interface {
	UpsertRoomAvailability(ctx context.Context, availability persistence.RoomAvailability) error
}

// AvailabilityTimeline turns a room's bookings into occupancy figures for a day.
type AvailabilityTimeline struct {
	meetings MeetingFinder
	cache    AvailabilityCache
	now      func() time.Time
	logger   *slog.Logger
}

// NewAvailabilityTimeline constructs a timeline. A nil cache disables write-through.
func NewAvailabilityTimeline(meetings MeetingFinder, cache AvailabilityCache, now func() time.Time, logger *slog.Logger) *AvailabilityTimeline {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityTimeline{meetings: meetings, cache: cache, now: now, logger: defaultLogger(logger)}
}

// ComputeAvailability builds the occupancy of roomID over day.
func (t *AvailabilityTimeline) ComputeAvailability(ctx context.Context, roomID string, day scheduler.TimeRange) (Availability, error) {
	stored, err := t.meetings.ListMeetings(ctx, persistence.MeetingFilter{
		RoomID:      roomID,
		Overlapping: &persistence.Window{Start: day.Start, End: day.End},
	})
	if err != nil {
		return Availability{}, mapStoreError(err)
	}

	ranges := make([]scheduler.TimeRange, len(stored))
	for i, m := range stored {
		ranges[i] = scheduler.TimeRange{Start: m.Start, End: m.End}
	}

	computed := scheduler.ComputeAvailability(day, ranges)
	return Availability{
		RoomID:                 roomID,
		Date:                   day.Start.Format(scheduler.DateLayout),
		OccupiedMinutes:        computed.OccupiedMinutes,
		AvailableMinutes:       computed.AvailableMinutes,
		AvailabilityPercentage: computed.AvailabilityPercentage,
		FreeSlots:              computed.FreeSlots,
	}, nil
}

// Refresh recomputes and caches the availability of roomID for every given day.
func (t *AvailabilityTimeline) Refresh(ctx context.Context, roomID string, days ...time.Time) (err error) {
	var errs []error
	for _, day := range days {
		if _, refreshErr := t.refreshDay(ctx, roomID, scheduler.DayWindow(day)); refreshErr != nil {
			errs = append(errs, refreshErr)
		}
	}
	return errors.Join(errs...)
}

func (t *AvailabilityTimeline) refreshDay(ctx context.Context, roomID string, day scheduler.TimeRange) (Availability, error) {
	availability, err := t.ComputeAvailability(ctx, roomID, day)
	if err != nil {
		return Availability{}, err
	}
	if t.cache == nil {
		return availability, nil
	}

	err = t.cache.UpsertRoomAvailability(ctx, persistence.RoomAvailability{
		RoomID:           roomID,
		Day:              day.Start,
		AvailableMinutes: availability.AvailableMinutes,
		Percentage:       availability.AvailabilityPercentage,
		ComputedAt:       t.now().UTC(),
	})
	if err != nil {
		return Availability{}, mapStoreError(err)
	}

	serviceLogger(ctx, t.logger, "AvailabilityTimeline", "Refresh",
		"room_id", roomID,
		"date", availability.Date,
		"available_minutes", availability.AvailableMinutes,
	).DebugContext(ctx, "room availability cached")
	return availability, nil
}
