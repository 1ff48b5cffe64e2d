package scheduler

import (
	"testing"
	"time"
)

func TestComputeAvailability(t *testing.T) {
	day := DayWindow(at(0, 0))

	cases := []struct {
		name          string
		booked        []TimeRange
		wantOccupied  int
		wantAvailable int
		wantPercent   float64
		wantSlots     int
	}{
		{
			name:          "empty day",
			wantOccupied:  0,
			wantAvailable: 1440,
			wantPercent:   100,
			wantSlots:     1,
		},
		{
			name:          "single hour",
			booked:        []TimeRange{{Start: at(9, 0), End: at(10, 0)}},
			wantOccupied:  60,
			wantAvailable: 1380,
			wantPercent:   95.83,
			wantSlots:     2,
		},
		{
			name: "overlapping bookings merge",
			booked: []TimeRange{
				{Start: at(9, 30), End: at(10, 30)},
				{Start: at(9, 0), End: at(10, 0)},
			},
			wantOccupied:  90,
			wantAvailable: 1350,
			wantPercent:   93.75,
			wantSlots:     2,
		},
		{
			name: "adjacent bookings leave no gap",
			booked: []TimeRange{
				{Start: at(9, 0), End: at(10, 0)},
				{Start: at(10, 0), End: at(11, 0)},
			},
			wantOccupied:  120,
			wantAvailable: 1320,
			wantPercent:   91.67,
			wantSlots:     2,
		},
		{
			name: "bookings spilling over day boundaries are clipped",
			booked: []TimeRange{
				{Start: at(0, 0).Add(-2 * time.Hour), End: at(1, 0)},
				{Start: at(23, 0), End: at(23, 0).Add(3 * time.Hour)},
			},
			wantOccupied:  120,
			wantAvailable: 1320,
			wantPercent:   91.67,
			wantSlots:     1,
		},
		{
			name: "duplicated full day bookings stay in range",
			booked: []TimeRange{
				{Start: at(0, 0), End: at(0, 0).AddDate(0, 0, 1)},
				{Start: at(0, 0), End: at(0, 0).AddDate(0, 0, 1)},
				{Start: at(6, 0), End: at(18, 0)},
			},
			wantOccupied:  1440,
			wantAvailable: 0,
			wantPercent:   0,
			wantSlots:     0,
		},
		{
			name:          "inverted legacy range is ignored",
			booked:        []TimeRange{{Start: at(12, 0), End: at(11, 0)}},
			wantOccupied:  0,
			wantAvailable: 1440,
			wantPercent:   100,
			wantSlots:     1,
		},
		{
			name:          "partial minutes count as occupied",
			booked:        []TimeRange{{Start: at(9, 0).Add(30 * time.Second), End: at(9, 1).Add(10 * time.Second)}},
			wantOccupied:  2,
			wantAvailable: 1438,
			wantPercent:   99.86,
			wantSlots:     2,
		},
		{
			name:          "other day ignored",
			booked:        []TimeRange{{Start: at(9, 0).AddDate(0, 0, 1), End: at(10, 0).AddDate(0, 0, 1)}},
			wantOccupied:  0,
			wantAvailable: 1440,
			wantPercent:   100,
			wantSlots:     1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeAvailability(day, tc.booked)
			if got.OccupiedMinutes != tc.wantOccupied {
				t.Fatalf("occupied = %d, want %d", got.OccupiedMinutes, tc.wantOccupied)
			}
			if got.AvailableMinutes != tc.wantAvailable {
				t.Fatalf("available = %d, want %d", got.AvailableMinutes, tc.wantAvailable)
			}
			if got.AvailabilityPercentage != tc.wantPercent {
				t.Fatalf("percentage = %v, want %v", got.AvailabilityPercentage, tc.wantPercent)
			}
			if len(got.FreeSlots) != tc.wantSlots {
				t.Fatalf("free slots = %v, want %d", got.FreeSlots, tc.wantSlots)
			}
			if got.AvailableMinutes+got.OccupiedMinutes != MinutesPerDay {
				t.Fatalf("minutes do not add up: %+v", got)
			}
		})
	}
}

func TestComputeAvailability_FreeSlotBoundaries(t *testing.T) {
	day := DayWindow(at(0, 0))
	got := ComputeAvailability(day, []TimeRange{{Start: at(9, 0), End: at(10, 0)}})

	want := []TimeRange{
		{Start: at(0, 0), End: at(9, 0)},
		{Start: at(10, 0), End: day.End},
	}
	for i, slot := range want {
		if !got.FreeSlots[i].Start.Equal(slot.Start) || !got.FreeSlots[i].End.Equal(slot.End) {
			t.Fatalf("slot %d = %s, want %s", i, got.FreeSlots[i], slot)
		}
	}
}
