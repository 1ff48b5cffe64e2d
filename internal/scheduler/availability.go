package scheduler

import (
	"math"
	"sort"
	"time"
)

// Availability summarises how much of a day a room is free.
type Availability struct {
	Day                    TimeRange
	OccupiedMinutes        int
	AvailableMinutes       int
	AvailabilityPercentage float64
	FreeSlots              []TimeRange
}

// ComputeAvailability merges the booked ranges inside day and derives the
// occupancy figures. Ranges are clipped to the day and widened to whole
// minutes; overlapping or adjacent ranges are merged before counting so the
// result stays within [0, MinutesPerDay] whatever the input looks like.
func ComputeAvailability(day TimeRange, booked []TimeRange) Availability {
	totalMinutes := int(day.Duration() / time.Minute)
	if totalMinutes <= 0 {
		return Availability{Day: day}
	}

	clipped := make([]TimeRange, 0, len(booked))
	for _, r := range booked {
		r = toMinuteResolution(r)
		if c, ok := r.Clip(day); ok {
			clipped = append(clipped, c)
		}
	}
	sort.Slice(clipped, func(i, j int) bool {
		return clipped[i].Start.Before(clipped[j].Start)
	})

	var free []TimeRange
	freeMinutes := 0
	previousEnd := day.Start
	for _, r := range clipped {
		if r.Start.After(previousEnd) {
			slot := TimeRange{Start: previousEnd, End: r.Start}
			free = append(free, slot)
			freeMinutes += int(slot.Duration() / time.Minute)
		}
		if r.End.After(previousEnd) {
			previousEnd = r.End
		}
	}
	if previousEnd.Before(day.End) {
		slot := TimeRange{Start: previousEnd, End: day.End}
		free = append(free, slot)
		freeMinutes += int(slot.Duration() / time.Minute)
	}

	occupied := clampInt(totalMinutes-freeMinutes, 0, totalMinutes)
	available := clampInt(totalMinutes-occupied, 0, totalMinutes)
	percentage := round2(100 * float64(available) / float64(totalMinutes))
	percentage = math.Max(0, math.Min(100, percentage))

	return Availability{
		Day:                    day,
		OccupiedMinutes:        occupied,
		AvailableMinutes:       available,
		AvailabilityPercentage: percentage,
		FreeSlots:              free,
	}
}

// toMinuteResolution widens a range so that every minute it touches counts as occupied.
func toMinuteResolution(r TimeRange) TimeRange {
	start := r.Start.UTC().Truncate(time.Minute)
	end := r.End.UTC()
	if truncated := end.Truncate(time.Minute); !truncated.Equal(end) {
		end = truncated.Add(time.Minute)
	}
	return TimeRange{Start: start, End: end}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
