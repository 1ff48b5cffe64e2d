package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when a range does not satisfy start < end.
var ErrInvalidRange = errors.New("scheduler: invalid time range")

// DateLayout is the calendar date format accepted for day queries.
const DateLayout = "2006-01-02"

// MinutesPerDay is the length of a UTC calendar day in minutes.
const MinutesPerDay = 24 * 60

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange builds a UTC-normalised range and rejects empty or inverted ranges.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	r := TimeRange{Start: start.UTC(), End: end.UTC()}
	if err := r.Validate(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// Validate reports ErrInvalidRange when the range is empty, inverted or unset.
func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidRange)
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRange,
			r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339))
	}
	return nil
}

// Overlaps reports whether the two ranges share at least one instant.
// Touching ranges (a.End == b.Start) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

// Contains reports whether t falls inside [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Duration returns End - Start, or zero for inverted ranges.
func (r TimeRange) Duration() time.Duration {
	if !r.End.After(r.Start) {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Clip restricts r to bounds. The second result is false when nothing remains.
func (r TimeRange) Clip(bounds TimeRange) (TimeRange, bool) {
	start := r.Start
	if start.Before(bounds.Start) {
		start = bounds.Start
	}
	end := r.End
	if end.After(bounds.End) {
		end = bounds.End
	}
	if !start.Before(end) {
		return TimeRange{}, false
	}
	return TimeRange{Start: start, End: end}, true
}

// String renders the range as RFC 3339 instants.
func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339))
}

// DayWindow returns the UTC calendar day containing t as [00:00, next 00:00).
func DayWindow(t time.Time) TimeRange {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// ParseDate parses a YYYY-MM-DD calendar date as a UTC day window.
func ParseDate(value string) (TimeRange, error) {
	day, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: date %q must use YYYY-MM-DD", ErrInvalidRange, value)
	}
	return DayWindow(day), nil
}

// DaysCovered lists the start of every UTC day the range touches.
func DaysCovered(r TimeRange) []time.Time {
	if r.Duration() == 0 {
		return nil
	}
	var days []time.Time
	for day := DayWindow(r.Start); day.Start.Before(r.End); day = DayWindow(day.End) {
		days = append(days, day.Start)
	}
	return days
}
