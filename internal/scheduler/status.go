package scheduler

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a meeting.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

func (s Status) rank() int {
	switch s {
	case StatusUpcoming:
		return 1
	case StatusRunning:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.rank() > 0
}

// ParseStatus converts a stored status string.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.Valid() {
		return "", fmt.Errorf("scheduler: unknown status %q", value)
	}
	return s, nil
}

// DeriveStatus computes the status of a meeting spanning r at instant now.
// Both endpoints count as running.
func DeriveStatus(now time.Time, r TimeRange) Status {
	switch {
	case now.Before(r.Start):
		return StatusUpcoming
	case now.After(r.End):
		return StatusCompleted
	default:
		return StatusRunning
	}
}

// Advance returns the status a stored meeting should move to at now. The
// lifecycle only moves forward, so a derived status that ranks below current
// leaves current untouched.
func Advance(current Status, now time.Time, r TimeRange) Status {
	target := DeriveStatus(now, r)
	if target.rank() <= current.rank() {
		return current
	}
	return target
}
