package scheduler

import "sort"

// Booking is the minimal view of a meeting needed for conflict checks.
type Booking struct {
	ID     string
	Title  string
	RoomID string
	Range  TimeRange
}

// DetectConflicts returns every booking in the candidate's room whose range
// overlaps the candidate, skipping excludeID. Results are ordered by start.
func DetectConflicts(existing []Booking, roomID string, candidate TimeRange, excludeID string) ([]Booking, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	var overlaps []Booking
	for _, booking := range existing {
		if booking.RoomID != roomID {
			continue
		}
		if excludeID != "" && booking.ID == excludeID {
			continue
		}
		if !booking.Range.Overlaps(candidate) {
			continue
		}
		overlaps = append(overlaps, booking)
	}

	sort.SliceStable(overlaps, func(i, j int) bool {
		if overlaps[i].Range.Start.Equal(overlaps[j].Range.Start) {
			return overlaps[i].ID < overlaps[j].ID
		}
		return overlaps[i].Range.Start.Before(overlaps[j].Range.Start)
	})

	return overlaps, nil
}
