package persistence

import "time"

// Participant is a meeting attendee identified by a contact address.
type Participant struct {
	Name  string
	Email string
}

// Room represents a bookable room. MeetingIDs lists hosted meetings in booking order.
type Room struct {
	ID         string
	Name       string
	Capacity   int
	Features   []string
	MeetingIDs []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Meeting represents a booked time range in one room.
type Meeting struct {
	ID           string
	Title        string
	RoomID       string
	Organizer    Participant
	Participants []Participant
	Start        time.Time
	End          time.Time
	Status       string
	// Reminders maps a lead time in minutes to the instant its reminder was delivered.
	Reminders map[int]time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomAvailability is the cached availability of a room for one UTC day.
type RoomAvailability struct {
	RoomID           string
	Day              time.Time
	AvailableMinutes int
	Percentage       float64
	ComputedAt       time.Time
}

// User is a directory entry that organizers pick participants from.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
