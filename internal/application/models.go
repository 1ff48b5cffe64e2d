package application

import (
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// Participant is a meeting attendee reachable at a contact address.
type Participant struct {
	Name  string
	Email string
}

// Meeting is a booking of one room for a time range.
type Meeting struct {
	ID           string
	Title        string
	RoomID       string
	Organizer    Participant
	Participants []Participant
	Start        time.Time
	End          time.Time
	Status       scheduler.Status
	// Reminders maps lead time minutes to the instant the reminder was delivered.
	Reminders map[int]time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Range returns the meeting's time range.
func (m Meeting) Range() scheduler.TimeRange {
	return scheduler.TimeRange{Start: m.Start, End: m.End}
}

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	Title        string
	RoomID       string
	Organizer    Participant
	Participants []Participant
	Start        time.Time
	End          time.Time
}

// MeetingQuery narrows meeting listings. Zero values disable a criterion.
type MeetingQuery struct {
	RoomID string
	From   time.Time
	To     time.Time
}

// Room is a bookable room with its hosted meetings in booking order.
type Room struct {
	ID           string
	Name         string
	Capacity     int
	Features     []string
	MeetingIDs   []string
	Availability *RoomAvailability
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	ID       string
	Name     string
	Capacity int
	Features []string
}

// User is a directory entry organizers pick meeting participants from.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserInput captures caller provided directory fields.
type UserInput struct {
	Name  string
	Email string
}

// RoomAvailability is the cached availability of a room for one day.
type RoomAvailability struct {
	Date                   string
	AvailableMinutes       int
	AvailabilityPercentage float64
	ComputedAt             time.Time
}

// Availability is the computed occupancy of a room for one day.
type Availability struct {
	RoomID                 string
	Date                   string
	OccupiedMinutes        int
	AvailableMinutes       int
	AvailabilityPercentage float64
	FreeSlots              []scheduler.TimeRange
}

// ReminderEvent is pushed to an organizer's live connection ahead of a meeting.
type ReminderEvent struct {
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	MeetingID   string    `json:"meetingId"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	RoomID      string    `json:"roomId"`
	LeadMinutes int       `json:"leadMinutes"`
}

// ReminderEventKind is the kind carried by every reminder event.
const ReminderEventKind = "reminder"

// Booking event types published after successful mutations.
const (
	BookingCreated   = "booking.created"
	BookingUpdated   = "booking.updated"
	BookingCancelled = "booking.cancelled"
)

// BookingEvent describes a booking mutation for downstream consumers such as email delivery.
type BookingEvent struct {
	Type         string        `json:"type"`
	MeetingID    string        `json:"meetingId"`
	Title        string        `json:"title"`
	RoomID       string        `json:"roomId"`
	Organizer    Participant   `json:"organizer"`
	Participants []Participant `json:"participants"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	OccurredAt   time.Time     `json:"occurredAt"`
}

func newBookingEvent(eventType string, meeting Meeting, at time.Time) BookingEvent {
	return BookingEvent{
		Type:         eventType,
		MeetingID:    meeting.ID,
		Title:        meeting.Title,
		RoomID:       meeting.RoomID,
		Organizer:    meeting.Organizer,
		Participants: slices.Clone(meeting.Participants),
		Start:        meeting.Start,
		End:          meeting.End,
		OccurredAt:   at,
	}
}

func toPersistenceMeeting(m Meeting) persistence.Meeting {
	participants := make([]persistence.Participant, len(m.Participants))
	for i, p := range m.Participants {
		participants[i] = persistence.Participant(p)
	}
	return persistence.Meeting{
		ID:           m.ID,
		Title:        m.Title,
		RoomID:       m.RoomID,
		Organizer:    persistence.Participant(m.Organizer),
		Participants: participants,
		Start:        m.Start.UTC(),
		End:          m.End.UTC(),
		Status:       string(m.Status),
		Reminders:    maps.Clone(m.Reminders),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromPersistenceMeeting(m persistence.Meeting) Meeting {
	var participants []Participant
	if len(m.Participants) > 0 {
		participants = make([]Participant, len(m.Participants))
		for i, p := range m.Participants {
			participants[i] = Participant(p)
		}
	}
	return Meeting{
		ID:           m.ID,
		Title:        m.Title,
		RoomID:       m.RoomID,
		Organizer:    Participant(m.Organizer),
		Participants: participants,
		Start:        m.Start.UTC(),
		End:          m.End.UTC(),
		Status:       scheduler.Status(m.Status),
		Reminders:    maps.Clone(m.Reminders),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromPersistenceRoom(r persistence.Room) Room {
	return Room{
		ID:         r.ID,
		Name:       r.Name,
		Capacity:   r.Capacity,
		Features:   slices.Clone(r.Features),
		MeetingIDs: slices.Clone(r.MeetingIDs),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toBookings(meetings []persistence.Meeting) []scheduler.Booking {
	bookings := make([]scheduler.Booking, len(meetings))
	for i, m := range meetings {
		bookings[i] = scheduler.Booking{
			ID:     m.ID,
			Title:  m.Title,
			RoomID: m.RoomID,
			Range:  scheduler.TimeRange{Start: m.Start, End: m.End},
		}
	}
	return bookings
}

func sortStrings(values []string) {
	sort.Strings(values)
}

func fromPersistenceUser(u persistence.User) User {
	return User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
