package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

var (
	roomCounter    uint64
	meetingCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	ID        string
	Name      string
	Capacity  int
	Features  []string
	CreatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Capacity:  int(4 + idx%4),
		Features:  []string{"whiteboard"},
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomFeatures replaces the feature list.
func WithRoomFeatures(features ...string) RoomOption {
	return func(f *RoomFixture) {
		f.Features = append([]string(nil), features...)
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		Capacity:  f.Capacity,
		Features:  append([]string(nil), f.Features...),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// ----------------------------- Meeting fixtures -----------------------------

// MeetingFixture represents a deterministic meeting record. The default
// meeting is an hour long and starts a whole number of hours after the
// reference time, so fixtures generated in sequence never overlap.
type MeetingFixture struct {
	ID           string
	Title        string
	RoomID       string
	Organizer    persistence.Participant
	Participants []persistence.Participant
	Start        time.Time
	End          time.Time
	Status       scheduler.Status
	Reminders    map[int]time.Time
	CreatedAt    time.Time
}

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns a deterministic meeting fixture with optional overrides.
func NewMeetingFixture(opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	start := referenceTime.Truncate(time.Hour).Add(time.Duration(idx) * time.Hour)
	fixture := MeetingFixture{
		ID:     fmt.Sprintf("meeting-%03d", idx),
		Title:  fmt.Sprintf("Meeting %03d", idx),
		RoomID: "room-001",
		Organizer: persistence.Participant{
			Name:  "Organizer",
			Email: "organizer@example.com",
		},
		Participants: []persistence.Participant{
			{Name: "Guest", Email: fmt.Sprintf("guest-%03d@example.com", idx)},
		},
		Start:     start,
		End:       start.Add(time.Hour),
		Status:    scheduler.StatusUpcoming,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMeetingID overrides the generated meeting ID.
func WithMeetingID(id string) MeetingOption {
	return func(f *MeetingFixture) {
		f.ID = id
	}
}

// WithMeetingTitle overrides the generated title.
func WithMeetingTitle(title string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Title = title
	}
}

// WithMeetingRoom places the meeting in roomID.
func WithMeetingRoom(roomID string) MeetingOption {
	return func(f *MeetingFixture) {
		f.RoomID = roomID
	}
}

// WithMeetingWindow sets the start and end of the meeting.
func WithMeetingWindow(start, end time.Time) MeetingOption {
	return func(f *MeetingFixture) {
		f.Start = start.UTC()
		f.End = end.UTC()
	}
}

// WithMeetingOrganizer overrides the organizer address.
func WithMeetingOrganizer(name, email string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Organizer = persistence.Participant{Name: name, Email: email}
	}
}

// WithMeetingParticipants replaces the participant list.
func WithMeetingParticipants(participants ...persistence.Participant) MeetingOption {
	return func(f *MeetingFixture) {
		f.Participants = append([]persistence.Participant(nil), participants...)
	}
}

// WithMeetingStatus overrides the lifecycle status.
func WithMeetingStatus(status scheduler.Status) MeetingOption {
	return func(f *MeetingFixture) {
		f.Status = status
	}
}

// WithReminderSent marks the reminder for leadMinutes as delivered at sentAt.
func WithReminderSent(leadMinutes int, sentAt time.Time) MeetingOption {
	return func(f *MeetingFixture) {
		if f.Reminders == nil {
			f.Reminders = make(map[int]time.Time)
		}
		f.Reminders[leadMinutes] = sentAt
	}
}

// Persistence returns the fixture as a persistence.Meeting value.
func (f MeetingFixture) Persistence() persistence.Meeting {
	meeting := persistence.Meeting{
		ID:           f.ID,
		Title:        f.Title,
		RoomID:       f.RoomID,
		Organizer:    f.Organizer,
		Participants: append([]persistence.Participant(nil), f.Participants...),
		Start:        f.Start,
		End:          f.End,
		Status:       string(f.Status),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
	if len(f.Reminders) > 0 {
		meeting.Reminders = make(map[int]time.Time, len(f.Reminders))
		for lead, sentAt := range f.Reminders {
			meeting.Reminders[lead] = sentAt
		}
	}
	return meeting
}
