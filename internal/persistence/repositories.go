package persistence

import (
	"context"
	"time"
)

// Window is a half-open time interval used by meeting filters.
type Window struct {
	Start time.Time
	End   time.Time
}

// MeetingFilter narrows meeting queries. Zero values disable a criterion.
type MeetingFilter struct {
	RoomID string
	// Overlapping keeps meetings with start < Window.End and end > Window.Start.
	Overlapping *Window
	// StartsWithin keeps meetings with Window.Start <= start < Window.End.
	StartsWithin *Window
	// ReminderUnsent keeps meetings without a reminder flag for this lead time in minutes.
	ReminderUnsent *int
	ExcludeID      string
	Statuses       []string
}

// MeetingRepository stores meetings, their participants and reminder flags.
// Results of ListMeetings are ordered by start then ID.
type MeetingRepository interface {
	// CreateMeeting fails with ErrOverlap when another meeting in the room overlaps.
	CreateMeeting(ctx context.Context, meeting Meeting) error
	// UpdateMeeting fails with ErrOverlap when another meeting in the target room overlaps.
	// A changed start drops the meeting's reminder flags in the same write.
	UpdateMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	// UpdateMeetingStatus moves a meeting from one status to another and reports
	// whether the stored status still matched from.
	UpdateMeetingStatus(ctx context.Context, id, from, to string, updatedAt time.Time) (bool, error)
	// MarkReminderSent records the reminder flag and reports whether it was newly set.
	MarkReminderSent(ctx context.Context, id string, leadMinutes int, sentAt time.Time) (bool, error)
}

// RoomRepository stores rooms and their cached availability.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	UpsertRoomAvailability(ctx context.Context, availability RoomAvailability) error
	GetRoomAvailability(ctx context.Context, roomID string, day time.Time) (RoomAvailability, error)
}

// UserRepository stores the user directory. Emails are unique ignoring case.
type UserRepository interface {
	// CreateUser fails with ErrDuplicate when the email is already registered.
	CreateUser(ctx context.Context, user User) error
	// SearchUsers returns at most limit users whose name contains query ignoring
	// case, ordered by name then ID.
	SearchUsers(ctx context.Context, query string, limit int) ([]User, error)
}
