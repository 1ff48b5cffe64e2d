// Package memory provides a mutex-guarded in-memory store with the same
// semantics as the SQLite store. It backs tests and throwaway dev runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

type availabilityKey struct {
	roomID string
	day    int64
}

// Storage keeps rooms and meetings in maps guarded by a single lock.
type Storage struct {
	mu           sync.RWMutex
	rooms        map[string]persistence.Room
	meetings     map[string]persistence.Meeting
	roomIndex    map[string][]string
	availability map[availabilityKey]persistence.RoomAvailability
	users        map[string]persistence.User
	userEmails   map[string]string
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		rooms:        make(map[string]persistence.Room),
		meetings:     make(map[string]persistence.Meeting),
		roomIndex:    make(map[string][]string),
		availability: make(map[availabilityKey]persistence.RoomAvailability),
		users:        make(map[string]persistence.User),
		userEmails:   make(map[string]string),
	}
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// --- RoomRepository implementation ---

// CreateRoom stores a new room.
func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room) error {
	if strings.TrimSpace(room.ID) == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("%w: room %s", persistence.ErrDuplicate, room.ID)
	}

	room.MeetingIDs = nil
	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

// GetRoom retrieves a room by ID with its meeting index.
func (s *Storage) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	room.MeetingIDs = s.roomIndex[id]
	return cloneRoom(room), nil
}

// ListRooms returns all rooms ordered by name then ID.
func (s *Storage) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for id, room := range s.rooms {
		room.MeetingIDs = s.roomIndex[id]
		rooms = append(rooms, cloneRoom(room))
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})

	return rooms, nil
}

// UpsertRoomAvailability writes the cached availability for a room and day.
func (s *Storage) UpsertRoomAvailability(ctx context.Context, availability persistence.RoomAvailability) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[availability.RoomID]; !ok {
		return persistence.ErrNotFound
	}
	s.availability[availabilityKey{availability.RoomID, availability.Day.UTC().UnixMilli()}] = availability
	return nil
}

// GetRoomAvailability reads the cached availability for a room and day.
func (s *Storage) GetRoomAvailability(ctx context.Context, roomID string, day time.Time) (persistence.RoomAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.availability[availabilityKey{roomID, day.UTC().UnixMilli()}]
	if !ok {
		return persistence.RoomAvailability{}, persistence.ErrNotFound
	}
	return a, nil
}

// --- MeetingRepository implementation ---

// CreateMeeting stores a meeting unless it overlaps another meeting in its room.
func (s *Storage) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if err := validateMeeting(meeting); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[meeting.ID]; ok {
		return fmt.Errorf("%w: meeting %s", persistence.ErrDuplicate, meeting.ID)
	}
	if _, ok := s.rooms[meeting.RoomID]; !ok {
		return fmt.Errorf("%w: room %s", persistence.ErrNotFound, meeting.RoomID)
	}
	if s.overlapsLocked(meeting) {
		return persistence.ErrOverlap
	}

	s.meetings[meeting.ID] = cloneMeeting(meeting)
	s.roomIndex[meeting.RoomID] = append(s.roomIndex[meeting.RoomID], meeting.ID)
	return nil
}

// UpdateMeeting replaces a meeting's details. Reminder flags survive only while the start stays put.
func (s *Storage) UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if err := validateMeeting(meeting); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.meetings[meeting.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if _, ok := s.rooms[meeting.RoomID]; !ok {
		return fmt.Errorf("%w: room %s", persistence.ErrNotFound, meeting.RoomID)
	}
	if s.overlapsLocked(meeting) {
		return persistence.ErrOverlap
	}

	meeting.Reminders = nil
	if existing.Start.Equal(meeting.Start) {
		meeting.Reminders = existing.Reminders
	}
	meeting.CreatedAt = existing.CreatedAt
	s.meetings[meeting.ID] = cloneMeeting(meeting)

	if existing.RoomID != meeting.RoomID {
		s.removeFromIndexLocked(existing.RoomID, meeting.ID)
		s.roomIndex[meeting.RoomID] = append(s.roomIndex[meeting.RoomID], meeting.ID)
	}
	return nil
}

// GetMeeting retrieves a meeting by ID.
func (s *Storage) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	return cloneMeeting(meeting), nil
}

// ListMeetings returns meetings matching the filter ordered by start then ID.
func (s *Storage) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meetings := make([]persistence.Meeting, 0)
	for _, meeting := range s.meetings {
		if !matchesFilter(meeting, filter) {
			continue
		}
		meetings = append(meetings, cloneMeeting(meeting))
	}

	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].Start.Equal(meetings[j].Start) {
			return meetings[i].ID < meetings[j].ID
		}
		return meetings[i].Start.Before(meetings[j].Start)
	})

	return meetings, nil
}

// DeleteMeeting removes a meeting and de-indexes it from its room.
func (s *Storage) DeleteMeeting(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return persistence.ErrNotFound
	}

	delete(s.meetings, id)
	s.removeFromIndexLocked(meeting.RoomID, id)
	return nil
}

// UpdateMeetingStatus sets the status when the stored value still equals from.
func (s *Storage) UpdateMeetingStatus(ctx context.Context, id, from, to string, updatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[id]
	if !ok || meeting.Status != from {
		return false, nil
	}
	meeting.Status = to
	meeting.UpdatedAt = updatedAt
	s.meetings[id] = meeting
	return true, nil
}

// MarkReminderSent records a reminder flag once.
func (s *Storage) MarkReminderSent(ctx context.Context, id string, leadMinutes int, sentAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return false, persistence.ErrNotFound
	}
	if _, sent := meeting.Reminders[leadMinutes]; sent {
		return false, nil
	}

	reminders := make(map[int]time.Time, len(meeting.Reminders)+1)
	for k, v := range meeting.Reminders {
		reminders[k] = v
	}
	reminders[leadMinutes] = sentAt
	meeting.Reminders = reminders
	s.meetings[id] = meeting
	return true, nil
}

// --- UserRepository implementation ---

// CreateUser stores a directory entry unless its email is taken.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if strings.TrimSpace(user.ID) == "" || email == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%w: user %s", persistence.ErrDuplicate, user.ID)
	}
	if _, ok := s.userEmails[email]; ok {
		return fmt.Errorf("%w: email %s", persistence.ErrDuplicate, email)
	}

	user.Email = email
	s.users[user.ID] = user
	s.userEmails[email] = user.ID
	return nil
}

// SearchUsers returns up to limit users whose name contains query ignoring case.
func (s *Storage) SearchUsers(ctx context.Context, query string, limit int) ([]persistence.User, error) {
	if limit <= 0 {
		return nil, nil
	}
	needle := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []persistence.User
	for _, user := range s.users {
		if strings.Contains(strings.ToLower(user.Name), needle) {
			users = append(users, user)
		}
	}

	sort.Slice(users, func(i, j int) bool {
		a, b := strings.ToLower(users[i].Name), strings.ToLower(users[j].Name)
		if a == b {
			return users[i].ID < users[j].ID
		}
		return a < b
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *Storage) overlapsLocked(candidate persistence.Meeting) bool {
	for _, other := range s.meetings {
		if other.ID == candidate.ID || other.RoomID != candidate.RoomID {
			continue
		}
		if other.Start.Before(candidate.End) && other.End.After(candidate.Start) {
			return true
		}
	}
	return false
}

func (s *Storage) removeFromIndexLocked(roomID, meetingID string) {
	ids := s.roomIndex[roomID]
	if i := slices.Index(ids, meetingID); i >= 0 {
		s.roomIndex[roomID] = slices.Delete(slices.Clone(ids), i, i+1)
	}
}

func validateMeeting(meeting persistence.Meeting) error {
	if strings.TrimSpace(meeting.ID) == "" || strings.TrimSpace(meeting.RoomID) == "" {
		return persistence.ErrConstraintViolation
	}
	if !meeting.Start.Before(meeting.End) {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func matchesFilter(meeting persistence.Meeting, filter persistence.MeetingFilter) bool {
	if filter.RoomID != "" && meeting.RoomID != filter.RoomID {
		return false
	}
	if w := filter.Overlapping; w != nil && !(meeting.Start.Before(w.End) && meeting.End.After(w.Start)) {
		return false
	}
	if w := filter.StartsWithin; w != nil && (meeting.Start.Before(w.Start) || !meeting.Start.Before(w.End)) {
		return false
	}
	if filter.ReminderUnsent != nil {
		if _, sent := meeting.Reminders[*filter.ReminderUnsent]; sent {
			return false
		}
	}
	if filter.ExcludeID != "" && meeting.ID == filter.ExcludeID {
		return false
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, meeting.Status) {
		return false
	}
	return true
}

func cloneRoom(room persistence.Room) persistence.Room {
	room.Features = slices.Clone(room.Features)
	room.MeetingIDs = slices.Clone(room.MeetingIDs)
	return room
}

func cloneMeeting(meeting persistence.Meeting) persistence.Meeting {
	meeting.Participants = slices.Clone(meeting.Participants)
	if meeting.Reminders != nil {
		reminders := make(map[int]time.Time, len(meeting.Reminders))
		for k, v := range meeting.Reminders {
			reminders[k] = v
		}
		meeting.Reminders = reminders
	}
	return meeting
}

var (
	_ persistence.RoomRepository    = (*Storage)(nil)
	_ persistence.MeetingRepository = (*Storage)(nil)
)
