package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool *ConnectionPool
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// CreateRoom inserts a new room into the database
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	if strings.TrimSpace(room.ID) == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	features, err := encodeFeatures(room.Features)
	if err != nil {
		return err
	}

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, capacity, features, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		room.ID,
		room.Name,
		room.Capacity,
		features,
		toMillis(room.CreatedAt),
		toMillis(room.UpdatedAt),
	)
	return mapError(err)
}

// GetRoom retrieves a room and its meeting index by ID
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, capacity, features, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`, id)

	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, err
	}

	index, err := r.meetingIndex(ctx, id)
	if err != nil {
		return persistence.Room{}, err
	}
	room.MeetingIDs = index[id]
	return room, nil
}

// ListRooms returns all rooms ordered by name then ID
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, name, capacity, features, created_at, updated_at
		FROM rooms
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	index, err := r.meetingIndex(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].MeetingIDs = index[rooms[i].ID]
	}
	return rooms, nil
}

// UpsertRoomAvailability writes the cached availability for one room and day
func (r *RoomRepository) UpsertRoomAvailability(ctx context.Context, availability persistence.RoomAvailability) error {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO room_availability (room_id, day, available_minutes, percentage, computed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (room_id, day) DO UPDATE SET
			available_minutes = excluded.available_minutes,
			percentage = excluded.percentage,
			computed_at = excluded.computed_at
	`,
		availability.RoomID,
		toMillis(availability.Day),
		availability.AvailableMinutes,
		availability.Percentage,
		toMillis(availability.ComputedAt),
	)
	return mapError(err)
}

// GetRoomAvailability returns the cached availability for one room and day
func (r *RoomRepository) GetRoomAvailability(ctx context.Context, roomID string, day time.Time) (persistence.RoomAvailability, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	var (
		a          = persistence.RoomAvailability{RoomID: roomID}
		dayMs      int64
		computedMs int64
	)
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT day, available_minutes, percentage, computed_at
		FROM room_availability
		WHERE room_id = ? AND day = ?
	`, roomID, toMillis(day)).Scan(&dayMs, &a.AvailableMinutes, &a.Percentage, &computedMs)
	if err != nil {
		return persistence.RoomAvailability{}, mapError(err)
	}
	a.Day = fromMillis(dayMs)
	a.ComputedAt = fromMillis(computedMs)
	return a, nil
}

// meetingIndex loads meeting IDs per room in booking order. An empty roomID loads every room.
func (r *RoomRepository) meetingIndex(ctx context.Context, roomID string) (map[string][]string, error) {
	query := `SELECT room_id, meeting_id FROM room_meetings`
	var args []any
	if roomID != "" {
		query += ` WHERE room_id = ?`
		args = append(args, roomID)
	}
	query += ` ORDER BY position ASC`

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	index := make(map[string][]string)
	for rows.Next() {
		var room, meeting string
		if err := rows.Scan(&room, &meeting); err != nil {
			return nil, mapError(err)
		}
		index[room] = append(index[room], meeting)
	}
	return index, mapError(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room                 persistence.Room
		features             string
		createdMs, updatedMs int64
	)
	if err := row.Scan(&room.ID, &room.Name, &room.Capacity, &features, &createdMs, &updatedMs); err != nil {
		return persistence.Room{}, mapError(err)
	}
	if err := json.Unmarshal([]byte(features), &room.Features); err != nil {
		return persistence.Room{}, fmt.Errorf("sqlite: decode features of room %s: %w", room.ID, err)
	}
	if len(room.Features) == 0 {
		room.Features = nil
	}
	room.CreatedAt = fromMillis(createdMs)
	room.UpdatedAt = fromMillis(updatedMs)
	return room, nil
}

func encodeFeatures(features []string) (string, error) {
	if len(features) == 0 {
		return "[]", nil
	}
	encoded, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode features: %w", err)
	}
	return string(encoded), nil
}

var _ rowScanner = (*sql.Row)(nil)
