package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// MeetingRepository implements persistence.MeetingRepository using SQLite.
// Inserts and updates check for overlapping meetings in the same statement
// that writes the row, so two racing bookings cannot both succeed.
type MeetingRepository struct {
	pool *ConnectionPool
}

// NewMeetingRepository creates a new SQLite meeting repository
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

const overlapGuard = `
	NOT EXISTS (
		SELECT 1 FROM meetings other
		WHERE other.room_id = ? AND other.id <> ? AND other.start_at < ? AND other.end_at > ?
	)
`

// CreateMeeting inserts a meeting with its participants and room index entry
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	if err := validateMeeting(meeting); err != nil {
		return err
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM meetings WHERE id = ?`, meeting.ID).Scan(&exists)
		if err != nil {
			return mapError(err)
		}
		if exists > 0 {
			return persistence.ErrDuplicate
		}

		start, end := toMillis(meeting.Start), toMillis(meeting.End)
		result, err := tx.ExecContext(ctx, `
			INSERT INTO meetings (id, title, room_id, organizer_name, organizer_email, start_at, end_at, status, created_at, updated_at)
			SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
			WHERE `+overlapGuard,
			meeting.ID,
			meeting.Title,
			meeting.RoomID,
			meeting.Organizer.Name,
			meeting.Organizer.Email,
			start,
			end,
			meeting.Status,
			toMillis(meeting.CreatedAt),
			toMillis(meeting.UpdatedAt),
			meeting.RoomID, meeting.ID, end, start,
		)
		if err != nil {
			return mapError(err)
		}
		if err := requireRow(result, persistence.ErrOverlap); err != nil {
			return err
		}

		if err := insertParticipants(ctx, tx, meeting.ID, meeting.Participants); err != nil {
			return err
		}
		for lead, sentAt := range meeting.Reminders {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO meeting_reminders (meeting_id, lead_minutes, notified_at) VALUES (?, ?, ?)`,
				meeting.ID, lead, toMillis(sentAt),
			); err != nil {
				return mapError(err)
			}
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO room_meetings (room_id, meeting_id) VALUES (?, ?)`, meeting.RoomID, meeting.ID)
		return mapError(err)
	})
}

// UpdateMeeting replaces a meeting's details and participants. Reminder flags
// are dropped in the same transaction when the start moves.
func (r *MeetingRepository) UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	if err := validateMeeting(meeting); err != nil {
		return err
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var (
			currentRoom  string
			currentStart int64
		)
		err := tx.QueryRowContext(ctx, `SELECT room_id, start_at FROM meetings WHERE id = ?`, meeting.ID).Scan(&currentRoom, &currentStart)
		if err != nil {
			return mapError(err)
		}

		start, end := toMillis(meeting.Start), toMillis(meeting.End)
		result, err := tx.ExecContext(ctx, `
			UPDATE meetings
			SET title = ?, room_id = ?, organizer_name = ?, organizer_email = ?, start_at = ?, end_at = ?, status = ?, updated_at = ?
			WHERE id = ? AND `+overlapGuard,
			meeting.Title,
			meeting.RoomID,
			meeting.Organizer.Name,
			meeting.Organizer.Email,
			start,
			end,
			meeting.Status,
			toMillis(meeting.UpdatedAt),
			meeting.ID,
			meeting.RoomID, meeting.ID, end, start,
		)
		if err != nil {
			return mapError(err)
		}
		if err := requireRow(result, persistence.ErrOverlap); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM meeting_participants WHERE meeting_id = ?`, meeting.ID); err != nil {
			return mapError(err)
		}
		if err := insertParticipants(ctx, tx, meeting.ID, meeting.Participants); err != nil {
			return err
		}

		if currentStart != start {
			if _, err := tx.ExecContext(ctx, `DELETE FROM meeting_reminders WHERE meeting_id = ?`, meeting.ID); err != nil {
				return mapError(err)
			}
		}

		if currentRoom != meeting.RoomID {
			if _, err := tx.ExecContext(ctx, `DELETE FROM room_meetings WHERE meeting_id = ?`, meeting.ID); err != nil {
				return mapError(err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO room_meetings (room_id, meeting_id) VALUES (?, ?)`, meeting.RoomID, meeting.ID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetMeeting retrieves a meeting with participants and reminder flags
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	if id == "" {
		return persistence.Meeting{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings m WHERE m.id = ?`, id)
	meeting, err := scanMeeting(row)
	if err != nil {
		return persistence.Meeting{}, err
	}

	loaded := []persistence.Meeting{meeting}
	if err := loadDetails(ctx, r.pool.db, loaded); err != nil {
		return persistence.Meeting{}, err
	}
	return loaded[0], nil
}

// ListMeetings returns meetings matching filter ordered by start then ID
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	query, args := buildListQuery(filter)

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapError(err)
	}
	rows.Close()

	if err := loadDetails(ctx, r.pool.db, meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// DeleteMeeting removes a meeting and everything that references it
func (r *MeetingRepository) DeleteMeeting(ctx context.Context, id string) error {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM meeting_participants WHERE meeting_id = ?`,
			`DELETE FROM meeting_reminders WHERE meeting_id = ?`,
			`DELETE FROM room_meetings WHERE meeting_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return mapError(err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return requireRow(result, persistence.ErrNotFound)
	})
}

// UpdateMeetingStatus performs a compare-and-set on the stored status
func (r *MeetingRepository) UpdateMeetingStatus(ctx context.Context, id, from, to string, updatedAt time.Time) (bool, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	result, err := r.pool.db.ExecContext(ctx,
		`UPDATE meetings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, toMillis(updatedAt), id, from,
	)
	if err != nil {
		return false, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, mapError(err)
	}
	return affected > 0, nil
}

// MarkReminderSent records a reminder flag once; later calls report false
func (r *MeetingRepository) MarkReminderSent(ctx context.Context, id string, leadMinutes int, sentAt time.Time) (bool, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	result, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO meeting_reminders (meeting_id, lead_minutes, notified_at)
		VALUES (?, ?, ?)
		ON CONFLICT (meeting_id, lead_minutes) DO NOTHING
	`, id, leadMinutes, toMillis(sentAt))
	if err != nil {
		return false, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, mapError(err)
	}
	return affected > 0, nil
}

const meetingColumns = `m.id, m.title, m.room_id, m.organizer_name, m.organizer_email, m.start_at, m.end_at, m.status, m.created_at, m.updated_at`

func buildListQuery(filter persistence.MeetingFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if filter.RoomID != "" {
		conditions = append(conditions, "m.room_id = ?")
		args = append(args, filter.RoomID)
	}
	if w := filter.Overlapping; w != nil {
		conditions = append(conditions, "m.start_at < ? AND m.end_at > ?")
		args = append(args, toMillis(w.End), toMillis(w.Start))
	}
	if w := filter.StartsWithin; w != nil {
		conditions = append(conditions, "m.start_at >= ? AND m.start_at < ?")
		args = append(args, toMillis(w.Start), toMillis(w.End))
	}
	if filter.ReminderUnsent != nil {
		conditions = append(conditions,
			"NOT EXISTS (SELECT 1 FROM meeting_reminders r WHERE r.meeting_id = m.id AND r.lead_minutes = ?)")
		args = append(args, *filter.ReminderUnsent)
	}
	if filter.ExcludeID != "" {
		conditions = append(conditions, "m.id <> ?")
		args = append(args, filter.ExcludeID)
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "m.status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings m`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY m.start_at ASC, m.id ASC`
	return query, args
}

func scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var (
		m                    persistence.Meeting
		startMs, endMs       int64
		createdMs, updatedMs int64
	)
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.RoomID,
		&m.Organizer.Name,
		&m.Organizer.Email,
		&startMs,
		&endMs,
		&m.Status,
		&createdMs,
		&updatedMs,
	)
	if err != nil {
		return persistence.Meeting{}, mapError(err)
	}
	m.Start = fromMillis(startMs)
	m.End = fromMillis(endMs)
	m.CreatedAt = fromMillis(createdMs)
	m.UpdatedAt = fromMillis(updatedMs)
	return m, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadDetails fills participants and reminder flags for the given meetings in place
func loadDetails(ctx context.Context, tx queryer, meetings []persistence.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}

	byID := make(map[string]int, len(meetings))
	args := make([]any, len(meetings))
	for i, m := range meetings {
		byID[m.ID] = i
		args[i] = m.ID
	}
	in := placeholders(len(meetings))

	rows, err := tx.QueryContext(ctx,
		`SELECT meeting_id, name, email FROM meeting_participants WHERE meeting_id IN (`+in+`) ORDER BY meeting_id, position`,
		args...)
	if err != nil {
		return mapError(err)
	}
	for rows.Next() {
		var id string
		var p persistence.Participant
		if err := rows.Scan(&id, &p.Name, &p.Email); err != nil {
			rows.Close()
			return mapError(err)
		}
		i := byID[id]
		meetings[i].Participants = append(meetings[i].Participants, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return mapError(err)
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx,
		`SELECT meeting_id, lead_minutes, notified_at FROM meeting_reminders WHERE meeting_id IN (`+in+`)`,
		args...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id     string
			lead   int
			sentMs int64
		)
		if err := rows.Scan(&id, &lead, &sentMs); err != nil {
			return mapError(err)
		}
		i := byID[id]
		if meetings[i].Reminders == nil {
			meetings[i].Reminders = make(map[int]time.Time)
		}
		meetings[i].Reminders[lead] = fromMillis(sentMs)
	}
	return mapError(rows.Err())
}

func insertParticipants(ctx context.Context, tx *sql.Tx, meetingID string, participants []persistence.Participant) error {
	for i, p := range participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO meeting_participants (meeting_id, position, name, email) VALUES (?, ?, ?, ?)`,
			meetingID, i, p.Name, p.Email,
		)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
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

func requireRow(result sql.Result, otherwise error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return otherwise
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
