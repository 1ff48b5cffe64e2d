package sqlite

import (
	"context"
	"strings"

	"github.com/example/room-booking/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

// CreateUser inserts a new user into the directory
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		user.ID,
		user.Name,
		normalizeEmail(user.Email),
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	return mapError(err)
}

// SearchUsers matches query as a case-insensitive substring of the user name
func (r *UserRepository) SearchUsers(ctx context.Context, query string, limit int) ([]persistence.User, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY name COLLATE NOCASE ASC, id ASC
		LIMIT ?
	`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		var (
			user                 persistence.User
			createdMs, updatedMs int64
		)
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &createdMs, &updatedMs); err != nil {
			return nil, mapError(err)
		}
		user.CreatedAt = fromMillis(createdMs)
		user.UpdatedAt = fromMillis(updatedMs)
		users = append(users, user)
	}
	return users, mapError(rows.Err())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
