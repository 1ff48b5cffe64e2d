package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

const (
	// MinSearchQueryLength is the shortest name fragment SearchUsers accepts.
	MinSearchQueryLength = 3
	// MaxSearchResults caps the number of users SearchUsers returns.
	MaxSearchResults = 10
)

// DirectoryService keeps the user directory used to look up meeting participants.
type DirectoryService struct {
	users       DirectoryStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDirectoryService wires dependencies for the directory service.
func NewDirectoryService(users DirectoryStore, idGenerator func() string, now func() time.Time) *DirectoryService {
	return NewDirectoryServiceWithLogger(users, idGenerator, now, nil)
}

// NewDirectoryServiceWithLogger wires dependencies for the directory service with a specified logger.
func NewDirectoryServiceWithLogger(users DirectoryStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *DirectoryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{users: users, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *DirectoryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DirectoryService", operation, attrs...)
}

// AddUser validates and stores a directory entry. Emails are unique ignoring case.
func (s *DirectoryService) AddUser(ctx context.Context, input UserInput) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("DirectoryService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddUser")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user added")
	}()

	normalized := normalizeUserInput(input)
	if vErr := validateUserInput(normalized); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	stored := persistence.User{
		ID:        s.idGenerator(),
		Name:      normalized.Name,
		Email:     normalized.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.users.CreateUser(ctx, stored); err != nil {
		err = mapStoreError(err)
		return
	}
	user = fromPersistenceUser(stored)
	return
}

// SearchUsers returns up to MaxSearchResults users whose name contains query
// ignoring case. Queries shorter than MinSearchQueryLength are rejected.
func (s *DirectoryService) SearchUsers(ctx context.Context, query string) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("DirectoryService is nil")
	}

	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchQueryLength {
		return nil, NewValidationError("query", fmt.Sprintf("must be at least %d characters", MinSearchQueryLength))
	}

	stored, err := s.users.SearchUsers(ctx, query, MaxSearchResults)
	if err != nil {
		err = mapStoreError(err)
		s.loggerWith(ctx, "SearchUsers").ErrorContext(ctx, "failed to search users", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	users := make([]User, len(stored))
	for i, u := range stored {
		users[i] = fromPersistenceUser(u)
	}
	return users, nil
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Name:  strings.TrimSpace(input.Name),
		Email: normalizeEmail(input.Email),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "is required")
	}
	if input.Email == "" {
		vErr.add("email", "is required")
	} else if !validAddress(input.Email) {
		vErr.add("email", "must be a valid email address")
	}

	return vErr
}
