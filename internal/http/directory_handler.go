package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/room-booking/internal/application"
)

type directoryService interface {
	AddUser(ctx context.Context, input application.UserInput) (application.User, error)
	SearchUsers(ctx context.Context, query string) ([]application.User, error)
}

type DirectoryHandler struct {
	service   directoryService
	responder responder
	logger    *slog.Logger
}

func NewDirectoryHandler(service directoryService, logger *slog.Logger) *DirectoryHandler {
	base := defaultLogger(logger)
	return &DirectoryHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DirectoryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "DirectoryHandler", operation, attrs...)
}

func (h *DirectoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Add", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode user request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.AddUser(r.Context(), application.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Add", "user_id", user.ID).InfoContext(r.Context(), "user created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

// Search serves participant autocomplete: GET /users/search?query=
func (h *DirectoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	users, err := h.service.SearchUsers(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]userDTO, len(users))
	for i, u := range users {
		out[i] = toUserDTO(u)
	}
	h.log(r.Context(), "Search").With("result_count", len(out)).DebugContext(r.Context(), "users searched")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, searchUsersResponse{Users: out})
}

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type searchUsersResponse struct {
	Users []userDTO `json:"users"`
}

// userDTO carries value and label for autocomplete widgets; both hold the name.
type userDTO struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	Label     string `json:"label"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Value:     user.Name,
		Label:     user.Name,
		Email:     user.Email,
		CreatedAt: formatTime(user.CreatedAt),
	}
}
