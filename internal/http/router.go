package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	Rooms          *RoomHandler
	Meetings       *MeetingHandler
	Directory      *DirectoryHandler
	Health         *HealthHandler
	Presence       http.Handler
	AllowedOrigins []string
	Logger         *slog.Logger
	Middleware     []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(defaultLogger(cfg.Logger)))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Check)
	}

	if cfg.Rooms != nil {
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", cfg.Rooms.List)
			r.Post("/", cfg.Rooms.Create)
			r.Get("/availability/{date}", cfg.Rooms.AvailabilityByDate)
			r.Get("/{roomID}", cfg.Rooms.Get)
			r.Get("/{roomID}/availability", cfg.Rooms.Availability)
		})
	}

	if cfg.Meetings != nil {
		r.Route("/meetings", func(r chi.Router) {
			r.Get("/", cfg.Meetings.List)
			r.Post("/", cfg.Meetings.Create)
			r.Get("/{meetingID}", cfg.Meetings.Get)
			r.Put("/{meetingID}", cfg.Meetings.Update)
			r.Delete("/{meetingID}", cfg.Meetings.Delete)
		})
	}

	if cfg.Directory != nil {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", cfg.Directory.Add)
			r.Get("/search", cfg.Directory.Search)
		})
	}

	if cfg.Presence != nil {
		r.Method(http.MethodGet, "/ws", cfg.Presence)
	}

	return r
}
