// Package presence tracks live websocket connections by contact address and
// pushes reminder events to them.
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/room-booking/internal/application"
)

// ErrBufferFull is returned when a client's send buffer has no room left.
var ErrBufferFull = errors.New("presence: send buffer full")

// ErrNotConnected is returned when the target connection is no longer registered.
var ErrNotConnected = errors.New("presence: not connected")

// Config tunes connection handling.
type Config struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	AllowedOrigins []string
}

// DefaultConfig returns the settings used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		SendBuffer:     16,
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// Client is one live websocket connection bound to a contact address.
type Client struct {
	address string
	conn    *websocket.Conn
	send    chan []byte
	closed  bool
}

// Address returns the normalized contact address the client registered with.
func (c *Client) Address() string {
	return c.address
}

// Hub maps contact addresses to their live connection. A newer connection for
// the same address replaces the older one.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub constructs an empty hub.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	defaults := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaults.PongTimeout
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = defaults.AllowedOrigins
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger.With("component", "presence"),
		clients: make(map[string]*Client),
	}
}

// NormalizeAddress is the key clients are registered under.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Register binds a new client for address and returns it. Any previous client
// for the address is closed.
func (h *Hub) Register(address string, conn *websocket.Conn) *Client {
	client := &Client{
		address: NormalizeAddress(address),
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBuffer),
	}

	h.mu.Lock()
	previous := h.clients[client.address]
	if previous != nil {
		h.closeLocked(previous)
	}
	h.clients[client.address] = client
	h.mu.Unlock()

	h.logger.Info("client connected", "address", client.address, "replaced", previous != nil)
	return client
}

// Unregister removes client if it is still the registered connection for its address.
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	h.mu.Lock()
	removed := false
	if h.clients[client.address] == client {
		delete(h.clients, client.address)
		removed = true
	}
	h.closeLocked(client)
	h.mu.Unlock()

	if removed {
		h.logger.Info("client disconnected", "address", client.address)
	}
}

// ResolveConnection implements application.PresenceDirectory.
func (h *Hub) ResolveConnection(address string) (application.Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[NormalizeAddress(address)]
	if !ok {
		return nil, false
	}
	return client, true
}

// Deliver implements application.NotificationSink. It never blocks on a slow
// client: a full buffer fails the delivery and the reminder stays eligible.
func (h *Hub) Deliver(ctx context.Context, conn application.Connection, event application.ReminderEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", application.ErrDeliveryUnavailable, err)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[NormalizeAddress(conn.Address())]
	if !ok || client.closed {
		return fmt.Errorf("%w: %w", application.ErrDeliveryUnavailable, ErrNotConnected)
	}
	select {
	case client.send <- payload:
		return nil
	default:
		return fmt.Errorf("%w: %w", application.ErrDeliveryUnavailable, ErrBufferFull)
	}
}

// Count reports the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for address, client := range h.clients {
		h.closeLocked(client)
		delete(h.clients, address)
	}
}

// closeLocked closes the send channel once; the write pump then closes the socket.
func (h *Hub) closeLocked(client *Client) {
	if client.closed {
		return
	}
	client.closed = true
	close(client.send)
}

var (
	_ application.PresenceDirectory = (*Hub)(nil)
	_ application.NotificationSink  = (*Hub)(nil)
)
