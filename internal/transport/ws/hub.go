// Package ws streams companion link events to WebSocket clients. The
// hub fans every event out to all connected clients; a client that
// cannot keep up is dropped rather than allowed to stall the stream.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ruconnect/internal/bluetooth"
	"ruconnect/internal/platform/metrics"
)

const writeTimeout = 5 * time.Second

// Hub owns the WebSocket client set for the event stream.
type Hub struct {
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub constructs an empty hub. The daemon serves a local companion
// app, so cross-origin upgrades are accepted.
func NewHub(m *metrics.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: m,
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Run drains the manager's event stream into the client set until the
// context ends, then closes every connection.
func (h *Hub) Run(ctx context.Context, events <-chan bluetooth.Event) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case event := <-events:
			h.Broadcast(event)
		}
	}
}

// HandleEvents handles GET /bluetooth/events requests, upgrading the
// connection and holding it until the client leaves.
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	h.add(conn)
	h.logger.InfoContext(r.Context(), "event stream client connected",
		"remote", conn.RemoteAddr().String(),
		"clients", h.count(),
	)

	// The stream is one-way; the read loop only notices the close.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends the event to every connected client. A failed write
// drops that client; the rest keep receiving.
func (h *Hub) Broadcast(event bluetooth.Event) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("dropping slow event stream client",
				"remote", conn.RemoteAddr().String(),
				"error", err,
			)
			h.remove(conn)
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.metrics.AddWSClient(1)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, present := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if present {
		h.metrics.AddWSClient(-1)
		_ = conn.Close()
	}
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.remove(conn)
	}
}
