// Package relay pushes pipeline events to connected UI clients over
// WebSocket. Delivery is fire-and-forget: a client that cannot keep up is
// disconnected rather than buffered indefinitely.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds a single broadcast write per client.
const writeTimeout = 5 * time.Second

// Event is the envelope pushed to clients.
type Event struct {
	// Type names the event, e.g. "audioReady", "gameStarted", "gameEnded".
	Type string `json:"type"`

	// Payload is the event body, omitted when empty.
	Payload any `json:"payload,omitempty"`
}

// Hub fans events out to all connected WebSocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Clients only receive; inbound messages are drained
// and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Local UI connects from the app's own origin or a dev server.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Debug("relay: websocket accept failed", "error", err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("relay: client connected", "clients", n)

	defer h.drop(conn, websocket.StatusNormalClosure, "")

	// Block until the peer closes or errors; reads also service pings.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

// Broadcast sends one event to every connected client. Marshal or write
// failures drop the offending client and never propagate to the caller.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("relay: marshal event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.Debug("relay: dropping slow client", "error", err)
			h.drop(c, websocket.StatusPolicyViolation, "write timeout")
		}
	}
}

// Close disconnects every client and rejects future connections.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		c.Close(websocket.StatusGoingAway, "shutting down")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(c *websocket.Conn, code websocket.StatusCode, reason string) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close(code, reason)
}
