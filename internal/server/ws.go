package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/arbiter"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is a single message pushed to WebSocket clients.
type Event struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
	Time    int64  `json:"timestamp"`
}

// EventHub broadcasts cast decisions and status changes via WebSocket.
type EventHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	log     *logrus.Entry
}

// NewEventHub creates an EventHub with no clients.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*websocket.Conn]bool),
		log:     logrus.WithField("component", "events"),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Len returns the number of connected clients.
func (h *EventHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends an event to every connected client. Clients that fail the
// write are dropped.
func (h *EventHub) Broadcast(kind string, payload any) {
	msg, err := json.Marshal(Event{
		Kind:    kind,
		Payload: payload,
		Time:    time.Now().UnixMilli(),
	})
	if err != nil {
		h.log.WithError(err).WithField("kind", kind).Error("failed to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.WithError(err).Debug("dropping websocket client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// OnCast broadcasts a cast decision.
func (h *EventHub) OnCast(d arbiter.Decision) {
	h.Broadcast("cast", d)
}

// Status broadcasts a short status message.
func (h *EventHub) Status(msg string) {
	h.Broadcast("status", msg)
}
