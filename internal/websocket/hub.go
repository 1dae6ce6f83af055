package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/GollaBharath/Gamify/internal/metrics"
)

// Event is a real-time notification pushed to connected dashboards, e.g. a
// points award landing on a user's account.
type Event struct {
	Type   string         `json:"type"`
	UserID int64          `json:"user_id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// AwardEvent builds the notification broadcast after a successful award.
func AwardEvent(userID int64, amount, balance int) Event {
	return Event{
		Type:   "points_awarded",
		UserID: userID,
		Extra: map[string]any{
			"amount":  amount,
			"balance": balance,
		},
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WSClients.Inc()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.WSClients.Dec()
	}
	h.mu.Unlock()
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full; drop rather than block the award path
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
