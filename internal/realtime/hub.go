package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// EventHandler receives poll lifecycle events read from a client connection.
type EventHandler func(clientID, event string, data json.RawMessage)

// Participant is a connected user as shown in the student list.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Hub maintains the single classroom's connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to
// Redis.
type Hub struct {
	clients   map[string]*Client
	mu        sync.RWMutex
	unsub     func() // cancel Redis subscription, held while clients exist
	logger    *zap.Logger
	redisPub  Publisher
	redisSub  Subscriber
	onEvent   EventHandler
}

// Publisher publishes classroom events to Redis for cross-instance broadcast.
type Publisher interface {
	PublishEvent(event string, payload []byte) error
}

// Subscriber subscribes to the classroom channel and invokes handler for
// incoming events.
type Subscriber interface {
	Subscribe(handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub Publisher, redisSub Subscriber) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		logger:   logger,
		redisPub: redisPub,
		redisSub: redisSub,
	}
}

// SetEventHandler sets the callback for poll events read from clients.
func (h *Hub) SetEventHandler(fn EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = fn
}

// Register adds a client to the classroom. Starts the Redis subscription when
// the first client connects.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if len(h.clients) == 0 && h.redisSub != nil && h.unsub == nil {
		cancel, err := h.redisSub.Subscribe(func(event string, payload []byte) {
			h.broadcastLocal(event, json.RawMessage(payload))
		})
		if err == nil {
			h.unsub = cancel
		}
	}
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined classroom", zap.String("client_id", c.ID))
}

// Unregister removes a client. Cancels the Redis subscription when the last
// client leaves, and refreshes the student list for everyone else.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	if len(h.clients) == 0 && h.unsub != nil {
		h.unsub()
		h.unsub = nil
	}
	h.mu.Unlock()
	h.logger.Debug("client left classroom", zap.String("client_id", c.ID))
	h.BroadcastStudentList()
}

// Identify records a client's self-declared name and role, then refreshes
// the student list for everyone.
func (h *Hub) Identify(c *Client, name, role string) {
	h.mu.Lock()
	c.Name = name
	c.Role = role
	h.mu.Unlock()
	h.BroadcastStudentList()
}

// Students returns the identified students currently connected.
func (h *Hub) Students() []Participant {
	h.mu.RLock()
	defer h.mu.RUnlock()
	students := make([]Participant, 0, len(h.clients))
	for _, c := range h.clients {
		if c.Role == RoleStudent {
			students = append(students, Participant{ID: c.ID, Name: c.Name, Role: c.Role})
		}
	}
	return students
}

// BroadcastStudentList pushes the current student roster to all clients.
func (h *Hub) BroadcastStudentList() {
	h.Broadcast("student-list", map[string]interface{}{"students": h.Students()})
}

// Broadcast sends an event to all local clients and publishes it to Redis for
// other instances.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcastLocal(event, data)
	if h.redisPub != nil {
		_ = h.redisPub.PublishEvent(event, data)
	}
}

// PublishOnly publishes to Redis without a local broadcast, so the subscriber
// callback delivers once for all instances (including this one). Used for
// chat messages to avoid duplicate delivery to local clients.
func (h *Hub) PublishOnly(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redisPub != nil {
		_ = h.redisPub.PublishEvent(event, data)
		return
	}
	h.broadcastLocal(event, data)
}

// SendTo sends an event to a single client.
func (h *Hub) SendTo(clientID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Kick sends a removed notice to a client and closes its connection shortly
// after, giving the writer a moment to flush.
func (h *Hub) Kick(clientID, reason string) {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.SendTo(clientID, "removed", map[string]string{"reason": reason})
	if c.conn != nil {
		time.AfterFunc(250*time.Millisecond, func() { _ = c.conn.Close() })
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastLocal(event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

func (h *Hub) dispatch(clientID, event string, data json.RawMessage) {
	h.mu.RLock()
	fn := h.onEvent
	h.mu.RUnlock()
	if fn != nil {
		fn(clientID, event, data)
	}
}
