package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Participant roles. Names are self-declared via the identify event; there is
// no authentication.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection in the classroom.
type Client struct {
	ID     string
	Name   string // set on identify
	Role   string // teacher or student
	hub    *Hub
	conn   *websocket.Conn
	send   chan WSMessage
	logger *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:     uuid.New().String(),
			hub:    hub,
			conn:   conn,
			send:   make(chan WSMessage, 256),
			logger: logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "identify":
			var payload struct {
				Name string `json:"name"`
				Role string `json:"role"`
			}
			if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Name == "" {
				continue
			}
			if payload.Role != RoleTeacher {
				payload.Role = RoleStudent
			}
			c.hub.Identify(c, payload.Name, payload.Role)

		case "create-poll", "submit-vote", "end-poll", "join-poll":
			c.hub.dispatch(c.ID, msg.Event, msg.Data)

		case "chat-message":
			var payload struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				continue
			}
			text := strings.TrimSpace(payload.Message)
			if c.Name == "" || text == "" {
				continue
			}
			// Publish only so the Redis subscriber callback broadcasts once
			// for all instances (avoids duplicate delivery to local clients).
			c.hub.PublishOnly("chat-message", map[string]interface{}{
				"id":         fmt.Sprintf("%d-%s", time.Now().UnixMilli(), c.ID),
				"message":    text,
				"senderName": c.Name,
				"role":       c.Role,
				"timestamp":  time.Now().UTC().Format(time.RFC3339),
			})

		case "remove-student":
			if c.Role != RoleTeacher {
				continue
			}
			var payload struct {
				StudentID string `json:"studentId"`
			}
			if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.StudentID == "" {
				continue
			}
			c.hub.Kick(payload.StudentID, "You have been removed from the session by the teacher.")

		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
