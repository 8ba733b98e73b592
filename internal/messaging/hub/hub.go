package hub

import (
	"encoding/json"
	"net/http"
	"sync"

	messagingdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are enforced upstream by the API gateway.
		return true
	},
}

type envelope struct {
	Type    string                         `json:"type"`
	Payload messagingdomain.ProjectMessage `json:"payload"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID snowflake.ID
}

// Hub fans stored project messages out to connected users. It is a
// delivery optimization only; the project_messages table remains the
// source of truth.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[snowflake.ID]*client
}

func New(log *zap.Logger) *Hub {
	return &Hub{
		log:     log.Named("messaging.hub"),
		clients: make(map[snowflake.ID]*client),
	}
}

// Broadcast pushes a stored message to the given users. Slow or closed
// connections are dropped rather than blocking the caller.
func (h *Hub) Broadcast(message messagingdomain.ProjectMessage, userIDs ...snowflake.ID) {
	if h == nil {
		return
	}
	raw, err := json.Marshal(envelope{Type: "project_message", Payload: message})
	if err != nil {
		h.log.Warn("encode broadcast", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, userID := range userIDs {
		c, ok := h.clients[userID]
		if !ok {
			continue
		}
		select {
		case c.send <- raw:
		default:
			h.dropLocked(userID)
		}
	}
}

// Serve upgrades the request and keeps the connection registered until
// the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID snowflake.ID) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, 16), userID: userID}
	h.mu.Lock()
	if prev, ok := h.clients[userID]; ok {
		close(prev.send)
		_ = prev.conn.Close()
	}
	h.clients[userID] = c
	h.mu.Unlock()
	h.log.Debug("websocket client registered", zap.String("user_id", userID.String()))

	go h.writeLoop(c)
	go h.readLoop(c)
	return nil
}

func (h *Hub) writeLoop(c *client) {
	for raw := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			break
		}
	}
	_ = c.conn.Close()
}

func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		// Drop only if this connection still owns the slot; Serve may
		// have replaced it with a newer one.
		if h.clients[c.userID] == c {
			h.dropLocked(c.userID)
		}
		h.mu.Unlock()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) dropLocked(userID snowflake.ID) {
	if c, ok := h.clients[userID]; ok {
		delete(h.clients, userID)
		close(c.send)
		_ = c.conn.Close()
	}
}
