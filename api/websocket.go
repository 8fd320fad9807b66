package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the HTTP routes only
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Per-client queue; a report streams one message per token.
	sendBuffer = 1024
)

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
	log        zerolog.Logger
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage // owned by the hub
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(log zerolog.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "ws_hub").Logger(),
	}
}

// Run dispatches messages until ctx is done, then disconnects every
// client. It must be called once.
func (h *WSHub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					h.log.Warn().Msg("Dropping slow WebSocket client")
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *WSHub) remove(client *WSClient) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *WSHub) shutdown() {
	close(h.done)
	h.mu.Lock()
	for client := range h.clients {
		h.remove(client)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected WebSocket clients. It never
// blocks: the message is dropped when the hub is saturated, so report
// token streams may have gaps. Clients detect them through the token seq
// numbers; the report.done event always carries the full text.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Str("type", msg.Type).Msg("Broadcast queue full, message dropped")
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub. It returns false once the hub has
// stopped.
func (h *WSHub) Register(client *WSClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket. Subscribers
// receive report events ("report.token", "report.done",
// "report.fallback") of searches run through the API. Delivery is best
// effort: token events carry a seq number so a client can spot dropped
// tokens and fall back to the text of report.done.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSClient{
		hub:  s.wsHub,
		send: make(chan WSMessage, sendBuffer),
	}
	if !s.wsHub.Register(client) {
		_ = conn.Close()
		return
	}

	replies := make(chan WSMessage, 16)
	replies <- WSMessage{Type: "connected", Data: map[string]string{
		"generation": s.tracker.CurrentGeneration(),
	}}

	go wsWritePump(conn, client, replies, *log)
	go wsReadPump(conn, client, replies, *log)
}

// wsReadPump reads client messages until the connection fails. Replies go
// through their own queue since the hub may close client.send at any time.
func wsReadPump(conn *websocket.Conn, client *WSClient, replies chan<- WSMessage, log zerolog.Logger) {
	defer func() {
		client.hub.Unregister(client)
		close(replies)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		var reply WSMessage
		switch msg.Type {
		case "ping":
			reply = WSMessage{Type: "pong"}
		case "subscribe":
			reply = WSMessage{Type: "subscribed", Data: msg.Data}
		default:
			continue
		}
		select {
		case replies <- reply:
		default: // client is not reading
		}
	}
}

// wsWritePump writes hub messages and replies to the connection.
func wsWritePump(conn *websocket.Conn, client *WSClient, replies <-chan WSMessage, log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(msg WSMessage) bool {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Warn().Err(err).Str("type", msg.Type).Msg("WebSocket marshal error")
			return true
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data) == nil
	}

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !write(msg) {
				return
			}

		case msg, ok := <-replies:
			if !ok {
				return
			}
			if !write(msg) {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
