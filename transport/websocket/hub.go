package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Time an intent may take before it is abandoned.
	intentTimeout = 5 * time.Second
)

// Outgoing events
const (
	EventState        = "state_update"
	EventComplete     = "game_complete"
	EventFlipIgnored  = "flip_ignored"
	EventError        = "error"
	ActionFlip        = "flip"
	ActionNewGame     = "new_game"
	broadcastCapacity = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents an outgoing WebSocket message
type Message struct {
	SessionID string           `json:"session_id"`
	Event     string           `json:"event"`
	Snapshot  *engine.Snapshot `json:"snapshot,omitempty"`
	Data      interface{}      `json:"data,omitempty"`
}

// Intent is a player action sent by a client
type Intent struct {
	Action    string `json:"action"`
	CardID    string `json:"card_id,omitempty"`
	BoardSize int    `json:"board_size,omitempty"`
}

// IntentHandler executes client intents; service.GameService satisfies it
type IntentHandler interface {
	Flip(ctx context.Context, sessionID, cardID string) (*service.FlipResult, error)
	NewGame(ctx context.Context, sessionID string, boardSize int) (*engine.Snapshot, error)
}

type reply struct {
	client *Client
	data   []byte
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	lastSeq   uint64 // newest snapshot sent; owned by the Run goroutine
}

// Hub maintains the set of active clients and broadcasts messages. The
// sessions map is only touched by the Run goroutine.
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages for a session
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Replies addressed to a single client
	replies chan reply

	// Closed when Run returns
	done chan struct{}

	handler IntentHandler
	log     zerolog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastCapacity),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan reply, broadcastCapacity),
		done:       make(chan struct{}),
		log:        logger.With().Str("component", "websocket").Logger(),
	}
}

// SetHandler wires the executor of client intents. Without one, intents
// are answered with an error event.
func (h *Hub) SetHandler(handler IntentHandler) {
	h.handler = handler
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case r := <-h.replies:
			h.sendReply(r)
		}
	}
}

// ServeWS upgrades the request and attaches the connection to a session.
// initial is sent to the client right after the upgrade.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, initial *engine.Snapshot) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	if initial != nil {
		if data, err := json.Marshal(&Message{SessionID: sessionID, Event: EventState, Snapshot: initial}); err == nil {
			client.send <- data
			client.lastSeq = initial.Seq
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// BroadcastToSession queues a snapshot for every client of a session
func (h *Hub) BroadcastToSession(sessionID string, snap *engine.Snapshot) {
	h.enqueue(&Message{SessionID: sessionID, Event: EventState, Snapshot: snap})
}

// BroadcastEvent queues a custom event for every client of a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Message{SessionID: sessionID, Event: event, Data: data})
}

// SessionChanged implements service.Notifier
func (h *Hub) SessionChanged(sessionID string, snap engine.Snapshot) {
	h.BroadcastToSession(sessionID, &snap)
}

// GameCompleted implements service.Notifier
func (h *Hub) GameCompleted(sessionID string, completion engine.Completion) {
	h.BroadcastEvent(sessionID, EventComplete, completion)
}

// enqueue never blocks the caller; engine listeners run on the engine's
// goroutines
func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.log.Warn().Str("session_id", message.SessionID).Str("event", message.Event).Msg("broadcast queue full, dropping message")
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	h.log.Debug().
		Str("session_id", client.sessionID).
		Int("clients", len(h.sessions[client.sessionID])).
		Msg("client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			h.log.Debug().
				Str("session_id", client.sessionID).
				Int("clients", len(clients)).
				Msg("client unregistered")
		}
	}
}

// broadcastMessage sends a message to all clients in a session. A snapshot
// older than the last one a client received is skipped for that client.
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}

	if clients, ok := h.sessions[message.SessionID]; ok {
		for client := range clients {
			if message.Snapshot != nil {
				if message.Snapshot.Seq < client.lastSeq {
					h.log.Debug().
						Str("session_id", message.SessionID).
						Uint64("seq", message.Snapshot.Seq).
						Uint64("last_seq", client.lastSeq).
						Msg("dropping stale snapshot")
					continue
				}
				client.lastSeq = message.Snapshot.Seq
			}
			select {
			case client.send <- data:
			default:
				// Client's send channel is full, drop it
				h.unregisterClient(client)
			}
		}
	}
}

// sendReply delivers a reply if the client is still registered
func (h *Hub) sendReply(r reply) {
	if !h.sessions[r.client.sessionID][r.client] {
		return
	}
	select {
	case r.client.send <- r.data:
	default:
		h.unregisterClient(r.client)
	}
}

// handleIntent runs one client action and returns the direct reply, if any.
// State changes reach the client through the broadcast.
func (h *Hub) handleIntent(sessionID string, raw []byte) *Message {
	var intent Intent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return &Message{SessionID: sessionID, Event: EventError, Data: "invalid message: " + err.Error()}
	}
	if h.handler == nil {
		return &Message{SessionID: sessionID, Event: EventError, Data: "actions are not accepted on this connection"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
	defer cancel()

	switch intent.Action {
	case ActionFlip:
		result, err := h.handler.Flip(ctx, sessionID, intent.CardID)
		if err != nil {
			return &Message{SessionID: sessionID, Event: EventError, Data: err.Error()}
		}
		if !result.Accepted {
			return &Message{SessionID: sessionID, Event: EventFlipIgnored, Snapshot: result.Snapshot, Data: result.Message}
		}
		return nil

	case ActionNewGame:
		if _, err := h.handler.NewGame(ctx, sessionID, intent.BoardSize); err != nil {
			return &Message{SessionID: sessionID, Event: EventError, Data: err.Error()}
		}
		return nil

	default:
		return &Message{SessionID: sessionID, Event: EventError, Data: "unknown action: " + intent.Action}
	}
}

// readPump pumps intents from the WebSocket connection to the handler
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Str("session_id", c.sessionID).Msg("websocket read error")
			}
			break
		}

		if msg := c.hub.handleIntent(c.sessionID, raw); msg != nil {
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			// Replies go through the Run loop so they never race a close of c.send.
			select {
			case c.hub.replies <- reply{client: c, data: data}:
			default:
			}
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
