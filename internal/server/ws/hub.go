// Package ws implements the realtime gateway: a WebSocket hub that forwards
// projection deltas from the Redis update bus to clients grouped into rooms
// keyed by entity id.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	cacheredis "github.com/alanyoungcy/suibid/internal/cache/redis"
	"github.com/alanyoungcy/suibid/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming control frame.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// Bus is the pattern-subscription surface the hub needs from the update bus.
type Bus interface {
	SubscribePattern(ctx context.Context, pattern string) (<-chan cacheredis.SubscribedMessage, error)
}

// client represents a single WebSocket connection and the set of entity
// rooms it has joined.
type client struct {
	hub   *Hub
	id    string
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]bool
	mu    sync.RWMutex
}

// controlMsg is the JSON frame a client sends to manage its rooms.
// {"action":"join","entity_id":"0x..."} joins a room; "leave" leaves it.
type controlMsg struct {
	Action   string `json:"action"`
	EntityID string `json:"entity_id"`
}

// Hub manages connected WebSocket clients and routes deltas from the update
// bus to the clients joined to the matching entity room. Membership is
// per-connection state only; a dropped connection leaves all its rooms.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	done       chan struct{}
	bus        Bus
	store      domain.ProjectionStore
	mu         sync.RWMutex
	logger     *slog.Logger
	startedAt  time.Time
}

// broadcastMsg carries a delta payload along with its entity id so the hub
// routes it only to clients in that entity's room.
type broadcastMsg struct {
	entityID string
	data     []byte
}

// NewHub creates a new WebSocket hub. The store is used to push a projection
// snapshot to a client when it joins a room; pass nil to disable snapshots.
func NewHub(bus Bus, store domain.ProjectionStore, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		bus:        bus,
		store:      store,
		logger:     logger,
		startedAt:  time.Now().UTC(),
	}
}

// Run starts the hub's main event loop. It should be called in a goroutine.
// It bridges the update bus into room broadcasts and handles client
// registration and unregistration. The loop exits when the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) error {
	// Closing done unblocks pumps and connection handlers that would
	// otherwise hang on the register/unregister channels after the loop
	// exits.
	defer close(h.done)

	go h.subscribeToBus(ctx)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected",
				slog.String("client_id", c.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected",
				slog.String("client_id", c.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.inRoom(msg.entityID) {
					select {
					case c.send <- msg.data:
					default:
						// Client's send buffer is full; drop the message.
						h.logger.Warn("ws: dropping delta for slow client",
							slog.String("client_id", c.id),
						)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribeToBus subscribes once to the entity channel pattern and forwards
// every delta to the hub's broadcast loop keyed by its entity id.
func (h *Hub) subscribeToBus(ctx context.Context) {
	msgCh, err := h.bus.SubscribePattern(ctx, cacheredis.EntityChannelPattern)
	if err != nil {
		h.logger.Error("ws: failed to subscribe to update bus",
			slog.String("pattern", cacheredis.EntityChannelPattern),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.Info("ws: subscribed to update bus",
		slog.String("pattern", cacheredis.EntityChannelPattern),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				h.logger.Warn("ws: update bus subscription closed")
				return
			}
			entityID := cacheredis.EntityFromChannel(msg.Channel)
			if entityID == "" {
				continue
			}
			select {
			case h.broadcast <- broadcastMsg{entityID: entityID, data: msg.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:   h,
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]bool),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	c.sendConnected()

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump reads control frames from the WebSocket connection and applies
// join/leave requests. Unparseable frames are ignored.
func (c *client) readPump() {
	defer func() {
		c.detach()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("client_id", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg controlMsg
		if err := json.Unmarshal(message, &msg); err != nil || msg.EntityID == "" {
			continue
		}
		c.handleControl(msg)
	}
}

// detach hands the client back to the hub for unregistration. If the hub has
// already shut down, nobody is reading the unregister channel; the done
// channel lets the pump exit instead of blocking forever.
func (c *client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// handleControl processes a join or leave request from the client.
func (c *client) handleControl(msg controlMsg) {
	switch msg.Action {
	case "join":
		c.mu.Lock()
		c.rooms[msg.EntityID] = true
		c.mu.Unlock()
		c.sendSnapshot(msg.EntityID)
	case "leave":
		c.mu.Lock()
		delete(c.rooms, msg.EntityID)
		c.mu.Unlock()
	}
}

// sendConnected pushes a small JSON envelope so clients can immediately mark
// the connection as healthy even before any deltas flow.
func (c *client) sendConnected() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(map[string]any{
		"type": "CONNECTED",
		"payload": map[string]any{
			"client_id":      c.id,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// sendSnapshot pushes the current projection for a just-joined room so the
// client starts from a full state instead of waiting for the next delta.
// The entity may be an auction or a trade; both stores are tried.
func (c *client) sendSnapshot(entityID string) {
	if c.hub.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	envelope := map[string]any{
		"type":      "SNAPSHOT",
		"entity_id": entityID,
	}
	if a, err := c.hub.store.GetAuction(ctx, entityID); err == nil {
		envelope["auction"] = a
	} else if t, err := c.hub.store.GetTrade(ctx, entityID); err == nil {
		envelope["trade"] = t
	} else {
		return
	}

	msg, err := json.Marshal(envelope)
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// inRoom checks whether the client has joined the given entity's room.
func (c *client) inRoom(entityID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[entityID]
}

// writePump pumps messages from the hub to the WebSocket connection. Deltas
// and snapshots go out as JSON text frames; periodic pings keep the
// connection alive.
func (c *client) writePump() {
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
				// The hub closed the channel.
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
