package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// PingInterval is how often the hub pings each connection.
	PingInterval = 30 * time.Second
	// PongTimeout is how long a connection may go without a pong before the
	// health checker drops it. Keep in sync with cache.OnlineUsersTTL.
	PongTimeout = 90 * time.Second
)

// Conn is the slice of a WebSocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
}

// controlWriter is implemented by real websocket connections; fakes that
// don't support control frames are simply never pinged.
type controlWriter interface {
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

type connCloser interface {
	Close() error
}

// Envelope is the wire format for every server-to-client event.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// client wraps a connection with its write lock and health bookkeeping. The
// underlying websocket forbids concurrent writes, so every WriteJSON goes
// through write().
type client struct {
	conn      Conn
	writeMux  sync.Mutex
	lastPong  time.Time
	closeChan chan struct{}
}

func (c *client) write(v interface{}) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks live connections and their room memberships. A connection may
// sit in any number of rooms; a room exists exactly as long as it has
// members.
type Hub struct {
	mux       sync.RWMutex
	clients   map[string]*client
	rooms     map[string]map[string]bool
	connRooms map[string]map[string]bool
}

func NewHub() *Hub {
	hub := &Hub{
		clients:   make(map[string]*client),
		rooms:     make(map[string]map[string]bool),
		connRooms: make(map[string]map[string]bool),
	}

	go hub.connectionHealthChecker()

	return hub
}

// Register adds a connection to the hub and, for real websocket
// connections, starts its ping routine.
func (h *Hub) Register(connID string, conn Conn) {
	cl := &client{
		conn:      conn,
		lastPong:  time.Now(),
		closeChan: make(chan struct{}),
	}

	h.mux.Lock()
	h.clients[connID] = cl
	total := len(h.clients)
	h.mux.Unlock()

	if pinger, ok := conn.(controlWriter); ok {
		go h.pingRoutine(connID, pinger, cl.closeChan)
	}

	log.Printf("Connection %s registered (total: %d)", connID, total)
}

// Unregister removes a connection and its room memberships.
func (h *Hub) Unregister(connID string) {
	h.mux.Lock()
	if cl, ok := h.clients[connID]; ok {
		close(cl.closeChan)
	}
	for room := range h.connRooms[connID] {
		delete(h.rooms[room], connID)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.connRooms, connID)
	delete(h.clients, connID)
	total := len(h.clients)
	h.mux.Unlock()
	log.Printf("Connection %s unregistered (total: %d)", connID, total)
}

// Pong records connection liveness; the gateway calls this from the
// connection's pong handler.
func (h *Hub) Pong(connID string) {
	h.mux.Lock()
	if cl, ok := h.clients[connID]; ok {
		cl.lastPong = time.Now()
	}
	h.mux.Unlock()
}

// Join adds the connection to a room. Joining a room twice is a no-op.
func (h *Hub) Join(connID, room string) {
	h.mux.Lock()
	defer h.mux.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]bool)
	}
	h.rooms[room][connID] = true
	if h.connRooms[connID] == nil {
		h.connRooms[connID] = make(map[string]bool)
	}
	h.connRooms[connID][room] = true
}

// Leave removes the connection from a room. Leaving a room it never joined
// is a no-op.
func (h *Hub) Leave(connID, room string) {
	h.mux.Lock()
	defer h.mux.Unlock()
	delete(h.rooms[room], connID)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
	delete(h.connRooms[connID], room)
}

// InRoom reports whether the connection is currently a member of the room.
func (h *Hub) InRoom(connID, room string) bool {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return h.connRooms[connID][room]
}

// RoomSize returns the number of connections in the room.
func (h *Hub) RoomSize(room string) int {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return len(h.rooms[room])
}

// BroadcastToRoom emits an event to every connection in the room, the
// initiator included.
func (h *Hub) BroadcastToRoom(room, event string, payload interface{}) {
	h.BroadcastToRoomExcept(room, event, payload, "")
}

// BroadcastToRoomExcept emits an event to every room member except the named
// connection. Write failures are logged per connection and never abort the
// rest of the fan-out.
func (h *Hub) BroadcastToRoomExcept(room, event string, payload interface{}, exceptConnID string) {
	h.mux.RLock()
	targets := make(map[string]*client, len(h.rooms[room]))
	for connID := range h.rooms[room] {
		if connID == exceptConnID {
			continue
		}
		if cl, ok := h.clients[connID]; ok {
			targets[connID] = cl
		}
	}
	h.mux.RUnlock()

	envelope := Envelope{Event: event, Data: payload}
	for connID, cl := range targets {
		if err := cl.write(envelope); err != nil {
			log.Printf("Error writing %s to connection %s: %v", event, connID, err)
		}
	}
}

// BroadcastToAll emits an event to every registered connection.
func (h *Hub) BroadcastToAll(event string, payload interface{}) {
	h.mux.RLock()
	targets := make(map[string]*client, len(h.clients))
	for connID, cl := range h.clients {
		targets[connID] = cl
	}
	h.mux.RUnlock()

	envelope := Envelope{Event: event, Data: payload}
	for connID, cl := range targets {
		if err := cl.write(envelope); err != nil {
			log.Printf("Error writing %s to connection %s: %v", event, connID, err)
		}
	}
}

// SendToConn emits an event to a single connection.
func (h *Hub) SendToConn(connID, event string, payload interface{}) error {
	h.mux.RLock()
	cl, ok := h.clients[connID]
	h.mux.RUnlock()
	if !ok {
		return nil
	}
	return cl.write(Envelope{Event: event, Data: payload})
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return len(h.clients)
}

// pingRoutine sends periodic pings until the connection is unregistered.
// Control frames may interleave with data frames, so they bypass the write
// lock.
func (h *Hub) pingRoutine(connID string, pinger controlWriter, closeChan <-chan struct{}) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closeChan:
			return
		case <-ticker.C:
			if err := pinger.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for connection %s: %v", connID, err)
				h.closeConn(connID)
				return
			}
		}
	}
}

// connectionHealthChecker drops connections whose peer stopped answering
// pings. Closing the socket errors the gateway's read loop, which then runs
// its normal unregister/untrack teardown.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		h.reapDeadConnections(time.Now())
	}
}

// reapDeadConnections closes every pingable connection whose last pong is
// older than the pong timeout. Fakes without control-frame support are left
// alone.
func (h *Hub) reapDeadConnections(now time.Time) {
	h.mux.RLock()
	dead := make([]string, 0)
	for connID, cl := range h.clients {
		if _, pinged := cl.conn.(controlWriter); !pinged {
			continue
		}
		if now.Sub(cl.lastPong) > PongTimeout {
			dead = append(dead, connID)
		}
	}
	h.mux.RUnlock()

	for _, connID := range dead {
		log.Printf("Removing dead connection %s (no pong received)", connID)
		h.closeConn(connID)
	}
}

func (h *Hub) closeConn(connID string) {
	h.mux.RLock()
	cl, ok := h.clients[connID]
	h.mux.RUnlock()
	if !ok {
		return
	}
	if closer, ok := cl.conn.(connCloser); ok {
		if err := closer.Close(); err != nil {
			log.Printf("Error closing connection %s: %v", connID, err)
		}
	}
}
