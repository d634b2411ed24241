package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub tracks live connections by server-assigned connection id and groups
// them into per-session rooms. Room membership is explicit here, not
// delegated to the transport: a connection subscribes to at most one
// session at a time.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
	rooms map[string]map[string]bool
	// connID -> sessionID, for cleanup when a connection drops
	joined map[string]string
}

func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]*websocket.Conn),
		rooms:  make(map[string]map[string]bool),
		joined: make(map[string]string),
	}
}

// Register assigns the connection an id and tracks it. The id doubles as
// the participant's connection identifier in session state.
func (h *Hub) Register(conn *websocket.Conn) string {
	connID := uuid.NewString()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[connID] = conn
	log.Printf("ws: connection %s registered (total: %d)", connID, len(h.conns))
	return connID
}

// Unregister drops the connection and its room membership.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.conns[connID]; ok {
		conn.Close()
		delete(h.conns, connID)
	}
	h.leaveRoomLocked(connID)
	log.Printf("ws: connection %s unregistered", connID)
}

// JoinRoom subscribes the connection to a session's broadcasts, replacing
// any previous subscription.
func (h *Hub) JoinRoom(sessionID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveRoomLocked(connID)

	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[string]bool)
	}
	h.rooms[sessionID][connID] = true
	h.joined[connID] = sessionID
}

func (h *Hub) LeaveRoom(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(connID)
}

// Broadcast delivers an event to every connection in the session's room.
func (h *Hub) Broadcast(sessionID, event string, data interface{}) {
	payload, err := json.Marshal(ServerMessage{Type: event, Data: data})
	if err != nil {
		log.Printf("ws: marshal %s: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for connID := range h.rooms[sessionID] {
		h.writeLocked(connID, payload)
	}
}

// Unicast delivers an event to exactly one connection.
func (h *Hub) Unicast(connID, event string, data interface{}) {
	payload, err := json.Marshal(ServerMessage{Type: event, Data: data})
	if err != nil {
		log.Printf("ws: marshal %s: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeLocked(connID, payload)
}

func (h *Hub) writeLocked(connID string, payload []byte) {
	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("ws: write to %s: %v", connID, err)
		conn.Close()
		delete(h.conns, connID)
		h.leaveRoomLocked(connID)
	}
}

func (h *Hub) leaveRoomLocked(connID string) {
	sessionID, ok := h.joined[connID]
	if !ok {
		return
	}
	delete(h.joined, connID)
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
}
