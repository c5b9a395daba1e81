package ws

import (
	"encoding/json"
	"livekaraoke/internal/model"
	"log/slog"
	"sync"
)

// Envelope is the WebSocket message format in both directions
type Envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	ShowID    string          `json:"showId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Hub tracks connections and the show room each one is in. Room events are
// queued and written by a single loop so each room sees them in send order.
type Hub struct {
	// showID -> connections in the room
	rooms map[string]map[*Connection]struct{}
	conns map[*Connection]struct{}

	mu sync.RWMutex

	broadcast chan *BroadcastMessage
	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

// BroadcastMessage is a message to deliver to part of a room
type BroadcastMessage struct {
	ShowID string
	// ToUser limits delivery to one user's connections
	ToUser string
	// Filter limits delivery to users it accepts. Nil means everyone.
	Filter func(userID string) bool
	Data   []byte
	// Close empties the room instead of sending
	Close bool
}

// NewHub creates a new WebSocket hub
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		rooms:     make(map[string]map[*Connection]struct{}),
		conns:     make(map[*Connection]struct{}),
		broadcast: make(chan *BroadcastMessage, 256),
		done:      make(chan struct{}),
		log:       log,
	}
	go h.run()
	return h
}

// Close stops the delivery loop
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	if msg.Close {
		h.mu.Lock()
		for conn := range h.rooms[msg.ShowID] {
			h.removeLocked(msg.ShowID, conn)
		}
		h.mu.Unlock()
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.rooms[msg.ShowID] {
		userID := conn.UserID()
		if msg.ToUser != "" && userID != msg.ToUser {
			continue
		}
		if msg.Filter != nil && !msg.Filter(userID) {
			continue
		}
		select {
		case conn.Send <- msg.Data:
		default:
			// Drop message if buffer full
			h.log.Warn("dropping event for slow connection",
				slog.String("show_id", msg.ShowID),
				slog.String("user_id", userID),
			)
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes a connection from the hub and its room, then closes its
// send channel
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)
	for showID, members := range h.rooms {
		if _, ok := members[conn]; ok {
			h.removeLocked(showID, conn)
		}
	}
	close(conn.Send)
}

// JoinRoom moves conn into a show's room, leaving any other room first
func (h *Hub) JoinRoom(conn *Connection, showID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, members := range h.rooms {
		if _, ok := members[conn]; ok && id != showID {
			h.removeLocked(id, conn)
		}
	}
	members, ok := h.rooms[showID]
	if !ok {
		members = make(map[*Connection]struct{})
		h.rooms[showID] = members
	}
	members[conn] = struct{}{}
	conn.enterShow(showID)
}

// LeaveRoom takes conn out of a room
func (h *Hub) LeaveRoom(conn *Connection, showID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(showID, conn)
}

func (h *Hub) removeLocked(showID string, conn *Connection) {
	members := h.rooms[showID]
	delete(members, conn)
	if len(members) == 0 {
		delete(h.rooms, showID)
	}
	conn.exitShow(showID)
}

// HasUser reports whether any connection of userID is in the room
func (h *Hub) HasUser(showID, userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.rooms[showID] {
		if conn.UserID() == userID {
			return true
		}
	}
	return false
}

// RoomSize returns the number of connections in a room
func (h *Hub) RoomSize(showID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[showID])
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func encode(showID string, event model.EventType, payload interface{}) []byte {
	data, _ := json.Marshal(payload)
	out, _ := json.Marshal(&Envelope{
		Type:    string(event),
		ShowID:  showID,
		Payload: data,
	})
	return out
}

// BroadcastToShow sends an event to a room (implements service.Broadcaster)
func (h *Hub) BroadcastToShow(showID string, event model.EventType, payload interface{}, filter func(userID string) bool) {
	h.enqueue(&BroadcastMessage{
		ShowID: showID,
		Filter: filter,
		Data:   encode(showID, event, payload),
	})
}

// SendToUser sends an event to one user's connections in a room (implements service.Broadcaster)
func (h *Hub) SendToUser(showID, userID string, event model.EventType, payload interface{}) {
	h.enqueue(&BroadcastMessage{
		ShowID: showID,
		ToUser: userID,
		Data:   encode(showID, event, payload),
	})
}

// DetachUser takes every connection of userID out of the room (implements service.Broadcaster)
func (h *Hub) DetachUser(showID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[showID] {
		if conn.UserID() == userID {
			h.removeLocked(showID, conn)
		}
	}
}

// CloseShow empties a room once its show is gone (implements service.Broadcaster).
// Events queued before it are still delivered.
func (h *Hub) CloseShow(showID string) {
	h.enqueue(&BroadcastMessage{ShowID: showID, Close: true})
}
