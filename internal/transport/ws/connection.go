package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// State is where a connection is in its lifecycle
type State int

const (
	StateConnected State = iota
	StateAuthenticated
	StateInShow
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateInShow:
		return "in-show"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Connection represents a WebSocket connection
type Connection struct {
	ID   string
	Send chan []byte

	mu     sync.Mutex
	state  State
	userID string
	showID string
}

// NewConnection creates an unauthenticated connection
func NewConnection() *Connection {
	return &Connection{
		ID:    uuid.NewString(),
		Send:  make(chan []byte, 256),
		state: StateConnected,
	}
}

// State returns the connection state
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UserID returns the bound user, or "" before authentication
func (c *Connection) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// ShowID returns the joined show, or ""
func (c *Connection) ShowID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showID
}

// Authenticate binds a user. A connection in a show cannot switch users.
func (c *Connection) Authenticate(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateConnected, StateAuthenticated:
		c.userID = userID
		c.state = StateAuthenticated
		return true
	case StateInShow:
		return c.userID == userID
	}
	return false
}

func (c *Connection) enterShow(showID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnected {
		return
	}
	c.showID = showID
	c.state = StateInShow
}

func (c *Connection) exitShow(showID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.showID != showID {
		return
	}
	c.showID = ""
	if c.state == StateInShow {
		c.state = StateAuthenticated
	}
}

// disconnect moves to the terminal state and returns the show and user to clean up
func (c *Connection) disconnect() (showID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	showID, userID = c.showID, c.userID
	c.state = StateDisconnected
	return showID, userID
}

// reply queues an envelope for this connection only
func (c *Connection) reply(env *Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}
