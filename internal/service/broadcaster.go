package service

import "livekaraoke/internal/model"

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	// BroadcastToShow sends to every connection in the show's room whose user
	// passes filter. A nil filter means everyone.
	BroadcastToShow(showID string, event model.EventType, payload interface{}, filter func(userID string) bool)
	SendToUser(showID, userID string, event model.EventType, payload interface{})
	DetachUser(showID, userID string)
	CloseShow(showID string)
}

// except excludes a single user from a broadcast
func except(userID string) func(string) bool {
	return func(id string) bool { return id != userID }
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToShow(string, model.EventType, interface{}, func(string) bool) {}
func (nopBroadcaster) SendToUser(string, string, model.EventType, interface{})                 {}
func (nopBroadcaster) DetachUser(string, string)                                               {}
func (nopBroadcaster) CloseShow(string)                                                        {}
