package model

import "time"

// MessageType decides who gets to see a chat message
type MessageType string

const (
	MessageSingerChat   MessageType = "singer-chat"
	MessageDJToSinger   MessageType = "dj-to-singer"
	MessageAnnouncement MessageType = "announcement"
	MessageSystem       MessageType = "system"
)

// Valid reports whether t is a known message type
func (t MessageType) Valid() bool {
	switch t {
	case MessageSingerChat, MessageDJToSinger, MessageAnnouncement, MessageSystem:
		return true
	}
	return false
}

// ChatMessage is one entry of a show's chat log
type ChatMessage struct {
	ID              string      `json:"id"`
	ShowID          string      `json:"showId"`
	SenderID        string      `json:"senderId"`
	SenderName      string      `json:"senderName"`
	SenderStageName string      `json:"senderStageName,omitempty"`
	RecipientID     string      `json:"recipientId,omitempty"`
	Message         string      `json:"message"`
	Type            MessageType `json:"type"`
	Timestamp       time.Time   `json:"timestamp"`
	IsVisible       bool        `json:"isVisible"` // false for private messages
}

// AnnouncementMessage is an ephemeral DJ broadcast with a client display duration
type AnnouncementMessage struct {
	ID              string    `json:"id"`
	ShowID          string    `json:"showId"`
	DJID            string    `json:"djId"`
	DJName          string    `json:"djName"`
	Message         string    `json:"message"`
	DisplayDuration int       `json:"displayDuration"` // seconds
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// SendChatRequest is the request body for sending a chat message
type SendChatRequest struct {
	Message     string      `json:"message"`
	Type        MessageType `json:"type"`
	RecipientID string      `json:"recipientId,omitempty"`
}

// SendAnnouncementRequest is the request body for a DJ announcement
type SendAnnouncementRequest struct {
	Message         string `json:"message"`
	DisplayDuration int    `json:"displayDuration,omitempty"`
}

// ChatHistory is a page of chat filtered for one viewer, newest first
type ChatHistory struct {
	Messages   []ChatMessage `json:"messages"`
	HasMore    bool          `json:"hasMore"`
	TotalCount int           `json:"totalCount"`
}
