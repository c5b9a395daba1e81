package model

// EventType names a server→client real-time event
type EventType string

// Room events
const (
	EventUserJoined           EventType = "user-joined"
	EventUserLeft             EventType = "user-left"
	EventQueueUpdated         EventType = "queue-updated"
	EventSingerAdded          EventType = "singer-added"
	EventSingerRemoved        EventType = "singer-removed"
	EventQueueReordered       EventType = "queue-reordered"
	EventCurrentSingerChanged EventType = "current-singer-changed"
	EventDJChanged            EventType = "dj-changed"
	EventChatMessage          EventType = "chat-message"
	EventAnnouncement         EventType = "announcement"
	EventAnnouncementExpired  EventType = "announcement-expired"
	EventShowStarted          EventType = "show-started"
	EventShowEnded            EventType = "show-ended"
)

// Connection-only events
const (
	EventError EventType = "error"
	EventPong  EventType = "pong"
)
