package model

import "time"

// Role is what a participant does in a show
type Role string

const (
	RoleDJ     Role = "dj"
	RoleSinger Role = "singer"
)

// Participant represents one user's presence in a show
type Participant struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	StageName  string    `json:"stageName,omitempty"`
	Avatar     *Cosmetic `json:"avatar,omitempty"`
	Microphone *Cosmetic `json:"microphone,omitempty"`
	JoinedAt   time.Time `json:"joinedAt"`
	Online     bool      `json:"online"`
	Role       Role      `json:"role"`
	DJEntitled bool      `json:"-"`

	// QueuePosition mirrors the queue for O(1) lookup, 0 when not queued
	QueuePosition int `json:"queuePosition,omitempty"`
}

// IsDJ reports whether the participant currently holds the DJ role
func (p *Participant) IsDJ() bool {
	return p.Role == RoleDJ
}

// DisplayName prefers the stage name
func (p *Participant) DisplayName() string {
	if p.StageName != "" {
		return p.StageName
	}
	return p.Name
}

// QueueEntry is one singer's place in the rotation
type QueueEntry struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	UserName        string     `json:"userName"`
	StageName       string     `json:"stageName,omitempty"`
	Avatar          *Cosmetic  `json:"avatar,omitempty"`
	Microphone      *Cosmetic  `json:"microphone,omitempty"`
	Position        int        `json:"position"`
	JoinedQueueAt   time.Time  `json:"joinedQueueAt"`
	SongRequest     string     `json:"songRequest,omitempty"`
	IsCurrentSinger bool       `json:"isCurrentSinger"`
	SongStartedAt   *time.Time `json:"songStartedAt,omitempty"`
	SongDurationSec int        `json:"songDurationSeconds,omitempty"`
}

// QueueResponse is the full rotation plus the current singer
type QueueResponse struct {
	Queue         []QueueEntry `json:"queue"`
	CurrentSinger *QueueEntry  `json:"currentSinger,omitempty"`
}

// SongTimingRequest sets informational song timing on a queue entry
type SongTimingRequest struct {
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`
}
