package show

import (
	"livekaraoke/internal/model"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxMessageLength bounds a chat body in runes
	MaxMessageLength = 500

	DefaultAnnouncementSeconds = 10
	DefaultHistoryLimit        = 50
	MaxHistoryLimit            = 100
)

// IsVisibleTo is the one visibility rule for chat, used for history reads and live fan-out
func IsVisibleTo(msg model.ChatMessage, viewerID string, viewerIsDJ bool) bool {
	switch msg.Type {
	case model.MessageSingerChat:
		return !viewerIsDJ
	case model.MessageDJToSinger:
		return viewerIsDJ || viewerID == msg.RecipientID
	case model.MessageAnnouncement, model.MessageSystem:
		return true
	}
	return false
}

// ViewerFilter binds IsVisibleTo to the current DJ so a broadcaster can test
// room members by id. The sender is excluded since they get the result directly.
func (s *Session) ViewerFilter(msg model.ChatMessage) func(userID string) bool {
	s.mu.Lock()
	djID := s.djID
	s.mu.Unlock()

	return func(userID string) bool {
		if userID == msg.SenderID {
			return false
		}
		return IsVisibleTo(msg, userID, userID == djID)
	}
}

// SendChat validates and appends a participant's message
func (s *Session) SendChat(senderID, body string, msgType model.MessageType, recipientID string) (model.ChatMessage, error) {
	now := s.clock.Now()

	body, err := normalizeBody(body)
	if err != nil {
		return model.ChatMessage{}, err
	}
	if !msgType.Valid() || msgType == model.MessageSystem {
		return model.ChatMessage{}, Errorf(ErrBadRequest, "invalid message type %q", msgType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.participants[senderID]
	if !ok {
		return model.ChatMessage{}, Errorf(ErrBadRequest, "user %s is not in this show", senderID)
	}

	switch msgType {
	case model.MessageDJToSinger:
		if !sender.IsDJ() {
			return model.ChatMessage{}, Errorf(ErrForbidden, "only the DJ can send private messages")
		}
		if recipientID == "" {
			return model.ChatMessage{}, Errorf(ErrBadRequest, "recipientId is required")
		}
		if _, ok := s.participants[recipientID]; !ok {
			return model.ChatMessage{}, Errorf(ErrBadRequest, "recipient %s is not in this show", recipientID)
		}
	case model.MessageAnnouncement:
		if !sender.IsDJ() {
			return model.ChatMessage{}, Errorf(ErrForbidden, "only the DJ can send announcements")
		}
		recipientID = ""
	default:
		recipientID = ""
	}

	msg := model.ChatMessage{
		ID:              uuid.NewString(),
		ShowID:          s.id,
		SenderID:        sender.UserID,
		SenderName:      sender.Name,
		SenderStageName: sender.StageName,
		RecipientID:     recipientID,
		Message:         body,
		Type:            msgType,
		Timestamp:       now,
		IsVisible:       msgType != model.MessageDJToSinger,
	}
	s.appendLocked(msg)
	s.updatedAt = now
	return msg, nil
}

// PostSystemMessage appends a message from the show itself
func (s *Session) PostSystemMessage(body string) model.ChatMessage {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendSystemLocked(body, now)
}

// Announce records a DJ announcement. It returns the ephemeral announcement and
// the chat record appended alongside it. Scheduling expiry is up to the caller.
func (s *Session) Announce(djID, body string, displaySeconds int) (model.AnnouncementMessage, model.ChatMessage, error) {
	now := s.clock.Now()

	body, err := normalizeBody(body)
	if err != nil {
		return model.AnnouncementMessage{}, model.ChatMessage{}, err
	}
	if displaySeconds <= 0 {
		displaySeconds = DefaultAnnouncementSeconds
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDJLocked(djID); err != nil {
		return model.AnnouncementMessage{}, model.ChatMessage{}, err
	}
	dj := s.participants[djID]

	msg := model.ChatMessage{
		ID:              uuid.NewString(),
		ShowID:          s.id,
		SenderID:        dj.UserID,
		SenderName:      dj.Name,
		SenderStageName: dj.StageName,
		Message:         body,
		Type:            model.MessageAnnouncement,
		Timestamp:       now,
		IsVisible:       true,
	}
	s.appendLocked(msg)
	s.updatedAt = now

	ann := model.AnnouncementMessage{
		ID:              uuid.NewString(),
		ShowID:          s.id,
		DJID:            dj.UserID,
		DJName:          dj.DisplayName(),
		Message:         body,
		DisplayDuration: displaySeconds,
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Duration(displaySeconds) * time.Second),
	}
	return ann, msg, nil
}

// History returns the viewer's filtered log, newest first.
// A viewer who is not a participant sees what a singer would.
func (s *Session) History(viewerID string, limit, offset int) model.ChatHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	viewerIsDJ := false
	if p, ok := s.participants[viewerID]; ok {
		viewerIsDJ = p.IsDJ()
	}

	visible := make([]model.ChatMessage, 0, len(s.chat))
	for i := len(s.chat) - 1; i >= 0; i-- {
		if IsVisibleTo(*s.chat[i], viewerID, viewerIsDJ) {
			visible = append(visible, *s.chat[i])
		}
	}

	total := len(visible)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return model.ChatHistory{
		Messages:   visible[offset:end],
		HasMore:    end < total,
		TotalCount: total,
	}
}

func (s *Session) appendSystemLocked(body string, now time.Time) model.ChatMessage {
	msg := model.ChatMessage{
		ID:         uuid.NewString(),
		ShowID:     s.id,
		SenderID:   "system",
		SenderName: "System",
		Message:    body,
		Type:       model.MessageSystem,
		Timestamp:  now,
		IsVisible:  true,
	}
	s.appendLocked(msg)
	return msg
}

// appendLocked keeps only the newest chatCap messages
func (s *Session) appendLocked(msg model.ChatMessage) {
	m := msg
	s.chat = append(s.chat, &m)
	if over := len(s.chat) - s.chatCap; over > 0 {
		copy(s.chat, s.chat[over:])
		for i := len(s.chat) - over; i < len(s.chat); i++ {
			s.chat[i] = nil
		}
		s.chat = s.chat[:len(s.chat)-over]
	}
}

func normalizeBody(body string) (string, error) {
	body = strings.Join(strings.Fields(body), " ")
	if body == "" {
		return "", Errorf(ErrBadRequest, "message cannot be empty")
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return "", Errorf(ErrBadRequest, "message exceeds %d characters", MaxMessageLength)
	}
	return body, nil
}
