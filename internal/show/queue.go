package show

import (
	"livekaraoke/internal/model"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxSongRequestLength bounds a song request in runes
const MaxSongRequestLength = 200

// QueueChange describes the outcome of a queue mutation
type QueueChange struct {
	Entry            *model.QueueEntry
	Promoted         bool
	WasCurrent       bool
	PreviousSingerID string
	Queue            model.QueueResponse
}

// Queue returns the rotation in position order
func (s *Session) Queue() model.QueueResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueLocked()
}

// AddToQueue appends a participant to the rotation
func (s *Session) AddToQueue(userID, songRequest string) (QueueChange, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[userID]
	if !ok {
		return QueueChange{}, Errorf(ErrBadRequest, "user %s is not in this show", userID)
	}
	if p.IsDJ() {
		return QueueChange{}, Errorf(ErrBadRequest, "the DJ cannot join the queue")
	}
	if s.entryLocked(userID) != nil {
		return QueueChange{}, Errorf(ErrBadRequest, "user %s is already in the queue", userID)
	}

	songRequest = strings.TrimSpace(songRequest)
	if utf8.RuneCountInString(songRequest) > MaxSongRequestLength {
		return QueueChange{}, Errorf(ErrBadRequest, "song request exceeds %d characters", MaxSongRequestLength)
	}

	entry, promoted := s.enqueueLocked(p, songRequest, now)
	s.updatedAt = now
	return QueueChange{
		Entry:    copyEntry(entry),
		Promoted: promoted,
		Queue:    s.queueLocked(),
	}, nil
}

// RemoveFromQueue removes target from the rotation. Anyone may remove
// themselves; removing someone else takes the DJ.
func (s *Session) RemoveFromQueue(actorID, targetID string) (QueueChange, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if actorID != targetID {
		if err := s.requireDJLocked(actorID); err != nil {
			return QueueChange{}, err
		}
	}

	entry, wasCurrent := s.removeEntryLocked(targetID)
	if entry == nil {
		return QueueChange{}, Errorf(ErrNotFound, "user %s is not in the queue", targetID)
	}
	s.updatedAt = now
	return QueueChange{
		Entry:      entry,
		WasCurrent: wasCurrent,
		Queue:      s.queueLocked(),
	}, nil
}

// ReorderQueue rebuilds the rotation in the given order. The ids must be
// exactly a permutation of the queued user ids.
func (s *Session) ReorderQueue(djID string, userIDs []string) (QueueChange, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDJLocked(djID); err != nil {
		return QueueChange{}, err
	}
	if len(userIDs) != len(s.queue) {
		return QueueChange{}, Errorf(ErrInvalidArgument, "new order has %d entries, queue has %d", len(userIDs), len(s.queue))
	}

	byUser := make(map[string]*model.QueueEntry, len(s.queue))
	for _, e := range s.queue {
		byUser[e.UserID] = e
	}
	reordered := make([]*model.QueueEntry, 0, len(userIDs))
	for _, id := range userIDs {
		e, ok := byUser[id]
		if !ok {
			return QueueChange{}, Errorf(ErrInvalidArgument, "user %s is missing from the queue or listed twice", id)
		}
		delete(byUser, id)
		reordered = append(reordered, e)
	}

	s.queue = reordered
	s.renumberLocked()
	s.updatedAt = now
	return QueueChange{Queue: s.queueLocked()}, nil
}

// SetCurrentSinger promotes a queued singer. The entry stays in the queue.
func (s *Session) SetCurrentSinger(djID, singerID string) (QueueChange, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDJLocked(djID); err != nil {
		return QueueChange{}, err
	}
	prev := s.currentSingerID
	entry, err := s.setCurrentSingerLocked(singerID)
	if err != nil {
		return QueueChange{}, err
	}
	s.updatedAt = now
	return QueueChange{
		Entry:            copyEntry(entry),
		Promoted:         true,
		PreviousSingerID: prev,
		Queue:            s.queueLocked(),
	}, nil
}

// SetSongTiming records informational song timing. A nil startedAt means now.
// Timing never affects queue order.
func (s *Session) SetSongTiming(djID, singerID string, startedAt *time.Time, durationSeconds int) (QueueChange, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireDJLocked(djID); err != nil {
		return QueueChange{}, err
	}
	if durationSeconds < 0 {
		return QueueChange{}, Errorf(ErrBadRequest, "duration must not be negative")
	}
	entry := s.entryLocked(singerID)
	if entry == nil {
		return QueueChange{}, Errorf(ErrNotFound, "user %s is not in the queue", singerID)
	}

	start := now
	if startedAt != nil {
		start = startedAt.UTC()
	}
	entry.SongStartedAt = &start
	entry.SongDurationSec = durationSeconds
	s.updatedAt = now
	return QueueChange{Entry: copyEntry(entry), Queue: s.queueLocked()}, nil
}

func (s *Session) requireDJLocked(userID string) error {
	p, ok := s.participants[userID]
	if !ok || !p.IsDJ() || s.djID != userID {
		return Errorf(ErrForbidden, "only the DJ can do that")
	}
	return nil
}

func (s *Session) entryLocked(userID string) *model.QueueEntry {
	for _, e := range s.queue {
		if e.UserID == userID {
			return e
		}
	}
	return nil
}

// enqueueLocked appends p and auto-promotes when the queue was empty
func (s *Session) enqueueLocked(p *model.Participant, songRequest string, now time.Time) (*model.QueueEntry, bool) {
	wasEmpty := len(s.queue) == 0
	entry := &model.QueueEntry{
		ID:            uuid.NewString(),
		UserID:        p.UserID,
		UserName:      p.Name,
		StageName:     p.StageName,
		Avatar:        p.Avatar,
		Microphone:    p.Microphone,
		Position:      len(s.queue) + 1,
		JoinedQueueAt: now,
		SongRequest:   songRequest,
	}
	s.queue = append(s.queue, entry)
	p.QueuePosition = entry.Position

	if !wasEmpty || s.currentSingerID != "" {
		return entry, false
	}
	// With a DJ present this is the same promotion the DJ would make. A
	// DJ-less show promotes without authorization, which lets singers skip
	// the DJ entirely by keeping one out of the room.
	if _, err := s.setCurrentSingerLocked(p.UserID); err != nil {
		return entry, false
	}
	return entry, true
}

// removeEntryLocked drops userID's entry and keeps positions dense
func (s *Session) removeEntryLocked(userID string) (*model.QueueEntry, bool) {
	idx := -1
	for i, e := range s.queue {
		if e.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	removed := s.queue[idx]
	s.queue = append(s.queue[:idx:idx], s.queue[idx+1:]...)
	wasCurrent := removed.IsCurrentSinger || s.currentSingerID == userID
	if wasCurrent {
		s.currentSingerID = ""
	}
	if p, ok := s.participants[userID]; ok {
		p.QueuePosition = 0
	}
	s.renumberLocked()

	out := copyEntry(removed)
	out.IsCurrentSinger = false
	return out, wasCurrent
}

// renumberLocked assigns positions 1..N in slice order and mirrors them onto participants
func (s *Session) renumberLocked() {
	for i, e := range s.queue {
		e.Position = i + 1
		if p, ok := s.participants[e.UserID]; ok {
			p.QueuePosition = e.Position
		}
	}
}

// setCurrentSingerLocked is the only place the current-singer flag is written
func (s *Session) setCurrentSingerLocked(userID string) (*model.QueueEntry, error) {
	target := s.entryLocked(userID)
	if target == nil {
		return nil, Errorf(ErrNotFound, "user %s is not in the queue", userID)
	}
	for _, e := range s.queue {
		e.IsCurrentSinger = false
	}
	target.IsCurrentSinger = true
	s.currentSingerID = userID
	return target, nil
}

func (s *Session) queueLocked() model.QueueResponse {
	resp := model.QueueResponse{Queue: make([]model.QueueEntry, 0, len(s.queue))}
	for _, e := range s.queue {
		resp.Queue = append(resp.Queue, *e)
		if e.IsCurrentSinger {
			resp.CurrentSinger = copyEntry(e)
		}
	}
	return resp
}

func copyEntry(e *model.QueueEntry) *model.QueueEntry {
	if e == nil {
		return nil
	}
	out := *e
	if e.SongStartedAt != nil {
		t := *e.SongStartedAt
		out.SongStartedAt = &t
	}
	return &out
}
