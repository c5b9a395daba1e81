package show

import (
	"livekaraoke/internal/model"
	"sort"
	"sync"
	"time"
)

// DefaultChatHistoryCap bounds the chat log of a session
const DefaultChatHistoryCap = 100

// Params describe a new session
type Params struct {
	ID          string
	Name        string
	Description string
	Venue       *model.Venue
	StartTime   time.Time
	EndTime     time.Time
	DJID        string
	DJName      string
	CreatedBy   string
}

// Session is one live show. Every mutation goes through its mutex so the queue,
// participant map and chat log are always observed in a consistent state.
type Session struct {
	// order is held by Do across a mutation and the events it publishes
	order sync.Mutex

	mu      sync.Mutex
	clock   Clock
	chatCap int

	id          string
	name        string
	description string
	venue       *model.Venue
	startTime   time.Time
	endTime     time.Time
	createdBy   string
	createdAt   time.Time
	updatedAt   time.Time

	djID            string
	djName          string
	currentSingerID string
	ended           bool
	started         bool

	participants map[string]*model.Participant
	queue        []*model.QueueEntry
	chat         []*model.ChatMessage
}

// NewSession creates a session. A chatCap <= 0 uses DefaultChatHistoryCap.
func NewSession(p Params, clock Clock, chatCap int) *Session {
	if clock == nil {
		clock = SystemClock{}
	}
	if chatCap <= 0 {
		chatCap = DefaultChatHistoryCap
	}
	now := clock.Now()

	var venue *model.Venue
	if p.Venue != nil {
		v := *p.Venue
		venue = &v
	}

	s := &Session{
		clock:        clock,
		chatCap:      chatCap,
		id:           p.ID,
		name:         p.Name,
		description:  p.Description,
		venue:        venue,
		startTime:    p.StartTime,
		endTime:      p.EndTime,
		createdBy:    p.CreatedBy,
		createdAt:    now,
		updatedAt:    now,
		djID:         p.DJID,
		djName:       p.DJName,
		participants: make(map[string]*model.Participant),
	}
	// Shows created inside their window never announce a start
	s.started = s.isActiveLocked(now)
	return s
}

// Do runs fn holding the session's publish order. Mutations made and events
// sent inside fn reach listeners in the order they were applied. fn must not
// call Do on the same session.
func (s *Session) Do(fn func() error) error {
	s.order.Lock()
	defer s.order.Unlock()
	return fn()
}

// ID returns the show id
func (s *Session) ID() string {
	return s.id
}

// Venue returns a copy of the venue, or nil
func (s *Session) Venue() *model.Venue {
	if s.venue == nil {
		return nil
	}
	v := *s.venue
	return &v
}

// StartTime returns the scheduled start
func (s *Session) StartTime() time.Time {
	return s.startTime
}

// Snapshot returns the current show view
func (s *Session) Snapshot() model.Show {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(now)
}

// IsActive reports whether the show accepts joins at now
func (s *Session) IsActive(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isActiveLocked(now)
}

// Participants returns all participants ordered by join time
func (s *Session) Participants() []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Participant looks up a participant by user id
func (s *Session) Participant(userID string) (model.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[userID]
	if !ok {
		return model.Participant{}, false
	}
	return *p, true
}

// JoinParams carry the resolved identity of a joining user
type JoinParams struct {
	Profile    model.UserProfile
	Avatar     *model.Cosmetic
	Microphone *model.Cosmetic
}

// JoinResult describes what a join did
type JoinResult struct {
	Show        model.Show
	Participant model.Participant
	Rejoined    bool
	BecameDJ    bool
	Enqueued    *model.QueueEntry
	Promoted    bool
	Queue       model.QueueResponse
}

// Role returns the joined user's role
func (r JoinResult) Role() model.Role {
	return r.Participant.Role
}

// QueuePosition returns the joined user's position, or nil when not queued
func (r JoinResult) QueuePosition() *int {
	if r.Participant.QueuePosition == 0 {
		return nil
	}
	pos := r.Participant.QueuePosition
	return &pos
}

// Join admits a user. Rejoining refreshes presence and cosmetics only.
func (s *Session) Join(params JoinParams) (JoinResult, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isActiveLocked(now) {
		return JoinResult{}, Errorf(ErrInvalidState, "show %s is not active", s.id)
	}

	userID := params.Profile.ID
	if p, ok := s.participants[userID]; ok {
		p.Online = true
		if params.Avatar != nil {
			p.Avatar = params.Avatar
		}
		if params.Microphone != nil {
			p.Microphone = params.Microphone
		}
		if e := s.entryLocked(userID); e != nil {
			e.Avatar = p.Avatar
			e.Microphone = p.Microphone
		}
		s.updatedAt = now
		return JoinResult{
			Show:        s.snapshotLocked(now),
			Participant: *p,
			Rejoined:    true,
			Queue:       s.queueLocked(),
		}, nil
	}

	first := len(s.participants) == 0
	p := &model.Participant{
		UserID:     userID,
		Name:       params.Profile.Name,
		StageName:  params.Profile.StageName,
		Avatar:     params.Avatar,
		Microphone: params.Microphone,
		JoinedAt:   now,
		Online:     true,
		Role:       model.RoleSinger,
		DJEntitled: params.Profile.IsDJEntitled,
	}
	s.participants[userID] = p

	res := JoinResult{}
	switch {
	case s.djID == userID && s.activeDJLocked() == nil:
		// Named as DJ when the show was created
		s.assignDJLocked(p)
		res.BecameDJ = true
	case s.djID == "" && first && p.DJEntitled:
		s.assignDJLocked(p)
		res.BecameDJ = true
	default:
		entry, promoted := s.enqueueLocked(p, "", now)
		res.Enqueued = copyEntry(entry)
		res.Promoted = promoted
	}

	s.updatedAt = now
	res.Show = s.snapshotLocked(now)
	res.Participant = *p
	res.Queue = s.queueLocked()
	return res, nil
}

// LeaveResult describes what a leave did
type LeaveResult struct {
	Show             model.Show
	Left             bool
	Participant      model.Participant
	RemovedEntry     *model.QueueEntry
	WasCurrentSinger bool
	NewDJ            *model.Participant
	// DisplacedEntry is the new DJ's queue entry, dropped on hand-off
	DisplacedEntry      *model.QueueEntry
	DisplacedWasCurrent bool
	SystemMessage       *model.ChatMessage
	Queue               model.QueueResponse
}

// Leave removes a participant. Leaving a show you are not in is a no-op.
func (s *Session) Leave(userID string) LeaveResult {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[userID]
	if !ok {
		return LeaveResult{Show: s.snapshotLocked(now)}
	}
	delete(s.participants, userID)

	res := LeaveResult{Left: true, Participant: *p}
	if entry, wasCurrent := s.removeEntryLocked(userID); entry != nil {
		res.RemovedEntry = entry
		res.WasCurrentSinger = wasCurrent
	}

	if p.IsDJ() {
		s.djID = ""
		s.djName = ""
		if next := s.nextDJCandidateLocked(); next != nil {
			res.DisplacedEntry, res.DisplacedWasCurrent = s.assignDJLocked(next)
			nd := *next
			res.NewDJ = &nd
			msg := s.appendSystemLocked(nd.DisplayName()+" is now the DJ", now)
			res.SystemMessage = &msg
		}
	}

	if len(s.participants) == 0 {
		s.ended = true
	}
	s.updatedAt = now

	res.Show = s.snapshotLocked(now)
	res.Queue = s.queueLocked()
	return res
}

func (s *Session) isActiveLocked(now time.Time) bool {
	if s.ended {
		return false
	}
	return !now.Before(s.startTime) && !now.After(s.endTime)
}

func (s *Session) snapshotLocked(now time.Time) model.Show {
	return model.Show{
		ID:               s.id,
		Name:             s.name,
		Description:      s.description,
		Venue:            s.Venue(),
		StartTime:        s.startTime,
		EndTime:          s.endTime,
		IsActive:         s.isActiveLocked(now),
		DJID:             s.djID,
		DJName:           s.djName,
		CurrentSingerID:  s.currentSingerID,
		ParticipantCount: len(s.participants),
		QueueLength:      len(s.queue),
		CreatedBy:        s.createdBy,
		CreatedAt:        s.createdAt,
		UpdatedAt:        s.updatedAt,
	}
}

// activeDJLocked returns the DJ of record if they are present
func (s *Session) activeDJLocked() *model.Participant {
	if s.djID == "" {
		return nil
	}
	p, ok := s.participants[s.djID]
	if !ok || !p.IsDJ() {
		return nil
	}
	return p
}

// assignDJLocked makes p the DJ of record. A DJ is never in the queue, so any
// entry p held is removed and returned.
func (s *Session) assignDJLocked(p *model.Participant) (*model.QueueEntry, bool) {
	if prev := s.activeDJLocked(); prev != nil && prev != p {
		prev.Role = model.RoleSinger
	}
	entry, wasCurrent := s.removeEntryLocked(p.UserID)
	p.Role = model.RoleDJ
	s.djID = p.UserID
	s.djName = p.DisplayName()
	return entry, wasCurrent
}

// nextDJCandidateLocked picks the longest-present DJ-entitled participant
func (s *Session) nextDJCandidateLocked() *model.Participant {
	var best *model.Participant
	for _, p := range s.participants {
		if !p.DJEntitled {
			continue
		}
		if best == nil || p.JoinedAt.Before(best.JoinedAt) ||
			(p.JoinedAt.Equal(best.JoinedAt) && p.UserID < best.UserID) {
			best = p
		}
	}
	return best
}

// observeStartLocked flips the started flag the first time the window is open
func (s *Session) observeStartLocked(now time.Time) bool {
	if s.started || !s.isActiveLocked(now) {
		return false
	}
	s.started = true
	return true
}
