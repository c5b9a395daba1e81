package service

import (
	"livekaraoke/internal/model"
	"livekaraoke/internal/show"
	"log/slog"
	"sort"
	"sync"
)

// AnnouncementExpired is the payload of an announcement-expired event
type AnnouncementExpired struct {
	ID     string `json:"id"`
	ShowID string `json:"showId"`
}

type pendingAnnouncement struct {
	msg   model.AnnouncementMessage
	timer show.Timer
}

// Announcer keeps announcements alive for their display duration and tells the
// room when they lapse. Nothing is scheduled until Start.
type Announcer struct {
	clock       show.Clock
	broadcaster Broadcaster
	log         *slog.Logger

	mu      sync.Mutex
	running bool
	active  map[string]map[string]*pendingAnnouncement
}

// NewAnnouncer creates a new announcer
func NewAnnouncer(clock show.Clock, log *slog.Logger) *Announcer {
	if clock == nil {
		clock = show.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Announcer{
		clock:       clock,
		broadcaster: nopBroadcaster{},
		log:         log,
		active:      make(map[string]map[string]*pendingAnnouncement),
	}
}

// SetBroadcaster sets the broadcaster for expiry events
func (a *Announcer) SetBroadcaster(b Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.broadcaster = b
}

// Start enables scheduling
func (a *Announcer) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = true
}

// Stop cancels every pending expiry and drops all announcements
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = false
	for showID, byID := range a.active {
		for _, p := range byID {
			p.timer.Stop()
		}
		delete(a.active, showID)
	}
}

// Schedule tracks msg until it expires. It reports false when the announcer is stopped.
func (a *Announcer) Schedule(msg model.AnnouncementMessage) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return false
	}

	d := msg.ExpiresAt.Sub(a.clock.Now())
	if d < 0 {
		d = 0
	}
	p := &pendingAnnouncement{msg: msg}
	p.timer = a.clock.AfterFunc(d, func() { a.expire(msg.ShowID, msg.ID) })

	byID, ok := a.active[msg.ShowID]
	if !ok {
		byID = make(map[string]*pendingAnnouncement)
		a.active[msg.ShowID] = byID
	}
	byID[msg.ID] = p
	return true
}

// Active returns the show's unexpired announcements, oldest first
func (a *Announcer) Active(showID string) []model.AnnouncementMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]model.AnnouncementMessage, 0, len(a.active[showID]))
	for _, p := range a.active[showID] {
		out = append(out, p.msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ClearShow drops a show's announcements without notifying anyone
func (a *Announcer) ClearShow(showID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.active[showID] {
		p.timer.Stop()
	}
	delete(a.active, showID)
}

func (a *Announcer) expire(showID, id string) {
	a.mu.Lock()
	byID := a.active[showID]
	if _, ok := byID[id]; !ok {
		a.mu.Unlock()
		return
	}
	delete(byID, id)
	if len(byID) == 0 {
		delete(a.active, showID)
	}
	b := a.broadcaster
	a.mu.Unlock()

	a.log.Debug("announcement expired", slog.String("show_id", showID), slog.String("announcement_id", id))
	b.BroadcastToShow(showID, model.EventAnnouncementExpired, AnnouncementExpired{ID: id, ShowID: showID}, nil)
}
