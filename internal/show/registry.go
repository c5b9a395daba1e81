package show

import (
	"livekaraoke/internal/model"
	"sort"
	"sync"
	"time"
)

// DefaultIdleGrace is how long an empty show lives before the sweep drops it
const DefaultIdleGrace = 10 * time.Minute

// EndReason says why a show left the registry
type EndReason string

const (
	EndExpired   EndReason = "expired"
	EndAbandoned EndReason = "abandoned"
)

// Eviction is one show removed by a sweep
type Eviction struct {
	Show   model.Show
	Reason EndReason
}

// Registry holds every live show
type Registry interface {
	Add(s *Session)
	Get(id string) (*Session, bool)
	List() []*Session
	ListActive(now time.Time) []*Session
	Delete(id string) bool
	Sweep(now time.Time) []Eviction
	StartDue(now time.Time) []model.Show
}

type memoryRegistry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	idleGrace time.Duration
}

// NewMemoryRegistry creates a volatile in-process registry
func NewMemoryRegistry(idleGrace time.Duration) Registry {
	if idleGrace <= 0 {
		idleGrace = DefaultIdleGrace
	}
	return &memoryRegistry{
		sessions:  make(map[string]*Session),
		idleGrace: idleGrace,
	}
}

func (r *memoryRegistry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *memoryRegistry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns all shows ordered by start time
func (r *memoryRegistry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sortByStart(out)
	return out
}

// ListActive returns active shows ordered by start time
func (r *memoryRegistry) ListActive(now time.Time) []*Session {
	all := r.List()
	out := all[:0]
	for _, s := range all {
		if s.IsActive(now) {
			out = append(out, s)
		}
	}
	return out
}

func (r *memoryRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Sweep drops expired shows and shows that stayed empty past the grace window
func (r *memoryRegistry) Sweep(now time.Time) []Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []Eviction
	for id, s := range r.sessions {
		reason, ok := s.evictionReason(now, r.idleGrace)
		if !ok {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, Eviction{Show: s.Snapshot(), Reason: reason})
	}
	sort.Slice(evicted, func(i, j int) bool {
		return evicted[i].Show.StartTime.Before(evicted[j].Show.StartTime)
	})
	return evicted
}

// StartDue returns shows whose window opened since the last check
func (r *memoryRegistry) StartDue(now time.Time) []model.Show {
	var started []model.Show
	for _, s := range r.List() {
		if snap, ok := s.markStarted(now); ok {
			started = append(started, snap)
		}
	}
	return started
}

func (s *Session) evictionReason(now time.Time, grace time.Duration) (EndReason, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.endTime) {
		return EndExpired, true
	}
	if len(s.participants) > 0 {
		return "", false
	}
	// A show nobody joined yet idles from its start, not its creation
	idleSince := s.updatedAt
	if s.startTime.After(idleSince) {
		idleSince = s.startTime
	}
	if now.Sub(idleSince) > grace {
		return EndAbandoned, true
	}
	return "", false
}

func (s *Session) markStarted(now time.Time) (model.Show, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.observeStartLocked(now) {
		return model.Show{}, false
	}
	return s.snapshotLocked(now), true
}

func sortByStart(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i].StartTime(), sessions[j].StartTime()
		if a.Equal(b) {
			return sessions[i].ID() < sessions[j].ID()
		}
		return a.Before(b)
	})
}
