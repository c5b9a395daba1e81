package service

import (
	"context"
	"errors"
	"io"
	"livekaraoke/internal/model"
	"livekaraoke/internal/show"
	"log/slog"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

// venueAt is the venue used across service tests
var venueAt = model.Venue{ID: "venue-1", Name: "The Bar", Address: "1 Main St", Lat: 37.0, Lng: -122.0}

type fakeIdentity struct {
	users map[string]*model.UserProfile
	err   error
}

func newFakeIdentity(users ...model.UserProfile) *fakeIdentity {
	f := &fakeIdentity{users: make(map[string]*model.UserProfile)}
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
	}
	return f
}

func (f *fakeIdentity) ResolveUser(_ context.Context, id string) (*model.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, show.Errorf(show.ErrNotFound, "user %s not found", id)
	}
	out := *u
	return &out, nil
}

type fakeGeo struct {
	venues map[string]*model.Venue
	// failFor makes Distance fail when either point has this latitude
	failFor *float64
}

func newFakeGeo(venues ...model.Venue) *fakeGeo {
	f := &fakeGeo{venues: make(map[string]*model.Venue)}
	for i := range venues {
		v := venues[i]
		f.venues[v.ID] = &v
	}
	return f
}

func (f *fakeGeo) Distance(a, b model.Coordinates) (float64, error) {
	if f.failFor != nil && (a.Lat == *f.failFor || b.Lat == *f.failFor) {
		return 0, errors.New("geo backend unavailable")
	}
	return Haversine(a, b)
}

func (f *fakeGeo) VenueCoordinates(_ context.Context, id string) (*model.Venue, error) {
	v, ok := f.venues[id]
	if !ok {
		return nil, show.Errorf(show.ErrNotFound, "venue %s not found", id)
	}
	out := *v
	return &out, nil
}

type fakeCosmetics struct {
	items map[string]*model.Cosmetic
}

func (f *fakeCosmetics) Lookup(_ context.Context, kind model.CosmeticKind, id string) (*model.Cosmetic, error) {
	if item, ok := f.items[string(kind)+":"+id]; ok {
		return item, nil
	}
	return nil, errors.New("cosmetic store down")
}

// sentEvent is one recorded delivery
type sentEvent struct {
	showID  string
	event   model.EventType
	payload interface{}
	// to is the set of room members the event reached
	to []string
}

// recordingBroadcaster resolves filters against a fixed room roster
type recordingBroadcaster struct {
	mu       sync.Mutex
	members  map[string][]string
	events   []sentEvent
	detached []string
	closed   []string
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{members: make(map[string][]string)}
}

func (b *recordingBroadcaster) setRoom(showID string, users ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[showID] = users
}

func (b *recordingBroadcaster) BroadcastToShow(showID string, event model.EventType, payload interface{}, filter func(string) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var to []string
	for _, uid := range b.members[showID] {
		if filter == nil || filter(uid) {
			to = append(to, uid)
		}
	}
	b.events = append(b.events, sentEvent{showID: showID, event: event, payload: payload, to: to})
}

func (b *recordingBroadcaster) SendToUser(showID, userID string, event model.EventType, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{showID: showID, event: event, payload: payload, to: []string{userID}})
}

func (b *recordingBroadcaster) DetachUser(showID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detached = append(b.detached, showID+":"+userID)
}

func (b *recordingBroadcaster) CloseShow(showID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, showID)
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

func (b *recordingBroadcaster) ofType(event model.EventType) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	svc       *ShowService
	clock     *show.ManualClock
	registry  show.Registry
	identity  *fakeIdentity
	geo       *fakeGeo
	bc        *recordingBroadcaster
	announcer *Announcer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := show.NewManualClock(testNow)
	registry := show.NewMemoryRegistry(10 * time.Minute)
	identity := newFakeIdentity(
		model.UserProfile{ID: "creator", Name: "Casey"},
		model.UserProfile{ID: "dj", Name: "Dana", StageName: "DJ Dana", IsDJEntitled: true},
		model.UserProfile{ID: "dj2", Name: "Devon", IsDJEntitled: true},
		model.UserProfile{ID: "x", Name: "Xiomara"},
		model.UserProfile{ID: "y", Name: "Yuki"},
		model.UserProfile{ID: "z", Name: "Zane"},
	)
	geo := newFakeGeo(venueAt)
	cosmetics := &fakeCosmetics{items: map[string]*model.Cosmetic{
		"avatar:a1": {ID: "a1", Kind: model.CosmeticAvatar, Name: "Disco Cat"},
	}}
	announcer := NewAnnouncer(clock, discardLogger())
	announcer.Start()
	svc := NewShowService(registry, identity, geo, cosmetics, announcer, clock, ShowOptions{}, discardLogger())
	bc := newRecordingBroadcaster()
	svc.SetBroadcaster(bc)
	return &testEnv{svc: svc, clock: clock, registry: registry, identity: identity, geo: geo, bc: bc, announcer: announcer}
}

// createActiveShow creates a show running from an hour ago to an hour from now
func (e *testEnv) createActiveShow(t *testing.T, venueID string) string {
	t.Helper()
	end := testNow.Add(time.Hour)
	created, err := e.svc.CreateShow(context.Background(), "creator", model.CreateShowRequest{
		Name:      "Friday Night",
		StartTime: testNow.Add(-time.Hour),
		EndTime:   &end,
		VenueID:   venueID,
	})
	if err != nil {
		t.Fatalf("create show: %v", err)
	}
	return created.ID
}

func atVenue() JoinOptions {
	c := venueAt.Coordinates()
	return JoinOptions{Location: &c}
}

func (e *testEnv) join(t *testing.T, showID, userID string) *model.JoinShowResponse {
	t.Helper()
	res, err := e.svc.JoinShow(context.Background(), showID, userID, atVenue())
	if err != nil {
		t.Fatalf("join %s: %v", userID, err)
	}
	return res
}
