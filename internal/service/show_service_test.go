package service

import (
	"context"
	"fmt"
	"livekaraoke/internal/model"
	"livekaraoke/internal/show"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateShow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateShow(ctx, "creator", model.CreateShowRequest{
		Name:      "  Karaoke Night ",
		DJID:      "dj",
		StartTime: testNow.Add(-time.Minute),
		VenueID:   venueAt.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "Karaoke Night", created.Name)
	assert.Equal(t, "DJ Dana", created.DJName)
	assert.Equal(t, testNow.Add(-time.Minute).Add(DefaultShowDuration), created.EndTime)
	assert.True(t, created.IsActive)
	require.NotNil(t, created.Venue)
	assert.Equal(t, "The Bar", created.Venue.Name)

	got, err := env.svc.GetShow(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateShow_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	before := testNow.Add(-2 * time.Hour)

	cases := []struct {
		name    string
		creator string
		req     model.CreateShowRequest
		want    error
	}{
		{"unknown creator", "ghost", model.CreateShowRequest{Name: "n", StartTime: testNow}, show.ErrNotFound},
		{"missing name", "creator", model.CreateShowRequest{StartTime: testNow}, show.ErrBadRequest},
		{"missing start", "creator", model.CreateShowRequest{Name: "n"}, show.ErrBadRequest},
		{"end before start", "creator", model.CreateShowRequest{Name: "n", StartTime: testNow, EndTime: &before}, show.ErrBadRequest},
		{"unknown venue", "creator", model.CreateShowRequest{Name: "n", StartTime: testNow, VenueID: "nope"}, show.ErrNotFound},
		{"unknown dj", "creator", model.CreateShowRequest{Name: "n", StartTime: testNow, DJID: "nope"}, show.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateShow(ctx, tc.creator, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, env.registry.List())
}

func TestGetShow_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.GetShow("missing")

	assert.ErrorIs(t, err, show.ErrNotFound)
}

func TestJoinShow_EntitledFirstUserBecomesDJ(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)

	res := env.join(t, id, "dj")

	assert.Equal(t, model.RoleDJ, res.Role)
	assert.Nil(t, res.QueuePosition)
	assert.True(t, res.Show.IsActive)
	assert.Equal(t, 0, res.Show.QueueLength)
	assert.Len(t, env.bc.ofType(model.EventDJChanged), 1)
}

func TestJoinShow_DJLessSingerIsPromoted(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)

	res := env.join(t, id, "x")

	assert.Equal(t, model.RoleSinger, res.Role)
	require.NotNil(t, res.QueuePosition)
	assert.Equal(t, 1, *res.QueuePosition)
	assert.Equal(t, "x", res.Show.CurrentSingerID)
	assert.Len(t, env.bc.ofType(model.EventCurrentSingerChanged), 1)
}

func TestJoinShow_Proximity(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	ctx := context.Background()

	// About 111 m north of the venue
	far := model.Coordinates{Lat: venueAt.Lat + 0.001, Lng: venueAt.Lng}
	_, err := env.svc.JoinShow(ctx, id, "x", JoinOptions{Location: &far})
	assert.ErrorIs(t, err, show.ErrForbidden)

	// About 11 m away
	near := model.Coordinates{Lat: venueAt.Lat + 0.0001, Lng: venueAt.Lng}
	_, err = env.svc.JoinShow(ctx, id, "x", JoinOptions{Location: &near})
	assert.NoError(t, err)

	_, err = env.svc.JoinShow(ctx, id, "y", atVenue())
	assert.NoError(t, err)
}

func TestJoinShow_NoLocation(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	ctx := context.Background()

	_, err := env.svc.JoinShow(ctx, id, "x", JoinOptions{})
	assert.ErrorIs(t, err, show.ErrForbidden)

	_, err = env.svc.JoinShow(ctx, id, "x", JoinOptions{BypassProximity: true})
	assert.NoError(t, err)
}

func TestJoinShow_VenuelessShowSkipsProximity(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, "")
	far := model.Coordinates{Lat: 10, Lng: 10}

	_, err := env.svc.JoinShow(context.Background(), id, "x", JoinOptions{Location: &far})

	assert.NoError(t, err)
}

func TestJoinShow_GeoFailureFailsOpen(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	broken := 12.5
	env.geo.failFor = &broken
	loc := model.Coordinates{Lat: broken, Lng: 0}

	_, err := env.svc.JoinShow(context.Background(), id, "x", JoinOptions{Location: &loc})

	assert.NoError(t, err)
}

func TestJoinShow_InactiveBeatsProximity(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	env.clock.Advance(2 * time.Hour)

	_, err := env.svc.JoinShow(context.Background(), id, "x", atVenue())
	assert.ErrorIs(t, err, show.ErrInvalidState)

	far := model.Coordinates{Lat: 0, Lng: 0}
	_, err = env.svc.JoinShow(context.Background(), id, "x", JoinOptions{Location: &far})
	assert.ErrorIs(t, err, show.ErrInvalidState)
}

func TestJoinShow_UnknownShowAndUser(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)

	_, err := env.svc.JoinShow(context.Background(), "missing", "x", atVenue())
	assert.ErrorIs(t, err, show.ErrNotFound)

	_, err = env.svc.JoinShow(context.Background(), id, "ghost", atVenue())
	assert.ErrorIs(t, err, show.ErrNotFound)
}

func TestJoinShow_CosmeticsResolvedAndFallBack(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	opts := atVenue()
	opts.AvatarID = "a1"
	opts.MicID = "m9"

	_, err := env.svc.JoinShow(context.Background(), id, "x", opts)
	require.NoError(t, err)

	ps, err := env.svc.Participants(id)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "Disco Cat", ps[0].Avatar.Name)
	assert.Equal(t, "m9", ps[0].Microphone.ID)
}

func TestJoinShow_BroadcastsExcludeJoiner(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	env.bc.setRoom(id, "dj", "x")
	env.join(t, id, "dj")
	env.bc.reset()

	env.join(t, id, "x")

	joined := env.bc.ofType(model.EventUserJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, []string{"dj"}, joined[0].to)
	assert.Len(t, env.bc.ofType(model.EventSingerAdded), 1)
	assert.Len(t, env.bc.ofType(model.EventQueueUpdated), 1)
	assert.Len(t, env.bc.ofType(model.EventCurrentSingerChanged), 1)
}

func TestLeaveShow_BroadcastsAndDetaches(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	env.bc.setRoom(id, "dj", "x", "y")
	env.join(t, id, "dj")
	env.join(t, id, "x")
	env.join(t, id, "y")
	env.bc.reset()

	require.NoError(t, env.svc.LeaveShow(context.Background(), id, "x"))

	assert.Contains(t, env.bc.detached, id+":x")
	assert.Len(t, env.bc.ofType(model.EventUserLeft), 1)
	assert.Len(t, env.bc.ofType(model.EventSingerRemoved), 1)
	assert.Len(t, env.bc.ofType(model.EventCurrentSingerChanged), 1)

	q, err := env.svc.GetQueue(id)
	require.NoError(t, err)
	require.Len(t, q.Queue, 1)
	assert.Equal(t, "y", q.Queue[0].UserID)
	assert.Equal(t, 1, q.Queue[0].Position)
}

func TestLeaveShow_NonMemberNoop(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)

	require.NoError(t, env.svc.LeaveShow(context.Background(), id, "x"))
	assert.Empty(t, env.bc.ofType(model.EventUserLeft))

	assert.ErrorIs(t, env.svc.LeaveShow(context.Background(), "missing", "x"), show.ErrNotFound)
}

func TestLeaveShow_DJHandOff(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	env.join(t, id, "dj")
	env.join(t, id, "x")
	env.join(t, id, "dj2")

	require.NoError(t, env.svc.LeaveShow(context.Background(), id, "dj"))

	got, err := env.svc.GetShow(id)
	require.NoError(t, err)
	assert.Equal(t, "dj2", got.DJID)
	assert.Len(t, env.bc.ofType(model.EventDJChanged), 2)

	h, err := env.svc.ChatHistory(id, "x", 10, 0)
	require.NoError(t, err)
	require.Len(t, h.Messages, 1)
	assert.Equal(t, model.MessageSystem, h.Messages[0].Type)

	// dj2 was queued behind x and leaves the rotation as DJ
	removed := env.bc.ofType(model.EventSingerRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, "dj2", removed[0].payload.(map[string]interface{})["userId"])
	q, err := env.svc.GetQueue(id)
	require.NoError(t, err)
	require.Len(t, q.Queue, 1)
	require.NotNil(t, q.CurrentSinger)
	assert.Equal(t, "x", q.CurrentSinger.UserID)
}

func TestLeaveShow_DJHandOffClearsSingingSuccessor(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	env.join(t, id, "dj")
	env.join(t, id, "dj2")
	env.join(t, id, "x")
	q, err := env.svc.GetQueue(id)
	require.NoError(t, err)
	require.NotNil(t, q.CurrentSinger)
	require.Equal(t, "dj2", q.CurrentSinger.UserID)
	env.bc.reset()

	require.NoError(t, env.svc.LeaveShow(context.Background(), id, "dj"))

	got, err := env.svc.GetShow(id)
	require.NoError(t, err)
	assert.Equal(t, "dj2", got.DJID)
	assert.Equal(t, "", got.CurrentSingerID)

	removed := env.bc.ofType(model.EventSingerRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, "dj2", removed[0].payload.(map[string]interface{})["userId"])

	changed := env.bc.ofType(model.EventCurrentSingerChanged)
	require.Len(t, changed, 1)
	payload := changed[0].payload.(map[string]interface{})
	assert.Equal(t, "", payload["currentSingerId"])
	assert.Equal(t, "dj2", payload["previousSingerId"])

	updates := env.bc.ofType(model.EventQueueUpdated)
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1].payload.(model.QueueResponse)
	require.Len(t, last.Queue, 1)
	assert.Equal(t, "x", last.Queue[0].UserID)
	assert.Nil(t, last.CurrentSinger)
}

func TestJoinShow_ConcurrentQueueUpdatesArriveInOrder(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	env.join(t, id, "dj")

	const n = 24
	users := make([]string, n)
	for i := range users {
		users[i] = fmt.Sprintf("singer-%02d", i)
		env.identity.users[users[i]] = &model.UserProfile{ID: users[i], Name: users[i]}
	}
	env.bc.reset()

	var wg sync.WaitGroup
	for _, uid := range users {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := env.svc.JoinShow(context.Background(), id, uid, atVenue())
			assert.NoError(t, err)
		}(uid)
	}
	wg.Wait()

	updates := env.bc.ofType(model.EventQueueUpdated)
	require.Len(t, updates, n)
	for i, u := range updates {
		assert.Len(t, u.payload.(model.QueueResponse).Queue, i+1)
	}

	final, err := env.svc.GetQueue(id)
	require.NoError(t, err)
	last := updates[n-1].payload.(model.QueueResponse)
	require.Len(t, last.Queue, len(final.Queue))
	for i := range final.Queue {
		assert.Equal(t, final.Queue[i].UserID, last.Queue[i].UserID)
	}
	assert.Equal(t, final.CurrentSinger, last.CurrentSinger)
}

func TestQueueFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createActiveShow(t, venueAt.ID)
	env.join(t, id, "dj")
	env.join(t, id, "x")
	env.join(t, id, "y")

	order, err := env.svc.ReorderQueue(ctx, id, "dj", []string{"y", "x"})
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "y", order[0].UserID)

	got, _ := env.svc.GetShow(id)
	assert.Equal(t, "x", got.CurrentSingerID)

	require.NoError(t, env.svc.SetCurrentSinger(ctx, id, "dj", "y"))
	got, _ = env.svc.GetShow(id)
	assert.Equal(t, "y", got.CurrentSingerID)

	_, err = env.svc.ReorderQueue(ctx, id, "dj", []string{"y"})
	assert.ErrorIs(t, err, show.ErrInvalidArgument)

	assert.ErrorIs(t, env.svc.RemoveFromQueue(ctx, id, "x", "y"), show.ErrForbidden)
	require.NoError(t, env.svc.RemoveFromQueue(ctx, id, "x", "x"))

	entry, err := env.svc.AddToQueue(ctx, id, "x", "Dancing Queen")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Position)
	assert.Equal(t, "Dancing Queen", entry.SongRequest)

	_, err = env.svc.AddToQueue(ctx, id, "x", "")
	assert.ErrorIs(t, err, show.ErrBadRequest)

	started := testNow.Add(-30 * time.Second)
	entry, err = env.svc.SetSongTiming(ctx, id, "dj", "y", model.SongTimingRequest{StartedAt: &started, DurationSeconds: 180})
	require.NoError(t, err)
	assert.Equal(t, 180, entry.SongDurationSec)
}

func TestSendChat_PrivateGoesToRecipientOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createActiveShow(t, venueAt.ID)
	env.bc.setRoom(id, "dj", "x", "y")
	env.join(t, id, "dj")
	env.join(t, id, "x")
	env.join(t, id, "y")
	env.bc.reset()

	msg, err := env.svc.SendChat(ctx, id, "dj", model.SendChatRequest{Message: "you're next", Type: model.MessageDJToSinger, RecipientID: "x"})
	require.NoError(t, err)
	assert.False(t, msg.IsVisible)

	sent := env.bc.ofType(model.EventChatMessage)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"x"}, sent[0].to)
}

func TestSendChat_SingerChatSkipsDJ(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createActiveShow(t, venueAt.ID)
	env.bc.setRoom(id, "dj", "x", "y")
	env.join(t, id, "dj")
	env.join(t, id, "x")
	env.join(t, id, "y")
	env.bc.reset()

	_, err := env.svc.SendChat(ctx, id, "x", model.SendChatRequest{Message: "go y!"})
	require.NoError(t, err)

	sent := env.bc.ofType(model.EventChatMessage)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"y"}, sent[0].to)
}

func TestSendChat_ErrorsAreNotBroadcast(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	env.bc.setRoom(id, "dj", "x")
	env.join(t, id, "dj")
	env.join(t, id, "x")
	env.bc.reset()

	_, err := env.svc.SendChat(context.Background(), id, "x", model.SendChatRequest{Message: "hi", Type: model.MessageAnnouncement})
	assert.ErrorIs(t, err, show.ErrForbidden)
	assert.Empty(t, env.bc.events)
}

func TestSendAnnouncement_ExpiresOnSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createActiveShow(t, venueAt.ID)
	env.bc.setRoom(id, "dj", "x")
	env.join(t, id, "dj")
	env.join(t, id, "x")

	ann, err := env.svc.SendAnnouncement(ctx, id, "dj", model.SendAnnouncementRequest{Message: "Last call!"})
	require.NoError(t, err)
	assert.Equal(t, 10, ann.DisplayDuration)
	assert.Equal(t, "DJ Dana", ann.DJName)

	sent := env.bc.ofType(model.EventAnnouncement)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"x"}, sent[0].to)

	active, err := env.svc.ActiveAnnouncements(id)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	env.clock.Advance(9 * time.Second)
	assert.Empty(t, env.bc.ofType(model.EventAnnouncementExpired))

	env.clock.Advance(time.Second)
	expired := env.bc.ofType(model.EventAnnouncementExpired)
	require.Len(t, expired, 1)
	assert.Equal(t, AnnouncementExpired{ID: ann.ID, ShowID: id}, expired[0].payload)
	assert.Empty(t, env.announcer.Active(id))

	_, err = env.svc.SendAnnouncement(ctx, id, "x", model.SendAnnouncementRequest{Message: "me too"})
	assert.ErrorIs(t, err, show.ErrForbidden)
}

func TestFindNearby(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.geo.venues["close"] = &model.Venue{ID: "close", Name: "Close", Lat: 37.0001, Lng: -122.0}
	env.geo.venues["far"] = &model.Venue{ID: "far", Name: "Far", Lat: 38.0, Lng: -122.0}
	broken := 37.00005
	env.geo.venues["broken"] = &model.Venue{ID: "broken", Name: "Broken", Lat: broken, Lng: -122.0}
	env.geo.failFor = &broken

	exact := env.createActiveShow(t, venueAt.ID)
	closeBy := env.createActiveShow(t, "close")
	env.createActiveShow(t, "far")
	env.createActiveShow(t, "broken")
	env.createActiveShow(t, "")

	found, err := env.svc.FindNearby(ctx, venueAt.Coordinates(), 0)
	require.NoError(t, err)

	require.Len(t, found, 2)
	assert.Equal(t, exact, found[0].Show.ID)
	assert.InDelta(t, 0, found[0].DistanceMeters, 0.001)
	assert.Equal(t, closeBy, found[1].Show.ID)
	assert.Equal(t, "Close", found[1].Venue.Name)

	_, err = env.svc.FindNearby(ctx, model.Coordinates{Lat: 100}, 0)
	assert.ErrorIs(t, err, show.ErrBadRequest)
}

func TestLifecycleHook(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	env.bc.setRoom(id, "dj")
	env.join(t, id, "dj")
	_, err := env.svc.SendAnnouncement(context.Background(), id, "dj", model.SendAnnouncementRequest{Message: "hi"})
	require.NoError(t, err)

	janitor := show.NewJanitor(env.registry, env.clock, env.svc, discardLogger(), 0, 0)
	env.clock.Advance(2 * time.Hour)
	janitor.Tick(context.Background())

	ended := env.bc.ofType(model.EventShowEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, show.EndExpired, ended[0].payload.(map[string]interface{})["reason"])
	assert.Equal(t, []string{id}, env.bc.closed)
	assert.Empty(t, env.announcer.Active(id))
}

func TestListActiveShows(t *testing.T) {
	env := newTestEnv(t)
	id := env.createActiveShow(t, venueAt.ID)
	_, err := env.svc.CreateShow(context.Background(), "creator", model.CreateShowRequest{
		Name:      "Later",
		StartTime: testNow.Add(time.Hour),
	})
	require.NoError(t, err)

	shows := env.svc.ListActiveShows()

	require.Len(t, shows, 1)
	assert.Equal(t, id, shows[0].ID)
}
