package show

import (
	"livekaraoke/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, djID string) (*Session, *ManualClock) {
	t.Helper()
	clock := NewManualClock(testStart)
	s := NewSession(Params{
		ID:        "show-1",
		Name:      "Friday Night",
		Venue:     &model.Venue{ID: "v1", Name: "The Bar", Lat: 37.0, Lng: -122.0},
		StartTime: testStart.Add(-time.Hour),
		EndTime:   testStart.Add(time.Hour),
		DJID:      djID,
		CreatedBy: "creator",
	}, clock, 0)
	return s, clock
}

func profile(id string, dj bool) JoinParams {
	return JoinParams{Profile: model.UserProfile{ID: id, Name: "User " + id, IsDJEntitled: dj}}
}

func mustJoin(t *testing.T, s *Session, id string, dj bool) JoinResult {
	t.Helper()
	res, err := s.Join(profile(id, dj))
	require.NoError(t, err)
	return res
}

// assertQueueInvariants checks dense positions, one current singer and the participant mirror
func assertQueueInvariants(t *testing.T, s *Session) {
	t.Helper()
	q := s.Queue()
	current := 0
	for i, e := range q.Queue {
		assert.Equal(t, i+1, e.Position, "position of %s", e.UserID)
		if e.IsCurrentSinger {
			current++
			assert.Equal(t, s.Snapshot().CurrentSingerID, e.UserID)
		}
		p, ok := s.Participant(e.UserID)
		require.True(t, ok)
		assert.Equal(t, e.Position, p.QueuePosition)
		assert.False(t, p.IsDJ(), "DJ %s must not be queued", e.UserID)
	}
	assert.LessOrEqual(t, current, 1)
	if current == 0 {
		assert.Empty(t, s.Snapshot().CurrentSingerID)
	}
}

func TestJoin_FirstEntitledUserBecomesDJ(t *testing.T) {
	s, _ := newTestSession(t, "")

	res := mustJoin(t, s, "a", true)

	assert.Equal(t, model.RoleDJ, res.Role())
	assert.True(t, res.BecameDJ)
	assert.Nil(t, res.QueuePosition())
	assert.Empty(t, res.Queue.Queue)
	assert.True(t, res.Show.IsActive)
	assert.Equal(t, "a", res.Show.DJID)
}

func TestJoin_DJLessShowAutoPromotesFirstSinger(t *testing.T) {
	s, _ := newTestSession(t, "")

	res := mustJoin(t, s, "b", false)

	assert.Equal(t, model.RoleSinger, res.Role())
	require.NotNil(t, res.QueuePosition())
	assert.Equal(t, 1, *res.QueuePosition())
	assert.True(t, res.Promoted)
	assert.Equal(t, "b", res.Show.CurrentSingerID)
	assertQueueInvariants(t, s)
}

func TestJoin_EntitledLaterJoinerIsQueued(t *testing.T) {
	s, _ := newTestSession(t, "")
	mustJoin(t, s, "b", false)

	res := mustJoin(t, s, "c", true)

	assert.Equal(t, model.RoleSinger, res.Role())
	assert.Equal(t, 2, *res.QueuePosition())
	assert.False(t, res.Promoted)
	assertQueueInvariants(t, s)
}

func TestJoin_PreassignedDJTakesRole(t *testing.T) {
	s, _ := newTestSession(t, "d")
	mustJoin(t, s, "x", false)

	res := mustJoin(t, s, "d", false)

	assert.Equal(t, model.RoleDJ, res.Role())
	assert.Equal(t, "d", res.Show.DJID)
	assertQueueInvariants(t, s)
}

func TestJoin_WithDJPresentFirstSingerPromoted(t *testing.T) {
	s, _ := newTestSession(t, "")
	mustJoin(t, s, "dj", true)

	res := mustJoin(t, s, "x", false)

	assert.True(t, res.Promoted)
	assert.Equal(t, "x", res.Queue.CurrentSinger.UserID)
}

func TestJoin_RejoinIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t, "")
	mustJoin(t, s, "dj", true)
	mustJoin(t, s, "x", false)
	mustJoin(t, s, "y", false)

	mic := &model.Cosmetic{ID: "m1", Kind: model.CosmeticMicrophone, Name: "Gold"}
	res, err := s.Join(JoinParams{Profile: model.UserProfile{ID: "y"}, Microphone: mic})
	require.NoError(t, err)

	assert.True(t, res.Rejoined)
	assert.Equal(t, 2, *res.QueuePosition())
	assert.Equal(t, 3, res.Show.ParticipantCount)
	assert.Len(t, res.Queue.Queue, 2)
	assert.Equal(t, "Gold", res.Queue.Queue[1].Microphone.Name)
}

func TestJoin_InactiveShow(t *testing.T) {
	s, clock := newTestSession(t, "")
	clock.Advance(2 * time.Hour)

	_, err := s.Join(profile("a", true))

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestJoin_BeforeStart(t *testing.T) {
	clock := NewManualClock(testStart)
	s := NewSession(Params{ID: "s", StartTime: testStart.Add(time.Hour), EndTime: testStart.Add(2 * time.Hour)}, clock, 0)

	_, err := s.Join(profile("a", true))
	assert.ErrorIs(t, err, ErrInvalidState)

	clock.Advance(time.Hour)
	_, err = s.Join(profile("a", true))
	assert.NoError(t, err)
}

func TestLeave_RenumbersAndClearsCurrent(t *testing.T) {
	s, _ := newTestSession(t, "")
	mustJoin(t, s, "dj", true)
	mustJoin(t, s, "x", false)
	mustJoin(t, s, "y", false)
	mustJoin(t, s, "z", false)

	res := s.Leave("x")

	assert.True(t, res.Left)
	assert.True(t, res.WasCurrentSinger)
	require.NotNil(t, res.RemovedEntry)
	assert.Equal(t, "x", res.RemovedEntry.UserID)
	assert.Empty(t, res.Show.CurrentSingerID)
	require.Len(t, res.Queue.Queue, 2)
	assert.Equal(t, "y", res.Queue.Queue[0].UserID)
	assert.Equal(t, 1, res.Queue.Queue[0].Position)
	assert.Equal(t, 2, res.Queue.Queue[1].Position)
	assertQueueInvariants(t, s)
}

func TestLeave_NonMemberIsNoop(t *testing.T) {
	s, _ := newTestSession(t, "")
	mustJoin(t, s, "dj", true)

	res := s.Leave("ghost")

	assert.False(t, res.Left)
	assert.Equal(t, 1, res.Show.ParticipantCount)
}

func TestLeave_DJHandsOffToEntitledParticipant(t *testing.T) {
	s, _ := newTestSession(t, "")
	mustJoin(t, s, "dj", true)
	mustJoin(t, s, "x", false)
	mustJoin(t, s, "y", true)

	res := s.Leave("dj")

	require.NotNil(t, res.NewDJ)
	assert.Equal(t, "y", res.NewDJ.UserID)
	assert.Equal(t, "y", res.Show.DJID)
	require.NotNil(t, res.SystemMessage)
	assert.Equal(t, model.MessageSystem, res.SystemMessage.Type)
	require.Len(t, res.Queue.Queue, 1)
	assert.Equal(t, "x", res.Queue.Queue[0].UserID)
	require.NotNil(t, res.DisplacedEntry)
	assert.Equal(t, "y", res.DisplacedEntry.UserID)
	assert.False(t, res.DisplacedWasCurrent)
	assert.Equal(t, "x", res.Show.CurrentSingerID)
	assertQueueInvariants(t, s)
}

func TestLeave_DJHandOffToCurrentSingerEmptiesStage(t *testing.T) {
	s, _ := newTestSession(t, "")
	mustJoin(t, s, "dj", true)
	mustJoin(t, s, "y", true)
	mustJoin(t, s, "x", false)
	require.Equal(t, "y", s.Snapshot().CurrentSingerID)

	res := s.Leave("dj")

	require.NotNil(t, res.NewDJ)
	assert.Equal(t, "y", res.NewDJ.UserID)
	require.NotNil(t, res.DisplacedEntry)
	assert.Equal(t, "y", res.DisplacedEntry.UserID)
	assert.True(t, res.DisplacedWasCurrent)
	assert.Empty(t, res.Show.CurrentSingerID)
	assert.Nil(t, res.Queue.CurrentSinger)
	require.Len(t, res.Queue.Queue, 1)
	assert.Equal(t, "x", res.Queue.Queue[0].UserID)
	assertQueueInvariants(t, s)
}

func TestLeave_DJWithoutSuccessorLeavesRoleEmpty(t *testing.T) {
	s, _ := newTestSession(t, "")
	mustJoin(t, s, "dj", true)
	mustJoin(t, s, "x", false)

	res := s.Leave("dj")

	assert.Nil(t, res.NewDJ)
	assert.Empty(t, res.Show.DJID)
	assert.True(t, res.Show.IsActive)
}

func TestLeave_LastParticipantEndsShow(t *testing.T) {
	s, _ := newTestSession(t, "")
	mustJoin(t, s, "a", true)

	res := s.Leave("a")

	assert.False(t, res.Show.IsActive)
	_, err := s.Join(profile("b", false))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestParticipants_OrderedByJoinTime(t *testing.T) {
	s, clock := newTestSession(t, "")
	mustJoin(t, s, "b", false)
	clock.Advance(time.Second)
	mustJoin(t, s, "a", false)

	ps := s.Participants()

	require.Len(t, ps, 2)
	assert.Equal(t, "b", ps[0].UserID)
	assert.Equal(t, "a", ps[1].UserID)
}
