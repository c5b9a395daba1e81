package service

import (
	"context"
	"errors"
	"fmt"
	"livekaraoke/internal/model"
	"livekaraoke/internal/show"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultProximityRadius = 30.0
	DefaultShowDuration    = 4 * time.Hour
)

// ShowOptions tune the live show rules
type ShowOptions struct {
	ProximityRadiusMeters float64
	DefaultShowDuration   time.Duration
	ChatHistoryCap        int
	AnnouncementSeconds   int
}

// JoinOptions carry the admission inputs of a join
type JoinOptions struct {
	// Location is where the user says they are. Nil means no location was sent.
	Location *model.Coordinates
	// BypassProximity admits a user without a location. It has no effect when
	// a location is given.
	BypassProximity bool
	AvatarID        string
	MicID           string
}

// ShowService runs live shows: admission, the singer rotation, chat and the
// events each change produces
type ShowService struct {
	registry    show.Registry
	identity    IdentityProvider
	geo         GeoProvider
	cosmetics   CosmeticProvider
	announcer   *Announcer
	clock       show.Clock
	opts        ShowOptions
	log         *slog.Logger
	broadcaster Broadcaster
}

// NewShowService creates a new show service
func NewShowService(
	registry show.Registry,
	identity IdentityProvider,
	geo GeoProvider,
	cosmetics CosmeticProvider,
	announcer *Announcer,
	clock show.Clock,
	opts ShowOptions,
	log *slog.Logger,
) *ShowService {
	if clock == nil {
		clock = show.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.ProximityRadiusMeters <= 0 {
		opts.ProximityRadiusMeters = DefaultProximityRadius
	}
	if opts.DefaultShowDuration <= 0 {
		opts.DefaultShowDuration = DefaultShowDuration
	}
	if opts.AnnouncementSeconds <= 0 {
		opts.AnnouncementSeconds = show.DefaultAnnouncementSeconds
	}
	if announcer == nil {
		announcer = NewAnnouncer(clock, log)
	}
	return &ShowService{
		registry:    registry,
		identity:    identity,
		geo:         geo,
		cosmetics:   cosmetics,
		announcer:   announcer,
		clock:       clock,
		opts:        opts,
		log:         log,
		broadcaster: nopBroadcaster{},
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *ShowService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
	s.announcer.SetBroadcaster(b)
}

// CreateShow creates a new show owned by creatorID
func (s *ShowService) CreateShow(ctx context.Context, creatorID string, req model.CreateShowRequest) (*model.Show, error) {
	log := s.log.With(slog.String("op", "service.CreateShow"), slog.String("user_id", creatorID))

	// Verify creator exists
	if _, err := s.identity.ResolveUser(ctx, creatorID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, show.Errorf(show.ErrBadRequest, "name is required")
	}
	if req.StartTime.IsZero() {
		return nil, show.Errorf(show.ErrBadRequest, "startTime is required")
	}
	start := req.StartTime.UTC()
	end := start.Add(s.opts.DefaultShowDuration)
	if req.EndTime != nil {
		end = req.EndTime.UTC()
	}
	if !end.After(start) {
		return nil, show.Errorf(show.ErrBadRequest, "endTime must be after startTime")
	}

	var venue *model.Venue
	if req.VenueID != "" {
		v, err := s.geo.VenueCoordinates(ctx, req.VenueID)
		if err != nil {
			return nil, err
		}
		venue = v
	}

	var djName string
	if req.DJID != "" {
		dj, err := s.identity.ResolveUser(ctx, req.DJID)
		if err != nil {
			return nil, err
		}
		djName = displayName(dj)
	}

	sess := show.NewSession(show.Params{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Venue:       venue,
		StartTime:   start,
		EndTime:     end,
		DJID:        req.DJID,
		DJName:      djName,
		CreatedBy:   creatorID,
	}, s.clock, s.opts.ChatHistoryCap)
	s.registry.Add(sess)

	snap := sess.Snapshot()
	log.Info("show created", slog.String("show_id", snap.ID), slog.Bool("active", snap.IsActive))
	return &snap, nil
}

// ListActiveShows returns active shows ordered by start time
func (s *ShowService) ListActiveShows() []model.Show {
	sessions := s.registry.ListActive(s.clock.Now())
	out := make([]model.Show, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Snapshot())
	}
	return out
}

// GetShow returns a show by id
func (s *ShowService) GetShow(showID string) (*model.Show, error) {
	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	return &snap, nil
}

// Participants lists a show's participants by join time
func (s *ShowService) Participants(showID string) ([]model.Participant, error) {
	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	return sess.Participants(), nil
}

// FindNearby returns active shows within radius meters, nearest first. Shows
// whose distance cannot be computed are skipped.
func (s *ShowService) FindNearby(ctx context.Context, at model.Coordinates, radius float64) ([]model.NearbyShow, error) {
	log := s.log.With(slog.String("op", "service.FindNearby"))

	if err := validCoordinates(at); err != nil {
		return nil, err
	}
	if radius <= 0 {
		radius = s.opts.ProximityRadiusMeters
	}

	out := make([]model.NearbyShow, 0)
	for _, sess := range s.registry.ListActive(s.clock.Now()) {
		venue := sess.Venue()
		if venue == nil {
			continue
		}
		d, err := s.geo.Distance(at, venue.Coordinates())
		if err != nil {
			log.Warn("distance lookup failed, skipping show",
				slog.String("show_id", sess.ID()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if d > radius {
			continue
		}
		out = append(out, model.NearbyShow{Show: sess.Snapshot(), DistanceMeters: d, Venue: venue})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out, nil
}

// JoinShow admits userID into a show
func (s *ShowService) JoinShow(ctx context.Context, showID, userID string, opts JoinOptions) (*model.JoinShowResponse, error) {
	log := s.log.With(slog.String("op", "service.JoinShow"), slog.String("show_id", showID), slog.String("user_id", userID))

	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive(s.clock.Now()) {
		return nil, show.Errorf(show.ErrInvalidState, "show %s is not active", showID)
	}
	if err := s.checkProximity(log, sess, opts); err != nil {
		log.Debug("join rejected", slog.String("error", err.Error()))
		return nil, err
	}

	profile, err := s.identity.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	params := show.JoinParams{
		Profile:    *profile,
		Avatar:     s.lookupCosmetic(ctx, log, model.CosmeticAvatar, opts.AvatarID),
		Microphone: s.lookupCosmetic(ctx, log, model.CosmeticMicrophone, opts.MicID),
	}

	var res show.JoinResult
	err = sess.Do(func() error {
		var err error
		res, err = sess.Join(params)
		if err != nil {
			return err
		}

		others := except(userID)
		s.broadcaster.BroadcastToShow(showID, model.EventUserJoined, map[string]interface{}{
			"showId":      showID,
			"participant": res.Participant,
			"show":        res.Show,
			"rejoined":    res.Rejoined,
		}, others)
		if res.BecameDJ {
			s.broadcaster.BroadcastToShow(showID, model.EventDJChanged, map[string]interface{}{
				"showId": showID,
				"djId":   res.Show.DJID,
				"djName": res.Show.DJName,
			}, others)
		}
		if res.Enqueued != nil {
			s.broadcaster.BroadcastToShow(showID, model.EventSingerAdded, map[string]interface{}{
				"showId": showID,
				"entry":  res.Enqueued,
			}, others)
			s.broadcaster.BroadcastToShow(showID, model.EventQueueUpdated, res.Queue, others)
		}
		if res.Promoted {
			s.broadcastCurrentSinger(showID, res.Show.CurrentSingerID, "", res.Queue, others)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("user joined show",
		slog.String("role", string(res.Role())),
		slog.Bool("rejoined", res.Rejoined),
	)

	return &model.JoinShowResponse{
		Show:          res.Show,
		Role:          res.Role(),
		QueuePosition: res.QueuePosition(),
		Rejoined:      res.Rejoined,
	}, nil
}

// checkProximity gates admission on distance to the venue. A failing distance
// lookup lets the user in: availability wins over strict admission here.
func (s *ShowService) checkProximity(log *slog.Logger, sess *show.Session, opts JoinOptions) error {
	venue := sess.Venue()
	if venue == nil {
		return nil
	}
	if opts.Location == nil {
		if opts.BypassProximity {
			log.Debug("proximity check bypassed")
			return nil
		}
		return show.Errorf(show.ErrForbidden, "location is required to join this show")
	}

	d, err := s.geo.Distance(*opts.Location, venue.Coordinates())
	if err != nil {
		if errors.Is(err, show.ErrBadRequest) {
			return err
		}
		log.Warn("distance lookup failed, admitting user", slog.String("error", err.Error()))
		return nil
	}
	if d > s.opts.ProximityRadiusMeters {
		return show.Errorf(show.ErrForbidden, "you must be within %.0f meters of the venue to join (%.0f m away)", s.opts.ProximityRadiusMeters, d)
	}
	return nil
}

func (s *ShowService) lookupCosmetic(ctx context.Context, log *slog.Logger, kind model.CosmeticKind, id string) *model.Cosmetic {
	if id == "" {
		return nil
	}
	if s.cosmetics == nil {
		return &model.Cosmetic{ID: id, Kind: kind}
	}
	item, err := s.cosmetics.Lookup(ctx, kind, id)
	if err != nil {
		log.Warn("cosmetic lookup failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
		return &model.Cosmetic{ID: id, Kind: kind}
	}
	return item
}

// LeaveShow removes userID from a show. Leaving a show you are not in is a no-op.
func (s *ShowService) LeaveShow(ctx context.Context, showID, userID string) error {
	log := s.log.With(slog.String("op", "service.LeaveShow"), slog.String("show_id", showID), slog.String("user_id", userID))

	sess, err := s.session(showID)
	if err != nil {
		return err
	}
	return sess.Do(func() error {
		res := sess.Leave(userID)
		if !res.Left {
			return nil
		}
		log.Info("user left show", slog.Bool("was_dj", res.Participant.IsDJ()), slog.Int("remaining", res.Show.ParticipantCount))

		s.broadcaster.DetachUser(showID, userID)
		s.broadcaster.BroadcastToShow(showID, model.EventUserLeft, map[string]interface{}{
			"showId": showID,
			"userId": userID,
			"show":   res.Show,
		}, nil)
		if res.RemovedEntry != nil {
			s.broadcaster.BroadcastToShow(showID, model.EventSingerRemoved, map[string]interface{}{
				"showId": showID,
				"userId": userID,
			}, nil)
			s.broadcaster.BroadcastToShow(showID, model.EventQueueUpdated, res.Queue, nil)
		}
		if res.WasCurrentSinger {
			s.broadcastCurrentSinger(showID, "", userID, res.Queue, nil)
		}
		if res.NewDJ != nil {
			s.broadcastHandOff(log, showID, userID, res)
		}
		if res.SystemMessage != nil {
			s.broadcaster.BroadcastToShow(showID, model.EventChatMessage, res.SystemMessage, nil)
		}
		return nil
	})
}

// broadcastHandOff announces a new DJ. A successor who was queued leaves the
// rotation, and if they were singing the stage is now empty.
func (s *ShowService) broadcastHandOff(log *slog.Logger, showID, previousDJ string, res show.LeaveResult) {
	newDJ := res.NewDJ.UserID
	log.Info("dj handed off", slog.String("new_dj_id", newDJ), slog.Bool("was_queued", res.DisplacedEntry != nil))

	s.broadcaster.BroadcastToShow(showID, model.EventDJChanged, map[string]interface{}{
		"showId":     showID,
		"djId":       newDJ,
		"djName":     res.Show.DJName,
		"previousId": previousDJ,
	}, nil)
	if res.DisplacedEntry == nil {
		return
	}
	s.broadcaster.BroadcastToShow(showID, model.EventSingerRemoved, map[string]interface{}{
		"showId": showID,
		"userId": newDJ,
	}, nil)
	s.broadcaster.BroadcastToShow(showID, model.EventQueueUpdated, res.Queue, nil)
	if res.DisplacedWasCurrent {
		s.broadcastCurrentSinger(showID, "", newDJ, res.Queue, nil)
	}
}

// GetQueue returns a show's rotation
func (s *ShowService) GetQueue(showID string) (*model.QueueResponse, error) {
	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	q := sess.Queue()
	return &q, nil
}

// AddToQueue puts userID at the end of the rotation
func (s *ShowService) AddToQueue(ctx context.Context, showID, userID, songRequest string) (*model.QueueEntry, error) {
	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	var change show.QueueChange
	err = sess.Do(func() error {
		var err error
		change, err = sess.AddToQueue(userID, songRequest)
		if err != nil {
			return err
		}
		others := except(userID)
		s.broadcaster.BroadcastToShow(showID, model.EventSingerAdded, map[string]interface{}{
			"showId": showID,
			"entry":  change.Entry,
		}, others)
		s.broadcaster.BroadcastToShow(showID, model.EventQueueUpdated, change.Queue, others)
		if change.Promoted {
			s.broadcastCurrentSinger(showID, userID, "", change.Queue, others)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("singer queued", slog.String("show_id", showID), slog.String("user_id", userID), slog.Int("position", change.Entry.Position))
	return change.Entry, nil
}

// RemoveFromQueue takes targetID out of the rotation on behalf of actorID
func (s *ShowService) RemoveFromQueue(ctx context.Context, showID, actorID, targetID string) error {
	sess, err := s.session(showID)
	if err != nil {
		return err
	}
	err = sess.Do(func() error {
		change, err := sess.RemoveFromQueue(actorID, targetID)
		if err != nil {
			return err
		}
		others := except(actorID)
		s.broadcaster.BroadcastToShow(showID, model.EventSingerRemoved, map[string]interface{}{
			"showId":    showID,
			"userId":    targetID,
			"removedBy": actorID,
		}, others)
		s.broadcaster.BroadcastToShow(showID, model.EventQueueUpdated, change.Queue, others)
		if change.WasCurrent {
			s.broadcastCurrentSinger(showID, "", targetID, change.Queue, others)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug("singer removed", slog.String("show_id", showID), slog.String("user_id", targetID), slog.String("by", actorID))
	return nil
}

// ReorderQueue applies a DJ's new rotation order
func (s *ShowService) ReorderQueue(ctx context.Context, showID, djID string, userIDs []string) ([]model.QueueEntry, error) {
	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	var change show.QueueChange
	err = sess.Do(func() error {
		var err error
		change, err = sess.ReorderQueue(djID, userIDs)
		if err != nil {
			return err
		}
		others := except(djID)
		s.broadcaster.BroadcastToShow(showID, model.EventQueueReordered, map[string]interface{}{
			"showId": showID,
			"queue":  change.Queue.Queue,
		}, others)
		s.broadcaster.BroadcastToShow(showID, model.EventQueueUpdated, change.Queue, others)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change.Queue.Queue, nil
}

// SetCurrentSinger promotes a queued singer
func (s *ShowService) SetCurrentSinger(ctx context.Context, showID, djID, singerID string) error {
	sess, err := s.session(showID)
	if err != nil {
		return err
	}
	err = sess.Do(func() error {
		change, err := sess.SetCurrentSinger(djID, singerID)
		if err != nil {
			return err
		}
		s.broadcastCurrentSinger(showID, singerID, change.PreviousSingerID, change.Queue, except(djID))
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("current singer changed", slog.String("show_id", showID), slog.String("singer_id", singerID))
	return nil
}

// SetSongTiming records when a singer's song started and how long it runs
func (s *ShowService) SetSongTiming(ctx context.Context, showID, djID, singerID string, req model.SongTimingRequest) (*model.QueueEntry, error) {
	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	var change show.QueueChange
	err = sess.Do(func() error {
		var err error
		change, err = sess.SetSongTiming(djID, singerID, req.StartedAt, req.DurationSeconds)
		if err != nil {
			return err
		}
		s.broadcaster.BroadcastToShow(showID, model.EventQueueUpdated, change.Queue, except(djID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change.Entry, nil
}

// SendChat posts a chat message. Private DJ messages reach only the recipient;
// everything else fans out through the visibility rule.
func (s *ShowService) SendChat(ctx context.Context, showID, senderID string, req model.SendChatRequest) (*model.ChatMessage, error) {
	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	msgType := req.Type
	if msgType == "" {
		msgType = model.MessageSingerChat
	}
	var msg model.ChatMessage
	err = sess.Do(func() error {
		var err error
		msg, err = sess.SendChat(senderID, req.Message, msgType, req.RecipientID)
		if err != nil {
			return err
		}
		if msg.Type == model.MessageDJToSinger {
			s.broadcaster.SendToUser(showID, msg.RecipientID, model.EventChatMessage, msg)
		} else {
			s.broadcaster.BroadcastToShow(showID, model.EventChatMessage, msg, sess.ViewerFilter(msg))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendAnnouncement posts a DJ announcement and schedules its expiry
func (s *ShowService) SendAnnouncement(ctx context.Context, showID, djID string, req model.SendAnnouncementRequest) (*model.AnnouncementMessage, error) {
	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	duration := req.DisplayDuration
	if duration <= 0 {
		duration = s.opts.AnnouncementSeconds
	}
	var ann model.AnnouncementMessage
	err = sess.Do(func() error {
		var msg model.ChatMessage
		var err error
		ann, msg, err = sess.Announce(djID, req.Message, duration)
		if err != nil {
			return err
		}
		s.broadcaster.BroadcastToShow(showID, model.EventAnnouncement, ann, except(djID))
		s.broadcaster.BroadcastToShow(showID, model.EventChatMessage, msg, sess.ViewerFilter(msg))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !s.announcer.Schedule(ann) {
		s.log.Warn("announcer not running, expiry will not be sent", slog.String("show_id", showID))
	}
	return &ann, nil
}

// ActiveAnnouncements returns the show's unexpired announcements
func (s *ShowService) ActiveAnnouncements(showID string) ([]model.AnnouncementMessage, error) {
	if _, err := s.session(showID); err != nil {
		return nil, err
	}
	return s.announcer.Active(showID), nil
}

// ChatHistory returns the log as viewerID may see it, newest first
func (s *ShowService) ChatHistory(showID, viewerID string, limit, offset int) (*model.ChatHistory, error) {
	sess, err := s.session(showID)
	if err != nil {
		return nil, err
	}
	h := sess.History(viewerID, limit, offset)
	return &h, nil
}

// ShowStarted tells a show's room that its window opened
func (s *ShowService) ShowStarted(ctx context.Context, snap model.Show) {
	s.broadcaster.BroadcastToShow(snap.ID, model.EventShowStarted, snap, nil)
}

// ShowEnded tells the room a show is gone and closes it
func (s *ShowService) ShowEnded(ctx context.Context, snap model.Show, reason show.EndReason) {
	s.announcer.ClearShow(snap.ID)
	s.broadcaster.BroadcastToShow(snap.ID, model.EventShowEnded, map[string]interface{}{
		"showId": snap.ID,
		"reason": reason,
	}, nil)
	s.broadcaster.CloseShow(snap.ID)
}

func (s *ShowService) broadcastCurrentSinger(showID, singerID, previousID string, queue model.QueueResponse, filter func(string) bool) {
	s.broadcaster.BroadcastToShow(showID, model.EventCurrentSingerChanged, map[string]interface{}{
		"showId":           showID,
		"currentSingerId":  singerID,
		"previousSingerId": previousID,
		"currentSinger":    queue.CurrentSinger,
	}, filter)
}

func (s *ShowService) session(showID string) (*show.Session, error) {
	sess, ok := s.registry.Get(showID)
	if !ok {
		return nil, show.Errorf(show.ErrNotFound, "show %s not found", showID)
	}
	return sess, nil
}

func displayName(u *model.UserProfile) string {
	if u.StageName != "" {
		return u.StageName
	}
	return u.Name
}

var _ show.LifecycleHook = (*ShowService)(nil)

// String renders options for startup logs
func (o ShowOptions) String() string {
	return fmt.Sprintf("radius=%.0fm duration=%s chat_cap=%d announcement=%ds",
		o.ProximityRadiusMeters, o.DefaultShowDuration, o.ChatHistoryCap, o.AnnouncementSeconds)
}
