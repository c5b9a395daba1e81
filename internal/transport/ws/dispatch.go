package ws

import (
	"context"
	"encoding/json"
	"errors"
	"livekaraoke/internal/model"
	"livekaraoke/internal/service"
	"livekaraoke/internal/show"
	"log/slog"
	"time"
)

// Inbound message types
const (
	MsgAuthenticate     = "authenticate"
	MsgJoinShow         = "join-show"
	MsgLeaveShow        = "leave-show"
	MsgGetQueue         = "get-queue"
	MsgAddToQueue       = "add-to-queue"
	MsgRemoveFromQueue  = "remove-from-queue"
	MsgReorderQueue     = "reorder-queue"
	MsgSetCurrentSinger = "set-current-singer"
	MsgSetSongTiming    = "set-song-timing"
	MsgSendChat         = "send-chat"
	MsgSendAnnouncement = "send-announcement"
	MsgGetChatHistory   = "get-chat-history"
	MsgPing             = "ping"
)

// Error codes sent in error envelopes
const (
	CodeNotFound     = "not_found"
	CodeInvalidState = "invalid_state"
	CodeForbidden    = "forbidden"
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeInternal     = "internal"
)

// ErrorPayload is the body of an error envelope
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type authenticatePayload struct {
	Token string `json:"token"`
}

type joinPayload struct {
	ShowID   string   `json:"showId"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	AvatarID string   `json:"avatarId,omitempty"`
	MicID    string   `json:"micId,omitempty"`
}

type addToQueuePayload struct {
	SongRequest string `json:"songRequest,omitempty"`
}

type userPayload struct {
	UserID string `json:"userId"`
}

type reorderPayload struct {
	UserIDs []string `json:"userIds"`
}

type singerPayload struct {
	SingerID string `json:"singerId"`
}

type songTimingPayload struct {
	SingerID        string     `json:"singerId"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`
}

type historyPayload struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// clientError is a failure caused by the message itself
type clientError struct {
	code    string
	message string
}

func (e *clientError) Error() string {
	return e.message
}

var (
	errNotAuthenticated = &clientError{code: CodeUnauthorized, message: "authenticate first"}
	errNotInShow        = &clientError{code: CodeInvalidState, message: "join a show first"}
)

func badPayload(err error) error {
	return &clientError{code: CodeBadRequest, message: "invalid payload: " + err.Error()}
}

// handleMessage decodes one inbound envelope, runs it and replies to the sender
func (h *Handler) handleMessage(ctx context.Context, conn *Connection, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.replyError(conn, &env, &clientError{code: CodeBadRequest, message: "malformed message"})
		return
	}

	result, err := h.dispatch(ctx, conn, &env)
	if err != nil {
		h.replyError(conn, &env, err)
		return
	}

	replyType := env.Type + "-result"
	if env.Type == MsgPing {
		replyType = string(model.EventPong)
	}
	payload, _ := json.Marshal(result)
	conn.reply(&Envelope{
		Type:      replyType,
		RequestID: env.RequestID,
		ShowID:    conn.ShowID(),
		Payload:   payload,
	})
}

func (h *Handler) dispatch(ctx context.Context, conn *Connection, env *Envelope) (interface{}, error) {
	switch env.Type {
	case MsgPing:
		return map[string]interface{}{"time": time.Now().UTC()}, nil
	case MsgAuthenticate:
		return h.authenticate(conn, env)
	}

	userID := conn.UserID()
	if userID == "" {
		return nil, errNotAuthenticated
	}

	if env.Type == MsgJoinShow {
		return h.joinShow(ctx, conn, userID, env)
	}

	showID := conn.ShowID()
	if showID == "" {
		if env.Type == MsgLeaveShow {
			return map[string]bool{"left": false}, nil
		}
		if !isKnown(env.Type) {
			return nil, &clientError{code: CodeBadRequest, message: "unknown message type " + env.Type}
		}
		return nil, errNotInShow
	}

	switch env.Type {
	case MsgLeaveShow:
		if err := h.showSvc.LeaveShow(ctx, showID, userID); err != nil {
			return nil, err
		}
		h.hub.LeaveRoom(conn, showID)
		return map[string]interface{}{"left": true, "showId": showID}, nil

	case MsgGetQueue:
		return h.showSvc.GetQueue(showID)

	case MsgAddToQueue:
		var p addToQueuePayload
		if err := decode(env.Payload, &p); err != nil {
			return nil, err
		}
		return h.showSvc.AddToQueue(ctx, showID, userID, p.SongRequest)

	case MsgRemoveFromQueue:
		var p userPayload
		if err := decode(env.Payload, &p); err != nil {
			return nil, err
		}
		target := p.UserID
		if target == "" {
			target = userID
		}
		if err := h.showSvc.RemoveFromQueue(ctx, showID, userID, target); err != nil {
			return nil, err
		}
		return userPayload{UserID: target}, nil

	case MsgReorderQueue:
		var p reorderPayload
		if err := decode(env.Payload, &p); err != nil {
			return nil, err
		}
		return h.showSvc.ReorderQueue(ctx, showID, userID, p.UserIDs)

	case MsgSetCurrentSinger:
		var p singerPayload
		if err := decode(env.Payload, &p); err != nil {
			return nil, err
		}
		if err := h.showSvc.SetCurrentSinger(ctx, showID, userID, p.SingerID); err != nil {
			return nil, err
		}
		return p, nil

	case MsgSetSongTiming:
		var p songTimingPayload
		if err := decode(env.Payload, &p); err != nil {
			return nil, err
		}
		return h.showSvc.SetSongTiming(ctx, showID, userID, p.SingerID, model.SongTimingRequest{
			StartedAt:       p.StartedAt,
			DurationSeconds: p.DurationSeconds,
		})

	case MsgSendChat:
		var p model.SendChatRequest
		if err := decode(env.Payload, &p); err != nil {
			return nil, err
		}
		return h.showSvc.SendChat(ctx, showID, userID, p)

	case MsgSendAnnouncement:
		var p model.SendAnnouncementRequest
		if err := decode(env.Payload, &p); err != nil {
			return nil, err
		}
		return h.showSvc.SendAnnouncement(ctx, showID, userID, p)

	case MsgGetChatHistory:
		var p historyPayload
		if err := decode(env.Payload, &p); err != nil {
			return nil, err
		}
		return h.showSvc.ChatHistory(showID, userID, p.Limit, p.Offset)
	}

	return nil, &clientError{code: CodeBadRequest, message: "unknown message type " + env.Type}
}

func (h *Handler) authenticate(conn *Connection, env *Envelope) (interface{}, error) {
	var p authenticatePayload
	if err := decode(env.Payload, &p); err != nil {
		return nil, err
	}
	claims, err := h.authSvc.ValidateUserToken(p.Token)
	if err != nil {
		return nil, &clientError{code: CodeUnauthorized, message: err.Error()}
	}
	if !conn.Authenticate(claims.UserID) {
		return nil, &clientError{code: CodeInvalidState, message: "leave the show before switching users"}
	}
	return map[string]string{"userId": claims.UserID}, nil
}

// joinShow admits the connection's user. Joining a second show leaves the first.
func (h *Handler) joinShow(ctx context.Context, conn *Connection, userID string, env *Envelope) (interface{}, error) {
	var p joinPayload
	if err := decode(env.Payload, &p); err != nil {
		return nil, err
	}
	showID := p.ShowID
	if showID == "" {
		showID = env.ShowID
	}
	if showID == "" {
		return nil, &clientError{code: CodeBadRequest, message: "showId is required"}
	}

	opts := service.JoinOptions{AvatarID: p.AvatarID, MicID: p.MicID}
	switch {
	case p.Lat != nil && p.Lng != nil:
		opts.Location = &model.Coordinates{Lat: *p.Lat, Lng: *p.Lng}
	case p.Lat != nil || p.Lng != nil:
		return nil, &clientError{code: CodeBadRequest, message: "lat and lng must be sent together"}
	default:
		opts.BypassProximity = h.allowBypass
	}

	res, err := h.showSvc.JoinShow(ctx, showID, userID, opts)
	if err != nil {
		return nil, err
	}

	if prev := conn.ShowID(); prev != "" && prev != showID {
		h.hub.LeaveRoom(conn, prev)
		if !h.hub.HasUser(prev, userID) {
			if err := h.showSvc.LeaveShow(ctx, prev, userID); err != nil && !errors.Is(err, show.ErrNotFound) {
				h.log.Warn("leaving previous show failed",
					slog.String("show_id", prev),
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	h.hub.JoinRoom(conn, showID)
	return res, nil
}

func (h *Handler) replyError(conn *Connection, env *Envelope, err error) {
	payload := ErrorPayload{Code: errorCode(err), Message: err.Error()}
	if payload.Code == CodeInternal {
		h.log.Error("websocket action failed",
			slog.String("type", env.Type),
			slog.String("user_id", conn.UserID()),
			slog.String("error", err.Error()),
		)
		payload.Message = "internal error"
	}
	data, _ := json.Marshal(payload)
	conn.reply(&Envelope{
		Type:      string(model.EventError),
		RequestID: env.RequestID,
		ShowID:    conn.ShowID(),
		Payload:   data,
	})
}

func errorCode(err error) string {
	var ce *clientError
	if errors.As(err, &ce) {
		return ce.code
	}
	switch show.KindOf(err) {
	case show.ErrNotFound:
		return CodeNotFound
	case show.ErrInvalidState:
		return CodeInvalidState
	case show.ErrForbidden:
		return CodeForbidden
	case show.ErrBadRequest:
		return CodeBadRequest
	}
	if errors.Is(err, service.ErrInvalidToken) {
		return CodeUnauthorized
	}
	return CodeInternal
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return badPayload(err)
	}
	return nil
}

func isKnown(msgType string) bool {
	switch msgType {
	case MsgLeaveShow, MsgGetQueue, MsgAddToQueue, MsgRemoveFromQueue, MsgReorderQueue,
		MsgSetCurrentSinger, MsgSetSongTiming, MsgSendChat, MsgSendAnnouncement, MsgGetChatHistory:
		return true
	}
	return false
}
