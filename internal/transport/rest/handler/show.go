package handler

import (
	"encoding/json"
	"errors"
	"io"
	"livekaraoke/internal/model"
	"livekaraoke/internal/service"
	"livekaraoke/internal/transport/rest/middleware"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ShowHandler handles live show endpoints
type ShowHandler struct {
	showSvc     *service.ShowService
	allowBypass bool
}

// NewShowHandler creates a new show handler. allowBypass admits joins that
// carry no location.
func NewShowHandler(showSvc *service.ShowService, allowBypass bool) *ShowHandler {
	return &ShowHandler{showSvc: showSvc, allowBypass: allowBypass}
}

type reorderRequest struct {
	UserIDs []string `json:"userIds"`
}

type currentSingerRequest struct {
	SingerID string `json:"singerId"`
}

type addToQueueRequest struct {
	SongRequest string `json:"songRequest,omitempty"`
}

// Create handles POST /v1/shows
func (h *ShowHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.CreateShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.showSvc.CreateShow(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /v1/shows
func (h *ShowHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.showSvc.ListActiveShows())
}

// Nearby handles GET /v1/shows/nearby?lat=&lng=&radius=
func (h *ShowHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat must be a number")
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lng must be a number")
		return
	}
	var radius float64
	if raw := q.Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "radius must be a number")
			return
		}
	}

	shows, err := h.showSvc.FindNearby(r.Context(), model.Coordinates{Lat: lat, Lng: lng}, radius)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, shows)
}

// Get handles GET /v1/shows/{id}
func (h *ShowHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.showSvc.GetShow(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Participants handles GET /v1/shows/{id}/participants
func (h *ShowHandler) Participants(w http.ResponseWriter, r *http.Request) {
	ps, err := h.showSvc.Participants(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// Join handles POST /v1/shows/{id}/join
func (h *ShowHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.JoinShowRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := service.JoinOptions{AvatarID: req.AvatarID, MicID: req.MicID}
	switch {
	case req.Lat != nil && req.Lng != nil:
		opts.Location = &model.Coordinates{Lat: *req.Lat, Lng: *req.Lng}
	case req.Lat != nil || req.Lng != nil:
		writeError(w, http.StatusBadRequest, "lat and lng must be sent together")
		return
	default:
		opts.BypassProximity = h.allowBypass
	}

	resp, err := h.showSvc.JoinShow(r.Context(), mux.Vars(r)["id"], userID, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Leave handles POST /v1/shows/{id}/leave
func (h *ShowHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	showID := mux.Vars(r)["id"]

	if err := h.showSvc.LeaveShow(r.Context(), showID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "left", "showId": showID})
}

// Queue handles GET /v1/shows/{id}/queue
func (h *ShowHandler) Queue(w http.ResponseWriter, r *http.Request) {
	q, err := h.showSvc.GetQueue(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// AddToQueue handles POST /v1/shows/{id}/queue
func (h *ShowHandler) AddToQueue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req addToQueueRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.showSvc.AddToQueue(r.Context(), mux.Vars(r)["id"], userID, req.SongRequest)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// RemoveFromQueue handles DELETE /v1/shows/{id}/queue/{userId}
func (h *ShowHandler) RemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	vars := mux.Vars(r)

	if err := h.showSvc.RemoveFromQueue(r.Context(), vars["id"], actorID, vars["userId"]); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderQueue handles PUT /v1/shows/{id}/queue/order
func (h *ShowHandler) ReorderQueue(w http.ResponseWriter, r *http.Request) {
	djID := middleware.GetUserID(r.Context())

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	queue, err := h.showSvc.ReorderQueue(r.Context(), mux.Vars(r)["id"], djID, req.UserIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queue)
}

// SetCurrentSinger handles PUT /v1/shows/{id}/queue/current
func (h *ShowHandler) SetCurrentSinger(w http.ResponseWriter, r *http.Request) {
	djID := middleware.GetUserID(r.Context())
	showID := mux.Vars(r)["id"]

	var req currentSingerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.showSvc.SetCurrentSinger(r.Context(), showID, djID, req.SingerID); err != nil {
		writeServiceError(w, err)
		return
	}

	q, err := h.showSvc.GetQueue(showID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// SetSongTiming handles PUT /v1/shows/{id}/queue/{userId}/song
func (h *ShowHandler) SetSongTiming(w http.ResponseWriter, r *http.Request) {
	djID := middleware.GetUserID(r.Context())
	vars := mux.Vars(r)

	var req model.SongTimingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.showSvc.SetSongTiming(r.Context(), vars["id"], djID, vars["userId"], req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// SendChat handles POST /v1/shows/{id}/chat
func (h *ShowHandler) SendChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.SendChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.showSvc.SendChat(r.Context(), mux.Vars(r)["id"], userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// ChatHistory handles GET /v1/shows/{id}/chat?limit=&offset=
func (h *ShowHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit, offset := 0, 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil {
			writeError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		offset = n
	}

	history, err := h.showSvc.ChatHistory(mux.Vars(r)["id"], userID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// SendAnnouncement handles POST /v1/shows/{id}/announcements
func (h *ShowHandler) SendAnnouncement(w http.ResponseWriter, r *http.Request) {
	djID := middleware.GetUserID(r.Context())

	var req model.SendAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ann, err := h.showSvc.SendAnnouncement(r.Context(), mux.Vars(r)["id"], djID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ann)
}

// Announcements handles GET /v1/shows/{id}/announcements
func (h *ShowHandler) Announcements(w http.ResponseWriter, r *http.Request) {
	anns, err := h.showSvc.ActiveAnnouncements(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, anns)
}

// decodeOptional decodes a JSON body that may be absent. An empty body, sent
// with or without a length, leaves v untouched.
func decodeOptional(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
