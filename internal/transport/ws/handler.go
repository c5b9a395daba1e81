package ws

import (
	"context"
	"livekaraoke/internal/service"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub         *Hub
	authSvc     *service.AuthService
	showSvc     *service.ShowService
	allowBypass bool
	log         *slog.Logger
}

// NewHandler creates a new WebSocket handler. allowBypass admits joins that
// carry no location.
func NewHandler(hub *Hub, authSvc *service.AuthService, showSvc *service.ShowService, allowBypass bool, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		hub:         hub,
		authSvc:     authSvc,
		showSvc:     showSvc,
		allowBypass: allowBypass,
		log:         log,
	}
}

// ServeWS handles GET /v1/ws. A token query parameter authenticates the
// connection up front; without one the client must send authenticate first.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn := NewConnection()

	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := h.authSvc.ValidateUserToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		conn.Authenticate(claims.UserID)
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.hub.Register(conn)
	h.log.Debug("websocket connected",
		slog.String("conn_id", conn.ID),
		slog.String("user_id", conn.UserID()),
	)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.cleanup(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read failed", slog.String("conn_id", conn.ID), slog.String("error", err.Error()))
			}
			break
		}
		h.handleMessage(context.Background(), conn, data)
	}
}

// cleanup treats a dropped connection as leaving its show, unless the same
// user is still in the room on another connection
func (h *Handler) cleanup(conn *Connection) {
	showID, userID := conn.disconnect()
	h.hub.Unregister(conn)

	if showID == "" || userID == "" || h.hub.HasUser(showID, userID) {
		return
	}
	if err := h.showSvc.LeaveShow(context.Background(), showID, userID); err != nil {
		h.log.Debug("leave on disconnect failed",
			slog.String("show_id", showID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	h.log.Info("user left on disconnect", slog.String("show_id", showID), slog.String("user_id", userID))
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
