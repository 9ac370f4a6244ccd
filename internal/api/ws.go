package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/trackside/racectl/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	maxCmdSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same trust domain as the permissive CORS policy: a LAN dashboard.
	CheckOrigin: func(*http.Request) bool { return true },
}

// serveWS handles the bidirectional live connection: race events flow out,
// viewer commands (start/stop/reset) flow in. The session receives the full
// current state on connect.
func (h *Handlers) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws: upgrade failed", "err", err)
		return
	}

	id := uuid.New().String()
	ch := h.events.Subscribe(id)
	slog.Info("ws: viewer connected", "session", id)

	snap := h.engine.Snapshot()
	first := models.Event{Type: models.EventFullState, State: &snap}
	go writeLoop(conn, first, ch)

	h.readLoop(conn, id)

	// Unsubscribe closes the session channel, which ends the write loop.
	h.events.Unsubscribe(id)
	slog.Info("ws: viewer disconnected", "session", id)
}

// writeLoop drains the session channel to the socket. A write failure or a
// closed channel ends the session; other viewers are unaffected.
func writeLoop(conn *websocket.Conn, first models.Event, ch <-chan models.Event) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer conn.Close()

	if !writeEvent(conn, first) {
		return
	}
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			if !writeEvent(conn, ev) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev models.Event) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev) == nil
}

// readLoop consumes viewer commands until the connection drops. A command
// that is invalid for the current phase is a reported no-op.
func (h *Handlers) readLoop(conn *websocket.Conn, id string) {
	conn.SetReadLimit(maxCmdSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var appErr *models.AppError
		switch cmd := strings.TrimSpace(string(msg)); cmd {
		case "start":
			appErr = h.engine.Start()
		case "stop":
			appErr = h.engine.Stop()
		case "reset":
			appErr = h.engine.Reset()
		default:
			slog.Warn("ws: unknown command ignored", "session", id, "cmd", cmd)
			continue
		}
		if appErr != nil {
			slog.Info("ws: command ignored for current phase",
				"session", id, "reason", appErr.Message)
		}
	}
}
