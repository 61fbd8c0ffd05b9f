package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/constants"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// LiveMessage is pushed to live feed clients.
type LiveMessage struct {
	Event string         `json:"event"`
	Data  AttendanceView `json:"data"`
}

// LiveHub fans attendance-marked events out to WebSocket clients.
type LiveHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[chan LiveMessage]struct{}
}

// NewLiveHub creates a hub. checkOrigin may be nil to accept same-origin requests only.
func NewLiveHub(checkOrigin func(r *http.Request) bool) *LiveHub {
	return &LiveHub{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		clients:  make(map[chan LiveMessage]struct{}),
	}
}

// Broadcast sends a record to every connected client. Slow clients miss events.
// It has the attendance.MarkedFunc signature.
func (h *LiveHub) Broadcast(rec attendance.Record) {
	msg := LiveMessage{Event: "ATTENDANCE_MARKED", Data: newAttendanceView(rec)}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *LiveHub) register() chan LiveMessage {
	ch := make(chan LiveMessage, constants.LiveClientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *LiveHub) unregister(ch chan LiveMessage) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// ServeWS upgrades the connection and streams events until the client goes away.
func (h *LiveHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("live feed upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := h.register()
	defer h.unregister(ch)

	// The reader only handles control frames and notices disconnects.
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg := <-ch:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
