// Package broadcast pushes transcript snapshots to websocket viewers.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

const (
	writeTimeout = 10 * time.Second
	sendBuffer   = 8
)

// Snapshot is one message sent to viewers.
type Snapshot struct {
	ConversationID string             `json:"conversationId,omitempty"`
	Sequence       uint64             `json:"sequence"`
	Entries        []transcript.Entry `json:"entries"`
}

// Hub is an http.Handler serving the websocket endpoint. Every viewer
// gets the latest snapshot on connect and each later one. A slow viewer
// skips intermediate snapshots rather than holding up the publisher.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	seq     uint64
	latest  []byte
	viewers map[*viewer]struct{}
	closed  bool
}

type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns an empty hub. A nil logger means slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		viewers: make(map[*viewer]struct{}),
	}
}

// Publish sends entries to every viewer. The slice must not be modified
// afterwards, which holds for reducer snapshots.
func (h *Hub) Publish(conversationID string, entries []transcript.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	h.seq++
	if entries == nil {
		entries = []transcript.Entry{}
	}
	msg, err := json.Marshal(Snapshot{ConversationID: conversationID, Sequence: h.seq, Entries: entries})
	if err != nil {
		h.logger.Error("marshal snapshot", "err", err)
		return
	}
	h.latest = msg

	for v := range h.viewers {
		offer(v.send, msg)
	}
}

// offer queues msg, discarding the oldest queued snapshot when full.
func offer(ch chan []byte, msg []byte) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// ServeHTTP upgrades the request and streams snapshots until the viewer
// disconnects or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", "err", err, "remote", r.RemoteAddr)
		return
	}

	v := &viewer{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.viewers[v] = struct{}{}
	if h.latest != nil {
		v.send <- h.latest
	}
	h.mu.Unlock()
	h.logger.Debug("viewer connected", "remote", r.RemoteAddr)

	go h.write(v)
	h.read(v)
}

// read discards client messages and unregisters the viewer on close.
func (h *Hub) read(v *viewer) {
	defer h.remove(v)
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("viewer read", "err", err)
			}
			return
		}
	}
}

func (h *Hub) write(v *viewer) {
	defer v.conn.Close()
	for msg := range v.send {
		v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("viewer write", "err", err)
			return
		}
	}
	v.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[v]; ok {
		delete(h.viewers, v)
		close(v.send)
	}
}

// Close disconnects all viewers and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for v := range h.viewers {
		delete(h.viewers, v)
		close(v.send)
	}
}
