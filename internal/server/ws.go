package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/wave/internal/app"
)

const (
	writeWait = 5 * time.Second
	// liveBuffer is the number of snapshots queued per client. Snapshots for a
	// client that falls behind are dropped.
	liveBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SnapshotFeed provides pipeline snapshots as they are published.
type SnapshotFeed interface {
	SnapshotSource
	Subscribe(fn func(app.Snapshot)) func()
}

// LiveHandler pushes pipeline snapshots to WebSocket clients.
type LiveHandler struct {
	feed SnapshotFeed
}

// NewLiveHandler creates a new LiveHandler for feed.
func NewLiveHandler(feed SnapshotFeed) *LiveHandler {
	return &LiveHandler{feed: feed}
}

// ServeHTTP upgrades the connection and sends the latest snapshot followed by
// every new one until the client disconnects.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	snapshots := make(chan app.Snapshot, liveBuffer)
	snapshots <- h.feed.Latest()
	unsubscribe := h.feed.Subscribe(func(s app.Snapshot) {
		select {
		case snapshots <- s:
		default:
		}
	})
	defer unsubscribe()

	// Reading detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case s := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(s); err != nil {
				return
			}
		}
	}
}
