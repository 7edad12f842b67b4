package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/wave/internal/app"
	"github.com/ayusman/wave/internal/capture"
)

// Stream defaults.
const (
	DefaultStreamFPS = 15
	DefaultMaxDist   = 600.0
)

// SnapshotSource provides the latest pipeline state.
type SnapshotSource interface {
	Latest() app.Snapshot
}

// StreamHandler serves the zone grid as an MJPEG heatmap.
type StreamHandler struct {
	source   SnapshotSource
	interval time.Duration
	maxDist  float64
}

// NewStreamHandler creates a new StreamHandler. fps and maxDist fall back to
// the defaults when <= 0.
func NewStreamHandler(source SnapshotSource, fps int, maxDist float64) *StreamHandler {
	if fps <= 0 {
		fps = DefaultStreamFPS
	}
	if maxDist <= 0 {
		maxDist = DefaultMaxDist
	}
	return &StreamHandler{
		source:   source,
		interval: time.Second / time.Duration(fps),
		maxDist:  maxDist,
	}
}

// ServeHTTP streams MJPEG frames to connected clients until they disconnect.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		snap := h.source.Latest()
		m := snap.Measurement()
		jpeg, err := capture.RenderHeatmap(&m, h.maxDist, capture.DefaultHeatmapScale)
		if err != nil {
			log.Printf("Failed to render heatmap: %v", err)
			return
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
