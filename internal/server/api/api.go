// Package api provides the HTTP API handlers of the wave server.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/wave/internal/gesture"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// itemPath returns the part of the URL path after prefix, without slashes.
// It is empty for collection requests.
func itemPath(r *http.Request, prefix string) string {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	return strings.Trim(path, "/")
}

// parseGesture parses a gesture name sent by a client. None is not a gesture
// that can be bound or filtered on.
func parseGesture(name string) (gesture.Gesture, bool) {
	g, err := gesture.ParseGesture(name)
	if err != nil || g == gesture.None {
		return gesture.None, false
	}
	return g, true
}
