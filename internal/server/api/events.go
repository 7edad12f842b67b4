package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/wave/internal/gesture"
	"github.com/ayusman/wave/internal/store"
)

// DefaultEventLimit caps GET /api/events without a limit parameter.
const DefaultEventLimit = 100

// EventHandler serves the log of recognized gestures.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// ServeHTTP routes /api/events, /api/events/counts and /api/events/{id}.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := itemPath(r, "/api/events")

	switch {
	case id == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case id == "" && r.Method == http.MethodDelete:
		h.deleteAll(w, r)
	case id == "counts" && r.Method == http.MethodGet:
		h.counts(w, r)
	case id != "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type listEventsResponse struct {
	Events []*store.Event `json:"events"`
}

// list handles GET /api/events?gesture=&limit=.
func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	filter := store.EventFilter{Limit: DefaultEventLimit}

	q := r.URL.Query()
	if name := q.Get("gesture"); name != "" {
		g, ok := parseGesture(name)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown gesture")
			return
		}
		filter.Gesture = g
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		filter.Limit = n
	}

	events, err := h.store.Events().List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}

	writeJSON(w, http.StatusOK, listEventsResponse{Events: events})
}

// get handles GET /api/events/{id}.
func (h *EventHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	event, err := h.store.Events().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// counts handles GET /api/events/counts and returns the number of events per
// gesture. Every gesture is listed, including those never recognized.
func (h *EventHandler) counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Events().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	response := make(map[string]int, len(counts))
	for _, g := range gesture.Gestures() {
		response[g.String()] = counts[g]
	}

	writeJSON(w, http.StatusOK, response)
}

// deleteAll handles DELETE /api/events.
func (h *EventHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Events().DeleteAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
