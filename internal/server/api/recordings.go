package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/store"
)

// RecordingHandler serves stored sensor recordings.
type RecordingHandler struct {
	store *store.Store
}

// NewRecordingHandler creates a new RecordingHandler with the given store.
func NewRecordingHandler(s *store.Store) *RecordingHandler {
	return &RecordingHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/recordings, /api/recordings/{id} and
// /api/recordings/{id}/frames
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := itemPath(r, "/api/recordings")
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, rest, _ := strings.Cut(path, "/")
	switch {
	case rest == "frames" && r.Method == http.MethodGet:
		h.frames(w, r, id)
	case rest != "":
		writeError(w, http.StatusNotFound, "Not found")
	case r.Method == http.MethodGet:
		h.get(w, r, id)
	case r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createRecordingRequest struct {
	Name         string                       `json:"name"`
	Measurements []detector.SensorMeasurement `json:"measurements"`
}

type listRecordingsResponse struct {
	Recordings []*store.Recording `json:"recordings"`
}

type framesResponse struct {
	Frames []detector.SensorMeasurement `json:"frames"`
}

// list handles GET /api/recordings.
func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recordings, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}
	if recordings == nil {
		recordings = []*store.Recording{}
	}

	writeJSON(w, http.StatusOK, listRecordingsResponse{Recordings: recordings})
}

// create handles POST /api/recordings.
func (h *RecordingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Measurements) == 0 {
		writeError(w, http.StatusBadRequest, "At least one measurement is required")
		return
	}

	rec := &store.Recording{Name: req.Name}
	if err := h.store.Recordings().Create(rec, req.Measurements); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create recording")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// get handles GET /api/recordings/{id}.
func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// frames handles GET /api/recordings/{id}/frames.
func (h *RecordingHandler) frames(w http.ResponseWriter, r *http.Request, id string) {
	frames, err := h.store.Recordings().Frames(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get frames")
		return
	}

	writeJSON(w, http.StatusOK, framesResponse{Frames: frames})
}

// delete handles DELETE /api/recordings/{id}.
func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Recordings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
