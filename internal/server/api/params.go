package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
	"github.com/ayusman/wave/internal/store"
)

// ParamsController reads and replaces the parameters of a running recognizer.
type ParamsController interface {
	Params() (gesture.Params, detector.SensorParams)
	SetParams(params gesture.Params, sensorParams detector.SensorParams)
}

// ParamsHandler serves GET and PUT /api/params.
type ParamsHandler struct {
	store      *store.Store
	controller ParamsController
}

// NewParamsHandler creates a new ParamsHandler. Updated parameters are saved
// to s when it is not nil.
func NewParamsHandler(s *store.Store, c ParamsController) *ParamsHandler {
	return &ParamsHandler{store: s, controller: c}
}

type paramsBody struct {
	Recognizer gesture.Params        `json:"recognizer"`
	Sensor     detector.SensorParams `json:"sensor"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ParamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		params, sensor := h.controller.Params()
		writeJSON(w, http.StatusOK, paramsBody{Recognizer: params, Sensor: sensor})
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update replaces the parameters. Fields missing from the body keep their
// current values.
func (h *ParamsHandler) update(w http.ResponseWriter, r *http.Request) {
	var body paramsBody
	body.Recognizer, body.Sensor = h.controller.Params()

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := body.Recognizer.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := body.Sensor.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		if err := h.store.Settings().SaveParams(body.Recognizer, body.Sensor); err != nil {
			log.Printf("Failed to save parameters: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to save parameters")
			return
		}
	}
	h.controller.SetParams(body.Recognizer, body.Sensor)

	writeJSON(w, http.StatusOK, body)
}
