package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
	"github.com/ayusman/wave/internal/store"
)

func createEvents(t *testing.T, s *store.Store, gestures ...gesture.Gesture) []*store.Event {
	t.Helper()

	events := make([]*store.Event, 0, len(gestures))
	for i, g := range gestures {
		e := &store.Event{
			Gesture: g,
			Hand:    detector.HandFoundAt(detector.Spherical{R: 200, Phi: 1.5}),
			TimeMs:  uint32(i+1) * 1000,
		}
		require.NoError(t, s.Events().Create(e))
		events = append(events, e)
	}
	return events
}

func TestEventHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)
	createEvents(t, s, gesture.SwipeLeft, gesture.SwipeRight, gesture.SwipeLeft)

	tests := []struct {
		name   string
		target string
		want   int
		code   int
	}{
		{name: "all", target: "/api/events", want: 3, code: http.StatusOK},
		{name: "by gesture", target: "/api/events?gesture=swipe-left", want: 2, code: http.StatusOK},
		{name: "limit", target: "/api/events?limit=1", want: 1, code: http.StatusOK},
		{name: "unknown gesture", target: "/api/events?gesture=wave", code: http.StatusBadRequest},
		{name: "bad limit", target: "/api/events?limit=abc", code: http.StatusBadRequest},
		{name: "zero limit", target: "/api/events?limit=0", code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, http.MethodGet, tt.target, nil)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				return
			}

			var response listEventsResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
			assert.Len(t, response.Events, tt.want)
		})
	}
}

func TestEventHandler_Empty(t *testing.T) {
	handler := NewEventHandler(newTestStore(t))

	rec := serve(handler, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestEventHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)
	events := createEvents(t, s, gesture.StaticHold)

	rec := serve(handler, http.MethodGet, "/api/events/"+events[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.Event
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, gesture.StaticHold, got.Gesture)
	assert.True(t, got.Hand.Found)
	assert.Equal(t, uint32(1000), got.TimeMs)

	rec = serve(handler, http.MethodGet, "/api/events/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventHandler_Counts(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)
	createEvents(t, s, gesture.SwipeUp, gesture.SwipeUp, gesture.StaticHold)

	rec := serve(handler, http.MethodGet, "/api/events/counts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var counts map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&counts))
	assert.Equal(t, map[string]int{
		"static-hold": 1,
		"swipe-right": 0,
		"swipe-left":  0,
		"swipe-up":    2,
		"swipe-down":  0,
	}, counts)
}

func TestEventHandler_DeleteAll(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)
	createEvents(t, s, gesture.SwipeUp, gesture.SwipeDown)

	rec := serve(handler, http.MethodDelete, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())

	events, err := s.Events().List(store.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)

	rec = serve(handler, http.MethodPost, "/api/events", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
