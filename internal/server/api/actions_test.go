package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/wave/internal/gesture"
	"github.com/ayusman/wave/internal/plugin"
	"github.com/ayusman/wave/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "wave-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// serve runs one request against h and returns the recorder.
func serve(h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// fakePlugins is a PluginLookup over a fixed set of plugins.
type fakePlugins map[string]*plugin.Plugin

func (f fakePlugins) Get(name string) (*plugin.Plugin, error) {
	p, ok := f[name]
	if !ok {
		return nil, plugin.ErrPluginNotFound
	}
	return p, nil
}

func TestActionHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)

	rec := serve(handler, http.MethodPost, "/api/actions", map[string]any{
		"gesture":     "swipe-left",
		"plugin_name": "keyboard",
		"action_name": "press",
		"config":      map[string]string{"key": "left"},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var created store.Action
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, gesture.SwipeLeft, created.Gesture)
	assert.True(t, created.Enabled)
	assert.JSONEq(t, `{"key":"left"}`, string(created.Config))

	stored, err := s.Actions().GetByGesture(gesture.SwipeLeft)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, created.ID, stored.ID)
}

func TestActionHandler_Create_Validation(t *testing.T) {
	s := newTestStore(t)
	plugins := fakePlugins{
		"keyboard": {Manifest: plugin.Manifest{Name: "keyboard", Actions: []string{"press"}}},
	}
	handler := NewActionHandler(s, plugins)

	require.NoError(t, s.Actions().Create(&store.Action{
		Gesture: gesture.SwipeUp, PluginName: "keyboard", ActionName: "press", Enabled: true,
	}))

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "invalid json", body: `{"gesture":`, want: http.StatusBadRequest},
		{name: "unknown gesture", body: map[string]string{"gesture": "wave", "plugin_name": "keyboard", "action_name": "press"}, want: http.StatusBadRequest},
		{name: "none is not bindable", body: map[string]string{"gesture": "none", "plugin_name": "keyboard", "action_name": "press"}, want: http.StatusBadRequest},
		{name: "missing plugin", body: map[string]string{"gesture": "swipe-left", "action_name": "press"}, want: http.StatusBadRequest},
		{name: "missing action", body: map[string]string{"gesture": "swipe-left", "plugin_name": "keyboard"}, want: http.StatusBadRequest},
		{name: "unknown plugin", body: map[string]string{"gesture": "swipe-left", "plugin_name": "mouse", "action_name": "press"}, want: http.StatusBadRequest},
		{name: "unsupported action", body: map[string]string{"gesture": "swipe-left", "plugin_name": "keyboard", "action_name": "scroll"}, want: http.StatusBadRequest},
		{name: "already bound", body: map[string]string{"gesture": "swipe-up", "plugin_name": "keyboard", "action_name": "press"}, want: http.StatusConflict},
		{name: "valid", body: map[string]string{"gesture": "swipe-left", "plugin_name": "keyboard", "action_name": "press"}, want: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, http.MethodPost, "/api/actions", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestActionHandler_ListGetUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)

	t.Run("empty list", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/actions", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"actions":[]}`, rec.Body.String())
	})

	action := &store.Action{
		Gesture:    gesture.StaticHold,
		PluginName: "system-control",
		ActionName: "mute",
		Enabled:    true,
	}
	require.NoError(t, s.Actions().Create(action))

	t.Run("list", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/actions", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var response listActionsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Len(t, response.Actions, 1)
		assert.Equal(t, action.ID, response.Actions[0].ID)
		assert.Equal(t, gesture.StaticHold, response.Actions[0].Gesture)
	})

	t.Run("get", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/actions/"+action.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"gesture":"static-hold"`)

		rec = serve(handler, http.MethodGet, "/api/actions/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := serve(handler, http.MethodPut, "/api/actions/"+action.ID, map[string]any{
			"gesture": "swipe-down",
			"enabled": false,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		updated, err := s.Actions().GetByID(action.ID)
		require.NoError(t, err)
		assert.Equal(t, gesture.SwipeDown, updated.Gesture)
		assert.False(t, updated.Enabled)
		assert.Equal(t, "mute", updated.ActionName)

		rec = serve(handler, http.MethodPut, "/api/actions/"+action.ID, map[string]any{"gesture": "wave"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = serve(handler, http.MethodPut, "/api/actions/missing", map[string]any{"enabled": true})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := serve(handler, http.MethodDelete, "/api/actions/"+action.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, err := s.Actions().GetByID(action.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound))

		rec = serve(handler, http.MethodDelete, "/api/actions/"+action.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := serve(handler, http.MethodPatch, "/api/actions", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestActionHandler_Update_Conflict(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)

	left := &store.Action{Gesture: gesture.SwipeLeft, PluginName: "keyboard", ActionName: "press"}
	right := &store.Action{Gesture: gesture.SwipeRight, PluginName: "keyboard", ActionName: "press"}
	require.NoError(t, s.Actions().Create(left))
	require.NoError(t, s.Actions().Create(right))

	rec := serve(handler, http.MethodPut, "/api/actions/"+left.ID, map[string]string{"gesture": "swipe-right"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(handler, http.MethodPut, "/api/actions/"+left.ID, map[string]string{"gesture": "swipe-left"})
	assert.Equal(t, http.StatusOK, rec.Code, "rebinding to the same gesture is not a conflict")
}
