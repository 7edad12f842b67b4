package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeForDistance(t *testing.T) {
	cfg := VolumeConfig{MinDist: 100, MaxDist: 300}

	tests := []struct {
		dist float64
		want int
	}{
		{dist: 50, want: 0},
		{dist: 100, want: 0},
		{dist: 200, want: 50},
		{dist: 250, want: 75},
		{dist: 300, want: 100},
		{dist: 900, want: 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, volumeForDistance(tt.dist, cfg), "dist %.0f", tt.dist)
	}
}

func TestHandle(t *testing.T) {
	var last string
	run := func(script string) error {
		last = script
		return nil
	}

	t.Run("media key", func(t *testing.T) {
		require.NoError(t, handle(Request{Action: "media-next"}, run))
		assert.Contains(t, last, "key code 101")
	})

	t.Run("volume from hand", func(t *testing.T) {
		req := Request{
			Action: "volume-set",
			Config: json.RawMessage(`{"min_dist":100,"max_dist":300}`),
			Hand:   &Hand{R: 200},
		}
		require.NoError(t, handle(req, run))
		assert.Equal(t, "set volume output volume 50", last)
	})

	t.Run("volume with default range", func(t *testing.T) {
		require.NoError(t, handle(Request{Action: "volume-set", Config: json.RawMessage(`{}`), Hand: &Hand{R: 400}}, run))
		assert.Equal(t, "set volume output volume 100", last)
	})

	t.Run("volume without hand", func(t *testing.T) {
		err := handle(Request{Action: "volume-set"}, run)
		assert.ErrorContains(t, err, "needs a hand position")
	})

	t.Run("bad range", func(t *testing.T) {
		req := Request{Action: "volume-set", Config: json.RawMessage(`{"min_dist":300,"max_dist":100}`), Hand: &Hand{R: 200}}
		assert.ErrorContains(t, handle(req, run), "must be above")
	})

	t.Run("unknown action", func(t *testing.T) {
		assert.ErrorContains(t, handle(Request{Action: "reboot"}, run), "unknown action")
	})
}
