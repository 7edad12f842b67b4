package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/wave/internal/capture"
	"github.com/ayusman/wave/internal/config"
	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
	"github.com/ayusman/wave/internal/grid"
	"github.com/ayusman/wave/internal/store"
)

// swipeRight returns a timed right swipe after a warm-up of empty frames.
func swipeRight() []detector.SensorMeasurement {
	var ms []detector.SensorMeasurement
	for i := range 14 {
		m := detector.InvalidMeasurement()
		m.TimeMs = 1 + uint32(i)*100
		ms = append(ms, m)
	}
	return append(ms,
		detector.SingleZone(1, 4, 200, 1401),
		detector.SingleZone(6, 4, 200, 1751),
	)
}

func defaultOptions() replayOptions {
	return replayOptions{
		Params:       gesture.DefaultParams(),
		SensorParams: detector.DefaultVL53L5CX(),
		SmoothWindow: 1,
		RateHz:       capture.DefaultRate,
	}
}

func writeRecording(t *testing.T, ms []detector.SensorMeasurement) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, capture.WriteRecording(f, ms))
	require.NoError(t, f.Close())
	return path
}

func TestReplay(t *testing.T) {
	t.Run("swipe", func(t *testing.T) {
		found, err := replay(swipeRight(), defaultOptions())
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, gesture.SwipeRight, found[0].Gesture)
		assert.Equal(t, uint32(1751), found[0].TimeMs)
		assert.True(t, found[0].Hand.Found)
	})

	t.Run("mounted upside down", func(t *testing.T) {
		// A sensor mounted upside down sees the swipe the other way round.
		opts := defaultOptions()
		opts.Orientation = grid.Orientation{Rotation: 180}

		found, err := replay(swipeRight(), opts)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, gesture.SwipeLeft, found[0].Gesture)
	})

	t.Run("empty", func(t *testing.T) {
		found, err := replay(nil, defaultOptions())
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("untimed", func(t *testing.T) {
		ms := make([]detector.SensorMeasurement, 20)
		for i := range ms {
			ms[i] = detector.InvalidMeasurement()
		}
		found, err := replay(ms, defaultOptions())
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestStamp(t *testing.T) {
	ms := make([]detector.SensorMeasurement, 3)
	assert.False(t, increasingTimes(ms))

	stamped := stamp(ms, 10)
	assert.True(t, increasingTimes(stamped))
	assert.Equal(t, uint32(1), stamped[0].TimeMs)
	assert.Equal(t, uint32(201), stamped[2].TimeMs)
	assert.Equal(t, uint32(0), ms[2].TimeMs, "input is left alone")

	assert.Equal(t, uint32(1+66), stamp(ms, 0)[1].TimeMs)

	fast := stamp(ms, 5000)
	assert.True(t, increasingTimes(fast), "rates above 1kHz keep times increasing")
	assert.Equal(t, uint32(3), fast[2].TimeMs)
}

func TestRecord(t *testing.T) {
	src := capture.NewMockSource(swipeRight(), false)
	require.NoError(t, src.Open())
	defer src.Close()

	ms, err := record(src, 5)
	require.NoError(t, err)
	require.Len(t, ms, 5)
	assert.True(t, increasingTimes(ms))

	// The source runs out before the requested frames.
	rest, err := record(src, 100)
	require.NoError(t, err)
	assert.Len(t, rest, 11)
}

func TestTables(t *testing.T) {
	out := detectionTable([]detection{{
		TimeMs:  1751,
		Gesture: gesture.SwipeUp,
		Hand:    detector.HandFoundAt(detector.Spherical{R: 212.4, Phi: 1.5}),
	}})
	assert.Contains(t, out, "swipe-up")
	assert.Contains(t, out, "1.751s")
	assert.Contains(t, out, "212 mm")

	out = eventTable([]*store.Event{{ID: "e1", Gesture: gesture.StaticHold, Hand: detector.HandNotFound()}})
	assert.Contains(t, out, "static-hold")
	assert.Contains(t, out, "e1")
}

func TestNewSource(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := newSource(cfg)
	assert.Error(t, err)

	cfg.Sensor.Source = writeRecording(t, swipeRight())
	cfg.Sensor.Orientation = "rot180"
	src, err := newSource(cfg)
	require.NoError(t, err)
	require.NoError(t, src.Open())
	defer src.Close()

	for range 14 {
		_, err := src.Read()
		require.NoError(t, err)
	}
	m, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 200.0, m.Zones[3][6], "zones are rotated")
}

func TestSettingsURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/", settingsURL(":8080"))
	assert.Equal(t, "http://127.0.0.1:9000/", settingsURL("127.0.0.1:9000"))
}

func TestNewPipeline(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(dir, "data", "wave.db")
	cfg.Plugins.Dir = filepath.Join(dir, "plugins")

	st, err := openStore(cfg)
	require.NoError(t, err)
	defer st.Close()

	t.Run("config parameters", func(t *testing.T) {
		a, err := newPipeline(cfg, st)
		require.NoError(t, err)
		defer a.Close()

		params, _ := a.Params()
		assert.Equal(t, cfg.Recognizer, params)
		assert.Nil(t, a.Source())
	})

	t.Run("saved parameters win", func(t *testing.T) {
		saved := gesture.DefaultParams()
		saved.StaticHoldTimeMs = 900
		require.NoError(t, st.Settings().SaveParams(saved, detector.DefaultVL53L5CX()))

		a, err := newPipeline(cfg, st)
		require.NoError(t, err)
		defer a.Close()

		params, _ := a.Params()
		assert.Equal(t, uint32(900), params.StaticHoldTimeMs)
	})

	t.Run("reload", func(t *testing.T) {
		a, err := newPipeline(cfg, nil)
		require.NoError(t, err)
		defer a.Close()

		changed := config.DefaultConfig()
		changed.Recognizer.GestureThresholdDist = 300
		changed.Sensor.FOVHorizontal = 50
		applyConfig(a, changed)

		params, sensor := a.Params()
		assert.Equal(t, 300.0, params.GestureThresholdDist)
		assert.Equal(t, 50.0, sensor.FOVHorizontal)
	})
}

func TestReplayCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.Save(config.DefaultConfig(), cfgPath))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	err := app.Run([]string{"wave", "--config", cfgPath, "replay", writeRecording(t, swipeRight())})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "swipe-right")
	assert.Contains(t, out.String(), "16 measurements, 1 gestures")
}

func TestReplay_Recordings(t *testing.T) {
	tests := []struct {
		file string
		want []gesture.Gesture
	}{
		{file: "swipe-right.jsonl", want: []gesture.Gesture{gesture.SwipeRight}},
		{file: "swipe-left.jsonl", want: []gesture.Gesture{gesture.SwipeLeft}},
		{file: "swipe-up.jsonl", want: []gesture.Gesture{gesture.SwipeUp}},
		{file: "swipe-down.jsonl", want: []gesture.Gesture{gesture.SwipeDown}},
		{file: "static-hold.jsonl", want: []gesture.Gesture{gesture.StaticHold}},
		{file: "idle.jsonl"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			f, err := os.Open(filepath.Join("..", "..", "testdata", "recordings", tt.file))
			require.NoError(t, err)
			defer f.Close()

			ms, err := capture.ReadRecording(f)
			require.NoError(t, err)

			found, err := replay(ms, defaultOptions())
			require.NoError(t, err)

			var got []gesture.Gesture
			for _, d := range found {
				got = append(got, d.Gesture)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
