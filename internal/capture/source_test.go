package capture

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/wave/internal/detector"
)

func writeTestRecording(t *testing.T, measurements ...detector.SensorMeasurement) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rec.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, WriteRecording(f, measurements))
	return path
}

func TestRecording_RoundTrip(t *testing.T) {
	in := []detector.SensorMeasurement{
		detector.SingleZone(2, 3, 180, 100),
		detector.PalmAt(4, 4, 200, 900, 166),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecording(&buf, in))
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))

	out, err := ReadRecording(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadRecording_BadLine(t *testing.T) {
	_, err := ReadRecording(bytes.NewBufferString("{\"time_ms\": 1}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReplaySource(t *testing.T) {
	path := writeTestRecording(t,
		detector.SingleZone(1, 1, 100, 10),
		detector.SingleZone(2, 2, 200, 20),
	)

	t.Run("not open", func(t *testing.T) {
		src := NewReplaySource(path, false)
		_, err := src.Read()
		assert.ErrorIs(t, err, ErrSourceNotOpen)
		assert.False(t, src.IsOpen())
	})

	t.Run("plays once", func(t *testing.T) {
		src := NewReplaySource(path, false)
		require.NoError(t, src.Open())
		defer src.Close()

		m, err := src.Read()
		require.NoError(t, err)
		assert.Equal(t, 100.0, m.Zones[1][1])

		m, err = src.Read()
		require.NoError(t, err)
		assert.Equal(t, uint32(20), m.TimeMs)

		_, err = src.Read()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("loops", func(t *testing.T) {
		src := NewReplaySource(path, true)
		require.NoError(t, src.Open())
		defer src.Close()

		var dists []float64
		for range 5 {
			m, err := src.Read()
			require.NoError(t, err)
			_, d := m.MinDist()
			dists = append(dists, d)
		}
		assert.Equal(t, []float64{100, 200, 100, 200, 100}, dists)
	})

	t.Run("empty recording does not loop", func(t *testing.T) {
		src := NewReplaySource(writeTestRecording(t), true)
		require.NoError(t, src.Open())
		defer src.Close()

		_, err := src.Read()
		assert.True(t, errors.Is(err, io.EOF))
	})

	t.Run("missing file", func(t *testing.T) {
		src := NewReplaySource(filepath.Join(t.TempDir(), "nope.jsonl"), false)
		assert.Error(t, src.Open())
	})

	t.Run("rate", func(t *testing.T) {
		src := NewReplaySource(path, false)
		assert.Equal(t, DefaultRate, src.Rate())
		src.SetRate(5)
		src.SetRate(0)
		assert.Equal(t, 5, src.Rate())
	})

	t.Run("close twice", func(t *testing.T) {
		src := NewReplaySource(path, false)
		require.NoError(t, src.Open())
		assert.NoError(t, src.Close())
		assert.NoError(t, src.Close())
	})
}

func TestMockSource_Playback(t *testing.T) {
	src := NewMockSource([]detector.SensorMeasurement{
		detector.Uniform(500, 0),
		detector.Uniform(400, 0),
	}, false)

	if _, err := src.Read(); !errors.Is(err, ErrSourceNotOpen) {
		t.Fatalf("Read() before Open error = %v, want ErrSourceNotOpen", err)
	}

	if err := src.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	m1, err := src.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	m1.Zones[0][0] = 1

	if _, err := src.Read(); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	// Third read should fail (no loop)
	if _, err := src.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after all measurements consumed, got %v", err)
	}

	src.Reset()
	m, err := src.Read()
	if err != nil {
		t.Fatalf("Read() after Reset error = %v", err)
	}
	if m.Zones[0][0] != 500 {
		t.Errorf("playlist was modified through a returned measurement: %v", m.Zones[0][0])
	}
}

func TestMockSource_Loop(t *testing.T) {
	src := NewMockSource([]detector.SensorMeasurement{detector.Uniform(500, 0)}, true)
	src.Open()
	defer src.Close()

	for i := 0; i < 5; i++ {
		if _, err := src.Read(); err != nil {
			t.Fatalf("Read() iteration %d error = %v", i, err)
		}
	}
}

func TestMockSource_Empty(t *testing.T) {
	src := NewMockSource(nil, true)
	src.Open()

	if _, err := src.Read(); err == nil {
		t.Error("expected error for empty playlist")
	}

	src.SetMeasurements([]detector.SensorMeasurement{detector.Uniform(500, 0)})
	if _, err := src.Read(); err != nil {
		t.Errorf("Read() after SetMeasurements error = %v", err)
	}
}
