package gesture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/wave/internal/detector"
)

func entryAt(timeMs uint32) HistoryEntry {
	e := InvalidEntry()
	e.Measurement.TimeMs = timeMs
	return e
}

func TestNewHistory(t *testing.T) {
	h := NewHistory()

	assert.Equal(t, HistorySize, h.Cap())
	assert.Equal(t, 0, h.Received())

	for i := range HistorySize {
		e := h.At(i)
		assert.Equal(t, uint32(0), e.Measurement.TimeMs)
		assert.False(t, e.Hand.Found)
		assert.Equal(t, detector.InvalidDist, e.Measurement.Zones[3][5])
	}
}

func TestHistory_PushKeepsNewestFirst(t *testing.T) {
	h := NewHistory()

	for i := uint32(1); i <= 70; i++ {
		h.Push(entryAt(i))
	}

	assert.Equal(t, 70, h.Received())
	assert.Equal(t, uint32(70), h.Newest().Measurement.TimeMs)
	assert.Equal(t, uint32(69), h.At(1).Measurement.TimeMs)
	assert.Equal(t, uint32(11), h.At(HistorySize-1).Measurement.TimeMs)
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory()
	h.Push(entryAt(5))
	h.Push(entryAt(6))

	h.Clear()

	assert.Equal(t, 0, h.Received())
	assert.Equal(t, uint32(0), h.Newest().Measurement.TimeMs)
	assert.Equal(t, HistorySize, h.Window(100).Len())
}

func TestHistory_Windows(t *testing.T) {
	h := NewHistory()
	for ts := uint32(100); ts <= 1000; ts += 100 {
		h.Push(entryAt(ts))
	}
	const now = 1000

	times := func(w Window) []uint32 {
		var out []uint32
		for m := range w.Measurements() {
			out = append(out, m.TimeMs)
		}
		return out
	}

	t.Run("newer than", func(t *testing.T) {
		assert.Equal(t, []uint32{1000, 900, 800}, times(h.NewerThan(300, now)))
	})

	t.Run("older or equal and newer than", func(t *testing.T) {
		w := h.OlderOrEqual(300, now).NewerThan(600)
		assert.Equal(t, []uint32{700, 600, 500}, times(w))
	})

	t.Run("older or equal includes cleared slots", func(t *testing.T) {
		// ages 300..900 plus 50 cleared slots at time 0
		assert.Equal(t, 7+HistorySize-10, h.OlderOrEqual(300, now).Len())
	})

	t.Run("narrowing keeps the tighter bound", func(t *testing.T) {
		assert.Equal(t, 3, h.Window(now).NewerThan(600).NewerThan(300).Len())
		assert.Equal(t, 3, h.Window(now).NewerThan(300).NewerThan(600).Len())
		assert.Equal(t, 3, h.Window(now).OlderOrEqual(500).OlderOrEqual(300).NewerThan(800).Len())
	})

	t.Run("positions are history indexes", func(t *testing.T) {
		var idx []int
		for i := range h.OlderOrEqual(300, now).NewerThan(600).All() {
			idx = append(idx, i)
		}
		assert.Equal(t, []int{3, 4, 5}, idx)
	})

	t.Run("early break", func(t *testing.T) {
		n := 0
		for range h.Window(now).All() {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestWindow_ContainsWrapsAround(t *testing.T) {
	h := NewHistory()
	w := h.NewerThan(100, 50)

	assert.True(t, w.Contains(math.MaxUint32-5))
	assert.True(t, w.Contains(50))
	assert.False(t, w.Contains(math.MaxUint32-60))
}

func TestWindow_Hands(t *testing.T) {
	h := NewHistory()
	m := detector.SingleZone(4, 4, 200, 100)
	h.Push(HistoryEntry{
		Measurement: m,
		Hand:        detector.RecognizeHand(&m, detector.DefaultVL53L5CX(), 400),
	})
	h.Push(entryAt(200))

	_, nearest := detector.FindNearestHandPos(h.NewerThan(500, 200).Hands())
	require.False(t, nearest.IsInvalid())
	assert.InDelta(t, 200.0, nearest.R, 1e-9)
}
