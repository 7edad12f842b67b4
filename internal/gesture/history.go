package gesture

import (
	"iter"

	"github.com/ayusman/wave/internal/detector"
)

// HistorySize is the number of measurements kept by a Recognizer. It must hold
// about two seconds of data to reliably recognize gestures.
const HistorySize = 60

// HistoryEntry is a measurement together with the hand state found in it.
type HistoryEntry struct {
	Measurement detector.SensorMeasurement `json:"measurement"`
	Hand        detector.HandState         `json:"hand"`
}

// InvalidEntry returns an entry with an invalid measurement and no hand.
func InvalidEntry() HistoryEntry {
	return HistoryEntry{
		Measurement: detector.InvalidMeasurement(),
		Hand:        detector.HandNotFound(),
	}
}

// History is a fixed size ring of the most recent entries. Index 0 is always
// the newest entry; pushing drops the oldest one.
//
// The zero value is not ready for use; call Clear first or use NewHistory.
type History struct {
	entries  [HistorySize]HistoryEntry
	head     int // slot of the newest entry
	received int
}

// NewHistory returns a cleared history.
func NewHistory() *History {
	h := &History{}
	h.Clear()
	return h
}

// Push inserts e as the newest entry.
func (h *History) Push(e HistoryEntry) {
	h.head = (h.head + HistorySize - 1) % HistorySize
	h.entries[h.head] = e
	h.received++
}

// Clear fills every slot with an invalid entry and resets the received count.
func (h *History) Clear() {
	for i := range h.entries {
		h.entries[i] = InvalidEntry()
	}
	h.head = 0
	h.received = 0
}

// At returns the entry i pushes ago; At(0) is the newest. The pointer is only
// valid until the history is modified.
func (h *History) At(i int) *HistoryEntry {
	return &h.entries[(h.head+i)%HistorySize]
}

// Newest returns the most recently pushed entry.
func (h *History) Newest() *HistoryEntry {
	return h.At(0)
}

// Cap returns the fixed number of entries.
func (h *History) Cap() int {
	return HistorySize
}

// Received returns the number of entries pushed since the last Clear.
func (h *History) Received() int {
	return h.received
}

// NewerThan selects the entries whose age relative to now is below maxAgeMs.
func (h *History) NewerThan(maxAgeMs, now uint32) Window {
	return h.Window(now).NewerThan(maxAgeMs)
}

// OlderOrEqual selects the entries whose age relative to now is at least
// minAgeMs.
func (h *History) OlderOrEqual(minAgeMs, now uint32) Window {
	return h.Window(now).OlderOrEqual(minAgeMs)
}

// Window selects every entry, with ages measured relative to now.
func (h *History) Window(now uint32) Window {
	return Window{h: h, now: now}
}

// Window is a time window over a History. Ages are computed as now minus the
// entry time with unsigned wraparound, so entries left over from a Clear
// (time 0) look very old.
//
// A Window borrows its History and sees later modifications.
type Window struct {
	h      *History
	now    uint32
	minAge uint32
	maxAge uint32
	capped bool
}

// NewerThan narrows w to entries younger than maxAgeMs.
func (w Window) NewerThan(maxAgeMs uint32) Window {
	if !w.capped || maxAgeMs < w.maxAge {
		w.maxAge = maxAgeMs
	}
	w.capped = true
	return w
}

// OlderOrEqual narrows w to entries at least minAgeMs old.
func (w Window) OlderOrEqual(minAgeMs uint32) Window {
	w.minAge = max(w.minAge, minAgeMs)
	return w
}

// Contains reports whether an entry with the given timestamp lies in w.
func (w Window) Contains(timeMs uint32) bool {
	age := w.now - timeMs
	if age < w.minAge {
		return false
	}
	return !w.capped || age < w.maxAge
}

// All yields the position in the history and the entry for every entry in
// w, newest first.
func (w Window) All() iter.Seq2[int, *HistoryEntry] {
	return func(yield func(int, *HistoryEntry) bool) {
		for i := range HistorySize {
			e := w.h.At(i)
			if !w.Contains(e.Measurement.TimeMs) {
				continue
			}
			if !yield(i, e) {
				return
			}
		}
	}
}

// Measurements yields the measurement of every entry in w, newest first.
func (w Window) Measurements() iter.Seq[*detector.SensorMeasurement] {
	return func(yield func(*detector.SensorMeasurement) bool) {
		for _, e := range w.All() {
			if !yield(&e.Measurement) {
				return
			}
		}
	}
}

// Hands yields the hand state of every entry in w, newest first.
func (w Window) Hands() iter.Seq[detector.HandState] {
	return func(yield func(detector.HandState) bool) {
		for _, e := range w.All() {
			if !yield(e.Hand) {
				return
			}
		}
	}
}

// Len counts the entries in w.
func (w Window) Len() int {
	n := 0
	for range w.All() {
		n++
	}
	return n
}
