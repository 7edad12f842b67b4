package gesture

import (
	"fmt"
	"math"

	"github.com/ayusman/wave/internal/detector"
)

// Swipe windows. A swipe starts at a hand position between SwipeWindowMs and
// SwipeSplitMs ago and ends at a position younger than SwipeSplitMs.
const (
	SwipeSplitMs  = 300
	SwipeWindowMs = 600
)

// warmUpMeasurements is the number of measurements needed after a reset
// before any gesture is considered.
const warmUpMeasurements = min(HistorySize, 15)

// Recognizer is configured through parameters, gets fed timestamped
// measurements and recognizes gestures.
//
// A Recognizer is a plain value without internal synchronization; callers
// sharing it between goroutines must serialize access.
type Recognizer struct {
	params       Params
	sensorParams detector.SensorParams
	startTime    uint32
	history      History
}

// NewRecognizer returns a Recognizer with the given parameters and an empty
// history.
func NewRecognizer(params Params, sensorParams detector.SensorParams) *Recognizer {
	r := &Recognizer{
		params:       params,
		sensorParams: sensorParams,
	}
	r.history.Clear()
	return r
}

// Reset replaces the parameters, sets the start time to now and clears the
// history.
func (r *Recognizer) Reset(params Params, sensorParams detector.SensorParams, now uint32) {
	r.params = params
	r.sensorParams = sensorParams
	r.startTime = now
	r.history.Clear()
}

// Update feeds a new measurement to the recognizer.
//
// The measurement time must be later than the time of the previous
// measurement; otherwise Update returns ErrInvalidInput together with
// DefaultResult and leaves the recognizer untouched.
func (r *Recognizer) Update(m detector.SensorMeasurement) (Result, error) {
	result := DefaultResult()
	now := m.TimeMs

	if last := r.history.Newest().Measurement.TimeMs; now <= last {
		return result, fmt.Errorf("%w: measurement time %dms is not after %dms", ErrInvalidInput, now, last)
	}

	hand := detector.RecognizeHand(&m, r.sensorParams, r.params.GestureThresholdDist)

	r.history.Push(HistoryEntry{
		Measurement: m,
		Hand:        hand,
	})

	result.Hand = hand
	result.Gesture = r.recognizeGesture(now)

	return result, nil
}

// Params returns the current recognizer parameters.
func (r *Recognizer) Params() Params {
	return r.params
}

// SensorParams returns the current sensor parameters.
func (r *Recognizer) SensorParams() detector.SensorParams {
	return r.sensorParams
}

// StartTime returns the time passed to the last Reset.
func (r *Recognizer) StartTime() uint32 {
	return r.startTime
}

// History returns the measurement history. It must not be modified.
func (r *Recognizer) History() *History {
	return &r.history
}

// WarmingUp reports whether too few measurements were received since the
// last reset to recognize gestures.
func (r *Recognizer) WarmingUp() bool {
	return r.history.Received() < warmUpMeasurements
}

// recognizeGesture checks for a static hold, then for a swipe. A recognized
// gesture clears the history so it is not reported again.
func (r *Recognizer) recognizeGesture(now uint32) Gesture {
	if r.findStaticHold(now) {
		r.history.Clear()
		return StaticHold
	}

	if g := r.findSwipe(now); g != None {
		r.history.Clear()
		return g
	}

	return None
}

// findStaticHold reports whether the nearest zone in the hold window stayed
// within tolerance in every measurement of that window.
func (r *Recognizer) findStaticHold(now uint32) bool {
	if r.WarmingUp() {
		return false
	}

	window := r.history.NewerThan(r.params.StaticHoldTimeMs, now)

	_, zone, anchorDist := detector.FindNearestZone(window.Measurements())
	if anchorDist == math.MaxFloat64 || anchorDist <= 0 || anchorDist > r.params.GestureThresholdDist {
		return false
	}

	for m := range window.Measurements() {
		d := m.At(zone)

		if !(d > 0 && d <= r.params.GestureThresholdDist) {
			return false
		}
		if d > anchorDist+r.params.StaticHoldToleranceDist || d < anchorDist-r.params.StaticHoldToleranceDist {
			return false
		}
	}

	return true
}

// findSwipe compares every hand position from the older part of the swipe
// window with every position from the newer part and returns the first
// direction in which the hand travelled far enough.
func (r *Recognizer) findSwipe(now uint32) Gesture {
	if r.WarmingUp() {
		return None
	}

	older := r.history.OlderOrEqual(SwipeSplitMs, now).NewerThan(SwipeWindowMs)
	newer := r.history.NewerThan(SwipeSplitMs, now)

	for _, o := range older.All() {
		if !o.Hand.Found {
			continue
		}
		start := o.Hand.Pos.Cartesian()

		for _, n := range newer.All() {
			if !n.Hand.Found {
				continue
			}
			end := n.Hand.Pos.Cartesian()

			if g := r.swipeDirection(start, end); g != None {
				return g
			}
		}
	}

	return None
}

// swipeDirection classifies the movement from start to end. The distance to
// the sensor must stay within tolerance before travel is judged.
func (r *Recognizer) swipeDirection(start, end detector.Cartesian) Gesture {
	tol := r.params.SwipeToleranceDist
	if !(end.X >= start.X-tol && end.X < start.X+tol) {
		return None
	}

	dy := end.Y - start.Y
	dz := end.Z - start.Z

	switch {
	case dy > r.params.SwipeHorizontalTravelDist:
		return SwipeRight
	case dy < -r.params.SwipeHorizontalTravelDist:
		return SwipeLeft
	case dz > r.params.SwipeVerticalTravelDist:
		return SwipeUp
	case dz < -r.params.SwipeVerticalTravelDist:
		return SwipeDown
	}

	return None
}
