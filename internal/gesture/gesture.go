// Package gesture recognizes hand gestures from a rolling history of
// localized sensor measurements.
//
// All distances are in millimeters, all times in milliseconds.
package gesture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/wave/internal/detector"
)

// Gesture is a recognized hand gesture.
//
// The numeric values are stored in the database and sent to plugins and
// clients; they must not be renumbered.
type Gesture int

const (
	// None means no gesture was recognized.
	None Gesture = iota
	// StaticHold is a hand held still for a while.
	StaticHold
	// SwipeRight is a swipe to the right.
	SwipeRight
	// SwipeLeft is a swipe to the left.
	SwipeLeft
	// SwipeUp is a swipe upwards.
	SwipeUp
	// SwipeDown is a swipe downwards.
	SwipeDown
)

var gestureNames = [...]string{
	None:       "none",
	StaticHold: "static-hold",
	SwipeRight: "swipe-right",
	SwipeLeft:  "swipe-left",
	SwipeUp:    "swipe-up",
	SwipeDown:  "swipe-down",
}

// Gestures lists every gesture other than None.
func Gestures() []Gesture {
	return []Gesture{StaticHold, SwipeRight, SwipeLeft, SwipeUp, SwipeDown}
}

// String returns the name of g, such as "swipe-left".
func (g Gesture) String() string {
	if g < 0 || int(g) >= len(gestureNames) {
		return fmt.Sprintf("gesture(%d)", int(g))
	}
	return gestureNames[g]
}

// ParseGesture parses a gesture name as returned by String.
func ParseGesture(s string) (Gesture, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for g, name := range gestureNames {
		if name == s {
			return Gesture(g), nil
		}
	}
	return None, fmt.Errorf("unknown gesture %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gesture) UnmarshalText(text []byte) error {
	parsed, err := ParseGesture(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Params are the tunables of the recognizer.
type Params struct {
	// GestureThresholdDist is the furthest hand distance for gesture recognition.
	GestureThresholdDist float64 `json:"gesture_threshold_dist" toml:"gesture_threshold_dist" yaml:"gesture_threshold_dist"`
	// StaticHoldTimeMs is how long the hand has to be still for a static hold.
	StaticHoldTimeMs uint32 `json:"static_hold_time_ms" toml:"static_hold_time_ms" yaml:"static_hold_time_ms"`
	// StaticHoldToleranceDist is how much the hand may move towards or away
	// from the sensor during a static hold.
	StaticHoldToleranceDist float64 `json:"static_hold_tolerance_dist" toml:"static_hold_tolerance_dist" yaml:"static_hold_tolerance_dist"`
	// SwipeToleranceDist is how much the hand may move towards or away from
	// the sensor during a swipe.
	SwipeToleranceDist float64 `json:"swipe_tolerance_dist" toml:"swipe_tolerance_dist" yaml:"swipe_tolerance_dist"`
	// SwipeHorizontalTravelDist is the distance the hand has to travel for a
	// horizontal swipe.
	SwipeHorizontalTravelDist float64 `json:"swipe_horizontal_travel_dist" toml:"swipe_horizontal_travel_dist" yaml:"swipe_horizontal_travel_dist"`
	// SwipeVerticalTravelDist is the distance the hand has to travel for a
	// vertical swipe.
	SwipeVerticalTravelDist float64 `json:"swipe_vertical_travel_dist" toml:"swipe_vertical_travel_dist" yaml:"swipe_vertical_travel_dist"`
}

// DefaultParams returns parameters that work well for a hand 10-40cm in
// front of a VL53L5CX.
func DefaultParams() Params {
	return Params{
		GestureThresholdDist:      400.0,
		StaticHoldTimeMs:          1500,
		StaticHoldToleranceDist:   100.0,
		SwipeToleranceDist:        120.0,
		SwipeHorizontalTravelDist: 80.0,
		SwipeVerticalTravelDist:   70.0,
	}
}

// Validate reports the first parameter that cannot work.
func (p Params) Validate() error {
	switch {
	case p.GestureThresholdDist <= 0:
		return errors.New("gesture_threshold_dist must be positive")
	case p.StaticHoldTimeMs == 0:
		return errors.New("static_hold_time_ms must be positive")
	case p.StaticHoldToleranceDist <= 0:
		return errors.New("static_hold_tolerance_dist must be positive")
	case p.SwipeToleranceDist <= 0:
		return errors.New("swipe_tolerance_dist must be positive")
	case p.SwipeHorizontalTravelDist <= 0:
		return errors.New("swipe_horizontal_travel_dist must be positive")
	case p.SwipeVerticalTravelDist <= 0:
		return errors.New("swipe_vertical_travel_dist must be positive")
	}
	return nil
}

// Result is the outcome of one recognizer update.
type Result struct {
	Hand    detector.HandState `json:"hand"`
	Gesture Gesture            `json:"gesture"`
}

// DefaultResult returns the result for "no hand, no gesture".
func DefaultResult() Result {
	return Result{
		Hand:    detector.HandNotFound(),
		Gesture: None,
	}
}

// Status is the numeric status code reported for an operation.
//
// The values are part of the external contract and must not be renumbered.
type Status int

const (
	// StatusOK means the operation succeeded.
	StatusOK Status = iota
	// StatusInitFailure means setting up the recognizer, or a resource it
	// depends on such as the sensor, failed.
	StatusInitFailure
	// StatusInvalidInput means the input was rejected.
	StatusInvalidInput
)

// String returns a short name for s.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInitFailure:
		return "init-failure"
	case StatusInvalidInput:
		return "invalid-input"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var (
	// ErrInvalidInput is returned by Update for a measurement that is not newer
	// than the last one.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInitFailure marks a failure to set up the recognizer or its sensor.
	// The recognizer itself never returns it.
	ErrInitFailure = errors.New("init failure")
)

// StatusOf maps err to its status code. Unknown errors map to
// StatusInitFailure.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidInput):
		return StatusInvalidInput
	default:
		return StatusInitFailure
	}
}
