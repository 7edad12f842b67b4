// Package plugin discovers and runs the external programs that gestures are
// bound to.
//
// A plugin is a directory with a plugin.json manifest and an executable. The
// executable reads one Request as JSON from stdin and writes one Response as
// JSON to stdout.
package plugin

import (
	"encoding/json"
	"slices"

	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Hand is the hand position sent along with a gesture, in millimeters and
// radians.
type Hand struct {
	R     float64 `json:"r"`
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action      string          `json:"action"`
	Gesture     string          `json:"gesture"`
	GestureCode int             `json:"gesture_code"`
	Config      json.RawMessage `json:"config"`
	Params      json.RawMessage `json:"params,omitempty"`
	Hand        *Hand           `json:"hand,omitempty"`
}

// NewRequest builds the request for running action on g. The hand is
// included when it was found.
func NewRequest(action string, g gesture.Gesture, hand detector.HandState, config json.RawMessage) *Request {
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}

	req := &Request{
		Action:      action,
		Gesture:     g.String(),
		GestureCode: int(g),
		Config:      config,
	}

	if hand.Found {
		c := hand.Pos.Cartesian()
		req.Hand = &Hand{
			R:     hand.Pos.R,
			Theta: hand.Pos.Theta,
			Phi:   hand.Pos.Phi,
			X:     c.X,
			Y:     c.Y,
			Z:     c.Z,
		}
	}

	return req
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the manifest lists action. A manifest without
// actions accepts any action.
func (p *Plugin) Supports(action string) bool {
	return len(p.Manifest.Actions) == 0 || slices.Contains(p.Manifest.Actions, action)
}
