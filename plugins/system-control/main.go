// Package main provides a system control plugin for macOS.
// It handles volume, brightness, and media playback controls via AppleScript.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
)

// Request is the input from the wave plugin executor.
type Request struct {
	Action      string          `json:"action"`
	Gesture     string          `json:"gesture"`
	GestureCode int             `json:"gesture_code"`
	Config      json.RawMessage `json:"config"`
	Params      json.RawMessage `json:"params"`
	Hand        *Hand           `json:"hand,omitempty"`
}

// Hand is the hand position that triggered the gesture, if any.
type Hand struct {
	R     float64 `json:"r"`
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// Response is the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// VolumeConfig maps hand distance to output volume for volume-set. The
// volume is 0 at MinDist and 100 at MaxDist.
type VolumeConfig struct {
	MinDist float64 `json:"min_dist"`
	MaxDist float64 `json:"max_dist"`
}

// defaultVolumeConfig covers the usable range of the sensor.
var defaultVolumeConfig = VolumeConfig{MinDist: 50, MaxDist: 400}

// script returns the AppleScript for action.
type script func(req Request) (string, error)

func fixed(s string) script {
	return func(Request) (string, error) { return s, nil }
}

func keyCode(code int) script {
	return fixed(fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code))
}

// actionScripts maps action names to their scripts.
var actionScripts = map[string]script{
	"volume-up":        fixed(`set volume output volume ((output volume of (get volume settings)) + 10)`),
	"volume-down":      fixed(`set volume output volume ((output volume of (get volume settings)) - 10)`),
	"volume-mute":      fixed(`set volume output muted (not (output muted of (get volume settings)))`),
	"volume-set":       volumeSet,
	"brightness-up":    keyCode(144),
	"brightness-down":  keyCode(145),
	"media-play-pause": keyCode(100),
	"media-next":       keyCode(101),
	"media-prev":       keyCode(98),
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	writeResponse(handle(req, runAppleScript))
}

// handle runs req with run executing the generated script.
func handle(req Request, run func(script string) error) error {
	build, ok := actionScripts[req.Action]
	if !ok {
		return fmt.Errorf("unknown action: %s", req.Action)
	}

	s, err := build(req)
	if err != nil {
		return fmt.Errorf("action %s failed: %w", req.Action, err)
	}
	if err := run(s); err != nil {
		return fmt.Errorf("action %s failed: %w", req.Action, err)
	}
	return nil
}

// volumeSet sets the volume from the distance of the hand.
func volumeSet(req Request) (string, error) {
	if req.Hand == nil {
		return "", errors.New("volume-set needs a hand position")
	}

	cfg := defaultVolumeConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return "", fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.MaxDist <= cfg.MinDist {
		return "", fmt.Errorf("max_dist %.0f must be above min_dist %.0f", cfg.MaxDist, cfg.MinDist)
	}

	return fmt.Sprintf("set volume output volume %d", volumeForDistance(req.Hand.R, cfg)), nil
}

// volumeForDistance maps dist linearly into [0, 100].
func volumeForDistance(dist float64, cfg VolumeConfig) int {
	v := (dist - cfg.MinDist) / (cfg.MaxDist - cfg.MinDist) * 100
	return int(math.Round(min(max(v, 0), 100)))
}

// writeResponse reports err, or success when err is nil, on stdout.
func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	output, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
