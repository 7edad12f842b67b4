// Package main provides a keyboard plugin for macOS.
// It sends keyboard shortcuts and keystrokes via AppleScript.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
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

// KeystrokeParams defines parameters for keystroke and shortcut actions.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
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
	switch req.Action {
	case "keystroke", "shortcut":
		p, err := keystrokeParams(req)
		if err != nil {
			return err
		}
		return run(buildKeystrokeScript(p.Key, p.Modifiers))
	default:
		return fmt.Errorf("unknown action: %s", req.Action)
	}
}

// keystrokeParams reads the key from the request params, falling back to the
// configuration stored with the action.
func keystrokeParams(req Request) (KeystrokeParams, error) {
	var p KeystrokeParams
	for _, raw := range []json.RawMessage{req.Params, req.Config} {
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("failed to parse params: %w", err)
		}
		if p.Key != "" {
			return p, nil
		}
	}
	return p, errors.New("key is required")
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
func buildKeystrokeScript(key string, modifiers []string) string {
	key = strings.ReplaceAll(key, `"`, `\"`)

	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(appleModifiers, ", "))
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
