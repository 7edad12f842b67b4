package detector

import (
	"fmt"
	"strings"
)

// SensorParams describes the field of view of the physical sensor in degrees.
type SensorParams struct {
	FOVHorizontal float64 `json:"fov_horizontal" toml:"fov_horizontal" yaml:"fov_horizontal"`
	FOVVertical   float64 `json:"fov_vertical" toml:"fov_vertical" yaml:"fov_vertical"`
}

// DefaultVL53L5CX returns the parameters for the ST VL53L5CX.
func DefaultVL53L5CX() SensorParams {
	// 63deg diagonal FOV, so 63 / sqrt(2) = 45deg on each axis.
	return SensorParams{
		FOVHorizontal: 45.0,
		FOVVertical:   45.0,
	}
}

// Validate checks that both fields of view are within (0, 180) degrees.
func (p SensorParams) Validate() error {
	if p.FOVHorizontal <= 0 || p.FOVHorizontal >= 180 {
		return fmt.Errorf("fov_horizontal %v out of range", p.FOVHorizontal)
	}
	if p.FOVVertical <= 0 || p.FOVVertical >= 180 {
		return fmt.Errorf("fov_vertical %v out of range", p.FOVVertical)
	}
	return nil
}

// profiles maps sensor profile names to their default parameters.
var profiles = map[string]func() SensorParams{
	"vl53l5cx": DefaultVL53L5CX,
}

// SensorProfile returns the parameters registered under name (case insensitive).
func SensorProfile(name string) (SensorParams, error) {
	fn, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return SensorParams{}, fmt.Errorf("unknown sensor profile %q", name)
	}
	return fn(), nil
}

// HandState is the result of localizing a hand in one measurement.
// Found is never true together with Pos.R <= 0.
type HandState struct {
	Found bool      `json:"found"`
	Pos   Spherical `json:"pos"`
}

// HandNotFound returns the state for "no hand".
func HandNotFound() HandState {
	return HandState{Pos: InvalidSpherical()}
}

// HandFoundAt returns a found state at pos. A position with R <= 0 or
// non-finite components yields HandNotFound.
func HandFoundAt(pos Spherical) HandState {
	if pos.R <= 0 || !pos.finite() {
		return HandNotFound()
	}
	return HandState{Found: true, Pos: pos}
}
