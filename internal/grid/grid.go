// Package grid provides matrix helpers for preparing sensor zone grids before
// they are handed to the recognizer: transposing, rotating and mirroring to
// match the mounting orientation of the sensor, and moving averages.
//
// Matrices are row major: m[row][col]. All functions return new matrices and
// leave their input untouched.
package grid

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ayusman/wave/internal/detector"
)

// Transpose returns the transpose of m. Rows of m must have equal length.
func Transpose[T any](m [][]T) [][]T {
	if len(m) == 0 {
		return nil
	}

	rows, cols := len(m), len(m[0])
	t := make([][]T, cols)
	for i := range t {
		t[i] = make([]T, rows)
	}

	for j, row := range m {
		for i, v := range row {
			t[i][j] = v
		}
	}

	return t
}

// Rotate90 rotates m by 90 degrees clockwise.
func Rotate90[T any](m [][]T) [][]T {
	return ReverseRows(Transpose(m))
}

// Rotate180 rotates m by 180 degrees.
func Rotate180[T any](m [][]T) [][]T {
	return ReverseRows(ReverseCols(m))
}

// Rotate270 rotates m by 270 degrees clockwise.
func Rotate270[T any](m [][]T) [][]T {
	return ReverseCols(Transpose(m))
}

// ReverseCols mirrors m vertically by reversing the order of its rows, so
// every column reads bottom to top.
func ReverseCols[T any](m [][]T) [][]T {
	out := clone(m)
	slices.Reverse(out)
	return out
}

// ReverseRows mirrors m horizontally by reversing every row.
func ReverseRows[T any](m [][]T) [][]T {
	out := clone(m)
	for _, row := range out {
		slices.Reverse(row)
	}
	return out
}

func clone[T any](m [][]T) [][]T {
	out := make([][]T, len(m))
	for i, row := range m {
		out[i] = slices.Clone(row)
	}
	return out
}

// Orientation describes how a sensor is mounted relative to the canonical
// orientation where zone [0][0] is the top left zone when looking at it.
type Orientation struct {
	// Rotation is the clockwise rotation to apply: 0, 90, 180 or 270.
	Rotation int
	// MirrorH reverses every row after rotating.
	MirrorH bool
	// MirrorV reverses the row order after rotating.
	MirrorV bool
}

// ParseOrientation parses a comma separated orientation such as
// "rot90,mirror-h". An empty string or "none" is the identity.
func ParseOrientation(s string) (Orientation, error) {
	var o Orientation

	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "", "none", "rot0":
		case "rot90":
			o.Rotation = 90
		case "rot180":
			o.Rotation = 180
		case "rot270":
			o.Rotation = 270
		case "mirror-h":
			o.MirrorH = true
		case "mirror-v":
			o.MirrorV = true
		default:
			return Orientation{}, fmt.Errorf("unknown orientation %q", part)
		}
	}

	return o, nil
}

// IsIdentity reports whether o leaves a grid unchanged.
func (o Orientation) IsIdentity() bool {
	return o.Rotation == 0 && !o.MirrorH && !o.MirrorV
}

// Apply transforms m according to o.
func Apply[T any](o Orientation, m [][]T) [][]T {
	switch o.Rotation {
	case 90:
		m = Rotate90(m)
	case 180:
		m = Rotate180(m)
	case 270:
		m = Rotate270(m)
	}
	if o.MirrorH {
		m = ReverseRows(m)
	}
	if o.MirrorV {
		m = ReverseCols(m)
	}
	return m
}

// ApplyZones transforms the zones of a square sensor grid according to o.
func (o Orientation) ApplyZones(z detector.Zones) detector.Zones {
	if o.IsIdentity() {
		return z
	}

	rows := make([][]float64, detector.ResY)
	for y := range z {
		rows[y] = z[y][:]
	}
	rows = Apply(o, rows)

	var out detector.Zones
	for y := range out {
		for x := range out[y] {
			// Rotating a non-square grid swaps its dimensions; zones that no
			// longer fit are dropped and missing ones stay invalid.
			if y < len(rows) && x < len(rows[y]) {
				out[y][x] = rows[y][x]
			} else {
				out[y][x] = detector.InvalidDist
			}
		}
	}
	return out
}
