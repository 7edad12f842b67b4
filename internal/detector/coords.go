// Package detector turns a grid of time-of-flight zone distances into a hand position.
package detector

import (
	"math"

	"github.com/golang/geo/r3"
)

// Cartesian represents a point in space with x, y, z coordinates.
//
// The x-axis points away from the sensor, y to the right and z up.
type Cartesian struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Spherical represents a point in spherical coordinates using the mathematical
// naming convention: Theta is the azimuth measured from the x-axis and Phi the
// zenith measured from the z-axis, both in radians.
type Spherical struct {
	R     float64 `json:"r"`
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// InvalidSpherical returns the sentinel for "no position" (R = -1).
func InvalidSpherical() Spherical {
	return Spherical{R: -1}
}

// IsInvalid reports whether s is the invalid sentinel (R < 0).
func (s Spherical) IsInvalid() bool {
	return s.R < 0
}

// Cartesian converts s to cartesian coordinates.
func (s Spherical) Cartesian() Cartesian {
	sinPhi := math.Sin(s.Phi)
	return Cartesian{
		X: s.R * math.Cos(s.Theta) * sinPhi,
		Y: s.R * math.Sin(s.Theta) * sinPhi,
		Z: s.R * math.Cos(s.Phi),
	}
}

// Spherical converts c to spherical coordinates.
//
// The origin has no defined direction. It converts to the zero value
// (R, Theta and Phi all 0) instead of the NaN zenith acos(0/0) would produce.
func (c Cartesian) Spherical() Spherical {
	r := c.vector().Norm()
	if r == 0 {
		return Spherical{}
	}

	// Rounding can push z/r just outside [-1, 1].
	cosPhi := math.Max(-1, math.Min(1, c.Z/r))

	return Spherical{
		R:     r,
		Theta: math.Atan2(c.Y, c.X),
		Phi:   math.Acos(cosPhi),
	}
}

// DistTo returns the euclidean distance between c and o.
func (c Cartesian) DistTo(o Cartesian) float64 {
	return c.vector().Distance(o.vector())
}

func (c Cartesian) vector() r3.Vector {
	return r3.Vector{X: c.X, Y: c.Y, Z: c.Z}
}

func fromVector(v r3.Vector) Cartesian {
	return Cartesian{X: v.X, Y: v.Y, Z: v.Z}
}

// finite reports whether every component of s is a finite number.
func (s Spherical) finite() bool {
	return !math.IsNaN(s.R) && !math.IsInf(s.R, 0) &&
		!math.IsNaN(s.Theta) && !math.IsInf(s.Theta, 0) &&
		!math.IsNaN(s.Phi) && !math.IsInf(s.Phi, 0)
}
