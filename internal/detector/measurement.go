package detector

import (
	"iter"
	"math"
)

// Sensor resolution. Changing these requires recompiling every consumer of
// SensorMeasurement.
const (
	ResX = 8
	ResY = 8
)

// InvalidDist marks a zone without a valid return.
const InvalidDist = -1.0

// Zones holds one distance in millimeters per zone, indexed [y][x].
type Zones [ResY][ResX]float64

// SensorMeasurement is one frame from the sensor.
//
// Zones are expected to be rotated and mirrored already, so that Zones[0][0] is
// the top left zone when looking at the sensor.
type SensorMeasurement struct {
	Zones  Zones  `json:"zones"`
	TimeMs uint32 `json:"time_ms"`
}

// ZoneIndex addresses a single zone in the grid.
type ZoneIndex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NewMeasurement creates a measurement with the given zones and time 0.
func NewMeasurement(zones Zones) SensorMeasurement {
	return SensorMeasurement{Zones: zones}
}

// InvalidMeasurement returns a measurement with every zone invalid and time 0.
func InvalidMeasurement() SensorMeasurement {
	var m SensorMeasurement
	for y := range m.Zones {
		for x := range m.Zones[y] {
			m.Zones[y][x] = InvalidDist
		}
	}
	return m
}

// At returns the distance of the zone at i.
func (m *SensorMeasurement) At(i ZoneIndex) float64 {
	return m.Zones[i.Y][i.X]
}

// validDist reports whether d is a usable distance reading.
func validDist(d float64) bool {
	return d >= 0 && !math.IsInf(d, 1)
}

// MinDist finds the zone with the smallest positive distance, scanning rows
// top to bottom and each row left to right. The first zone wins a tie.
// Without any positive zone it returns index {0, 0} and math.MaxFloat64.
func (m *SensorMeasurement) MinDist() (ZoneIndex, float64) {
	idx, minDist := ZoneIndex{}, math.MaxFloat64

	for y := range m.Zones {
		for x, d := range m.Zones[y] {
			if d > 0 && validDist(d) && d < minDist {
				idx, minDist = ZoneIndex{X: x, Y: y}, d
			}
		}
	}

	return idx, minDist
}

// FindNearestZone finds the nearest zone over all measurements in seq.
//
// It returns the position of the measurement in seq, the zone index and the
// distance. Earlier measurements win ties. Without any positive zone the
// distance is math.MaxFloat64.
func FindNearestZone(seq iter.Seq[*SensorMeasurement]) (int, ZoneIndex, float64) {
	bestPos, bestIdx, bestDist := 0, ZoneIndex{}, math.MaxFloat64

	pos := 0
	for m := range seq {
		idx, d := m.MinDist()
		if d < bestDist {
			bestPos, bestIdx, bestDist = pos, idx, d
		}
		pos++
	}

	return bestPos, bestIdx, bestDist
}

// FindNearestHandPos returns the position in seq and the location of the
// closest found hand. Without a found hand it returns 0 and InvalidSpherical.
func FindNearestHandPos(seq iter.Seq[HandState]) (int, Spherical) {
	bestPos, best := 0, InvalidSpherical()

	pos := 0
	for hs := range seq {
		if hs.Found && (best.IsInvalid() || hs.Pos.R < best.R) {
			bestPos, best = pos, hs.Pos
		}
		pos++
	}

	return bestPos, best
}
