package detector

import (
	"math"

	"github.com/golang/geo/r3"
)

// weightFactor controls how quickly the influence of a zone falls off with
// its distance to the nearest zone. A zone 10mm away weighs 10, 20mm away 5.
const weightFactor = 100.0

// ZonePosition returns the spherical position of a reading of dist in the zone
// at (x, y). Invalid distances map to InvalidSpherical.
func ZonePosition(dist float64, x, y int, params SensorParams) Spherical {
	if !validDist(dist) {
		return InvalidSpherical()
	}

	anglePerZoneHor := degToRad(params.FOVHorizontal / ResX)
	anglePerZoneVert := degToRad(params.FOVVertical / ResY)

	return Spherical{
		R:     dist,
		Theta: (float64(x) - ResX/2.0) * anglePerZoneHor,
		// The z-axis points up from the center of the grid.
		Phi: math.Pi/2 - (float64(y)-ResY/2.0)*anglePerZoneVert,
	}
}

// RecognizeHand localizes the hand in m. The hand is found when the estimated
// position lies within thresholdDist of the sensor.
func RecognizeHand(m *SensorMeasurement, params SensorParams, thresholdDist float64) HandState {
	pos := handPos(m, params)
	if pos.IsInvalid() || !(pos.R <= thresholdDist) {
		return HandNotFound()
	}
	return HandFoundAt(pos)
}

// handPos estimates the hand position as the weighted mean of all valid zones,
// anchored at the nearest zone. Returns InvalidSpherical when no zone is valid.
func handPos(m *SensorMeasurement, params SensorParams) Spherical {
	anchor, anchorDist := m.MinDist()
	if anchorDist == math.MaxFloat64 {
		return InvalidSpherical()
	}

	var zones [ResY][ResX]Spherical
	valid := 0
	for y := range m.Zones {
		for x, d := range m.Zones[y] {
			zones[y][x] = ZonePosition(d, x, y, params)
			if !zones[y][x].IsInvalid() {
				valid++
			}
		}
	}

	anchorPos := zones[anchor.Y][anchor.X]
	if valid == 1 {
		return anchorPos
	}
	anchorCart := anchorPos.Cartesian()

	var sum r3.Vector
	var weights float64

	for y := range zones {
		for x, pos := range zones[y] {
			if pos.IsInvalid() {
				continue
			}
			c := pos.Cartesian()

			weight := 1.0
			if x != anchor.X || y != anchor.Y {
				dist := anchorCart.DistTo(c)
				if dist <= 0 {
					continue
				}
				weight = weightFactor / dist
				if math.IsInf(weight, 0) || math.IsNaN(weight) {
					continue
				}
			}

			sum = sum.Add(c.vector().Mul(weight))
			weights += weight
		}
	}

	if weights == 0 {
		return InvalidSpherical()
	}

	mean := fromVector(sum.Mul(1 / weights)).Spherical()
	if !mean.finite() {
		return InvalidSpherical()
	}
	return mean
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
