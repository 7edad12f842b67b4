package detector

// Preset measurements for tests, simulation and demos.

// SingleZone returns a measurement where only the zone at (x, y) reports
// dist; every other zone is invalid.
func SingleZone(x, y int, dist float64, timeMs uint32) SensorMeasurement {
	m := InvalidMeasurement()
	m.Zones[y][x] = dist
	m.TimeMs = timeMs
	return m
}

// Uniform returns a measurement where every zone reports dist, like a flat
// surface such as a table top or a wall.
func Uniform(dist float64, timeMs uint32) SensorMeasurement {
	var m SensorMeasurement
	for y := range m.Zones {
		for x := range m.Zones[y] {
			m.Zones[y][x] = dist
		}
	}
	m.TimeMs = timeMs
	return m
}

// PalmAt returns a measurement of an open palm centered on the zone at (x, y)
// at dist, in front of a background at backgroundDist. The palm covers the
// center zone and its direct neighbors, which read slightly further away.
// A backgroundDist < 0 leaves the background invalid.
func PalmAt(x, y int, dist, backgroundDist float64, timeMs uint32) SensorMeasurement {
	m := Uniform(backgroundDist, timeMs)
	if backgroundDist < 0 {
		m = InvalidMeasurement()
		m.TimeMs = timeMs
	}

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			zx, zy := x+dx, y+dy
			if zx < 0 || zx >= ResX || zy < 0 || zy >= ResY {
				continue
			}
			// Fingers and the edge of the palm are a bit further away.
			m.Zones[zy][zx] = dist + 15*float64(abs(dx)+abs(dy))
		}
	}

	return m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
