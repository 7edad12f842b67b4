package capture

import (
	"math"
	"slices"
	"sync"

	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/grid"
)

// PreprocessedSource wraps a Source, rotates and mirrors its zones into the
// orientation expected by the recognizer and optionally smooths every zone
// over time.
type PreprocessedSource struct {
	Source

	orientation grid.Orientation
	window      int

	mu   sync.Mutex
	avgs [detector.ResY][detector.ResX]*grid.MovingAverage
	// invalid counts the invalid samples currently inside each zone window.
	invalid [detector.ResY][detector.ResX][]bool
}

// NewPreprocessedSource wraps src. A smoothing window <= 1 disables smoothing.
func NewPreprocessedSource(src Source, orientation grid.Orientation, window int) *PreprocessedSource {
	p := &PreprocessedSource{
		Source:      src,
		orientation: orientation,
		window:      window,
	}
	p.resetLocked()
	return p
}

// Read reads from the wrapped source and preprocesses the zones.
func (p *PreprocessedSource) Read() (*detector.SensorMeasurement, error) {
	m, err := p.Source.Read()
	if err != nil {
		return nil, err
	}

	m.Zones = p.orientation.ApplyZones(m.Zones)
	if p.window <= 1 {
		return m, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for y := range m.Zones {
		for x, d := range m.Zones[y] {
			valid := d > 0 && !math.IsInf(d, 1)
			hist := append(p.invalid[y][x], !valid)
			if len(hist) > p.window {
				hist = hist[1:]
			}
			p.invalid[y][x] = hist

			if !valid {
				continue
			}
			avg := p.avgs[y][x].Add(d)
			if !slices.Contains(hist, true) {
				m.Zones[y][x] = avg
			}
		}
	}

	return m, nil
}

// Close resets the smoothing state and closes the wrapped source.
func (p *PreprocessedSource) Close() error {
	p.Reset()
	return p.Source.Close()
}

// Reset drops the smoothing state, e.g. after the sensor was idle.
func (p *PreprocessedSource) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *PreprocessedSource) resetLocked() {
	for y := range p.avgs {
		for x := range p.avgs[y] {
			p.avgs[y][x] = grid.NewMovingAverage(p.window)
			p.invalid[y][x] = nil
		}
	}
}
