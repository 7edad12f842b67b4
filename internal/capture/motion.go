package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/wave/internal/detector"
)

// MotionDetector detects movement in front of the sensor by differencing
// consecutive zone grids. It gates the recognizer so the sensor can run at a
// low rate while nothing happens.
type MotionDetector struct {
	threshold   float64
	diffMm      float32
	prev        gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// Motion detection constants
const (
	// BlurSize is the kernel size of the Gaussian blur applied to the grid.
	BlurSize = 3
	// DiffThresholdMm is the default distance change of a zone counted as
	// movement.
	DiffThresholdMm = 40
	// FarDist is used in place of invalid zones, i.e. nothing in range.
	FarDist = 4000
)

// NewMotionDetector creates a new MotionDetector with the given threshold.
// The threshold is the percentage of zones that must change to detect motion.
// For example, a threshold of 5.0 means 5% of zones, about 3 of 64.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		diffMm:    DiffThresholdMm,
		prev:      gocv.NewMat(),
	}
}

// Detect compares m with the previous measurement.
// Returns whether motion was detected and the percentage of zones that changed.
//
// Algorithm:
// 1. Copy the zones into a float Mat, invalid zones read FarDist
// 2. Apply Gaussian blur (3x3) against single zone noise
// 3. If first measurement, store as baseline and return false
// 4. Calculate absolute difference with previous grid
// 5. Threshold the difference at the configured distance
// 6. changePercent = changed zones / all zones
// 7. Return changePercent > threshold
func (d *MotionDetector) Detect(m *detector.SensorMeasurement) (bool, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if m == nil {
		return false, 0
	}

	zones := zonesToMat(m.Zones)
	defer zones.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(zones, &blurred, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderReplicate)

	if !d.initialized {
		blurred.CopyTo(&d.prev)
		d.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, d.prev, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, d.diffMm, 255, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(thresh)
	changePercent := float64(changed) / float64(detector.ResX*detector.ResY) * 100.0

	blurred.CopyTo(&d.prev)

	return changePercent > d.threshold, changePercent
}

func zonesToMat(zones detector.Zones) gocv.Mat {
	mat := gocv.NewMatWithSize(detector.ResY, detector.ResX, gocv.MatTypeCV32F)
	for y := range zones {
		for x, dist := range zones[y] {
			if !(dist > 0) || dist > FarDist {
				dist = FarDist
			}
			mat.SetFloatAt(y, x, float32(dist))
		}
	}
	return mat
}

// Reset clears the motion detector state; the next measurement becomes the
// new baseline.
func (d *MotionDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resetLocked()
}

// Close releases resources used by the motion detector.
func (d *MotionDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resetLocked()
}

func (d *MotionDetector) resetLocked() {
	if !d.prev.Empty() {
		d.prev.Close()
		d.prev = gocv.NewMat()
	}
	d.initialized = false
}

// SetThreshold sets the percentage of zones that must change to detect
// motion. Values less than or equal to 0 are ignored.
func (d *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.threshold = threshold
}

// SetDiffThreshold sets the distance change in millimeters at which a zone
// counts as changed. Values less than or equal to 0 are ignored.
func (d *MotionDetector) SetDiffThreshold(mm float64) {
	if mm <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.diffMm = float32(mm)
}
