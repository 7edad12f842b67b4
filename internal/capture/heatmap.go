package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/wave/internal/detector"
)

// DefaultHeatmapScale is the size in pixels of one zone in a heatmap.
const DefaultHeatmapScale = 40

// RenderHeatmap renders the zones of m as a JPEG image. Near zones are hot,
// zones at maxDist or beyond are cold and invalid zones are black. Every zone
// becomes a scale x scale block.
func RenderHeatmap(m *detector.SensorMeasurement, maxDist float64, scale int) ([]byte, error) {
	if maxDist <= 0 {
		return nil, fmt.Errorf("invalid max distance %v", maxDist)
	}
	if scale <= 0 {
		scale = DefaultHeatmapScale
	}

	gray := gocv.NewMatWithSize(detector.ResY, detector.ResX, gocv.MatTypeCV8U)
	defer gray.Close()

	for y := range m.Zones {
		for x, d := range m.Zones[y] {
			if d > 0 {
				v := 255 - min(d, maxDist)/maxDist*255
				gray.SetUCharAt(y, x, uint8(v))
			}
		}
	}

	colored := gocv.NewMat()
	defer colored.Close()
	gocv.ApplyColorMap(gray, &colored, gocv.ColormapJet)

	// Black out invalid zones, three bytes per BGR pixel.
	for y := range m.Zones {
		for x, d := range m.Zones[y] {
			if !(d > 0) {
				for c := range 3 {
					colored.SetUCharAt(y, x*3+c, 0)
				}
			}
		}
	}

	big := gocv.NewMat()
	defer big.Close()
	gocv.Resize(colored, &big, image.Point{X: detector.ResX * scale, Y: detector.ResY * scale}, 0, 0, gocv.InterpolationNearestNeighbor)

	buf, err := gocv.IMEncode(".jpg", big)
	if err != nil {
		return nil, fmt.Errorf("encode heatmap: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close.
	return append([]byte(nil), buf.GetBytes()...), nil
}
