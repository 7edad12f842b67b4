package capture

import (
	"fmt"
	"io"
	"sync"

	"github.com/ayusman/wave/internal/detector"
)

// MockSource plays back in-memory measurements for tests and demos
type MockSource struct {
	measurements []detector.SensorMeasurement
	index        int
	loop         bool
	mu           sync.Mutex
	running      bool
	rate         int
}

func NewMockSource(measurements []detector.SensorMeasurement, loop bool) *MockSource {
	return &MockSource{
		measurements: measurements,
		loop:         loop,
		rate:         DefaultRate,
	}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) Read() (*detector.SensorMeasurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}

	if len(s.measurements) == 0 {
		return nil, fmt.Errorf("no measurements available")
	}

	if s.index >= len(s.measurements) {
		if !s.loop {
			return nil, io.EOF
		}
		s.index = 0
	}

	// Copy so callers can't modify the playlist
	m := s.measurements[s.index]
	s.index++

	return &m, nil
}

func (s *MockSource) SetRate(hz int) {
	if hz <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = hz
}

func (s *MockSource) Rate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetMeasurements replaces the playlist
func (s *MockSource) SetMeasurements(measurements []detector.SensorMeasurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measurements = measurements
	s.index = 0
}

// Reset restarts playback from the beginning
func (s *MockSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}
