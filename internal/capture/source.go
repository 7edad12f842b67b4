// Package capture provides sources of ToF sensor measurements and the
// gocv based motion gate and heatmap rendering used on top of them.
package capture

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ayusman/wave/internal/detector"
)

// Default sensor rates in Hz. The VL53L5CX runs at most 15Hz in 8x8 mode.
const (
	DefaultRate = 15
	IdleRate    = 2
)

// ErrSourceNotOpen is returned when reading from a source that is not open.
var ErrSourceNotOpen = errors.New("source is not open")

// Source defines the interface for measurement sources.
//
// Read returns the zones of the next frame. The time stamp of the returned
// measurement is left to the caller.
type Source interface {
	Open() error
	Close() error
	Read() (*detector.SensorMeasurement, error)
	SetRate(hz int)
	Rate() int
	IsOpen() bool
}

// ReplaySource plays back a recording in JSON lines format, one measurement
// per line.
type ReplaySource struct {
	path string
	loop bool

	mu      sync.Mutex
	file    *os.File
	scanner *bufio.Scanner
	rate    int
	line    int
}

// NewReplaySource creates a ReplaySource for the recording at path. With
// loop set, playback restarts at the top of the file after the last line.
func NewReplaySource(path string, loop bool) *ReplaySource {
	return &ReplaySource{
		path: path,
		loop: loop,
		rate: DefaultRate,
	}
}

// Open opens the recording file.
func (s *ReplaySource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		return nil
	}
	return s.openLocked()
}

func (s *ReplaySource) openLocked() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	s.file = f
	s.scanner = newRecordingScanner(f)
	s.line = 0
	return nil
}

// Close closes the recording file.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.scanner = nil
	return err
}

// Read returns the next measurement of the recording. At the end of a
// recording that does not loop it returns io.EOF.
func (s *ReplaySource) Read() (*detector.SensorMeasurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil, ErrSourceNotOpen
	}

	for attempt := 0; attempt < 2; attempt++ {
		m, err := s.next()
		if !errors.Is(err, io.EOF) || !s.loop {
			return m, err
		}
		if s.line == 0 {
			// An empty recording would loop forever.
			return nil, io.EOF
		}

		s.file.Close()
		if err := s.openLocked(); err != nil {
			s.file = nil
			return nil, err
		}
	}

	return nil, io.EOF
}

func (s *ReplaySource) next() (*detector.SensorMeasurement, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s.line++

		var m detector.SensorMeasurement
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.path, s.line, err)
		}
		return &m, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return nil, io.EOF
}

// SetRate sets the playback rate. Values <= 0 are ignored.
func (s *ReplaySource) SetRate(hz int) {
	if hz <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rate = hz
}

// Rate returns the playback rate.
func (s *ReplaySource) Rate() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rate
}

// IsOpen returns true if the recording is open.
func (s *ReplaySource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.file != nil
}

func newRecordingScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	// 64 zones of up to ~20 characters each fit well below this.
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	return sc
}

// ReadRecording reads every measurement of a JSON lines recording.
func ReadRecording(r io.Reader) ([]detector.SensorMeasurement, error) {
	var out []detector.SensorMeasurement

	sc := newRecordingScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var m detector.SensorMeasurement
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return out, nil
}

// WriteRecording writes measurements as JSON lines.
func WriteRecording(w io.Writer, measurements []detector.SensorMeasurement) error {
	enc := json.NewEncoder(w)
	for i := range measurements {
		if err := enc.Encode(&measurements[i]); err != nil {
			return fmt.Errorf("write measurement %d: %w", i, err)
		}
	}
	return nil
}
