// Package app wires the sensor source, motion gate, gesture recognizer, store
// and plugins into the running application.
package app

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ayusman/wave/internal/capture"
	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
	"github.com/ayusman/wave/internal/plugin"
	"github.com/ayusman/wave/internal/store"
)

// Pipeline defaults.
const (
	// DefaultIdleHz is the sensor rate while nothing moves.
	DefaultIdleHz = capture.IdleRate
	// DefaultActiveHz is the sensor rate while a hand is tracked.
	DefaultActiveHz = capture.DefaultRate
	// DefaultIdleTimeout is how long without motion before going idle.
	DefaultIdleTimeout = 3 * time.Second
	// DefaultMotionThresh is the percentage of zones that must change.
	DefaultMotionThresh = 5.0
	// ClosestWindowMs is how far back Snapshot.Closest looks.
	ClosestWindowMs = 1000
)

// Config holds configuration options for the application.
type Config struct {
	Store           *store.Store
	Source          capture.Source
	PluginDir       string
	PluginTimeoutMs int

	// MotionThresh is the percentage of zones that must change to wake the
	// pipeline up. MotionDiffMm is the change of a single zone that counts.
	MotionThresh float64
	MotionDiffMm float64
	// AlwaysActive bypasses the motion gate, e.g. for replayed recordings.
	AlwaysActive bool

	Params       gesture.Params
	SensorParams detector.SensorParams

	IdleHz      int
	ActiveHz    int
	IdleTimeout time.Duration

	// Clock defaults to the wall clock.
	Clock clock.Clock
}

func (c *Config) setDefaults() {
	if c.MotionThresh <= 0 {
		c.MotionThresh = DefaultMotionThresh
	}
	if c.Params == (gesture.Params{}) {
		c.Params = gesture.DefaultParams()
	}
	if c.SensorParams == (detector.SensorParams{}) {
		c.SensorParams = detector.DefaultVL53L5CX()
	}
	if c.IdleHz <= 0 {
		c.IdleHz = DefaultIdleHz
	}
	if c.ActiveHz <= 0 {
		c.ActiveHz = DefaultActiveHz
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
}

// Snapshot is the latest state of the pipeline, as shown to clients.
type Snapshot struct {
	Hand          detector.HandState `json:"hand"`
	Gesture       gesture.Gesture    `json:"gesture"`
	LastGesture   gesture.Gesture    `json:"last_gesture"`
	LastGestureAt time.Time          `json:"last_gesture_at"`
	TimeMs        uint32             `json:"time_ms"`
	Zones         detector.Zones     `json:"zones"`
	Active        bool               `json:"active"`
	WarmingUp     bool               `json:"warming_up"`
	// Closest is the nearest hand position of the last ClosestWindowMs, or
	// R = -1 without a hand.
	Closest detector.Spherical `json:"closest"`
}

// MarshalJSON adds the numeric codes of both gestures next to their names.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type snapshot Snapshot
	return json.Marshal(struct {
		snapshot
		GestureCode     int `json:"gesture_code"`
		LastGestureCode int `json:"last_gesture_code"`
	}{snapshot(s), int(s.Gesture), int(s.LastGesture)})
}

// Measurement returns the zones of s as a measurement.
func (s Snapshot) Measurement() detector.SensorMeasurement {
	return detector.SensorMeasurement{Zones: s.Zones, TimeMs: s.TimeMs}
}

// App is the main application that orchestrates gesture recognition and
// action execution.
type App struct {
	config     Config
	clock      clock.Clock
	source     capture.Source
	motion     *capture.MotionDetector
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	// recMu guards the recognizer and the pipeline state below it.
	recMu      sync.Mutex
	recognizer *gesture.Recognizer
	start      time.Time
	active     bool
	lastMotion time.Time

	mu          sync.RWMutex
	enabled     bool
	latest      Snapshot
	subscribers map[int]func(Snapshot)
	nextSub     int
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	loopErr     error

	actions sync.WaitGroup
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	config.setDefaults()

	motion := capture.NewMotionDetector(config.MotionThresh)
	if config.MotionDiffMm > 0 {
		motion.SetDiffThreshold(config.MotionDiffMm)
	}

	a := &App{
		config:      config,
		clock:       config.Clock,
		source:      config.Source,
		motion:      motion,
		pluginMgr:   plugin.NewManager(config.PluginDir),
		pluginExec:  plugin.NewExecutor(config.PluginTimeoutMs),
		recognizer:  gesture.NewRecognizer(config.Params, config.SensorParams),
		enabled:     true,
		subscribers: make(map[int]func(Snapshot)),
	}
	a.start = a.clock.Now()
	a.latest = Snapshot{Hand: detector.HandNotFound(), Closest: detector.InvalidSpherical(), WarmingUp: true}
	for y := range a.latest.Zones {
		for x := range a.latest.Zones[y] {
			a.latest.Zones[y][x] = detector.InvalidDist
		}
	}

	return a
}

// SetEnabled enables or disables gesture recognition.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gesture recognition is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetSource replaces the measurement source. It must not be called while the
// pipeline is running.
func (a *App) SetSource(src capture.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = src
}

// Source returns the measurement source.
func (a *App) Source() capture.Source {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	if err := a.pluginMgr.Discover(); err != nil {
		return err
	}
	log.Printf("Discovered %d plugins in %s", len(a.pluginMgr.List()), a.pluginMgr.PluginDir())
	return nil
}

// Params returns the current recognizer and sensor parameters.
func (a *App) Params() (gesture.Params, detector.SensorParams) {
	a.recMu.Lock()
	defer a.recMu.Unlock()
	return a.recognizer.Params(), a.recognizer.SensorParams()
}

// SetParams replaces the recognizer and sensor parameters. The recognizer
// starts over, so it is warming up afterwards.
func (a *App) SetParams(params gesture.Params, sensorParams detector.SensorParams) {
	a.recMu.Lock()
	a.recognizer.Reset(params, sensorParams, a.timestamp())
	a.recMu.Unlock()

	a.mu.Lock()
	a.latest.WarmingUp = true
	a.mu.Unlock()

	log.Printf("Recognizer parameters updated: %+v", params)
}

// SetMotionThreshold updates the motion gate.
func (a *App) SetMotionThreshold(percent, diffMm float64) {
	a.motion.SetThreshold(percent)
	a.motion.SetDiffThreshold(diffMm)
}

// Latest returns the most recent snapshot.
func (a *App) Latest() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// Subscribe registers fn to be called with every new snapshot. fn runs on
// the pipeline goroutine and must not block. The returned function removes
// the subscription.
func (a *App) Subscribe(fn func(Snapshot)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextSub
	a.nextSub++
	a.subscribers[id] = fn

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subscribers, id)
	}
}

func (a *App) publish(s Snapshot) {
	a.mu.Lock()
	a.latest = s
	subs := make([]func(Snapshot), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// MotionDetector returns the motion detector instance.
func (a *App) MotionDetector() *capture.MotionDetector {
	return a.motion
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Store returns the store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// WaitForActions blocks until every plugin run started so far has finished.
func (a *App) WaitForActions() {
	a.actions.Wait()
}

// Close stops the pipeline and releases the motion detector.
func (a *App) Close() error {
	err := a.Stop()
	a.motion.Close()
	return err
}
