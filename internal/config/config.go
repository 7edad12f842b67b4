// Package config loads the wave configuration from TOML, YAML or JSON files
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
	"github.com/ayusman/wave/internal/grid"
)

// DataDirName is the directory under the user's home holding the database,
// plugins and configuration.
const DataDirName = ".wave"

// Config is the complete wave configuration.
type Config struct {
	Server     ServerConfig   `toml:"server" yaml:"server" json:"server"`
	Store      StoreConfig    `toml:"store" yaml:"store" json:"store"`
	Sensor     SensorConfig   `toml:"sensor" yaml:"sensor" json:"sensor"`
	Recognizer gesture.Params `toml:"recognizer" yaml:"recognizer" json:"recognizer"`
	Motion     MotionConfig   `toml:"motion" yaml:"motion" json:"motion"`
	Plugins    PluginsConfig  `toml:"plugins" yaml:"plugins" json:"plugins"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `toml:"addr" yaml:"addr" json:"addr"`
	StaticDir string `toml:"static_dir" yaml:"static_dir" json:"static_dir"`
	StreamFPS int    `toml:"stream_fps" yaml:"stream_fps" json:"stream_fps"`
	// HeatmapMaxDist is the distance drawn coldest in the heatmap stream.
	HeatmapMaxDist float64 `toml:"heatmap_max_dist" yaml:"heatmap_max_dist" json:"heatmap_max_dist"`
}

// StoreConfig configures the database.
type StoreConfig struct {
	Path string `toml:"path" yaml:"path" json:"path"`
}

// SensorConfig configures the measurement source.
type SensorConfig struct {
	// Source is a JSON-lines recording replayed as the sensor.
	Source string `toml:"source" yaml:"source" json:"source"`
	Loop   bool   `toml:"loop" yaml:"loop" json:"loop"`
	// Profile names the sensor model; FOVHorizontal and FOVVertical override
	// its field of view when set.
	Profile       string  `toml:"profile" yaml:"profile" json:"profile"`
	FOVHorizontal float64 `toml:"fov_horizontal" yaml:"fov_horizontal" json:"fov_horizontal"`
	FOVVertical   float64 `toml:"fov_vertical" yaml:"fov_vertical" json:"fov_vertical"`
	// Orientation is how the sensor is mounted, such as "rot90" or
	// "rot180,mirror-h".
	Orientation   string `toml:"orientation" yaml:"orientation" json:"orientation"`
	SmoothWindow  int    `toml:"smooth_window" yaml:"smooth_window" json:"smooth_window"`
	IdleHz        int    `toml:"idle_hz" yaml:"idle_hz" json:"idle_hz"`
	ActiveHz      int    `toml:"active_hz" yaml:"active_hz" json:"active_hz"`
	IdleTimeoutMs int    `toml:"idle_timeout_ms" yaml:"idle_timeout_ms" json:"idle_timeout_ms"`
}

// MotionConfig configures the motion gate.
type MotionConfig struct {
	ThresholdPercent float64 `toml:"threshold_percent" yaml:"threshold_percent" json:"threshold_percent"`
	DiffMm           float64 `toml:"diff_mm" yaml:"diff_mm" json:"diff_mm"`
	AlwaysActive     bool    `toml:"always_active" yaml:"always_active" json:"always_active"`
}

// PluginsConfig configures plugin discovery and execution.
type PluginsConfig struct {
	Dir       string `toml:"dir" yaml:"dir" json:"dir"`
	TimeoutMs int    `toml:"timeout_ms" yaml:"timeout_ms" json:"timeout_ms"`
}

// DataDir returns ~/.wave, or .wave when the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDirName
	}
	return filepath.Join(home, DataDirName)
}

// DefaultPath returns the default configuration file.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// DefaultConfig returns the configuration used for anything a file leaves
// out.
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			StreamFPS:      15,
			HeatmapMaxDist: 600,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "wave.db"),
		},
		Sensor: SensorConfig{
			Profile:       "vl53l5cx",
			Orientation:   "rot0",
			SmoothWindow:  1,
			IdleHz:        2,
			ActiveHz:      15,
			IdleTimeoutMs: 3000,
		},
		Recognizer: gesture.DefaultParams(),
		Motion: MotionConfig{
			ThresholdPercent: 5,
			DiffMm:           40,
		},
		Plugins: PluginsConfig{
			Dir:       filepath.Join(dataDir, "plugins"),
			TimeoutMs: 5000,
		},
	}
}

// ApplyEnvOverrides applies WAVE_ADDR, WAVE_DB, WAVE_PLUGIN_DIR and
// WAVE_SOURCE.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("WAVE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("WAVE_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("WAVE_PLUGIN_DIR"); v != "" {
		c.Plugins.Dir = v
	}
	if v := os.Getenv("WAVE_SOURCE"); v != "" {
		c.Sensor.Source = v
	}
}

// Validate checks the configuration for errors. All problems are reported.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.StreamFPS <= 0 {
		errs = append(errs, errors.New("server.stream_fps must be positive"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if _, err := c.SensorParams(); err != nil {
		errs = append(errs, fmt.Errorf("sensor: %w", err))
	}
	if _, err := c.Orientation(); err != nil {
		errs = append(errs, fmt.Errorf("sensor.orientation: %w", err))
	}
	if c.Sensor.SmoothWindow < 1 {
		errs = append(errs, errors.New("sensor.smooth_window must be at least 1"))
	}
	if c.Sensor.IdleHz <= 0 || c.Sensor.ActiveHz <= 0 {
		errs = append(errs, errors.New("sensor rates must be positive"))
	}
	if c.Sensor.IdleTimeoutMs <= 0 {
		errs = append(errs, errors.New("sensor.idle_timeout_ms must be positive"))
	}
	if err := c.Recognizer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("recognizer: %w", err))
	}
	if c.Motion.ThresholdPercent <= 0 || c.Motion.ThresholdPercent > 100 {
		errs = append(errs, errors.New("motion.threshold_percent must be in (0, 100]"))
	}
	if c.Motion.DiffMm <= 0 {
		errs = append(errs, errors.New("motion.diff_mm must be positive"))
	}
	if c.Plugins.TimeoutMs <= 0 {
		errs = append(errs, errors.New("plugins.timeout_ms must be positive"))
	}

	return multierr.Combine(errs...)
}

// SensorParams returns the field of view of the configured sensor.
func (c *Config) SensorParams() (detector.SensorParams, error) {
	params, err := detector.SensorProfile(c.Sensor.Profile)
	if err != nil {
		return params, err
	}
	if c.Sensor.FOVHorizontal != 0 {
		params.FOVHorizontal = c.Sensor.FOVHorizontal
	}
	if c.Sensor.FOVVertical != 0 {
		params.FOVVertical = c.Sensor.FOVVertical
	}
	return params, params.Validate()
}

// Orientation returns the parsed sensor orientation.
func (c *Config) Orientation() (grid.Orientation, error) {
	return grid.ParseOrientation(c.Sensor.Orientation)
}

// IdleTimeout returns the idle timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Sensor.IdleTimeoutMs) * time.Millisecond
}
