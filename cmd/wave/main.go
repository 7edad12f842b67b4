// Command wave recognizes hand gestures in the zones of a ToF sensor and runs
// the plugin actions bound to them.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/ayusman/wave/internal/capture"
	"github.com/ayusman/wave/internal/config"
)

const (
	flagConfig = "config"
	flagTray   = "tray"
	flagFrames = "frames"
	flagLimit  = "limit"
	flagRate   = "rate"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "wave",
		Usage: "hand gesture recognition for 8x8 time-of-flight sensors",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
				Value:   config.DefaultPath(),
				EnvVars: []string{"WAVE_CONFIG"},
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the recognition pipeline and the web interface",
				Action: serveAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagTray,
						Usage: "show a system tray menu",
					},
				},
			},
			{
				Name:      "replay",
				Usage:     "run a recording through a fresh recognizer and print the gestures",
				ArgsUsage: "FILE",
				Action:    replayAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagRate,
						Usage: "stamp measurements without times at `HZ`",
						Value: capture.DefaultRate,
					},
				},
			},
			{
				Name:   "events",
				Usage:  "list the stored gesture events",
				Action: eventsAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagLimit,
						Usage: "show at most `N` events",
						Value: 20,
					},
				},
			},
			{
				Name:      "record",
				Usage:     "read frames from the configured source and write them as JSON lines",
				ArgsUsage: "FILE",
				Action:    recordAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagFrames,
						Usage: "number of frames to record",
						Value: 150,
					},
				},
			},
		},
	}
}

// loadConfig loads the configuration named by the --config flag.
func loadConfig(c *cli.Context) (*config.Loader, *config.Config, error) {
	loader := config.NewLoader(c.String(flagConfig))
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return loader, cfg, nil
}

// newSource returns the measurement source of cfg, rotated and smoothed as
// configured. The source is not opened.
func newSource(cfg *config.Config) (capture.Source, error) {
	if cfg.Sensor.Source == "" {
		return nil, fmt.Errorf("no sensor source configured (set sensor.source or WAVE_SOURCE)")
	}

	orientation, err := cfg.Orientation()
	if err != nil {
		return nil, err
	}

	return capture.NewPreprocessedSource(
		capture.NewReplaySource(cfg.Sensor.Source, cfg.Sensor.Loop),
		orientation,
		cfg.Sensor.SmoothWindow,
	), nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.wave/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	dataWebDir := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
