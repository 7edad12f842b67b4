package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/ayusman/wave/internal/app"
	"github.com/ayusman/wave/internal/config"
	"github.com/ayusman/wave/internal/server"
	"github.com/ayusman/wave/internal/store"
	"github.com/ayusman/wave/internal/tray"
)

func serveAction(c *cli.Context) (err error) {
	fmt.Println("Wave - Hand Gesture Recognition")

	loader, cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, loader.Close()) }()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	a, err := newPipeline(cfg, st)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}

	if a.Source() != nil {
		if err := a.Start(); err != nil {
			return err
		}
	} else {
		log.Println("No sensor source configured, serving the API only")
	}

	loader.OnChange(func(cfg *config.Config) { applyConfig(a, cfg) })
	if err := loader.Watch(); err != nil {
		log.Printf("Config changes will not be picked up: %v", err)
	}

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
		StreamFPS: cfg.Server.StreamFPS,
		MaxDist:   cfg.Server.HeatmapMaxDist,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
	if !c.Bool(flagTray) {
		return srv.Run(ctx, cfg.Server.Addr)
	}
	return runWithTray(ctx, stop, a, srv, cfg.Server.Addr)
}

// runWithTray serves in the background while the tray menu runs on the
// calling goroutine. Quitting the tray or cancelling ctx stops both.
func runWithTray(ctx context.Context, cancel context.CancelFunc, a *app.App, srv *server.Server, addr string) error {
	t := tray.New()
	detach := t.Attach(a)
	defer detach()

	t.OnSettings(func() {
		if err := openBrowser(settingsURL(addr)); err != nil {
			log.Printf("Failed to open settings: %v", err)
		}
	})
	t.OnQuit(cancel)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Run(ctx, addr)
		t.Quit()
	}()

	t.Run()
	cancel()
	return <-errc
}

// openStore opens the database, creating its directory.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return st, nil
}

// newPipeline creates the app for cfg. Parameters saved through the API
// take precedence over the configuration file at startup.
func newPipeline(cfg *config.Config, st *store.Store) (*app.App, error) {
	sensorParams, err := cfg.SensorParams()
	if err != nil {
		return nil, err
	}
	params := cfg.Recognizer

	if st != nil {
		saved, savedSensor, err := st.Settings().LoadParams()
		switch {
		case err == nil:
			params, sensorParams = saved, savedSensor
			log.Println("Using recognizer parameters saved in the store")
		case !errors.Is(err, store.ErrNotFound):
			log.Printf("Ignoring saved parameters: %v", err)
		}
	}

	acfg := app.Config{
		Store:           st,
		PluginDir:       cfg.Plugins.Dir,
		PluginTimeoutMs: cfg.Plugins.TimeoutMs,
		MotionThresh:    cfg.Motion.ThresholdPercent,
		MotionDiffMm:    cfg.Motion.DiffMm,
		AlwaysActive:    cfg.Motion.AlwaysActive,
		Params:          params,
		SensorParams:    sensorParams,
		IdleHz:          cfg.Sensor.IdleHz,
		ActiveHz:        cfg.Sensor.ActiveHz,
		IdleTimeout:     cfg.IdleTimeout(),
	}
	if cfg.Sensor.Source != "" {
		src, err := newSource(cfg)
		if err != nil {
			return nil, err
		}
		acfg.Source = src
	}

	return app.New(acfg), nil
}

// applyConfig applies a reloaded configuration to the running app.
func applyConfig(a *app.App, cfg *config.Config) {
	sensorParams, err := cfg.SensorParams()
	if err != nil {
		log.Printf("Ignoring sensor parameters: %v", err)
		_, sensorParams = a.Params()
	}
	a.SetParams(cfg.Recognizer, sensorParams)
	a.SetMotionThreshold(cfg.Motion.ThresholdPercent, cfg.Motion.DiffMm)
}

// settingsURL returns the address of the web interface served on addr.
func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
