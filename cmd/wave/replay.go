package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/ayusman/wave/internal/capture"
	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
	"github.com/ayusman/wave/internal/grid"
	"github.com/ayusman/wave/internal/store"
)

// detection is a gesture found while replaying a recording.
type detection struct {
	TimeMs  uint32
	Gesture gesture.Gesture
	Hand    detector.HandState
}

func replayAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("replay needs a recording FILE", 2)
	}

	_, cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sensorParams, err := cfg.SensorParams()
	if err != nil {
		return err
	}
	orientation, err := cfg.Orientation()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	measurements, err := capture.ReadRecording(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	found, err := replay(measurements, replayOptions{
		Params:       cfg.Recognizer,
		SensorParams: sensorParams,
		Orientation:  orientation,
		SmoothWindow: cfg.Sensor.SmoothWindow,
		RateHz:       c.Int(flagRate),
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, detectionTable(found))
	fmt.Fprintf(c.App.Writer, "%d measurements, %d gestures\n", len(measurements), len(found))
	return nil
}

type replayOptions struct {
	Params       gesture.Params
	SensorParams detector.SensorParams
	Orientation  grid.Orientation
	SmoothWindow int
	// RateHz stamps the measurements when the recording carries no
	// increasing times.
	RateHz int
}

// replay runs measurements through the preprocessing and a fresh recognizer
// and returns every recognized gesture.
func replay(measurements []detector.SensorMeasurement, opts replayOptions) ([]detection, error) {
	if len(measurements) == 0 {
		return nil, nil
	}
	if !increasingTimes(measurements) {
		measurements = stamp(measurements, opts.RateHz)
	}

	src := capture.NewPreprocessedSource(capture.NewMockSource(measurements, false), opts.Orientation, opts.SmoothWindow)
	if err := src.Open(); err != nil {
		return nil, err
	}
	defer src.Close()

	rec := gesture.NewRecognizer(opts.Params, opts.SensorParams)

	var found []detection
	for {
		m, err := src.Read()
		if errors.Is(err, io.EOF) {
			return found, nil
		}
		if err != nil {
			return found, err
		}

		res, err := rec.Update(*m)
		if err != nil {
			return found, err
		}
		if res.Gesture != gesture.None {
			found = append(found, detection{TimeMs: m.TimeMs, Gesture: res.Gesture, Hand: res.Hand})
		}
	}
}

// increasingTimes reports whether every measurement is newer than the one
// before it, starting after zero.
func increasingTimes(measurements []detector.SensorMeasurement) bool {
	var last uint32
	for _, m := range measurements {
		if m.TimeMs <= last {
			return false
		}
		last = m.TimeMs
	}
	return true
}

// stamp returns a copy of measurements timed at rateHz, starting at 1ms.
func stamp(measurements []detector.SensorMeasurement, rateHz int) []detector.SensorMeasurement {
	if rateHz <= 0 {
		rateHz = capture.DefaultRate
	}
	// Rates above 1kHz still need strictly increasing times.
	period := max(uint32(1000/rateHz), 1)

	out := make([]detector.SensorMeasurement, len(measurements))
	for i, m := range measurements {
		m.TimeMs = 1 + uint32(i)*period
		out[i] = m
	}
	return out
}

func detectionTable(found []detection) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Time", "Gesture", "Hand r"})
	for i, d := range found {
		t.AppendRow(table.Row{i + 1, formatMs(d.TimeMs), d.Gesture, formatHand(d.Hand)})
	}
	return t.Render()
}

func eventsAction(c *cli.Context) (err error) {
	_, cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	events, err := st.Events().List(store.EventFilter{Limit: c.Int(flagLimit)})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	fmt.Fprintln(c.App.Writer, eventTable(events))
	return nil
}

func eventTable(events []*store.Event) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Created", "Gesture", "Time", "Hand r", "ID"})
	for _, e := range events {
		t.AppendRow(table.Row{
			e.CreatedAt.Local().Format(time.DateTime),
			e.Gesture,
			formatMs(e.TimeMs),
			formatHand(e.Hand),
			e.ID,
		})
	}
	return t.Render()
}

func recordAction(c *cli.Context) (err error) {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("record needs an output FILE", 2)
	}

	_, cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	if err := src.Open(); err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	measurements, err := record(src, c.Int(flagFrames))
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	if err := capture.WriteRecording(f, measurements); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Recorded %d frames to %s\n", len(measurements), path)
	return nil
}

// record reads up to frames measurements from src and stamps them at the
// source rate. A source running out early ends the recording.
func record(src capture.Source, frames int) ([]detector.SensorMeasurement, error) {
	out := make([]detector.SensorMeasurement, 0, max(frames, 0))
	for range frames {
		m, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read frame %d: %w", len(out), err)
		}
		out = append(out, *m)
	}
	return stamp(out, src.Rate()), nil
}

func formatMs(ms uint32) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func formatHand(h detector.HandState) string {
	if !h.Found {
		return "-"
	}
	return fmt.Sprintf("%.0f mm", h.Pos.R)
}
