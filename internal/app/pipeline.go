package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"go.uber.org/multierr"

	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
	"github.com/ayusman/wave/internal/plugin"
	"github.com/ayusman/wave/internal/store"
)

// maxReadErrors is the number of consecutive failed reads after which the
// pipeline gives up on the source.
const maxReadErrors = 50

// ErrNoSource is returned by Start and Step without a measurement source.
var ErrNoSource = errors.New("no measurement source")

// resetter is implemented by sources with internal state that goes stale
// while idle, such as capture.PreprocessedSource.
type resetter interface {
	Reset()
}

// Start opens the source and begins the recognition pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}
	if a.source == nil {
		return ErrNoSource
	}

	if err := a.source.Open(); err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	a.source.SetRate(a.config.IdleHz)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.done = make(chan struct{})
	a.loopErr = nil
	go a.runPipeline(a.ctx, a.done)

	log.Println("Recognition pipeline started")
	return nil
}

// Done returns a channel that is closed when the pipeline stops, either by
// Stop or because the source ran out of measurements. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done
}

// Stop halts the pipeline, waits for running plugins and closes the source.
// The error combines a failure that stopped the pipeline with the error of
// closing the source.
func (a *App) Stop() error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done
	a.actions.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	err := multierr.Combine(a.loopErr, a.source.Close())
	log.Println("Recognition pipeline stopped")
	return err
}

// runPipeline reads measurements at the current source rate until ctx is
// done or the source is exhausted.
//
// Pipeline logic:
// 1. Start in idle mode at the idle rate
// 2. On motion, switch to the active rate and feed the recognizer
// 3. After IdleTimeout without motion, go idle and reset the recognizer
func (a *App) runPipeline(ctx context.Context, done chan struct{}) {
	defer close(done)

	rate := a.Source().Rate()
	if rate <= 0 {
		rate = a.config.IdleHz
	}
	ticker := a.clock.Ticker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			continue
		}

		_, err := a.Step()
		switch {
		case errors.Is(err, io.EOF):
			log.Println("Source exhausted")
			return
		case err != nil && !errors.Is(err, gesture.ErrInvalidInput):
			failures++
			log.Printf("Error reading measurement: %v", err)
			if failures >= maxReadErrors {
				a.mu.Lock()
				a.loopErr = fmt.Errorf("source failed %d times: %w", failures, err)
				a.mu.Unlock()
				return
			}
			continue
		}
		failures = 0

		if r := a.Source().Rate(); r != rate && r > 0 {
			rate = r
			ticker.Reset(time.Second / time.Duration(rate))
		}
	}
}

// Step reads one measurement from the source, runs it through the motion
// gate and, while active, through the recognizer. The measurement is stamped
// with the pipeline clock.
func (a *App) Step() (gesture.Result, error) {
	src := a.Source()
	if src == nil {
		return gesture.DefaultResult(), ErrNoSource
	}

	m, err := src.Read()
	if err != nil {
		return gesture.DefaultResult(), err
	}

	if !a.gate(m) {
		s := a.Latest()
		s.Zones = m.Zones
		s.Hand = detector.HandNotFound()
		s.Gesture = gesture.None
		s.Active = false
		a.publish(s)
		return gesture.DefaultResult(), nil
	}

	a.recMu.Lock()
	m.TimeMs = a.timestamp()
	a.recMu.Unlock()

	return a.ProcessMeasurement(*m)
}

// gate runs the motion detector and switches between idle and active mode.
// It reports whether m should be fed to the recognizer.
func (a *App) gate(m *detector.SensorMeasurement) bool {
	motion := a.config.AlwaysActive
	if !motion {
		motion, _ = a.motion.Detect(m)
	}

	a.recMu.Lock()
	defer a.recMu.Unlock()

	now := a.clock.Now()
	switch {
	case motion:
		a.lastMotion = now
		if !a.active {
			a.active = true
			a.Source().SetRate(a.config.ActiveHz)
			log.Println("Switched to active mode")
		}
	case a.active && now.Sub(a.lastMotion) > a.config.IdleTimeout:
		a.active = false
		a.Source().SetRate(a.config.IdleHz)
		a.recognizer.Reset(a.recognizer.Params(), a.recognizer.SensorParams(), a.timestamp())
		if r, ok := a.Source().(resetter); ok {
			r.Reset()
		}
		log.Println("Switched to idle mode")
	}

	return a.active
}

// timestamp returns the milliseconds since the app was created, starting at
// 1 so the first measurement is newer than a cleared history. Callers hold
// recMu.
func (a *App) timestamp() uint32 {
	return uint32(a.clock.Since(a.start).Milliseconds()) + 1
}

// ProcessMeasurement feeds one timestamped measurement to the recognizer,
// publishes the result and handles a recognized gesture.
func (a *App) ProcessMeasurement(m detector.SensorMeasurement) (gesture.Result, error) {
	a.recMu.Lock()
	res, err := a.recognizer.Update(m)
	warmingUp := a.recognizer.WarmingUp()
	_, closest := detector.FindNearestHandPos(a.recognizer.History().NewerThan(ClosestWindowMs, m.TimeMs).Hands())
	a.recMu.Unlock()

	if err != nil {
		log.Printf("Measurement rejected: %v", err)
		return res, err
	}

	s := a.Latest()
	s.Hand = res.Hand
	s.Closest = closest
	// A recognized gesture clears the history, so only the current hand is
	// left to compare with.
	if res.Hand.Found && (closest.IsInvalid() || res.Hand.Pos.R < closest.R) {
		s.Closest = res.Hand.Pos
	}
	s.Gesture = res.Gesture
	s.TimeMs = m.TimeMs
	s.Zones = m.Zones
	s.Active = true
	s.WarmingUp = warmingUp
	if res.Gesture != gesture.None {
		s.LastGesture = res.Gesture
		s.LastGestureAt = a.clock.Now()
	}
	a.publish(s)

	if res.Gesture != gesture.None {
		a.handleGesture(res, m.TimeMs)
	}

	return res, nil
}

// handleGesture records the gesture and runs the action bound to it.
func (a *App) handleGesture(res gesture.Result, timeMs uint32) {
	log.Printf("Gesture recognized: %s", res.Gesture)

	st := a.config.Store
	if st == nil {
		return
	}

	event := &store.Event{Gesture: res.Gesture, Hand: res.Hand, TimeMs: timeMs}
	if err := st.Events().Create(event); err != nil {
		log.Printf("Failed to store event: %v", err)
	}

	action, err := st.Actions().GetByGesture(res.Gesture)
	if err != nil {
		log.Printf("Failed to look up action for %s: %v", res.Gesture, err)
		return
	}
	if action == nil || !action.Enabled {
		return
	}

	a.actions.Add(1)
	go func() {
		defer a.actions.Done()
		a.executeAction(action, res)
	}()
}

// executeAction runs the plugin action bound to a recognized gesture.
func (a *App) executeAction(action *store.Action, res gesture.Result) {
	p, err := a.pluginMgr.Get(action.PluginName)
	if err != nil {
		log.Printf("Action for %s: plugin %s: %v", res.Gesture, action.PluginName, err)
		return
	}

	req := plugin.NewRequest(action.ActionName, res.Gesture, res.Hand, action.Config)

	resp, err := a.pluginExec.Execute(a.runContext(), p, req)
	if err != nil {
		log.Printf("Action for %s failed: %v", res.Gesture, err)
		return
	}
	if !resp.Success {
		log.Printf("Action for %s failed: %s", res.Gesture, resp.Error)
		return
	}

	log.Printf("Action %s/%s executed for %s", action.PluginName, action.ActionName, res.Gesture)
}

// runContext returns the context of the running pipeline, or a background
// context when measurements are fed directly.
func (a *App) runContext() context.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.ctx != nil && a.cancel != nil {
		return a.ctx
	}
	return context.Background()
}
