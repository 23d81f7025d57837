package app

import (
	"errors"
	"io"
	"time"

	"ldrmorse/pkg/port"
	"ldrmorse/pkg/session"

	"github.com/dustin/go-humanize"
	"github.com/womat/debug"
)

// runSampler reads the light sensor at the configured sample rate while a session is capturing.
//  It's designed to run in a separate go function, it returns after Close.
func (app *App) runSampler() {
	ticker := time.NewTicker(app.config.ADC.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-app.quit:
			return
		case <-ticker.C:
		}

		if app.session.State() != session.Capturing {
			continue
		}

		v, err := app.sensor.Read()
		if err == io.EOF {
			debug.InfoLog.Print("end of replayed samples")
			_, _ = app.EndSession()
			continue
		}
		if err != nil {
			debug.ErrorLog.Printf("read light sensor: %v", err)
			continue
		}

		if err = app.session.Record(v); err != nil && !errors.Is(err, session.ErrNotCapturing) {
			debug.ErrorLog.Printf("record sample: %v", err)
		}
	}
}

// runPoller decodes the captured samples while a streaming session is running.
func (app *App) runPoller() {
	if app.config.Decoder.StreamAfter <= 0 || app.config.Decoder.Poll <= 0 {
		return
	}

	ticker := time.NewTicker(app.config.Decoder.Poll)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-app.quit:
			return
		case <-ticker.C:
		}

		if app.session.State() != session.Capturing {
			last = ""
			continue
		}

		text, err := app.session.Poll()
		if err != nil {
			if !errors.Is(err, session.ErrNotCapturing) {
				debug.ErrorLog.Printf("streaming decoding failed: %v", err)
				_ = app.errorLED.Set(port.High)
			}
			continue
		}
		if text != last {
			debug.DebugLog.Printf("decoded so far: %q", text)
			last = text
		}
	}
}

// runButton toggles the session on each button press.
func (app *App) runButton() {
	for {
		select {
		case <-app.quit:
			return
		case e := <-app.button.C:
			debug.DebugLog.Printf("button pressed at %v", e.Timestamp)
			if app.session.State() == session.Capturing {
				_, _ = app.EndSession()
			} else {
				_ = app.BeginSession()
			}
		}
	}
}

// BeginSession starts a new capture and illuminates the sensor.
func (app *App) BeginSession() error {
	app.toggle.Lock()
	defer app.toggle.Unlock()

	if err := app.session.Begin(); err != nil {
		debug.ErrorLog.Printf("begin session: %v", err)
		return err
	}

	app.setLEDs(true, false)
	return nil
}

// EndSession stops the capture, decodes the samples and hands the result to the archive and the mqtt broker.
func (app *App) EndSession() (session.Result, error) {
	app.toggle.Lock()
	defer app.toggle.Unlock()

	r, err := app.session.End()
	if errors.Is(err, session.ErrNotCapturing) || errors.Is(err, session.ErrTerminated) {
		return r, err
	}

	app.setLEDs(false, err != nil)
	debug.InfoLog.Printf("session with %s samples finished after %v", humanize.Comma(int64(r.Samples)), r.Duration().Round(time.Millisecond))

	app.handleResult(r)
	return r, err
}

// setLEDs shows the state of the session: ready while idle, capture while capturing, error after a failed session.
func (app *App) setLEDs(capturing, failed bool) {
	state := func(b bool) port.StateType {
		if b {
			return port.High
		}
		return port.Low
	}

	for _, l := range []struct {
		name string
		led  port.Indicator
		on   bool
	}{
		{"ready", app.readyLED, !capturing},
		{"capture", app.captureLED, capturing},
		{"error", app.errorLED, failed},
	} {
		if err := l.led.Set(state(l.on)); err != nil {
			debug.ErrorLog.Printf("set %s led: %v", l.name, err)
		}
	}
}
