package session

import (
	"fmt"

	"github.com/womat/debug"
	"ldrmorse/pkg/calibrate"
	"ldrmorse/pkg/morse"
	"ldrmorse/pkg/runlength"
	"ldrmorse/pkg/samplebuf"
	"ldrmorse/pkg/symbol"
	"ldrmorse/pkg/threshold"
)

// pipeline decodes samples with a fixed threshold:
// samples -> runs -> calibration -> tokens -> characters.
type pipeline struct {
	level   threshold.Level
	scanner *runlength.Scanner
	cal     calibrate.Calibrator
	// pending holds the message runs received before the calibration was ready.
	pending    []runlength.Run
	classifier *symbol.Classifier
	decoder    *morse.Decoder
	units      calibrate.Units
	samples    int
}

func newPipeline(level threshold.Level, c Config) (*pipeline, error) {
	cal, err := calibrate.New(c.Strategy, c.Margin)
	if err != nil {
		return nil, err
	}

	debug.DebugLog.Printf("threshold %d (high %d, low %d, window %.1f)", level.Threshold, level.High, level.Low, level.Window)

	return &pipeline{
		level:   level,
		scanner: runlength.NewScanner(level.Threshold),
		cal:     cal,
		decoder: morse.NewDecoder(c.Policy),
	}, nil
}

// calibrated reports whether the classifier is set up.
func (p *pipeline) calibrated() bool {
	return p.classifier != nil
}

// feed processes one sample.
func (p *pipeline) feed(s samplebuf.Sample) error {
	p.samples++
	if r, ok := p.scanner.Feed(s); ok {
		return p.run(r)
	}
	return nil
}

// run routes a run to the calibrator until the units are known, afterwards to the classifier.
func (p *pipeline) run(r runlength.Run) error {
	if !p.calibrated() {
		if p.cal.Observe(r) {
			return nil
		}
		if !p.cal.Ready() {
			if p.cal.Deferred() {
				p.pending = append(p.pending, r)
			} else {
				debug.TraceLog.Printf("drop idle %v", r)
			}
			return nil
		}
		if err := p.calibrate(); err != nil {
			return err
		}
	}
	return p.classify(r)
}

// calibrate sets up the classifier and decodes the runs held back during calibration.
func (p *pipeline) calibrate() error {
	u, err := p.cal.Units()
	if err != nil {
		return err
	}

	p.units = u
	p.classifier = symbol.NewClassifier(u)

	pending := p.pending
	p.pending = nil
	for _, r := range pending {
		if err := p.classify(r); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) classify(r runlength.Run) error {
	t, ok := p.classifier.Classify(r)
	if !ok {
		return nil
	}
	return p.decoder.Feed(t)
}

// finish flushes the last run and the pending character.
func (p *pipeline) finish() error {
	if r, ok := p.scanner.Flush(); ok {
		if err := p.run(r); err != nil {
			return err
		}
	}

	if !p.calibrated() {
		if err := p.calibrate(); err != nil {
			return fmt.Errorf("%d samples: %w", p.samples, err)
		}
	}

	if t, ok := p.classifier.Finish(); ok {
		if err := p.decoder.Feed(t); err != nil {
			return err
		}
	}
	return p.decoder.Finish()
}
