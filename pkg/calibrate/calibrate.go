// Package calibrate derives the timing units of a morse transmission from the received run lengths.
// There is no clock or baud rate, the units are measured on the signal itself.
package calibrate

import (
	"errors"
	"fmt"
	"strings"

	"ldrmorse/pkg/runlength"
)

const (
	// PreambleStrategy reads the units from a fixed calibration pattern (dash, gap, dot, gap)
	// at the start of the session.
	PreambleStrategy Strategy = iota
	// StatisticalStrategy infers the units from the shortest runs of the whole session.
	StatisticalStrategy
)

// Strategy selects the calibration method of a session.
type Strategy int

var (
	// ErrCalibrationIncomplete is returned if the stream ended before the units could be determined.
	ErrCalibrationIncomplete = errors.New("calibration incomplete")
	// ErrInvalidCalibration is returned if the measured units contradict each other.
	ErrInvalidCalibration = errors.New("invalid calibration")
	// ErrUnknownStrategy is returned by ParseStrategy.
	ErrUnknownStrategy = errors.New("unknown calibration strategy")
)

func (s Strategy) String() string {
	switch s {
	case PreambleStrategy:
		return "preamble"
	case StatisticalStrategy:
		return "statistical"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy converts the configuration name of a strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "preamble":
		return PreambleStrategy, nil
	case "statistical", "statistic":
		return StatisticalStrategy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Units are the canonical lengths (in samples) of a transmission.
type Units struct {
	// Dot is the length of a dot.
	Dot int
	// Dash is the length of a dash.
	Dash int
	// ShortGap is the gap between the elements of a character.
	ShortGap int
	// LongGap is the gap between characters.
	LongGap int
	// WordGap is the gap between words.
	WordGap int
}

// Validate checks the units. Every unit must be positive
// and the long units must be longer than their short counterpart.
func (u Units) Validate() error {
	switch {
	case u.Dot <= 0, u.Dash <= 0, u.ShortGap <= 0, u.LongGap <= 0, u.WordGap <= 0:
		return fmt.Errorf("%w: units must be positive %v", ErrInvalidCalibration, u)
	case u.Dash <= u.Dot:
		return fmt.Errorf("%w: dash %d not longer than dot %d", ErrInvalidCalibration, u.Dash, u.Dot)
	case u.LongGap <= u.ShortGap:
		return fmt.Errorf("%w: long gap %d not longer than short gap %d", ErrInvalidCalibration, u.LongGap, u.ShortGap)
	case u.WordGap <= u.LongGap:
		return fmt.Errorf("%w: word gap %d not longer than long gap %d", ErrInvalidCalibration, u.WordGap, u.LongGap)
	}
	return nil
}

func (u Units) String() string {
	return fmt.Sprintf("dot %d, dash %d, short gap %d, long gap %d, word gap %d",
		u.Dot, u.Dash, u.ShortGap, u.LongGap, u.WordGap)
}

// wordGap derives the word gap from the gap between characters (ITU ratio 7:3).
func wordGap(longGap int) int {
	w := (longGap*7 + 2) / 3
	if w <= longGap {
		w = longGap + 1
	}
	return w
}

// Calibrator determines the timing units from a run length stream.
type Calibrator interface {
	// Observe offers the next run. It returns true if the run belongs to the calibration
	// and must not be decoded.
	Observe(runlength.Run) bool
	// Ready reports whether the units are determined before the end of the stream.
	Ready() bool
	// Deferred reports whether runs offered before Ready belong to the message and have to be
	// decoded once the units are known. Otherwise they are idle light and dropped.
	Deferred() bool
	// Units returns the timing units. It fails with ErrCalibrationIncomplete if not enough runs were observed.
	Units() (Units, error)
}

// New returns the calibrator of a strategy. The margin is only used by the statistical strategy.
func New(s Strategy, margin float64) (Calibrator, error) {
	switch s {
	case PreambleStrategy:
		return NewPreamble(), nil
	case StatisticalStrategy:
		return NewStatistics(margin)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, s)
	}
}
