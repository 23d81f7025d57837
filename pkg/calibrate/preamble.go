package calibrate

import (
	"fmt"

	"github.com/womat/debug"
	"ldrmorse/pkg/runlength"
)

const (
	// AwaitDash waits for the dash of the preamble.
	AwaitDash PreambleState = iota
	// AwaitGap1 waits for the gap between dash and dot (short gap).
	AwaitGap1
	// AwaitDot waits for the dot of the preamble.
	AwaitDot
	// AwaitGap2 waits for the gap after the dot (long gap).
	AwaitGap2
	// Done means all four elements are received.
	Done
)

// PreambleState represents the state of the preamble calibration.
type PreambleState int

func (s PreambleState) String() string {
	switch s {
	case AwaitDash:
		return "await dash"
	case AwaitGap1:
		return "await gap 1"
	case AwaitDot:
		return "await dot"
	case AwaitGap2:
		return "await gap 2"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Preamble measures the units on the calibration pattern "dash, short gap, dot, long gap"
// which the sender transmits at the very start of the session.
// The four run lengths are taken as they are, there are no retries.
type Preamble struct {
	state    PreambleState
	units    Units
	consumed int
}

// NewPreamble creates a preamble calibrator in state AwaitDash.
func NewPreamble() *Preamble {
	return &Preamble{state: AwaitDash}
}

// Observe consumes the next element of the preamble.
//
// Leading runs and spaces before the dash are idle light and are skipped without counting.
// A trailing run is cut by the end of the session, its length isn't the sent length.
// It's never consumed.
func (p *Preamble) Observe(r runlength.Run) bool {
	if p.state == Done || r.Leading || r.Trailing {
		return false
	}

	switch p.state {
	case AwaitDash:
		if r.Polarity != runlength.Mark {
			return false
		}
		p.units.Dash = r.Length
		p.state = AwaitGap1
	case AwaitGap1:
		p.units.ShortGap = r.Length
		p.state = AwaitDot
	case AwaitDot:
		p.units.Dot = r.Length
		p.state = AwaitGap2
	case AwaitGap2:
		p.units.LongGap = r.Length
		p.units.WordGap = wordGap(r.Length)
		p.state = Done
		debug.InfoLog.Printf("preamble calibration finished: %v", p.units)
	}

	p.consumed++
	debug.TraceLog.Printf("preamble %v, consumed %v", p.state, r)
	return true
}

// Ready reports whether the preamble is complete.
func (p *Preamble) Ready() bool {
	return p.state == Done
}

// Deferred is false, the runs before the preamble are idle light.
func (p *Preamble) Deferred() bool {
	return false
}

// State returns the current state.
func (p *Preamble) State() PreambleState {
	return p.state
}

// Consumed returns the count of consumed runs.
func (p *Preamble) Consumed() int {
	return p.consumed
}

// Units returns the measured units.
func (p *Preamble) Units() (Units, error) {
	if p.state != Done {
		return Units{}, fmt.Errorf("%w: preamble stopped in state %v after %d of 4 elements",
			ErrCalibrationIncomplete, p.state, p.consumed)
	}
	if err := p.units.Validate(); err != nil {
		return p.units, err
	}
	return p.units, nil
}
