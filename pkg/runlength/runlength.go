// Package runlength converts thresholded samples into runs of consecutive marks or spaces.
//
// Polarity convention: a low intensity means the light is blocked.
// A sample at or below the threshold is a Mark, a sample above the threshold is a Space.
package runlength

import (
	"fmt"

	"ldrmorse/pkg/samplebuf"
)

// EndMarker is the sample value reserved to terminate a session.
// The scanner ignores all samples after an end marker.
const EndMarker = 0

const (
	// Mark is a run of blocked light (dot or dash).
	Mark Polarity = iota
	// Space is a run of visible light (gap).
	Space
)

// Polarity is the side of the threshold a run is on.
type Polarity int

func (p Polarity) String() string {
	switch p {
	case Mark:
		return "mark"
	case Space:
		return "space"
	default:
		return fmt.Sprintf("polarity(%d)", int(p))
	}
}

// PolarityOf returns the polarity of an intensity value.
func PolarityOf(value, threshold int) Polarity {
	if value <= threshold {
		return Mark
	}
	return Space
}

// Run is a sequence of consecutive samples with the same polarity.
type Run struct {
	Polarity Polarity
	// Length is the count of samples.
	Length int
	// Start is the index of the first sample of the run.
	Start int
	// Leading is set for the first run of a stream. No transition has been observed before it,
	// so the run may have started before the capture.
	Leading bool
	// Trailing is set for the last run of a stream. It is cut by the end of the session.
	Trailing bool
}

func (r Run) String() string {
	s := fmt.Sprintf("%v:%d@%d", r.Polarity, r.Length, r.Start)
	if r.Leading {
		s += " leading"
	}
	if r.Trailing {
		s += " trailing"
	}
	return s
}

// Scanner splits a sample stream into runs.
type Scanner struct {
	threshold int
	// current is the run in progress.
	current Run
	// runs is the count of completed runs.
	runs int
	// ended is set if an end marker was received.
	ended bool
	// flushed is set after Flush.
	flushed bool
}

// NewScanner creates a scanner for the given black/white threshold.
func NewScanner(threshold int) *Scanner {
	return &Scanner{threshold: threshold}
}

// Feed adds a sample. If the sample completes a run, the run is returned and ok is true.
func (s *Scanner) Feed(sample samplebuf.Sample) (r Run, ok bool) {
	if s.ended || s.flushed {
		return Run{}, false
	}
	if sample.Value == EndMarker {
		s.ended = true
		return Run{}, false
	}

	p := PolarityOf(sample.Value, s.threshold)

	if s.current.Length > 0 && p == s.current.Polarity {
		s.current.Length++
		return Run{}, false
	}

	if s.current.Length > 0 {
		r, ok = s.current, true
		s.runs++
	}

	s.current = Run{Polarity: p, Length: 1, Start: sample.Index, Leading: s.runs == 0}
	return r, ok
}

// Flush returns the run in progress, marked as trailing.
// After Flush the scanner ignores further samples.
func (s *Scanner) Flush() (Run, bool) {
	if s.flushed {
		return Run{}, false
	}
	s.flushed = true

	if s.current.Length == 0 {
		return Run{}, false
	}

	r := s.current
	r.Trailing = true
	s.current = Run{}
	s.runs++
	return r, true
}

// Ended reports whether an end marker was received.
func (s *Scanner) Ended() bool {
	return s.ended
}

// Scan splits all samples into runs, including the trailing run.
func Scan(samples []samplebuf.Sample, threshold int) []Run {
	var runs []Run

	s := NewScanner(threshold)
	for _, x := range samples {
		if r, ok := s.Feed(x); ok {
			runs = append(runs, r)
		}
	}
	if r, ok := s.Flush(); ok {
		runs = append(runs, r)
	}
	return runs
}
