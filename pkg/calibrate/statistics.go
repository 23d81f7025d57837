package calibrate

import (
	"fmt"
	"sort"

	"github.com/womat/debug"
	"ldrmorse/pkg/runlength"
)

const (
	// DefaultMargin is the tolerance to separate two run length classes.
	DefaultMargin = 0.2
	// MinMargin and MaxMargin limit the tolerance.
	MinMargin = 0.2
	MaxMargin = 0.8

	// dashRatio and longGapRatio are the ITU ratios, used if a class wasn't observed.
	dashRatio    = 3
	longGapRatio = 3
)

// Statistics infers the units from all runs of the session.
// The shortest mark is a dot, the shortest space is the gap between elements.
// The next longer class is the first run length which exceeds the shorter class by more than margin.
//
// Dots and short gaps have the same length, so the shortest run of both polarities is the unit.
// If all marks are longer than the unit, the message has no dot ("MOM") and the marks are dashes.
// If all spaces are longer than the unit, the message has no short gap ("EEE") and the spaces are long gaps.
// A message without both short classes (e.g. "T T") remains ambiguous.
type Statistics struct {
	margin float64
	marks  []int
	spaces []int
}

// NewStatistics creates a statistical calibrator. The margin must be within MinMargin and MaxMargin.
func NewStatistics(margin float64) (*Statistics, error) {
	if margin < MinMargin || margin > MaxMargin {
		return nil, fmt.Errorf("%w: margin %v not within [%v, %v]", ErrInvalidCalibration, margin, MinMargin, MaxMargin)
	}
	return &Statistics{margin: margin}, nil
}

// Observe collects the run length. The run is never consumed.
// Leading and trailing runs are cut by the session boundaries and don't count.
func (s *Statistics) Observe(r runlength.Run) bool {
	if r.Leading || r.Trailing {
		return false
	}

	switch r.Polarity {
	case runlength.Mark:
		s.marks = append(s.marks, r.Length)
	case runlength.Space:
		s.spaces = append(s.spaces, r.Length)
	}
	return false
}

// Ready is always false, the statistic needs the whole stream.
func (s *Statistics) Ready() bool {
	return false
}

// Deferred is true, every observed run is part of the message.
func (s *Statistics) Deferred() bool {
	return true
}

// Units calculates the units of the observed runs.
func (s *Statistics) Units() (Units, error) {
	if len(s.marks) == 0 {
		return Units{}, fmt.Errorf("%w: no marks observed", ErrCalibrationIncomplete)
	}

	var u Units

	marks := sorted(s.marks)
	spaces := sorted(s.spaces)

	unit := marks[0]
	if len(spaces) > 0 && spaces[0] < unit {
		unit = spaces[0]
	}

	u.Dot = s.shortest(marks, unit)
	u.Dash = s.next(marks, u.Dot, u.Dot*dashRatio)

	if len(spaces) == 0 {
		// a single element, use the ITU ratios of the dot
		u.ShortGap = u.Dot
	} else {
		u.ShortGap = s.shortest(spaces, unit)
	}

	u.LongGap = s.next(spaces, u.ShortGap, u.ShortGap*longGapRatio)
	u.WordGap = s.next(spaces, u.LongGap, wordGap(u.LongGap))

	debug.InfoLog.Printf("statistical calibration of %d marks and %d spaces: %v", len(s.marks), len(s.spaces), u)

	if err := u.Validate(); err != nil {
		return u, err
	}
	return u, nil
}

// shortest returns the shortest length, or unit if even the shortest length belongs to a longer class.
func (s *Statistics) shortest(lengths []int, unit int) int {
	if float64(lengths[0]) > float64(unit)*(1+s.margin) {
		return unit
	}
	return lengths[0]
}

// next returns the shortest length which is longer than unit plus margin.
// If there is no such length, fallback is returned.
func (s *Statistics) next(lengths []int, unit, fallback int) int {
	limit := float64(unit) * (1 + s.margin)

	for _, l := range lengths {
		if float64(l) > limit {
			return l
		}
	}
	return fallback
}

func sorted(v []int) []int {
	s := append([]int(nil), v...)
	sort.Ints(s)
	return s
}
