// Package symbol classifies run lengths as morse elements and gaps.
package symbol

import (
	"fmt"

	"github.com/womat/debug"
	"ldrmorse/pkg/calibrate"
	"ldrmorse/pkg/runlength"
)

const (
	// Dot is a short mark.
	Dot Token = iota
	// Dash is a long mark.
	Dash
	// ElementGap separates the elements of a character.
	ElementGap
	// CharacterGap separates characters.
	CharacterGap
	// WordGap separates words.
	WordGap
)

// Token is the meaning of a run.
type Token int

func (t Token) String() string {
	switch t {
	case Dot:
		return "dot"
	case Dash:
		return "dash"
	case ElementGap:
		return "element gap"
	case CharacterGap:
		return "character gap"
	case WordGap:
		return "word gap"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// IsElement reports whether the token is a dot or a dash.
func (t Token) IsElement() bool {
	return t == Dot || t == Dash
}

// Nearest returns the position of the unit closest to length.
// The units must be sorted ascending; on a tie the shorter unit wins.
func Nearest(length int, units ...int) int {
	best, bestDist := 0, -1
	for i, u := range units {
		d := length - u
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Classifier snaps run lengths to the nearest calibrated unit.
type Classifier struct {
	units calibrate.Units
	// open is set while a character has elements without a closing gap.
	open bool
}

// NewClassifier creates a classifier for the calibrated units.
func NewClassifier(u calibrate.Units) *Classifier {
	return &Classifier{units: u}
}

// Classify returns the token of a run. ok is false if the run produces no token:
// the leading run of a session is a boundary artifact and is discarded.
// A trailing space has no measurable length, it only closes an open character.
func (c *Classifier) Classify(r runlength.Run) (t Token, ok bool) {
	switch {
	case r.Leading:
		debug.TraceLog.Printf("discard leading %v", r)
		return 0, false

	case r.Polarity == runlength.Mark:
		t = Dot
		if Nearest(r.Length, c.units.Dot, c.units.Dash) == 1 {
			t = Dash
		}
		c.open = true

	case r.Trailing:
		if !c.open {
			return 0, false
		}
		t = CharacterGap
		c.open = false

	default:
		switch Nearest(r.Length, c.units.ShortGap, c.units.LongGap, c.units.WordGap) {
		case 0:
			t = ElementGap
		case 1:
			t = CharacterGap
			c.open = false
		default:
			t = WordGap
			c.open = false
		}
	}

	debug.TraceLog.Printf("%v -> %v", r, t)
	return t, true
}

// Finish closes a character which ended with a mark at the end of the stream.
// It returns a synthetic CharacterGap in that case.
func (c *Classifier) Finish() (Token, bool) {
	if !c.open {
		return 0, false
	}
	c.open = false
	return CharacterGap, true
}
