package morse

import (
	"errors"
	"fmt"
	"strings"

	lev "github.com/agnivade/levenshtein"
	"github.com/womat/debug"
	"ldrmorse/pkg/symbol"
)

const (
	// PolicySkip drops an unknown pattern, reports it and continues decoding.
	PolicySkip Policy = iota
	// PolicyAbort rejects the whole session on the first unknown pattern.
	PolicyAbort
)

// Policy defines how the decoder handles patterns which aren't in the alphabet.
type Policy int

var (
	// ErrPatternNotFound is returned if an accumulated pattern matches no alphabet entry.
	ErrPatternNotFound = errors.New("pattern not found")
	// ErrUnknownPolicy is returned by ParsePolicy.
	ErrUnknownPolicy = errors.New("unknown decode policy")
)

func (p Policy) String() string {
	switch p {
	case PolicySkip:
		return "skip"
	case PolicyAbort:
		return "abort"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts the configuration name of a policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return PolicySkip, nil
	case "abort":
		return PolicyAbort, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// PatternError describes a pattern without alphabet entry.
type PatternError struct {
	// Pattern is the received code.
	Pattern string
	// Position is the index in the decoded message where the character was expected.
	Position int
	// Nearest is the alphabet entry with the smallest edit distance, for diagnostics only.
	Nearest Entry
	// Distance is the edit distance to Nearest.
	Distance int
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%v: %q at position %d (nearest %q %q, distance %d)",
		ErrPatternNotFound, e.Pattern, e.Position, e.Nearest.Char, e.Nearest.Code, e.Distance)
}

// Unwrap makes errors.Is(err, ErrPatternNotFound) work.
func (e *PatternError) Unwrap() error {
	return ErrPatternNotFound
}

// nearest returns the alphabet entry with the smallest edit distance to the pattern.
func nearest(pattern string) (Entry, int) {
	best, bestDist := alphabet[0], -1
	for _, e := range alphabet {
		if d := lev.ComputeDistance(pattern, e.Code); bestDist < 0 || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, bestDist
}

// Decoder accumulates dot and dash tokens and converts each completed pattern to a character.
type Decoder struct {
	policy Policy
	// pattern is the code of the current character.
	pattern strings.Builder
	// message is the decoded text.
	message []rune
	// symbols is the transcript of the received tokens.
	symbols strings.Builder
	// unmatched are the skipped patterns.
	unmatched []*PatternError
}

// NewDecoder creates a decoder with the given policy for unknown patterns.
func NewDecoder(p Policy) *Decoder {
	return &Decoder{policy: p}
}

// Feed processes the next token.
// With PolicyAbort, an unknown pattern returns a *PatternError and the decoder must not be used any longer.
func (d *Decoder) Feed(t symbol.Token) error {
	switch t {
	case symbol.Dot:
		d.pattern.WriteRune(DotSign)
		d.symbols.WriteRune(DotSign)
	case symbol.Dash:
		d.pattern.WriteRune(DashSign)
		d.symbols.WriteRune(DashSign)
	case symbol.ElementGap:
	case symbol.CharacterGap:
		return d.flush()
	case symbol.WordGap:
		if err := d.flush(); err != nil {
			return err
		}
		d.message = append(d.message, ' ')
		d.symbols.WriteString("/ ")
	default:
		return fmt.Errorf("invalid token %v", t)
	}
	return nil
}

// Finish converts the pending pattern at the end of the stream.
func (d *Decoder) Finish() error {
	return d.flush()
}

// flush converts the pending pattern to a character.
func (d *Decoder) flush() error {
	if d.pattern.Len() == 0 {
		return nil
	}

	code := d.pattern.String()
	d.pattern.Reset()
	d.symbols.WriteRune(' ')

	if r, ok := Lookup(code); ok {
		d.message = append(d.message, r)
		return nil
	}

	e := &PatternError{Pattern: code, Position: len(d.message)}
	e.Nearest, e.Distance = nearest(code)

	if d.policy == PolicyAbort {
		return e
	}

	debug.ErrorLog.Printf("skip morse pattern: %v", e)
	d.unmatched = append(d.unmatched, e)
	return nil
}

// Text returns the decoded message.
func (d *Decoder) Text() string {
	return string(d.message)
}

// Pending returns the code of the current, not yet completed character.
func (d *Decoder) Pending() string {
	return d.pattern.String()
}

// Symbols returns the transcript of the received elements, e.g. "-. ... / .-".
func (d *Decoder) Symbols() string {
	return strings.TrimSpace(d.symbols.String())
}

// Unmatched returns the patterns skipped with PolicySkip.
func (d *Decoder) Unmatched() []*PatternError {
	return d.unmatched
}
