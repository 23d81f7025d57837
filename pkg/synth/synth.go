// Package synth generates the sample stream of an ideal light signal for a text
// and reads/writes sample files (whitespace separated intensity values).
package synth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ldrmorse/pkg/morse"
)

// ErrUnsupportedChar is returned if a character has no morse code.
var ErrUnsupportedChar = errors.New("unsupported character")

// Options defines the shape of the generated signal.
type Options struct {
	// Unit is the length of a dot in samples.
	Unit int
	// Mark is the intensity of blocked light.
	Mark int
	// Space is the intensity of visible light.
	Space int
	// Preamble sends the calibration pattern (dash, short gap, dot, long gap) first.
	Preamble bool
	// LeadIn and LeadOut are the idle units before and after the message.
	LeadIn  int
	LeadOut int
	// EndMarker appends the end of session marker.
	EndMarker bool
}

// DefaultOptions returns a clean signal with 5 samples per unit and a preamble.
func DefaultOptions() Options {
	return Options{
		Unit:     5,
		Mark:     50,
		Space:    900,
		Preamble: true,
		LeadIn:   10,
		LeadOut:  10,
	}
}

// ITU timing in units.
const (
	dotUnits      = 1
	dashUnits     = 3
	elementUnits  = 1
	characterUnit = 3
	wordUnits     = 7
)

type writer struct {
	o       Options
	samples []int
}

func (w *writer) mark(units int) {
	for i := 0; i < units*w.o.Unit; i++ {
		w.samples = append(w.samples, w.o.Mark)
	}
}

func (w *writer) space(units int) {
	for i := 0; i < units*w.o.Unit; i++ {
		w.samples = append(w.samples, w.o.Space)
	}
}

// code writes the elements of a single character.
func (w *writer) code(c string) {
	for i, e := range c {
		if i > 0 {
			w.space(elementUnits)
		}
		if e == morse.DashSign {
			w.mark(dashUnits)
		} else {
			w.mark(dotUnits)
		}
	}
}

func (o Options) validate() error {
	if o.Unit <= 0 {
		return fmt.Errorf("unit must be positive: %d", o.Unit)
	}
	if o.Mark <= 0 || o.Space <= 0 || o.Mark >= o.Space {
		return fmt.Errorf("mark %d must be positive and darker than space %d", o.Mark, o.Space)
	}
	return nil
}

// Encode returns the samples of the text. Spaces separate words.
func Encode(text string, o Options) ([]int, error) {
	var codes [][]string

	for _, word := range strings.Fields(text) {
		var w []string
		for _, r := range word {
			c, ok := morse.Code(r)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnsupportedChar, r)
			}
			w = append(w, c)
		}
		codes = append(codes, w)
	}
	return EncodeCodes(codes, o)
}

// EncodeCodes returns the samples of words given as morse codes, e.g. [][]string{{"...", "---", "..."}}.
func EncodeCodes(words [][]string, o Options) ([]int, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	w := writer{o: o}
	w.space(o.LeadIn)

	if o.Preamble {
		w.mark(dashUnits)
		w.space(elementUnits)
		w.mark(dotUnits)
		w.space(characterUnit)
	}

	for i, word := range words {
		if i > 0 {
			w.space(wordUnits)
		}
		for j, c := range word {
			if j > 0 {
				w.space(characterUnit)
			}
			w.code(c)
		}
	}

	w.space(o.LeadOut)
	if o.EndMarker {
		w.samples = append(w.samples, 0)
	}
	return w.samples, nil
}

// ReadSamples reads whitespace separated intensity values.
func ReadSamples(r io.Reader) ([]int, error) {
	var samples []int

	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	for s.Scan() {
		v, err := strconv.Atoi(s.Text())
		if err != nil {
			return samples, fmt.Errorf("sample %d: %w", len(samples), err)
		}
		samples = append(samples, v)
	}
	return samples, s.Err()
}

// WriteSamples writes one value per line.
func WriteSamples(w io.Writer, samples []int) error {
	bw := bufio.NewWriter(w)
	for _, v := range samples {
		if _, err := fmt.Fprintln(bw, v); err != nil {
			return err
		}
	}
	return bw.Flush()
}
