// Package threshold calculates the intensity level which separates a blocked light (black) from a visible light (white).
// There is no absolute black/white level, because the ambient light and the LDR differ from session to session.
// Therefore each session bootstraps its own separator from the recorded samples.
package threshold

import (
	"errors"
	"fmt"
	"math"

	"ldrmorse/pkg/runlength"
	"ldrmorse/pkg/samplebuf"
)

const (
	// MinContrast is the minimal difference between the highest and lowest sample of a window.
	// A window with less contrast is either all black or all white.
	MinContrast = 5
	// DefaultWindow is the fraction of the samples which is scanned first.
	DefaultWindow = 0.3
	// WindowStep widens the window if it lacks contrast.
	WindowStep = 0.1
)

// ErrContrastTooLow is returned if the scanned window doesn't contain black and white samples.
var ErrContrastTooLow = errors.New("contrast too low")

// Level is the result of a threshold calculation.
type Level struct {
	// Threshold is the midpoint between High and Low.
	Threshold int
	// High is the highest sample of the window.
	High int
	// Low is the lowest sample of the window (end markers are excluded).
	Low int
	// Window is the scanned fraction of the samples.
	Window float64
}

// Contrast returns the spread between the highest and the lowest sample.
func (l Level) Contrast() int {
	return l.High - l.Low
}

// Compute scans the first fraction of the samples and returns the midpoint between highest and lowest value.
// End markers are ignored. If the contrast of the window is less than MinContrast, ErrContrastTooLow is returned.
func Compute(samples []samplebuf.Sample, fraction float64) (Level, error) {
	l := Level{Window: clamp(fraction)}

	// the epsilon keeps 0.3*10 from becoming 4 samples
	n := int(math.Ceil(l.Window*float64(len(samples)) - 1e-9))
	if n < 1 {
		n = 1
	}
	if n > len(samples) {
		n = len(samples)
	}

	found := false
	for _, s := range samples[:n] {
		if s.Value == runlength.EndMarker {
			continue
		}
		if !found {
			l.High, l.Low = s.Value, s.Value
			found = true
			continue
		}
		if s.Value > l.High {
			l.High = s.Value
		}
		if s.Value < l.Low {
			l.Low = s.Value
		}
	}

	if !found {
		return l, fmt.Errorf("%w: no samples in window %.1f", ErrContrastTooLow, l.Window)
	}

	l.Threshold = (l.High + l.Low) / 2

	if l.Contrast() < MinContrast {
		return l, fmt.Errorf("%w: high %d, low %d in window %.1f", ErrContrastTooLow, l.High, l.Low, l.Window)
	}
	return l, nil
}

// Search calls Compute, starting with the given window fraction.
// As long as the window lacks contrast, the window is widened by WindowStep up to the whole samples.
func Search(samples []samplebuf.Sample, fraction float64) (Level, error) {
	f := clamp(fraction)

	for {
		l, err := Compute(samples, f)
		if err == nil || !errors.Is(err, ErrContrastTooLow) || f >= 1 {
			return l, err
		}

		// round to tenths, otherwise 0.3 + 7*0.1 never reaches 1.0
		f = clamp(math.Round((f+WindowStep)*10) / 10)
	}
}

// clamp limits the window fraction to (0, 1], invalid values fall back to DefaultWindow.
func clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f <= 0:
		return DefaultWindow
	case f > 1:
		return 1
	}
	return f
}
