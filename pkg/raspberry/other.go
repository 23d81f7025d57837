//go:build !linux

package raspberry

import (
	"errors"
	"fmt"
	"time"

	"ldrmorse/pkg/port"
)

var ErrInvalidParam = fmt.Errorf("invalid parameters")

// ErrNotSupported is returned on systems without gpio character devices.
var ErrNotSupported = errors.New("gpio not supported on this system")

type Chip struct{}

type Button struct {
	C chan port.Event
}

type LED struct{}

type ADC struct{}

type SPIPins struct {
	Clk  int
	Csz  int
	Mosi int
	Miso int
}

func Open() (*Chip, error) {
	return nil, ErrNotSupported
}

func OpenADC(p SPIPins, channel int, tclk time.Duration) (*ADC, error) {
	return nil, ErrNotSupported
}

func (c *Chip) NewButton(gpio int, terminator string, debounce, holdOff time.Duration) (*Button, error) {
	return nil, ErrNotSupported
}

func (c *Chip) NewLED(gpio int) (*LED, error) {
	return nil, ErrNotSupported
}

func (c *Chip) Close() error              { return nil }
func (b *Button) Close() error            { return nil }
func (l *LED) Set(s port.StateType) error { return ErrNotSupported }
func (l *LED) Close() error               { return nil }
func (a *ADC) Read() (int, error)         { return 0, ErrNotSupported }
func (a *ADC) Close() error               { return nil }
