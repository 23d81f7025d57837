//go:build linux

// Package raspberry is the access to the gpio ports of the light decoder:
// the session button, the status LEDs and the MCP3008 ADC of the light sensor.
package raspberry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
	"ldrmorse/pkg/port"
)

var ErrInvalidParam = fmt.Errorf("invalid parameters")

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Button is a requested input line which reports presses (falling edges).
type Button struct {
	gpiodLine *gpiod.Line
	// holding is set while further edges are ignored
	holding atomic.Bool
	// send presses to channel
	C chan port.Event
}

// LED is a requested output line.
type LED struct {
	gpiodLine *gpiod.Line
}

// Open opens the GPIO character device.
func Open() (*Chip, error) {
	c, err := gpiod.NewChip("gpiochip0", gpiod.WithConsumer("ldrmorse"))
	if err != nil {
		return nil, err
	}
	return &Chip{gpiodChip: c}, nil
}

// NewButton requests control of a single input line.
//   A falling edge is sent to channel C if the line is still low after the debounce time.
//   Edges within the hold-off time after a press are ignored.
func (c *Chip) NewButton(gpio int, terminator string, debounce, holdOff time.Duration) (*Button, error) {
	var err error

	b := &Button{C: make(chan port.Event, 1)}

	// handler checks the bounce timeout and sends the press to channel C
	handler := func(evt gpiod.LineEvent) {
		if !b.holding.CompareAndSwap(false, true) {
			debug.TraceLog.Println("button edge ignored during hold-off")
			return
		}

		go func(t time.Duration) {
			defer func() {
				time.Sleep(holdOff)
				b.holding.Store(false)
			}()

			time.Sleep(debounce)

			v, e := b.gpiodLine.Value()
			if e != nil {
				debug.ErrorLog.Println(e)
				return
			}
			if v != 0 {
				debug.DebugLog.Println("bounce signal detected")
				return
			}

			select {
			case b.C <- port.Event{Type: port.FallingEdge, Timestamp: t + debounce}:
			default:
				debug.ErrorLog.Println("button press dropped, previous press not yet handled")
			}
		}(evt.Timestamp)
	}

	opts := []gpiod.LineReqOption{gpiod.WithEventHandler(handler), gpiod.WithFallingEdge, gpiod.AsInput}
	switch terminator {
	case "pullup":
		opts = append(opts, gpiod.WithPullUp)
	case "pulldown":
		opts = append(opts, gpiod.WithPullDown)
	case "none":
	default:
		return nil, fmt.Errorf("%w: terminator %q", ErrInvalidParam, terminator)
	}

	if b.gpiodLine, err = c.gpiodChip.RequestLine(gpio, opts...); err != nil {
		return nil, err
	}
	return b, nil
}

// NewLED requests control of a single output line, initially off.
func (c *Chip) NewLED(gpio int) (*LED, error) {
	l, err := c.gpiodChip.RequestLine(gpio, gpiod.AsOutput(0))
	if err != nil {
		return nil, err
	}
	return &LED{gpiodLine: l}, nil
}

// Set switches the LED on (port.High) or off.
func (l *LED) Set(s port.StateType) error {
	switch s {
	case port.High:
		return l.gpiodLine.SetValue(1)
	case port.Low:
		return l.gpiodLine.SetValue(0)
	default:
		return fmt.Errorf("%w: state %v", ErrInvalidParam, s)
	}
}

// Close switches the LED off and releases the line.
func (l *LED) Close() error {
	_ = l.gpiodLine.SetValue(0)
	return l.gpiodLine.Close()
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Close releases all resources held by the requested line.
//
// Note that this includes waiting for any running event handler to return.
// As a consequence the Close must not be called from the context of the event
// handler - the Close should be called from a different goroutine.
func (b *Button) Close() error {
	return b.gpiodLine.Close()
}
