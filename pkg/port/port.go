// Package port holds the definition of the physical ports of the light decoder:
// the light sensor, the session button and the status LEDs.
package port

import (
	"errors"
	"io"
	"sync"
	"time"
)

// EventType indicates the type of change to the line active state.
//
// Note that for active low lines a low line level results in a high active
// state.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates an inactive to active event (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive event (high to low).
	FallingEdge
)

// Event is an edge of an input line.
type Event struct {
	// Timestamp indicates the time the event was detected.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
}

type StateType int

const (
	// High indicates a logical 1.
	High StateType = 1
	// Low indicates a logical 0.
	Low StateType = 0
	// Invalid indicates an unknown or invalid state.
	Invalid StateType = -1
)

// Sensor is a source of light intensity samples.
type Sensor interface {
	// Read returns the current intensity.
	Read() (int, error)
	Close() error
}

// Indicator is an output line, e.g. a status LED.
type Indicator interface {
	Set(StateType) error
	Close() error
}

// Replay is a Sensor which returns recorded samples, e.g. from a sample file.
// After the last sample Read returns io.EOF, or starts over if Loop is set.
type Replay struct {
	mu      sync.Mutex
	samples []int
	pos     int
	loop    bool
}

// NewReplay creates a sensor replaying the samples.
func NewReplay(samples []int, loop bool) *Replay {
	return &Replay{samples: samples, loop: loop}
}

// Read returns the next sample.
func (r *Replay) Read() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= len(r.samples) {
		if !r.loop || len(r.samples) == 0 {
			return 0, io.EOF
		}
		r.pos = 0
	}

	v := r.samples[r.pos]
	r.pos++
	return v, nil
}

func (r *Replay) Close() error {
	return nil
}

// ErrClosed is returned by a closed Memory indicator.
var ErrClosed = errors.New("port closed")

// Memory is an Indicator which only stores its state.
// It's used if no gpio line is configured.
type Memory struct {
	mu     sync.Mutex
	state  StateType
	closed bool
}

// Set stores the state.
func (m *Memory) Set(s StateType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.state = s
	return nil
}

// State returns the last set state.
func (m *Memory) State() StateType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
