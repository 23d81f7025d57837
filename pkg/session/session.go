// Package session is the lifecycle of a morse capture: begin, record samples, end and decode.
//
// A Session is safe for concurrent use. The acquisition may record samples in one goroutine
// while another goroutine polls the partially decoded text.
package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/womat/debug"
	"ldrmorse/pkg/calibrate"
	"ldrmorse/pkg/morse"
	"ldrmorse/pkg/samplebuf"
	"ldrmorse/pkg/threshold"
)

const (
	// Idle waits for the begin of a session.
	Idle State = iota
	// Capturing records samples.
	Capturing
	// Decoding converts the recorded samples to text.
	Decoding
	// Terminated is final, the session can't be used any longer.
	Terminated
)

// State represents the state of a session.
type State int

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Decoding:
		return "decoding"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNotCapturing is returned if samples are recorded or a session is ended without Begin.
	ErrNotCapturing = errors.New("session isn't capturing")
	// ErrTerminated is returned after Terminate.
	ErrTerminated = errors.New("session terminated")
	// ErrSessionAborted is returned if the whole buffer lacks contrast.
	ErrSessionAborted = errors.New("session aborted")
	// ErrInvalidSample is returned if a recorded intensity is outside 0..MaxIntensity.
	ErrInvalidSample = errors.New("invalid sample")
)

// MaxIntensity is the highest reading of the 10 bit ADC.
const MaxIntensity = 1023

// Config defines the decoding parameters.
type Config struct {
	// Capacity is the size of a circular sample buffer, 0 is unbounded.
	// A circular buffer needs streaming (StreamAfter > 0) and a regular Poll.
	Capacity int
	// Window is the fraction of the samples scanned first for the threshold.
	Window float64
	// Strategy is the calibration method.
	Strategy calibrate.Strategy
	// Margin is the class tolerance of the statistical strategy.
	Margin float64
	// Policy handles unknown patterns.
	Policy morse.Policy
	// StreamAfter is the count of samples which fix the threshold for streaming decoding.
	// 0 decodes the whole session at End.
	StreamAfter int
}

// DefaultConfig returns the sequential configuration with preamble calibration.
func DefaultConfig() Config {
	return Config{
		Window:   threshold.DefaultWindow,
		Strategy: calibrate.PreambleStrategy,
		Margin:   calibrate.DefaultMargin,
		Policy:   morse.PolicySkip,
	}
}

// Result is the outcome of a session.
type Result struct {
	// Text is the decoded message.
	Text string
	// Symbols is the transcript of the received elements.
	Symbols string
	// Level is the black/white threshold.
	Level threshold.Level
	// Units are the calibrated timing units.
	Units calibrate.Units
	// Samples is the count of recorded samples.
	Samples int
	// Unmatched are patterns skipped with morse.PolicySkip.
	Unmatched []*morse.PatternError
	// Fingerprint identifies the recorded samples.
	Fingerprint uint64
	// Err is the reason of a failed session.
	Err error
	// Started and Ended are the session boundaries.
	Started time.Time
	Ended   time.Time
}

// Duration returns the length of the session.
func (r Result) Duration() time.Duration {
	return r.Ended.Sub(r.Started)
}

// Session holds all state of a capture. There is no process wide state.
type Session struct {
	mu     sync.Mutex
	config Config
	state  State
	buf    *samplebuf.Buffer
	reader *samplebuf.Reader
	// pipe is created by Poll (streaming) or End (sequential).
	pipe *pipeline
	// idle is the count of samples found without contrast before streaming started.
	idle    int
	started time.Time
	last    Result
}

// New creates an idle session.
func New(c Config) *Session {
	return &Session{
		config: c,
		state:  Idle,
		buf:    samplebuf.New(c.Capacity),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Samples returns the count of samples recorded in the current session.
func (s *Session) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Total()
}

// Last returns the result of the last ended session.
func (s *Session) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Begin starts a new capture. The sample buffer, the timing units and the decoded message are reset.
// A running capture is discarded.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Terminated {
		return ErrTerminated
	}
	if s.state == Capturing {
		debug.InfoLog.Printf("discard running capture with %d samples", s.buf.Total())
	}

	s.buf.Reset()
	s.reader = s.buf.Reader()
	s.pipe = nil
	s.idle = 0
	s.started = time.Now()
	s.state = Capturing

	debug.InfoLog.Print("capture session started")
	return nil
}

// Record adds a sample to the running capture.
func (s *Session) Record(intensity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Capturing:
		if intensity < 0 || intensity > MaxIntensity {
			return fmt.Errorf("%w: %d", ErrInvalidSample, intensity)
		}
		s.buf.Push(intensity)
		return nil
	case Terminated:
		return ErrTerminated
	default:
		return ErrNotCapturing
	}
}

// Poll decodes the samples recorded since the last poll and returns the text decoded so far.
// Streaming starts as soon as the most recent StreamAfter samples contain enough contrast.
// Before that, or if streaming is disabled, Poll returns an empty text.
func (s *Session) Poll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Capturing:
	case Terminated:
		return "", ErrTerminated
	default:
		return "", ErrNotCapturing
	}

	if s.pipe == nil {
		if s.config.StreamAfter <= 0 || s.buf.Total() < s.config.StreamAfter {
			return "", nil
		}

		from := s.buf.Total() - s.config.StreamAfter
		if o := s.buf.Oldest(); o > from {
			from = o
		}
		recent, err := s.buf.Snapshot(from, s.buf.Total())
		if err != nil {
			return "", err
		}
		level, err := threshold.Search(recent, s.config.Window)
		if errors.Is(err, threshold.ErrContrastTooLow) {
			// the sender didn't start yet, all samples so far are idle light
			s.idle = s.buf.Total()
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if s.pipe, err = newPipeline(level, s.config); err != nil {
			return "", err
		}
		s.reader.Seek(s.start())
		debug.InfoLog.Printf("streaming decoding started after %d samples (%d idle)", s.buf.Total(), s.idle)
	}

	if err := s.drain(); err != nil {
		return s.pipe.decoder.Text(), err
	}
	return s.pipe.decoder.Text(), nil
}

// End stops the capture and decodes the recorded samples.
// The result is also available by Last. On error, the result contains the reason in Err.
func (s *Session) End() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Capturing:
	case Terminated:
		return Result{}, ErrTerminated
	default:
		return Result{}, ErrNotCapturing
	}

	s.state = Decoding
	defer func() { s.state = Idle }()

	r := Result{
		Started:     s.started,
		Samples:     s.buf.Total(),
		Fingerprint: s.buf.Fingerprint(),
	}

	err := s.decode()
	if s.pipe != nil {
		r.Level = s.pipe.level
		r.Units = s.pipe.units
		r.Text = s.pipe.decoder.Text()
		r.Symbols = s.pipe.decoder.Symbols()
		r.Unmatched = s.pipe.decoder.Unmatched()
	}
	r.Ended = time.Now()
	r.Err = err
	s.last = r

	if err != nil {
		debug.ErrorLog.Printf("decoding %d samples failed: %v", r.Samples, err)
		return r, err
	}

	debug.InfoLog.Printf("decoded %d samples (%v): %q", r.Samples, r.Units, r.Text)
	return r, nil
}

// start returns the index of the first sample to decode.
// It keeps the last idle sample, so the first run is the idle light before the sender started.
func (s *Session) start() int {
	from := s.idle - 1
	if from < 0 {
		from = 0
	}
	if s.config.StreamAfter > 0 && from < s.buf.Oldest() {
		from = s.buf.Oldest()
	}
	return from
}

// decode runs the pipeline over all samples not yet decoded.
func (s *Session) decode() error {
	if s.pipe == nil {
		from := s.start()
		all, err := s.buf.Snapshot(from, s.buf.Total())
		if err != nil {
			return err
		}
		s.reader.Seek(from)

		level, err := threshold.Search(all, s.config.Window)
		if errors.Is(err, threshold.ErrContrastTooLow) {
			return fmt.Errorf("%w: %w", ErrSessionAborted, err)
		}
		if err != nil {
			return err
		}
		if s.pipe, err = newPipeline(level, s.config); err != nil {
			return err
		}
	}

	if err := s.drain(); err != nil {
		return err
	}
	return s.pipe.finish()
}

// drain feeds all unread samples into the pipeline.
func (s *Session) drain() error {
	for {
		x, err := s.reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err = s.pipe.feed(x); err != nil {
			return err
		}
	}
}

// Terminate ends the session for good. A running capture is discarded.
func (s *Session) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Terminated
	s.buf.Reset()
	s.pipe = nil
	debug.InfoLog.Print("session terminated")
}
