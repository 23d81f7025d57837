package calibrate

import (
	"errors"
	"testing"

	"ldrmorse/pkg/runlength"
)

func mark(n int) runlength.Run  { return runlength.Run{Polarity: runlength.Mark, Length: n} }
func space(n int) runlength.Run { return runlength.Run{Polarity: runlength.Space, Length: n} }

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "", want: PreambleStrategy},
		{in: "Preamble", want: PreambleStrategy},
		{in: " statistical ", want: StatisticalStrategy},
		{in: "guess", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownStrategy) {
				t.Fatalf("%q: err=%v want ErrUnknownStrategy", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %v err=%v want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestPreambleConsumesFourRuns(t *testing.T) {
	p := NewPreamble()

	leading := space(40)
	leading.Leading = true

	runs := []runlength.Run{leading, mark(15), space(5), mark(5), space(15), mark(5), space(5)}
	var consumed []bool
	for _, r := range runs {
		consumed = append(consumed, p.Observe(r))
	}

	want := []bool{false, true, true, true, true, false, false}
	for i := range want {
		if consumed[i] != want[i] {
			t.Fatalf("run %d consumed=%v want %v", i, consumed[i], want[i])
		}
	}

	if p.State() != Done || !p.Ready() || p.Consumed() != 4 {
		t.Fatalf("state=%v ready=%v consumed=%d", p.State(), p.Ready(), p.Consumed())
	}

	u, err := p.Units()
	if err != nil {
		t.Fatalf("units: %v", err)
	}
	if u.Dash != 15 || u.ShortGap != 5 || u.Dot != 5 || u.LongGap != 15 || u.WordGap != 35 {
		t.Fatalf("units=%v", u)
	}
}

func TestPreambleSkipsIdleSpace(t *testing.T) {
	p := NewPreamble()

	if p.Observe(space(30)) {
		t.Fatalf("idle space consumed")
	}
	if p.State() != AwaitDash {
		t.Fatalf("state=%v want %v", p.State(), AwaitDash)
	}
	if !p.Observe(mark(9)) || p.State() != AwaitGap1 {
		t.Fatalf("dash not consumed, state=%v", p.State())
	}
}

func TestPreambleIncomplete(t *testing.T) {
	tests := []struct {
		name  string
		runs  []runlength.Run
		state PreambleState
	}{
		{name: "nothing", runs: nil, state: AwaitDash},
		{name: "dash_only", runs: []runlength.Run{mark(9)}, state: AwaitGap1},
		{name: "three_elements", runs: []runlength.Run{mark(9), space(3), mark(3)}, state: AwaitGap2},
		{name: "trailing_gap", runs: []runlength.Run{mark(9), space(3), mark(3), {Polarity: runlength.Space, Length: 9, Trailing: true}}, state: AwaitGap2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPreamble()
			for _, r := range tt.runs {
				p.Observe(r)
			}
			if p.State() != tt.state {
				t.Fatalf("state=%v want %v", p.State(), tt.state)
			}
			if _, err := p.Units(); !errors.Is(err, ErrCalibrationIncomplete) {
				t.Fatalf("err=%v want ErrCalibrationIncomplete", err)
			}
		})
	}
}

func TestPreambleInvalid(t *testing.T) {
	p := NewPreamble()
	// the dot is longer than the dash
	for _, r := range []runlength.Run{mark(3), space(3), mark(9), space(9)} {
		p.Observe(r)
	}
	if _, err := p.Units(); !errors.Is(err, ErrInvalidCalibration) {
		t.Fatalf("err=%v want ErrInvalidCalibration", err)
	}
}

func TestStatistics(t *testing.T) {
	s, err := NewStatistics(DefaultMargin)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	leading := space(100)
	leading.Leading = true
	trailing := space(2)
	trailing.Trailing = true

	// "AN E" with a jittery hand
	runs := []runlength.Run{
		leading,
		mark(10), space(10), mark(31), space(30), mark(29), space(11), mark(11), space(70), mark(10),
		trailing,
	}
	for _, r := range runs {
		if s.Observe(r) {
			t.Fatalf("statistics consumed %v", r)
		}
	}
	if s.Ready() {
		t.Fatalf("statistics ready before end of stream")
	}

	u, err := s.Units()
	if err != nil {
		t.Fatalf("units: %v", err)
	}
	want := Units{Dot: 10, Dash: 29, ShortGap: 10, LongGap: 30, WordGap: 70}
	if u != want {
		t.Fatalf("units=%v want %v", u, want)
	}
}

func TestStatisticsFallbackRatios(t *testing.T) {
	s, _ := NewStatistics(DefaultMargin)
	// "I": two dots and one short gap only
	for _, r := range []runlength.Run{mark(4), space(4), mark(4)} {
		s.Observe(r)
	}

	u, err := s.Units()
	if err != nil {
		t.Fatalf("units: %v", err)
	}
	want := Units{Dot: 4, Dash: 12, ShortGap: 4, LongGap: 12, WordGap: 28}
	if u != want {
		t.Fatalf("units=%v want %v", u, want)
	}
}

func TestStatisticsSingleClass(t *testing.T) {
	tests := []struct {
		name string
		runs []runlength.Run
		want Units
	}{
		{
			// "MOM": dashes only
			name: "no_dot",
			runs: []runlength.Run{
				mark(15), space(5), mark(15), space(15),
				mark(15), space(5), mark(15), space(5), mark(15), space(15),
				mark(15), space(5), mark(15),
			},
			want: Units{Dot: 5, Dash: 15, ShortGap: 5, LongGap: 15, WordGap: 35},
		},
		{
			// "EEE": long gaps only
			name: "no_short_gap",
			runs: []runlength.Run{mark(5), space(15), mark(5), space(15), mark(5)},
			want: Units{Dot: 5, Dash: 15, ShortGap: 5, LongGap: 15, WordGap: 35},
		},
		{
			// "TO": dashes only, both gap classes
			name: "dashes_and_gaps",
			runs: []runlength.Run{mark(15), space(15), mark(15), space(5), mark(15), space(5), mark(15)},
			want: Units{Dot: 5, Dash: 15, ShortGap: 5, LongGap: 15, WordGap: 35},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := NewStatistics(DefaultMargin)
			for _, r := range tt.runs {
				s.Observe(r)
			}
			u, err := s.Units()
			if err != nil {
				t.Fatalf("units: %v", err)
			}
			if u != tt.want {
				t.Fatalf("units=%v want %v", u, tt.want)
			}
		})
	}
}

func TestDeferred(t *testing.T) {
	s, _ := NewStatistics(DefaultMargin)
	if !s.Deferred() {
		t.Fatalf("statistics drops runs before the end of the stream")
	}
	if NewPreamble().Deferred() {
		t.Fatalf("preamble keeps idle runs")
	}
}

func TestStatisticsErrors(t *testing.T) {
	if _, err := NewStatistics(0.9); !errors.Is(err, ErrInvalidCalibration) {
		t.Fatalf("margin 0.9: err=%v want ErrInvalidCalibration", err)
	}

	s, _ := NewStatistics(0.5)
	s.Observe(space(10))
	if _, err := s.Units(); !errors.Is(err, ErrCalibrationIncomplete) {
		t.Fatalf("err=%v want ErrCalibrationIncomplete", err)
	}
}

func TestNew(t *testing.T) {
	c, err := New(PreambleStrategy, 0)
	if err != nil {
		t.Fatalf("preamble: %v", err)
	}
	if _, ok := c.(*Preamble); !ok {
		t.Fatalf("preamble calibrator is %T", c)
	}

	c, err = New(StatisticalStrategy, DefaultMargin)
	if err != nil {
		t.Fatalf("statistical: %v", err)
	}
	if _, ok := c.(*Statistics); !ok {
		t.Fatalf("statistical calibrator is %T", c)
	}

	if _, err = New(Strategy(7), DefaultMargin); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("err=%v want ErrUnknownStrategy", err)
	}
}
