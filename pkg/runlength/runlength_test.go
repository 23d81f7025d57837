package runlength

import (
	"testing"

	"ldrmorse/pkg/samplebuf"
)

func samples(v ...int) []samplebuf.Sample {
	s := make([]samplebuf.Sample, 0, len(v))
	for i, x := range v {
		s = append(s, samplebuf.Sample{Index: i, Value: x})
	}
	return s
}

func TestPolarityOf(t *testing.T) {
	tests := []struct {
		value int
		want  Polarity
	}{
		{value: 50, want: Mark},
		{value: 475, want: Mark},
		{value: 476, want: Space},
		{value: 900, want: Space},
	}
	for _, tt := range tests {
		if got := PolarityOf(tt.value, 475); got != tt.want {
			t.Fatalf("PolarityOf(%d)=%v want %v", tt.value, got, tt.want)
		}
	}
}

func TestScan(t *testing.T) {
	runs := Scan(samples(900, 900, 50, 50, 50, 900, 50, 900, 900, 900), 475)

	want := []Run{
		{Polarity: Space, Length: 2, Start: 0, Leading: true},
		{Polarity: Mark, Length: 3, Start: 2},
		{Polarity: Space, Length: 1, Start: 5},
		{Polarity: Mark, Length: 1, Start: 6},
		{Polarity: Space, Length: 3, Start: 7, Trailing: true},
	}
	if len(runs) != len(want) {
		t.Fatalf("runs=%v", runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Fatalf("run %d=%v want %v", i, runs[i], want[i])
		}
	}
}

func TestScanSingleRun(t *testing.T) {
	runs := Scan(samples(900, 900, 900), 475)
	if len(runs) != 1 {
		t.Fatalf("runs=%v", runs)
	}
	if !runs[0].Leading || !runs[0].Trailing || runs[0].Length != 3 {
		t.Fatalf("run=%v", runs[0])
	}
}

func TestScanStopsAtEndMarker(t *testing.T) {
	s := NewScanner(475)

	var runs []Run
	for _, x := range samples(900, 50, 50, 900, EndMarker, 50, 50, 50) {
		if r, ok := s.Feed(x); ok {
			runs = append(runs, r)
		}
	}
	if !s.Ended() {
		t.Fatalf("end marker not detected")
	}
	if r, ok := s.Flush(); ok {
		runs = append(runs, r)
	}

	if len(runs) != 3 {
		t.Fatalf("runs=%v", runs)
	}
	last := runs[2]
	if last.Polarity != Space || last.Length != 1 || !last.Trailing {
		t.Fatalf("last run=%v", last)
	}

	// flushing twice returns nothing
	if _, ok := s.Flush(); ok {
		t.Fatalf("second flush returned a run")
	}
}

func TestScanEmpty(t *testing.T) {
	if runs := Scan(nil, 475); len(runs) != 0 {
		t.Fatalf("runs=%v", runs)
	}
}
