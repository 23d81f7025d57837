package samplebuf

import (
	"errors"
	"io"
	"testing"
)

func values(s []Sample) []int {
	v := make([]int, 0, len(s))
	for _, x := range s {
		v = append(v, x.Value)
	}
	return v
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestUnboundedPushAndSnapshot(t *testing.T) {
	b := New(0)
	for i := 1; i <= 10; i++ {
		s := b.Push(i * 10)
		if s.Index != i-1 {
			t.Fatalf("index=%d want %d", s.Index, i-1)
		}
	}

	if b.Len() != 10 || b.Total() != 10 || b.Cycles() != 0 || b.Oldest() != 0 {
		t.Fatalf("len=%d total=%d cycles=%d oldest=%d", b.Len(), b.Total(), b.Cycles(), b.Oldest())
	}

	got, err := b.Snapshot(2, 5)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !equal(values(got), []int{30, 40, 50}) {
		t.Fatalf("snapshot=%v", values(got))
	}
	if got[0].Index != 2 {
		t.Fatalf("first index=%d want 2", got[0].Index)
	}

	first, err := b.First(3)
	if err != nil || !equal(values(first), []int{10, 20, 30}) {
		t.Fatalf("first=%v err=%v", values(first), err)
	}

	// asking for more than recorded returns what is there
	first, err = b.First(100)
	if err != nil || len(first) != 10 {
		t.Fatalf("first(100) len=%d err=%v", len(first), err)
	}
}

func TestSnapshotOutOfRange(t *testing.T) {
	b := New(0)
	b.Push(1)
	b.Push(2)

	tests := []struct {
		name     string
		from, to int
	}{
		{name: "beyond_writer", from: 0, to: 3},
		{name: "inverted", from: 2, to: 1},
		{name: "negative", from: -1, to: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Snapshot(tt.from, tt.to); !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("err=%v want ErrOutOfRange", err)
			}
		})
	}
}

func TestCircularOverwrite(t *testing.T) {
	b := New(4)
	for i := 0; i < 10; i++ {
		b.Push(i)
	}

	if b.Len() != 4 || b.Oldest() != 6 {
		t.Fatalf("len=%d oldest=%d", b.Len(), b.Oldest())
	}
	if b.Cycles() != 1 {
		t.Fatalf("cycles=%d want 1", b.Cycles())
	}

	got, err := b.Snapshot(6, 10)
	if err != nil || !equal(values(got), []int{6, 7, 8, 9}) {
		t.Fatalf("snapshot=%v err=%v", values(got), err)
	}

	_, err = b.Snapshot(5, 10)
	if !errors.Is(err, ErrBufferUnderrun) {
		t.Fatalf("err=%v want ErrBufferUnderrun", err)
	}
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("underrun should also match ErrOutOfRange")
	}

	if _, err = b.All(); !errors.Is(err, ErrBufferUnderrun) {
		t.Fatalf("all: err=%v want ErrBufferUnderrun", err)
	}
}

func TestReset(t *testing.T) {
	b := New(3)
	for i := 0; i < 7; i++ {
		b.Push(i)
	}
	b.Reset()

	if b.Len() != 0 || b.Total() != 0 || b.Cycles() != 0 {
		t.Fatalf("after reset len=%d total=%d cycles=%d", b.Len(), b.Total(), b.Cycles())
	}

	b.Push(42)
	got, err := b.All()
	if err != nil || !equal(values(got), []int{42}) {
		t.Fatalf("all=%v err=%v", values(got), err)
	}
}

func TestReaderFollowsWriter(t *testing.T) {
	b := New(4)
	r := b.Reader()

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("empty buffer: err=%v want io.EOF", err)
	}

	var got []int
	for i := 0; i < 10; i++ {
		b.Push(i)
		s, err := r.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if s.Index != i {
			t.Fatalf("index=%d want %d", s.Index, i)
		}
		got = append(got, s.Value)
	}

	if !equal(got, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Fatalf("read=%v", got)
	}
	if r.Lag() != 0 {
		t.Fatalf("lag=%d", r.Lag())
	}
}

func TestReaderLapped(t *testing.T) {
	b := New(4)
	r := b.Reader()

	for i := 0; i < 6; i++ {
		b.Push(i)
	}
	if r.Lag() != 6 {
		t.Fatalf("lag=%d want 6", r.Lag())
	}
	if _, err := r.Next(); !errors.Is(err, ErrBufferUnderrun) {
		t.Fatalf("err=%v want ErrBufferUnderrun", err)
	}
}

func TestReaderSeek(t *testing.T) {
	tests := []struct {
		capacity int
		seek     int
		want     []int
	}{
		{capacity: 0, seek: 7, want: []int{7, 8, 9}},
		{capacity: 4, seek: 7, want: []int{7, 8, 9}},
		{capacity: 4, seek: 8, want: []int{8, 9}},
		{capacity: 4, seek: 10, want: nil},
	}

	for _, tt := range tests {
		b := New(tt.capacity)
		for i := 0; i < 10; i++ {
			b.Push(i)
		}

		r := b.Reader()
		r.Seek(tt.seek)
		if r.Lag() != len(tt.want) {
			t.Fatalf("capacity %d, seek %d: lag=%d want %d", tt.capacity, tt.seek, r.Lag(), len(tt.want))
		}

		var got []int
		for {
			s, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("capacity %d, seek %d: %v", tt.capacity, tt.seek, err)
			}
			got = append(got, s.Value)
		}
		if !equal(got, tt.want) {
			t.Fatalf("capacity %d, seek %d: read=%v want %v", tt.capacity, tt.seek, got, tt.want)
		}
	}

	// seeking before the oldest sample doesn't resurrect overwritten samples
	b := New(4)
	for i := 0; i < 10; i++ {
		b.Push(i)
	}
	r := b.Reader()
	r.Seek(5)
	if _, err := r.Next(); !errors.Is(err, ErrBufferUnderrun) {
		t.Fatalf("err=%v want ErrBufferUnderrun", err)
	}
}

func TestFingerprint(t *testing.T) {
	a, b, c := New(0), New(0), New(0)
	for _, v := range []int{50, 50, 900, 900, 50} {
		a.Push(v)
		b.Push(v)
	}
	for _, v := range []int{50, 50, 900, 900, 51} {
		c.Push(v)
	}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("equal samples with different fingerprints")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("different samples with equal fingerprints")
	}

	// values beyond 16 bit aren't truncated
	d, e := New(0), New(0)
	d.Push(1)
	e.Push(65537)
	if d.Fingerprint() == e.Fingerprint() {
		t.Fatalf("1 and 65537 with equal fingerprints")
	}
}
