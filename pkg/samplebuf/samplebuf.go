// Package samplebuf is the store of raw light intensity samples of a capture session.
// The buffer is either unbounded (it grows with each sample) or circular (it overwrites the oldest sample).
package samplebuf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/xxh3"
)

var (
	// ErrOutOfRange is returned if a requested sample range isn't available.
	ErrOutOfRange = errors.New("sample range out of range")
	// ErrBufferUnderrun is returned if requested samples are already overwritten by the circular buffer.
	ErrBufferUnderrun = fmt.Errorf("%w: samples already overwritten", ErrOutOfRange)
)

// Sample is a single light intensity reading.
type Sample struct {
	// Index is the ordinal number of the sample within the session.
	Index int
	// Value is the measured intensity (0..1023 for a 10 bit ADC).
	Value int
}

// Buffer contains the samples of a capture session.
// Buffer isn't safe for concurrent use, the owner has to lock push and snapshot.
type Buffer struct {
	// samples is the backing store, in circular mode the slot of index i is i % capacity.
	samples []int
	// capacity is the size of the circular buffer, 0 means unbounded.
	capacity int
	// total is the count of pushed samples (write cursor).
	total int
}

// New creates a sample buffer. A capacity of 0 creates an unbounded buffer.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}

	b := Buffer{capacity: capacity}
	if capacity > 0 {
		b.samples = make([]int, 0, capacity)
	}
	return &b
}

// Push appends a sample. Push never fails, it either grows the buffer
// or overwrites the oldest sample of a circular buffer.
func (b *Buffer) Push(value int) Sample {
	s := Sample{Index: b.total, Value: value}

	switch {
	case b.capacity == 0, len(b.samples) < b.capacity:
		b.samples = append(b.samples, value)
	default:
		b.samples[b.total%b.capacity] = value
	}

	b.total++
	return s
}

// Total returns the count of samples pushed since the last reset.
func (b *Buffer) Total() int {
	return b.total
}

// Len returns the count of samples still available.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Capacity returns the size of a circular buffer, 0 for an unbounded one.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Cycles returns how many times a circular buffer has been completely overwritten.
func (b *Buffer) Cycles() int {
	if b.capacity == 0 || b.total <= b.capacity {
		return 0
	}
	return (b.total - b.capacity) / b.capacity
}

// Oldest returns the index of the oldest available sample.
func (b *Buffer) Oldest() int {
	return b.total - len(b.samples)
}

// Snapshot returns a copy of the samples with index from up to (excluding) to.
func (b *Buffer) Snapshot(from, to int) ([]Sample, error) {
	if from < 0 || from > to || to > b.total {
		return nil, fmt.Errorf("%w: [%d,%d) of %d", ErrOutOfRange, from, to, b.total)
	}
	if from < b.Oldest() {
		return nil, fmt.Errorf("%w: sample %d, oldest %d", ErrBufferUnderrun, from, b.Oldest())
	}

	s := make([]Sample, 0, to-from)
	for i := from; i < to; i++ {
		s = append(s, Sample{Index: i, Value: b.at(i)})
	}
	return s, nil
}

// All returns the samples of the whole session so far.
// It fails with ErrBufferUnderrun if a circular buffer already dropped the first samples.
func (b *Buffer) All() ([]Sample, error) {
	return b.Snapshot(0, b.total)
}

// First returns the first n samples of the session (or less if not yet recorded).
func (b *Buffer) First(n int) ([]Sample, error) {
	if n > b.total {
		n = b.total
	}
	return b.Snapshot(0, n)
}

// Reset empties the buffer and clears the cycle counter.
func (b *Buffer) Reset() {
	b.samples = b.samples[0:0]
	b.total = 0
}

// Fingerprint returns a hash of the available samples.
// Two captures with identical samples have the same fingerprint.
func (b *Buffer) Fingerprint() uint64 {
	buf := make([]byte, 0, 8*len(b.samples))
	for i := b.Oldest(); i < b.total; i++ {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(b.at(i)))
	}
	return xxh3.Hash(buf)
}

// at returns the value of an available sample.
func (b *Buffer) at(i int) int {
	if b.capacity == 0 {
		return b.samples[i]
	}
	return b.samples[i%b.capacity]
}

// Reader returns a new consumer cursor, starting at the first sample of the session.
func (b *Buffer) Reader() *Reader {
	return &Reader{buf: b}
}

// Reader reads samples independently of the writer.
// It tracks its own slot and wrap cycle to detect if the writer lapped it.
type Reader struct {
	buf *Buffer
	// pos is the slot of the next sample to read.
	pos int
	// cycle is the count of wraps of the reader.
	cycle int
}

// Next returns the next unread sample.
// It returns io.EOF if all samples are read and ErrBufferUnderrun if the next sample is already overwritten.
func (r *Reader) Next() (Sample, error) {
	next := r.index()

	if next >= r.buf.total {
		return Sample{}, io.EOF
	}
	if next < r.buf.Oldest() {
		return Sample{}, fmt.Errorf("%w: reader at %d (cycle %d), writer at %d (cycle %d)",
			ErrBufferUnderrun, next, r.cycle, r.buf.total, r.buf.Cycles())
	}

	s := Sample{Index: next, Value: r.buf.at(next)}
	r.pos++
	if r.buf.capacity > 0 && r.pos == r.buf.capacity {
		r.pos = 0
		r.cycle++
	}
	return s, nil
}

// Seek moves the reader to the sample with the given index.
// The samples before it are never read.
func (r *Reader) Seek(index int) {
	if index < 0 {
		index = 0
	}
	if r.buf.capacity == 0 {
		r.pos = index
		return
	}
	r.cycle, r.pos = index/r.buf.capacity, index%r.buf.capacity
}

// Lag returns the count of samples not yet read.
func (r *Reader) Lag() int {
	return r.buf.total - r.index()
}

// index returns the absolute index of the next sample to read.
func (r *Reader) index() int {
	if r.buf.capacity == 0 {
		return r.pos
	}
	return r.cycle*r.buf.capacity + r.pos
}
