package buffer

import (
	"sync"

	"github.com/fako1024/liveplot"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultCapacity denotes the default number of slots of a sample buffer
const DefaultCapacity = 100

// Snapshot denotes the part of the buffer rendered so far
type Snapshot struct {
	Values    []float64 // Buffer contents from index 0 through the cursor
	Positions []int     // Parallel index sequence 0..cursor
	Count     int       // Number of points in the window after the step
}

// SampleBuffer denotes a fixed-capacity growing window over a cached sample
// collection, advancing one element per step and wrapping around
type SampleBuffer struct {
	source liveplot.Samples // Cached source collection (read-only)
	data   []float64        // Backing array of the window
	ptr    int              // Cursor, always in [0, cap]
	cap    int              // Capacity of the backing array

	policy liveplot.MissingPolicy
	resets uint64

	mu sync.Mutex // Guards the whole step
}

// New instantiates a new sample buffer on top of a source collection
func New(source liveplot.Samples, options ...func(*SampleBuffer)) *SampleBuffer {
	b := &SampleBuffer{
		source: source,
		cap:    DefaultCapacity,
		policy: liveplot.SubstituteZero,
	}

	// Execute functional options, if any
	for _, opt := range options {
		opt(b)
	}

	if b.cap <= 0 {
		panic("Cannot create buffer with non-positive capacity")
	}
	b.data = make([]float64, b.cap)

	return b
}

// WithCapacity sets a custom buffer capacity
func WithCapacity(cap int) func(*SampleBuffer) {
	return func(b *SampleBuffer) {
		b.cap = cap
	}
}

// WithMissingPolicy sets the policy applied to absent sample values
func WithMissingPolicy(policy liveplot.MissingPolicy) func(*SampleBuffer) {
	return func(b *SampleBuffer) {
		b.policy = policy
	}
}

// Advance performs one step: it reads the sample at the cursor, writes it to
// the backing array and returns the window rendered so far. Once the cursor has
// reached the window size the buffer is reset before the read.
func (b *SampleBuffer) Advance() (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	window := b.window()
	if window == 0 {
		return Snapshot{}, liveplot.ErrNoData
	}

	// Reset when the whole window has been processed
	if b.ptr >= window {
		b.reset()
		logrus.StandardLogger().Infof("Resetting buffer to start, all %d points displayed", window)
	}

	sample := b.source[b.ptr]

	var value float64
	if sample.Present() {
		value = *sample.Value
	} else if b.policy == liveplot.RejectMissing {

		// Skip the absent sample, leaving its slot zeroed
		b.ptr++
		return Snapshot{}, errors.Wrapf(liveplot.ErrMissingSample, "position %d", sample.Position)
	}

	b.data[b.ptr] = value

	snapshot := Snapshot{
		Values:    make([]float64, b.ptr+1),
		Positions: make([]int, b.ptr+1),
	}
	copy(snapshot.Values, b.data[:b.ptr+1])
	for i := range snapshot.Positions {
		snapshot.Positions[i] = i
	}

	b.ptr++
	snapshot.Count = b.ptr

	return snapshot, nil
}

// Reset moves the cursor back to the start and zeroes the backing array
func (b *SampleBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reset()
}

// Len returns the current cursor position
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.ptr
}

// Cap returns the capacity of the buffer
func (b *SampleBuffer) Cap() int {
	return b.cap
}

// Window returns the number of points shown before the buffer resets
func (b *SampleBuffer) Window() int {
	return b.window()
}

// Resets returns the number of resets performed so far
func (b *SampleBuffer) Resets() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.resets
}

// Samples returns the number of samples in the underlying source collection
func (b *SampleBuffer) Samples() int {
	return len(b.source)
}

// Empty returns if the underlying source collection holds no samples
func (b *SampleBuffer) Empty() bool {
	return len(b.source) == 0
}

func (b *SampleBuffer) window() int {
	if len(b.source) < b.cap {
		return len(b.source)
	}
	return b.cap
}

func (b *SampleBuffer) reset() {
	b.ptr = 0
	for i := range b.data {
		b.data[i] = 0
	}
	b.resets++
}
