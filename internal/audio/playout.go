// Package audio buffers decoded remote audio between the transport's
// stream tasks and the platform playout device.
package audio

import "sync"

// Two seconds of 48 kHz mono samples.
const defaultMaxSamples = 48_000 * 2

// PlayoutBuffer is a bounded ring of PCM samples. Audio stream tasks
// push, the platform output pulls. When the consumer falls behind the
// oldest samples are dropped: skipping is better than accumulating
// latency.
type PlayoutBuffer struct {
	mu         sync.Mutex
	samples    []int16
	maxSamples int
}

func NewPlayoutBuffer() *PlayoutBuffer {
	return &PlayoutBuffer{maxSamples: defaultMaxSamples}
}

// NewPlayoutBufferSize creates a buffer holding at most max samples.
func NewPlayoutBufferSize(max int) *PlayoutBuffer {
	return &PlayoutBuffer{maxSamples: max}
}

// Push appends samples, discarding the oldest on overflow.
func (b *PlayoutBuffer) Push(samples []int16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, samples...)
	if overflow := len(b.samples) - b.maxSamples; overflow > 0 {
		b.samples = b.samples[overflow:]
	}
}

// Pull fills out with buffered samples and returns how many were
// written. Unfilled positions are zeroed (silence).
func (b *PlayoutBuffer) Pull(out []int16) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := copy(out, b.samples)
	b.samples = b.samples[n:]
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return n
}

func (b *PlayoutBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Clear drops all buffered samples, e.g. on disconnect.
func (b *PlayoutBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = nil
}
