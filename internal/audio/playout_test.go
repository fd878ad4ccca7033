package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPullRoundTrip(t *testing.T) {
	b := NewPlayoutBufferSize(16)
	b.Push([]int16{1, 2, 3, 4})

	out := make([]int16, 4)
	n := b.Pull(out)
	require.Equal(t, 4, n)
	assert.Equal(t, []int16{1, 2, 3, 4}, out)
	assert.Zero(t, b.Len())
}

func TestPullZeroFillsShortfall(t *testing.T) {
	b := NewPlayoutBufferSize(16)
	b.Push([]int16{7, 8})

	out := []int16{9, 9, 9, 9}
	n := b.Pull(out)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int16{7, 8, 0, 0}, out)
}

func TestOverflowDropsOldest(t *testing.T) {
	b := NewPlayoutBufferSize(4)
	b.Push([]int16{1, 2, 3, 4})
	b.Push([]int16{5, 6})

	out := make([]int16, 4)
	n := b.Pull(out)
	require.Equal(t, 4, n)
	assert.Equal(t, []int16{3, 4, 5, 6}, out)
}

func TestClear(t *testing.T) {
	b := NewPlayoutBufferSize(8)
	b.Push([]int16{1, 2, 3})
	b.Clear()
	assert.Zero(t, b.Len())

	out := make([]int16, 2)
	assert.Zero(t, b.Pull(out))
	assert.Equal(t, []int16{0, 0}, out)
}
