package render

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-rtc/parley/internal/core"
	"github.com/parley-rtc/parley/internal/domain"
)

// fakeTrack hands out channel-fed frame sources and remembers them so
// tests can push frames and observe closures.
type fakeTrack struct {
	sid domain.TrackSID

	mu      sync.Mutex
	sources []*fakeSource
}

func (t *fakeTrack) SID() domain.TrackSID { return t.sid }

func (t *fakeTrack) NewFrameSource() (core.FrameSource, error) {
	s := &fakeSource{frames: make(chan domain.VideoFrame, 8)}
	t.mu.Lock()
	t.sources = append(t.sources, s)
	t.mu.Unlock()
	return s, nil
}

func (t *fakeTrack) source(i int) *fakeSource {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sources[i]
}

type fakeSource struct {
	frames chan domain.VideoFrame
	once   sync.Once
}

func (s *fakeSource) Frames() <-chan domain.VideoFrame { return s.frames }

func (s *fakeSource) Close() {
	s.once.Do(func() { close(s.frames) })
}

type countingSink struct {
	mu       sync.Mutex
	rendered []domain.VideoFrame
}

func (s *countingSink) Render(frame domain.VideoFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rendered = append(s.rendered, frame)
	return nil
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rendered)
}

// fakeBinder maps each surface to its own counting sink.
type fakeBinder struct {
	mu    sync.Mutex
	sinks map[core.Surface]*countingSink
}

func newFakeBinder() *fakeBinder {
	return &fakeBinder{sinks: make(map[core.Surface]*countingSink)}
}

func (b *fakeBinder) Bind(_ domain.TrackSID, surface core.Surface) (core.FrameSink, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sink := &countingSink{}
	b.sinks[surface] = sink
	return sink, nil
}

func (b *fakeBinder) sink(surface core.Surface) *countingSink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sinks[surface]
}

func TestFramesReachBoundSink(t *testing.T) {
	binder := newFakeBinder()
	reg := NewRegistry(binder)
	track := &fakeTrack{sid: "tr1"}

	require.NoError(t, reg.Start(context.Background(), track, "surface-a"))
	track.source(0).frames <- domain.VideoFrame{Width: 640, Height: 480, Data: []byte{1}}

	sink := binder.sink("surface-a")
	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, reg.Has("tr1"))
}

func TestStartReplacesExistingRenderer(t *testing.T) {
	binder := newFakeBinder()
	reg := NewRegistry(binder)
	track := &fakeTrack{sid: "tr1"}

	require.NoError(t, reg.Start(context.Background(), track, "surface-a"))
	require.NoError(t, reg.Start(context.Background(), track, "surface-b"))

	// The replaced task must stop consuming; only surface-b's sink
	// receives new frames.
	assert.Eventually(t, func() bool {
		select {
		case track.source(1).frames <- domain.VideoFrame{Data: []byte{2}}:
		default:
		}
		return binder.sink("surface-b").count() > 0
	}, time.Second, 5*time.Millisecond)

	assert.Zero(t, binder.sink("surface-a").count())
	assert.Equal(t, []domain.TrackSID{"tr1"}, reg.Active())
}

func TestStopIsIdempotent(t *testing.T) {
	binder := newFakeBinder()
	reg := NewRegistry(binder)
	track := &fakeTrack{sid: "tr1"}

	require.NoError(t, reg.Start(context.Background(), track, "surface-a"))
	reg.Stop("tr1")
	reg.Stop("tr1")
	reg.Stop("ghost")

	assert.False(t, reg.Has("tr1"))
	assert.Empty(t, reg.Active())
}

func TestNoFramesAfterStop(t *testing.T) {
	binder := newFakeBinder()
	reg := NewRegistry(binder)
	track := &fakeTrack{sid: "tr1"}

	require.NoError(t, reg.Start(context.Background(), track, "surface-a"))
	reg.Stop("tr1")

	sink := binder.sink("surface-a")
	before := sink.count()
	// Give the cancelled loop a moment, then offer a frame; it must not
	// be forwarded.
	time.Sleep(20 * time.Millisecond)
	select {
	case track.source(0).frames <- domain.VideoFrame{Data: []byte{3}}:
	default:
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, sink.count())
}

func TestSourceEndExitsLoop(t *testing.T) {
	binder := newFakeBinder()
	reg := NewRegistry(binder)
	track := &fakeTrack{sid: "tr1"}

	require.NoError(t, reg.Start(context.Background(), track, "surface-a"))
	track.source(0).Close()

	// The loop exits on its own; the registry entry remains until an
	// explicit Stop, which stays safe to call.
	time.Sleep(20 * time.Millisecond)
	reg.Stop("tr1")
	assert.False(t, reg.Has("tr1"))
}

func TestStopAll(t *testing.T) {
	binder := newFakeBinder()
	reg := NewRegistry(binder)

	require.NoError(t, reg.Start(context.Background(), &fakeTrack{sid: "tr1"}, "a"))
	require.NoError(t, reg.Start(context.Background(), &fakeTrack{sid: "tr2"}, "b"))
	reg.StopAll()

	assert.Empty(t, reg.Active())
}
