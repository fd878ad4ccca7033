// Package render manages one background renderer task per subscribed
// video track, each bound to a caller-owned output surface.
package render

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parley-rtc/parley/internal/core"
	"github.com/parley-rtc/parley/internal/domain"
)

// Registry owns at most one active renderer per track SID. The entry
// map lock is held only to insert, remove or replace entries, never
// while a frame is being forwarded.
type Registry struct {
	bind core.SinkBinder

	mu      sync.Mutex
	entries map[domain.TrackSID]*renderer
}

func NewRegistry(bind core.SinkBinder) *Registry {
	return &Registry{
		bind:    bind,
		entries: make(map[domain.TrackSID]*renderer),
	}
}

// Start attaches a renderer for the track, replacing any existing one
// for the same SID. The surface stays caller-owned; the registry only
// hands it to the sink binder.
func (m *Registry) Start(ctx context.Context, track core.VideoTrack, surface core.Surface) error {
	sid := track.SID()
	logger := log.With().
		Str("module", "render").
		Str("track", string(sid)).
		Logger()

	sink, err := m.bind.Bind(sid, surface)
	if err != nil {
		return err
	}
	source, err := track.NewFrameSource()
	if err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	r := &renderer{
		trackSID: sid,
		source:   source,
		sink:     sink,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	m.mu.Lock()
	if old, ok := m.entries[sid]; ok {
		logger.Info().Msg("replacing existing renderer for track")
		old.cancel()
	}
	m.entries[sid] = r
	m.mu.Unlock()

	logger.Info().Msg("starting renderer loop")

	go r.loop(taskCtx, &logger)
	return nil
}

// Stop cancels the renderer for the track, if any. Idempotent; returns
// immediately without waiting for the loop to unwind. Once the loop
// observes the cancellation no further frames reach the surface.
func (m *Registry) Stop(sid domain.TrackSID) {
	m.mu.Lock()
	r, ok := m.entries[sid]
	if ok {
		delete(m.entries, sid)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	r.cancel()
}

// StopAll cancels every active renderer. Used on disconnect.
func (m *Registry) StopAll() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[domain.TrackSID]*renderer)
	m.mu.Unlock()
	for _, r := range entries {
		r.cancel()
	}
}

// Active returns the SIDs with a registered renderer.
func (m *Registry) Active() []domain.TrackSID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TrackSID, 0, len(m.entries))
	for sid := range m.entries {
		out = append(out, sid)
	}
	return out
}

// Has reports whether a renderer is registered for the track.
func (m *Registry) Has(sid domain.TrackSID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[sid]
	return ok
}
