package core

import "github.com/parley-rtc/parley/internal/domain"

// Surface is a caller-owned opaque output surface handle. Its lifetime
// is entirely the caller's responsibility; the core never dereferences
// or releases it, only hands it to the SinkBinder.
type Surface any

// VideoTrack is a subscribed remote video track handle, retained for
// later renderer attachment.
type VideoTrack interface {
	SID() domain.TrackSID
	// NewFrameSource opens a fresh decoded-frame source for this track.
	// Each renderer gets its own source.
	NewFrameSource() (FrameSource, error)
}

// FrameSource is a pull-style stream of decoded frames. The channel is
// closed on stream end, which is a normal terminal condition.
type FrameSource interface {
	Frames() <-chan domain.VideoFrame
	// Close releases the source. Idempotent.
	Close()
}

// FrameSink forwards one frame to a platform output surface.
type FrameSink interface {
	Render(frame domain.VideoFrame) error
}

// SinkBinder creates a platform-specific sink bound to a caller surface.
// Lives at the true platform boundary; the renderer registry only sees
// the interface.
type SinkBinder interface {
	Bind(trackSID domain.TrackSID, surface Surface) (FrameSink, error)
}

// AudioSource is a stream of decoded PCM sample batches for one audio
// track. The channel is closed on stream end.
type AudioSource interface {
	Samples() <-chan []int16
	Close()
}
