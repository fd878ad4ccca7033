package render

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-rtc/parley/internal/core"
	"github.com/parley-rtc/parley/internal/domain"
)

// stallCheckInterval is diagnostic only: a tick where no frame arrived
// produces a warning log line and nothing else.
const stallCheckInterval = 5 * time.Second

// renderer forwards decoded frames from one track's source to one sink.
// Cancellation is cooperative: the context is checked before every
// forward because the sink touches an externally-owned native surface
// that must not be written after the caller asked us to stop.
type renderer struct {
	trackSID domain.TrackSID
	source   core.FrameSource
	sink     core.FrameSink
	cancel   context.CancelFunc
	done     chan struct{}
}

func (r *renderer) loop(ctx context.Context, logger *zerolog.Logger) {
	defer close(r.done)
	defer r.source.Close()

	tick := time.NewTicker(stallCheckInterval)
	defer tick.Stop()

	frames := r.source.Frames()
	delivered := false
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("renderer cancelled")
			return

		case <-tick.C:
			if !delivered {
				logger.Warn().Msg("no frames from source since last check")
			}
			delivered = false

		case frame, ok := <-frames:
			if !ok {
				// Stream end is a normal exit; it coincides with an
				// unsubscribe upstream. Re-attachment is the caller's
				// call via a fresh Start.
				logger.Info().Msg("frame source ended, renderer exiting")
				return
			}
			if ctx.Err() != nil {
				logger.Info().Msg("renderer cancelled")
				return
			}
			if err := r.sink.Render(frame); err != nil {
				logger.Error().Err(err).Msg("sink render error")
			} else {
				delivered = true
			}
		}
	}
}
