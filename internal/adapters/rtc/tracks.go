package rtc

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/parley-rtc/parley/internal/core"
	"github.com/parley-rtc/parley/internal/domain"
)

// remoteVideoTrack adapts a pion remote track to the session's video
// track handle. Frame dimensions come from the track metadata the
// signalling server announces before the media arrives.
type remoteVideoTrack struct {
	sid    domain.TrackSID
	src    *webrtc.TrackRemote
	width  uint32
	height uint32

	// parent bounds every source's lifetime to the peer connection.
	parent context.Context
}

func (t *remoteVideoTrack) SID() domain.TrackSID { return t.sid }

func (t *remoteVideoTrack) NewFrameSource() (core.FrameSource, error) {
	ctx, cancel := context.WithCancel(t.parent)
	fs := &frameSource{
		frames: make(chan domain.VideoFrame, 8),
		cancel: cancel,
	}
	logger := log.With().Str("module", "webrtc").Str("track", string(t.sid)).Logger()
	go fs.loop(ctx, t, &logger)
	return fs, nil
}

type frameSource struct {
	frames chan domain.VideoFrame
	cancel context.CancelFunc
	once   sync.Once
}

func (f *frameSource) Frames() <-chan domain.VideoFrame { return f.frames }

func (f *frameSource) Close() {
	f.once.Do(f.cancel)
}

// loop reads RTP packets from the remote track and forwards the decoded
// payloads as frames until cancelled or the track ends.
func (f *frameSource) loop(ctx context.Context, t *remoteVideoTrack, logger *zerolog.Logger) {
	defer close(f.frames)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("frame source ctx done")
			return
		default:
		}
		pkt, _, err := t.src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("frame source read RTP ended")
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		frame := frameFromRTP(pkt, t.width, t.height)
		select {
		case f.frames <- frame:
		case <-ctx.Done():
			logger.Info().Msg("frame source ctx done")
			return
		}
	}
}

// remoteAudioSource adapts a pion remote audio track.
type remoteAudioSource struct {
	samples chan []int16
	cancel  context.CancelFunc
	once    sync.Once
}

func newRemoteAudioSource(parent context.Context, sid domain.TrackSID, src *webrtc.TrackRemote) *remoteAudioSource {
	ctx, cancel := context.WithCancel(parent)
	s := &remoteAudioSource{
		samples: make(chan []int16, 8),
		cancel:  cancel,
	}
	logger := log.With().Str("module", "webrtc").Str("track", string(sid)).Logger()
	go s.loop(ctx, src, &logger)
	return s
}

func (s *remoteAudioSource) Samples() <-chan []int16 { return s.samples }

func (s *remoteAudioSource) Close() {
	s.once.Do(s.cancel)
}

func (s *remoteAudioSource) loop(ctx context.Context, src *webrtc.TrackRemote, logger *zerolog.Logger) {
	defer close(s.samples)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("audio source ctx done")
			return
		default:
		}
		pkt, _, err := src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("audio source read RTP ended")
			return
		}
		if len(pkt.Payload) < 2 {
			continue
		}
		batch := pcm16FromRTP(pkt)
		select {
		case s.samples <- batch:
		case <-ctx.Done():
			logger.Info().Msg("audio source ctx done")
			return
		}
	}
}

func frameFromRTP(pkt *rtp.Packet, width, height uint32) domain.VideoFrame {
	return domain.VideoFrame{
		Width:  width,
		Height: height,
		Data:   pkt.Payload,
	}
}

// pcm16FromRTP decodes an L16 payload: big-endian PCM16 per RFC 3551.
func pcm16FromRTP(pkt *rtp.Packet) []int16 {
	batch := make([]int16, len(pkt.Payload)/2)
	for i := range batch {
		batch[i] = int16(binary.BigEndian.Uint16(pkt.Payload[i*2:]))
	}
	return batch
}
