package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/parley-rtc/parley/internal/chat"
	"github.com/parley-rtc/parley/internal/core"
	"github.com/parley-rtc/parley/internal/domain"
	"github.com/parley-rtc/parley/internal/handraise"
)

// run is the single sequential consumer of the transport event stream.
// All mutation of the directory, transcript and hand-raise queue goes
// through here; renderer and audio tasks run in parallel but are only
// started/stopped from this loop or the public attach/detach calls.
func (s *Session) run(ctx context.Context, transport core.Transport, hands *handraise.Coordinator) {
	defer close(s.loopDoneRef())

	var reconnectAttempt uint32
	audioTasks := make(map[domain.TrackSID]context.CancelFunc)

	for event := range transport.Events() {
		switch e := event.(type) {
		case core.ConnectedEvent:
			reconnectAttempt = 0
			s.setState(domain.ConnectionState{Phase: domain.PhaseConnected})

		case core.ReconnectingEvent:
			reconnectAttempt++
			s.setState(domain.ConnectionState{Phase: domain.PhaseReconnecting, Attempt: reconnectAttempt})

		case core.ReconnectedEvent:
			reconnectAttempt = 0
			s.setState(domain.ConnectionState{Phase: domain.PhaseConnected})

		case core.DisconnectedEvent:
			log.Info().Str("module", "session").Str("reason", e.Reason).Msg("disconnected")
			s.teardown(hands, audioTasks)
			return

		case core.ParticipantJoinedEvent:
			s.directory.Add(e.Participant)
			s.emitter.Emit(ParticipantJoined{Participant: e.Participant})

		case core.ParticipantLeftEvent:
			s.directory.Remove(e.SID)
			s.emitter.Emit(ParticipantLeft{SID: e.SID})

		case core.TrackSubscribedEvent:
			s.onTrackSubscribed(ctx, e, audioTasks)

		case core.TrackUnsubscribedEvent:
			s.onTrackUnsubscribed(e, audioTasks)

		case core.TrackMutedEvent:
			if e.Source == domain.TrackSourceMicrophone {
				s.directory.Update(e.ParticipantSID, func(p *domain.Participant) { p.IsMuted = true })
			}
			s.emitter.Emit(TrackMuted{ParticipantSID: e.ParticipantSID, Source: e.Source})

		case core.TrackUnmutedEvent:
			if e.Source == domain.TrackSourceMicrophone {
				s.directory.Update(e.ParticipantSID, func(p *domain.Participant) { p.IsMuted = false })
			}
			s.emitter.Emit(TrackUnmuted{ParticipantSID: e.ParticipantSID, Source: e.Source})

		case core.ActiveSpeakersEvent:
			s.directory.SetActiveSpeakers(e.SIDs)
			hands.OnActiveSpeakersChanged(e.SIDs)
			s.emitter.Emit(ActiveSpeakersChanged{SIDs: e.SIDs})

		case core.AttributesChangedEvent:
			hands.HandleAttributes(e.ParticipantSID, e.Attributes)

		case core.ConnectionQualityEvent:
			s.directory.Update(e.ParticipantSID, func(p *domain.Participant) { p.Quality = e.Quality })
			s.emitter.Emit(ConnectionQualityChanged{ParticipantSID: e.ParticipantSID, Quality: e.Quality})

		case core.ChatMessageEvent:
			s.recordIncoming(e.Message)

		case core.TextStreamEvent:
			s.onTextStream(ctx, e)

		case core.DataEvent:
			s.onData(e)

		default:
			log.Debug().Str("module", "session").Type("event", event).Msg("unhandled transport event")
		}
	}

	log.Info().Str("module", "session").Msg("event stream closed")
	s.teardown(hands, audioTasks)
}

func (s *Session) loopDoneRef() chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loopDone
}

func (s *Session) setState(state domain.ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.emitter.Emit(ConnectionStateChanged{State: state})
}

// teardown clears every ephemeral collection. A Disconnected event is
// terminal for this session instance.
func (s *Session) teardown(hands *handraise.Coordinator, audioTasks map[domain.TrackSID]context.CancelFunc) {
	for sid, cancel := range audioTasks {
		cancel()
		delete(audioTasks, sid)
	}
	s.renderers.StopAll()
	s.directory.Clear()
	s.transcript.Clear()
	hands.Clear()
	s.playout.Clear()
	s.unread.Store(0)

	s.mu.Lock()
	s.transport = nil
	s.hands = nil
	s.tracks = make(map[domain.TrackSID]core.VideoTrack)
	if s.connCancel != nil {
		s.connCancel()
		s.connCancel = nil
		s.connCtx = nil
	}
	s.state = domain.ConnectionState{Phase: domain.PhaseDisconnected}
	s.micPublished, s.camPublished = false, false
	s.micEnabled, s.camEnabled = false, false
	s.mu.Unlock()

	s.emitter.Emit(ConnectionStateChanged{State: domain.ConnectionState{Phase: domain.PhaseDisconnected}})
}

func (s *Session) onTrackSubscribed(ctx context.Context, e core.TrackSubscribedEvent, audioTasks map[domain.TrackSID]context.CancelFunc) {
	switch e.Info.Kind {
	case domain.TrackKindVideo:
		if e.Video != nil {
			s.directory.Update(e.Info.ParticipantSID, func(p *domain.Participant) {
				p.HasVideo = true
				p.VideoTrackSID = e.Info.SID
			})
			s.mu.Lock()
			s.tracks[e.Info.SID] = e.Video
			s.mu.Unlock()
		}

	case domain.TrackKindAudio:
		// Audio playout starts immediately on subscription; video waits
		// for an explicit renderer attach.
		if e.Audio != nil {
			taskCtx, cancel := context.WithCancel(ctx)
			audioTasks[e.Info.SID] = cancel
			go s.playoutLoop(taskCtx, e.Info.SID, e.Audio)
		}
	}

	s.emitter.Emit(TrackSubscribed{Info: e.Info})
}

func (s *Session) onTrackUnsubscribed(e core.TrackUnsubscribedEvent, audioTasks map[domain.TrackSID]context.CancelFunc) {
	if e.Kind == domain.TrackKindVideo {
		s.directory.Update(e.ParticipantSID, func(p *domain.Participant) {
			p.HasVideo = false
			p.VideoTrackSID = ""
		})
		s.mu.Lock()
		delete(s.tracks, e.SID)
		s.mu.Unlock()
	}
	if cancel, ok := audioTasks[e.SID]; ok {
		cancel()
		delete(audioTasks, e.SID)
	}
	// Unconditional; Stop is idempotent for unknown SIDs.
	s.renderers.Stop(e.SID)

	s.emitter.Emit(TrackUnsubscribed{SID: e.SID})
}

func (s *Session) playoutLoop(ctx context.Context, sid domain.TrackSID, source core.AudioSource) {
	logger := log.With().Str("module", "session").Str("track", string(sid)).Logger()
	logger.Info().Msg("audio playout stream started")
	defer source.Close()

	samples := source.Samples()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("audio playout stream cancelled")
			return
		case batch, ok := <-samples:
			if !ok {
				logger.Info().Msg("audio playout stream ended")
				return
			}
			s.playout.Push(batch)
		}
	}
}

// recordIncoming appends a message and maintains the unread counter.
func (s *Session) recordIncoming(msg domain.ChatMessage) {
	s.transcript.Append(msg)
	s.emitter.Emit(ChatMessageReceived{Message: msg})
	if !s.chatOpen.Load() {
		count := s.unread.Add(1)
		s.emitter.Emit(UnreadCountChanged{Count: count})
	}
}

// onTextStream handles the modern chat delivery path. The reader drain
// runs off-loop so a slow sender cannot stall event processing.
func (s *Session) onTextStream(ctx context.Context, e core.TextStreamEvent) {
	if e.Topic != chat.StreamTopic {
		log.Debug().Str("module", "session").Str("topic", e.Topic).Msg("text stream on unknown topic ignored")
		return
	}
	go func() {
		text, err := e.Reader.ReadAll(ctx)
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("chat text stream read failed")
			return
		}
		s.recordIncoming(domain.ChatMessage{
			ID:          e.Reader.ID(),
			SenderSID:   e.SenderSID,
			SenderName:  e.SenderName,
			Text:        text,
			TimestampMS: e.Reader.TimestampMS(),
		})
	}()
}

// onData handles the legacy chat delivery path. A sender on the stream
// path marks its legacy copy with ignoreLegacy, which we drop; there is
// no shared id across the paths, so the dedup stays best-effort.
func (s *Session) onData(e core.DataEvent) {
	if e.Topic != chat.LegacyTopic {
		log.Debug().Str("module", "session").Str("topic", e.Topic).Int("len", len(e.Payload)).Msg("data payload ignored")
		return
	}
	env, err := chat.DecodeLegacy(e.Payload)
	if err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("malformed legacy chat envelope dropped")
		return
	}
	if env.IgnoreLegacy {
		log.Debug().Str("module", "session").Msg("legacy chat copy skipped (ignoreLegacy)")
		return
	}
	if env.Message == "" {
		return
	}
	s.recordIncoming(domain.ChatMessage{
		ID:          env.ID,
		SenderSID:   e.ParticipantSID,
		SenderName:  e.ParticipantName,
		Text:        env.Message,
		TimestampMS: env.TimestampMS,
	})
}
