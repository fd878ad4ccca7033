package session

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Local media controls. The first enable publishes the track through
// the transport; later toggles only mute/unmute the publication.

func (s *Session) SetMicrophoneEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	transport := s.transport
	published := s.micPublished
	s.mu.Unlock()
	if transport == nil {
		return ErrNotConnected
	}

	if enabled && !published {
		if err := transport.PublishMicrophone(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.micPublished = true
		s.micEnabled = true
		s.mu.Unlock()
		log.Info().Str("module", "session").Msg("microphone track published")
		return nil
	}
	if !published {
		return nil
	}
	if err := transport.SetMicrophoneMuted(ctx, !enabled); err != nil {
		return err
	}
	s.mu.Lock()
	s.micEnabled = enabled
	s.mu.Unlock()
	log.Info().Str("module", "session").Bool("enabled", enabled).Msg("microphone toggled")
	return nil
}

func (s *Session) SetCameraEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	transport := s.transport
	published := s.camPublished
	s.mu.Unlock()
	if transport == nil {
		return ErrNotConnected
	}

	if enabled && !published {
		if err := transport.PublishCamera(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.camPublished = true
		s.camEnabled = true
		s.mu.Unlock()
		log.Info().Str("module", "session").Msg("camera track published")
		return nil
	}
	if !published {
		return nil
	}
	if err := transport.SetCameraMuted(ctx, !enabled); err != nil {
		return err
	}
	s.mu.Lock()
	s.camEnabled = enabled
	s.mu.Unlock()
	log.Info().Str("module", "session").Bool("enabled", enabled).Msg("camera toggled")
	return nil
}

func (s *Session) IsMicrophoneEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.micEnabled
}

func (s *Session) IsCameraEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.camEnabled
}
