package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/parley-rtc/parley/internal/adapters/rtc"
	"github.com/parley-rtc/parley/internal/config"
	"github.com/parley-rtc/parley/internal/core"
	"github.com/parley-rtc/parley/internal/domain"
	"github.com/parley-rtc/parley/internal/session"
)

// logSink is the demo frame sink: it proves frames flow without a real
// display surface.
type logSink struct {
	track domain.TrackSID
}

func (s logSink) Render(frame domain.VideoFrame) error {
	log.Debug().
		Str("module", "main").
		Str("track", string(s.track)).
		Uint32("width", frame.Width).
		Uint32("height", frame.Height).
		Int("bytes", len(frame.Data)).
		Msg("frame rendered")
	return nil
}

type logSinkBinder struct{}

func (logSinkBinder) Bind(trackSID domain.TrackSID, _ core.Surface) (core.FrameSink, error) {
	return logSink{track: trackSID}, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.MeetURL == "" {
		log.Fatal().Msg("meet_url is required")
	}

	sess := session.New(&rtc.Dialer{}, logSinkBinder{})
	sess.AddListener(session.ListenerFunc(func(e session.Event) {
		switch ev := e.(type) {
		case session.ConnectionStateChanged:
			log.Info().Str("module", "main").Str("state", ev.State.Phase.String()).Uint32("attempt", ev.State.Attempt).Msg("connection state")
		case session.ParticipantJoined:
			log.Info().Str("module", "main").Str("name", ev.Participant.Name).Msg("participant joined")
		case session.ParticipantLeft:
			log.Info().Str("module", "main").Str("sid", string(ev.SID)).Msg("participant left")
		case session.TrackSubscribed:
			if ev.Info.Kind == domain.TrackKindVideo {
				if err := sess.AttachRenderer(ev.Info.SID, nil); err != nil {
					log.Warn().Err(err).Str("module", "main").Msg("attach renderer")
				}
			}
		case session.ChatMessageReceived:
			log.Info().Str("module", "main").Str("from", ev.Message.SenderName).Str("text", ev.Message.Text).Msg("chat")
		case session.HandRaiseChanged:
			log.Info().Str("module", "main").Str("sid", string(ev.Update.ParticipantSID)).Bool("raised", ev.Update.Raised).Uint32("position", ev.Update.Position).Msg("hand raise")
		}
	}))

	if err := sess.ConnectMeet(ctx, cfg.MeetURL, cfg.Username); err != nil {
		log.Fatal().Err(err).Msg("connect failed")
	}

	if cfg.Microphone {
		if err := sess.SetMicrophoneEnabled(ctx, true); err != nil {
			log.Warn().Err(err).Msg("microphone enable failed")
		}
	}
	if cfg.Camera {
		if err := sess.SetCameraEnabled(ctx, true); err != nil {
			log.Warn().Err(err).Msg("camera enable failed")
		}
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := sess.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("disconnect error")
	}
	log.Info().Msg("Session exited gracefully")
}
