// Package session is the client-side core of a meeting: it consumes the
// transport's event stream, maintains queryable application state and
// manages per-track renderer tasks.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/parley-rtc/parley/internal/audio"
	"github.com/parley-rtc/parley/internal/auth"
	"github.com/parley-rtc/parley/internal/chat"
	"github.com/parley-rtc/parley/internal/core"
	"github.com/parley-rtc/parley/internal/domain"
	"github.com/parley-rtc/parley/internal/handraise"
	"github.com/parley-rtc/parley/internal/render"
	"github.com/parley-rtc/parley/internal/roster"
)

// Session turns the transport's raw event stream into consistent
// application state. One Session covers one connection: after the
// terminal Disconnected event a fresh Connect starts a new transport.
type Session struct {
	dialer  core.Dialer
	emitter *Emitter

	directory  *roster.Directory
	transcript *chat.Transcript
	renderers  *render.Registry
	playout    *audio.PlayoutBuffer

	handsOpts []handraise.Option

	mu           sync.RWMutex
	state        domain.ConnectionState
	transport    core.Transport
	hands        *handraise.Coordinator
	tracks       map[domain.TrackSID]core.VideoTrack
	connCtx      context.Context
	connCancel   context.CancelFunc
	micPublished bool
	camPublished bool
	micEnabled   bool
	camEnabled   bool

	unread   atomic.Uint32
	chatOpen atomic.Bool

	loopDone chan struct{}
}

type Option func(*Session)

// WithAutoLowerDelay overrides the hand-raise auto-lower window.
func WithAutoLowerDelay(d time.Duration) Option {
	return func(s *Session) {
		s.handsOpts = append(s.handsOpts, handraise.WithAutoLowerDelay(d))
	}
}

func New(dialer core.Dialer, bind core.SinkBinder, opts ...Option) *Session {
	s := &Session{
		dialer:     dialer,
		emitter:    NewEmitter(),
		directory:  roster.NewDirectory(),
		transcript: chat.NewTranscript(),
		renderers:  render.NewRegistry(bind),
		playout:    audio.NewPlayoutBuffer(),
		state:      domain.ConnectionState{Phase: domain.PhaseDisconnected},
		tracks:     make(map[domain.TrackSID]core.VideoTrack),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddListener registers an application event listener.
func (s *Session) AddListener(l Listener) {
	s.emitter.AddListener(l)
}

// Playout exposes the shared audio buffer the platform output pulls from.
func (s *Session) Playout() *audio.PlayoutBuffer {
	return s.playout
}

// ConnectMeet resolves a meeting URL to transport credentials through
// the Meet API, then connects.
func (s *Session) ConnectMeet(ctx context.Context, meetURL, username string) error {
	token, err := auth.RequestToken(ctx, meetURL, username)
	if err != nil {
		return err
	}
	return s.Connect(ctx, token.URL, token.Token)
}

// Connect dials the transport and starts the event loop. Dial failures
// are returned to the caller and never enter the event stream.
func (s *Session) Connect(ctx context.Context, url, token string) error {
	s.mu.Lock()
	if s.transport != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = domain.ConnectionState{Phase: domain.PhaseConnecting}
	s.mu.Unlock()
	s.emitter.Emit(ConnectionStateChanged{State: domain.ConnectionState{Phase: domain.PhaseConnecting}})

	transport, err := s.dialer.Dial(ctx, url, token)
	if err != nil {
		s.mu.Lock()
		s.state = domain.ConnectionState{Phase: domain.PhaseDisconnected}
		s.mu.Unlock()
		s.emitter.Emit(ConnectionStateChanged{State: domain.ConnectionState{Phase: domain.PhaseDisconnected}})
		return err
	}

	connCtx, cancel := context.WithCancel(context.Background())
	hands := handraise.NewCoordinator(
		transport.LocalSID(),
		transport,
		func(u domain.HandRaiseUpdate) { s.emitter.Emit(HandRaiseChanged{Update: u}) },
		s.handsOpts...,
	)

	s.mu.Lock()
	s.transport = transport
	s.hands = hands
	s.connCtx = connCtx
	s.connCancel = cancel
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	s.directory.SetLocalSID(transport.LocalSID())

	log.Info().Str("module", "session").Str("local_sid", string(transport.LocalSID())).Msg("transport connected, starting event loop")
	go s.run(connCtx, transport, hands)
	return nil
}

// Disconnect closes the transport. The terminal Disconnected event on
// the stream performs the actual teardown.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.RLock()
	transport := s.transport
	done := s.loopDone
	s.mu.RUnlock()
	if transport == nil {
		return nil
	}
	if err := transport.Close(ctx); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("transport close error")
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ConnectionState reports the current connection state.
func (s *Session) ConnectionState() domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Participants returns a roster snapshot in join order.
func (s *Session) Participants() []domain.Participant {
	return s.directory.Snapshot()
}

// ActiveSpeakers returns the SIDs currently reported as speaking.
func (s *Session) ActiveSpeakers() []domain.ParticipantSID {
	return s.directory.ActiveSpeakers()
}

// LocalSID returns the local participant SID, empty when disconnected.
func (s *Session) LocalSID() domain.ParticipantSID {
	return s.directory.LocalSID()
}

// VideoTrackSIDs lists the currently subscribed video tracks.
func (s *Session) VideoTrackSIDs() []domain.TrackSID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TrackSID, 0, len(s.tracks))
	for sid := range s.tracks {
		out = append(out, sid)
	}
	return out
}

// ChatMessages returns the transcript in insertion order.
func (s *Session) ChatMessages() []domain.ChatMessage {
	return s.transcript.Snapshot()
}

// IsHandRaised reports whether the local participant's hand is raised.
func (s *Session) IsHandRaised() bool {
	s.mu.RLock()
	hands := s.hands
	s.mu.RUnlock()
	if hands == nil {
		return false
	}
	return hands.IsLocalRaised()
}

// RaiseHand raises the local participant's hand.
func (s *Session) RaiseHand(ctx context.Context) error {
	s.mu.RLock()
	hands := s.hands
	s.mu.RUnlock()
	if hands == nil {
		return ErrNotConnected
	}
	return hands.Raise(ctx)
}

// LowerHand lowers the local participant's hand.
func (s *Session) LowerHand(ctx context.Context) error {
	s.mu.RLock()
	hands := s.hands
	s.mu.RUnlock()
	if hands == nil {
		return ErrNotConnected
	}
	return hands.Lower(ctx)
}

// SendChat sends a message on the stream path and records it locally.
func (s *Session) SendChat(ctx context.Context, text string) (domain.ChatMessage, error) {
	s.mu.RLock()
	transport := s.transport
	s.mu.RUnlock()
	if transport == nil {
		return domain.ChatMessage{}, ErrNotConnected
	}

	receipt, err := transport.SendText(ctx, chat.StreamTopic, text)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	id := receipt.ID
	if id == "" {
		id = uuid.NewString()
	}
	msg := domain.ChatMessage{
		ID:          id,
		SenderSID:   transport.LocalSID(),
		SenderName:  transport.LocalName(),
		Text:        text,
		TimestampMS: receipt.TimestampMS,
	}
	s.transcript.Append(msg)
	s.emitter.Emit(ChatMessageReceived{Message: msg})
	return msg, nil
}

// SetChatOpen marks the chat panel open or closed. Opening resets the
// unread counter.
func (s *Session) SetChatOpen(open bool) {
	s.chatOpen.Store(open)
	if open {
		s.unread.Store(0)
		s.emitter.Emit(UnreadCountChanged{Count: 0})
	}
}

// UnreadCount reports messages recorded while the chat panel was closed.
func (s *Session) UnreadCount() uint32 {
	return s.unread.Load()
}

// AttachRenderer starts (or replaces) the renderer for a subscribed
// video track, bound to the caller-owned surface.
func (s *Session) AttachRenderer(trackSID domain.TrackSID, surface core.Surface) error {
	s.mu.RLock()
	track, ok := s.tracks[trackSID]
	connCtx := s.rendererCtxLocked()
	s.mu.RUnlock()
	if !ok {
		return ErrTrackNotFound
	}
	return s.renderers.Start(connCtx, track, surface)
}

// DetachRenderer stops the renderer for the track. Safe to call
// redundantly.
func (s *Session) DetachRenderer(trackSID domain.TrackSID) {
	s.renderers.Stop(trackSID)
}

// rendererCtxLocked derives the parent context for renderer tasks; the
// connection context guarantees they die with the session even when a
// caller forgets to detach. Call with s.mu held.
func (s *Session) rendererCtxLocked() context.Context {
	if s.connCtx == nil {
		return context.Background()
	}
	return s.connCtx
}
