package core

import (
	"context"

	"github.com/parley-rtc/parley/internal/domain"
)

// Event is one entry of the transport's ordered session event stream.
type Event interface{ isEvent() }

type ConnectedEvent struct{}

type ReconnectingEvent struct{}

type ReconnectedEvent struct{}

type DisconnectedEvent struct{ Reason string }

type ParticipantJoinedEvent struct{ Participant domain.Participant }

type ParticipantLeftEvent struct{ SID domain.ParticipantSID }

// TrackSubscribedEvent carries the media handle alongside the track
// metadata: Video is set for video tracks, Audio for audio tracks.
type TrackSubscribedEvent struct {
	Info  domain.TrackInfo
	Video VideoTrack
	Audio AudioSource
}

type TrackUnsubscribedEvent struct {
	SID            domain.TrackSID
	ParticipantSID domain.ParticipantSID
	Kind           domain.TrackKind
}

type TrackMutedEvent struct {
	ParticipantSID domain.ParticipantSID
	Source         domain.TrackSource
}

type TrackUnmutedEvent struct {
	ParticipantSID domain.ParticipantSID
	Source         domain.TrackSource
}

type ActiveSpeakersEvent struct{ SIDs []domain.ParticipantSID }

type AttributesChangedEvent struct {
	ParticipantSID domain.ParticipantSID
	Attributes     map[string]string
}

type ConnectionQualityEvent struct {
	ParticipantSID domain.ParticipantSID
	Quality        domain.ConnectionQuality
}

type ChatMessageEvent struct{ Message domain.ChatMessage }

// TextStreamEvent announces an opened per-topic text stream. The reader
// is single-use and must be drained by the receiver.
type TextStreamEvent struct {
	Topic      string
	SenderSID  domain.ParticipantSID
	SenderName string
	Reader     TextStreamReader
}

// DataEvent is a raw payload received on the generic data channel.
type DataEvent struct {
	Topic           string
	ParticipantSID  domain.ParticipantSID
	ParticipantName string
	Payload         []byte
}

func (ConnectedEvent) isEvent()         {}
func (ReconnectingEvent) isEvent()      {}
func (ReconnectedEvent) isEvent()       {}
func (DisconnectedEvent) isEvent()      {}
func (ParticipantJoinedEvent) isEvent() {}
func (ParticipantLeftEvent) isEvent()   {}
func (TrackSubscribedEvent) isEvent()   {}
func (TrackUnsubscribedEvent) isEvent() {}
func (TrackMutedEvent) isEvent()        {}
func (TrackUnmutedEvent) isEvent()      {}
func (ActiveSpeakersEvent) isEvent()    {}
func (AttributesChangedEvent) isEvent() {}
func (ConnectionQualityEvent) isEvent() {}
func (ChatMessageEvent) isEvent()       {}
func (TextStreamEvent) isEvent()        {}
func (DataEvent) isEvent()              {}

// TextStreamReader drains one incoming text stream.
type TextStreamReader interface {
	ID() string
	TimestampMS() int64
	ReadAll(ctx context.Context) (string, error)
}
