package session

import "github.com/parley-rtc/parley/internal/domain"

// Event is an application event delivered to registered listeners.
type Event interface{ isEvent() }

type ConnectionStateChanged struct{ State domain.ConnectionState }

type ParticipantJoined struct{ Participant domain.Participant }

type ParticipantLeft struct{ SID domain.ParticipantSID }

type TrackSubscribed struct{ Info domain.TrackInfo }

type TrackUnsubscribed struct{ SID domain.TrackSID }

type TrackMuted struct {
	ParticipantSID domain.ParticipantSID
	Source         domain.TrackSource
}

type TrackUnmuted struct {
	ParticipantSID domain.ParticipantSID
	Source         domain.TrackSource
}

type ActiveSpeakersChanged struct{ SIDs []domain.ParticipantSID }

type ConnectionQualityChanged struct {
	ParticipantSID domain.ParticipantSID
	Quality        domain.ConnectionQuality
}

type ChatMessageReceived struct{ Message domain.ChatMessage }

type HandRaiseChanged struct{ Update domain.HandRaiseUpdate }

type UnreadCountChanged struct{ Count uint32 }

func (ConnectionStateChanged) isEvent()    {}
func (ParticipantJoined) isEvent()         {}
func (ParticipantLeft) isEvent()           {}
func (TrackSubscribed) isEvent()           {}
func (TrackUnsubscribed) isEvent()         {}
func (TrackMuted) isEvent()                {}
func (TrackUnmuted) isEvent()              {}
func (ActiveSpeakersChanged) isEvent()     {}
func (ConnectionQualityChanged) isEvent()  {}
func (ChatMessageReceived) isEvent()       {}
func (HandRaiseChanged) isEvent()          {}
func (UnreadCountChanged) isEvent()        {}

// Listener receives every application event, in order, once per event.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(event Event) { f(event) }
