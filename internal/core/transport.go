// Package core defines the interfaces between the session core and its
// external collaborators: the transport producing the event stream and
// decoded media, and the platform layer consuming rendered frames.
package core

import (
	"context"

	"github.com/parley-rtc/parley/internal/domain"
)

// SentMessage is the transport's receipt for an outgoing text message.
type SentMessage struct {
	ID          string
	TimestampMS int64
}

// AttributeWriter publishes a key/value participant attribute for the
// local participant. Remote observers see it as an AttributesChangedEvent.
type AttributeWriter interface {
	SetAttribute(ctx context.Context, key, value string) error
}

// LocalMedia controls the local participant's published tracks.
type LocalMedia interface {
	PublishMicrophone(ctx context.Context) error
	PublishCamera(ctx context.Context) error
	SetMicrophoneMuted(ctx context.Context, muted bool) error
	SetCameraMuted(ctx context.Context, muted bool) error
}

// Transport is a live connection to a room. It owns the network and
// media plane; the session core only consumes its ordered event stream
// and issues commands. Close tears the connection down, after which the
// event channel delivers a final DisconnectedEvent and is closed.
type Transport interface {
	AttributeWriter
	LocalMedia

	// Events is the single ordered, unbounded stream of session events.
	// The channel is owned by the transport and closed after the final
	// DisconnectedEvent.
	Events() <-chan Event

	LocalSID() domain.ParticipantSID
	LocalIdentity() string
	LocalName() string

	// SendText sends a message on a per-topic text stream.
	SendText(ctx context.Context, topic, text string) (SentMessage, error)
	// SendData sends a raw payload on the generic data channel.
	SendData(ctx context.Context, topic string, payload []byte) error

	Close(ctx context.Context) error
}

// Dialer establishes transport connections. Injected so the session
// core stays deterministically testable.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (Transport, error)
}
