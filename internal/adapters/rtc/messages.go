package rtc

import "encoding/json"

// Signalling envelope. Every frame on the websocket is one JSON object
// with a type discriminator.
type envelope struct {
	Type string `json:"type"`

	// join / welcome
	Token        string            `json:"token,omitempty"`
	SID          string            `json:"sid,omitempty"`
	Identity     string            `json:"identity,omitempty"`
	Name         string            `json:"name,omitempty"`
	Participants []participantInfo `json:"participants,omitempty"`

	// offer / answer / candidate
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`

	// track / track_removed
	TrackSID       string `json:"track_sid,omitempty"`
	ParticipantSID string `json:"participant_sid,omitempty"`
	Kind           string `json:"kind,omitempty"`
	Source         string `json:"source,omitempty"`
	MediaID        string `json:"media_id,omitempty"`
	Width          uint32 `json:"width,omitempty"`
	Height         uint32 `json:"height,omitempty"`

	// mute / unmute
	Muted bool `json:"muted,omitempty"`

	// speakers
	SIDs []string `json:"sids,omitempty"`

	// attributes
	Attributes map[string]string `json:"attributes,omitempty"`
	Key        string            `json:"key,omitempty"`
	Value      string            `json:"value,omitempty"`

	// quality
	Quality string `json:"quality,omitempty"`

	// chat / data
	ID          string `json:"id,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Text        string `json:"text,omitempty"`
	Payload     string `json:"payload,omitempty"` // base64
	TimestampMS int64  `json:"timestamp,omitempty"`

	// bye
	Reason string `json:"reason,omitempty"`
}

type participantInfo struct {
	SID      string `json:"sid"`
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Muted    bool   `json:"muted"`
}
