// Package domain contains entities without logic, just meta-data.
package domain

type (
	ParticipantSID string
	TrackSID       string
)

// Participant is the roster entry for one remote or local participant.
// Mutated only by the session event loop.
type Participant struct {
	SID      ParticipantSID `json:"sid"`
	Identity string         `json:"identity"`
	// Name is the display name; empty means the participant has not set one.
	Name    string `json:"name,omitempty"`
	IsMuted bool   `json:"is_muted"`
	// HasVideo and VideoTrackSID are driven exclusively by track
	// subscribe/unsubscribe events, never by publication metadata, so a
	// tile is only announced once frames can actually be attached.
	HasVideo      bool              `json:"has_video"`
	VideoTrackSID TrackSID          `json:"video_track_sid,omitempty"`
	Quality       ConnectionQuality `json:"connection_quality"`
}
