package domain

type TrackKind int

const (
	TrackKindAudio TrackKind = iota
	TrackKindVideo
)

func (k TrackKind) String() string {
	if k == TrackKindVideo {
		return "video"
	}
	return "audio"
}

type TrackSource int

const (
	TrackSourceUnknown TrackSource = iota
	TrackSourceMicrophone
	TrackSourceCamera
	TrackSourceScreenShare
)

func (s TrackSource) String() string {
	switch s {
	case TrackSourceMicrophone:
		return "microphone"
	case TrackSourceCamera:
		return "camera"
	case TrackSourceScreenShare:
		return "screen_share"
	default:
		return "unknown"
	}
}

// TrackInfo describes one subscribed media track.
type TrackInfo struct {
	SID            TrackSID       `json:"sid"`
	ParticipantSID ParticipantSID `json:"participant_sid"`
	Kind           TrackKind      `json:"kind"`
	Source         TrackSource    `json:"source"`
}

// VideoFrame is a single decoded picture buffer. The core never
// interprets the pixel data; format conversion is the sink's problem.
type VideoFrame struct {
	Width  uint32
	Height uint32
	Data   []byte
}
