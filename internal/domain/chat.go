package domain

// ChatMessage is immutable once appended to the transcript.
type ChatMessage struct {
	ID          string         `json:"id"`
	SenderSID   ParticipantSID `json:"sender_sid"`
	SenderName  string         `json:"sender_name"`
	Text        string         `json:"text"`
	TimestampMS int64          `json:"timestamp_ms"`
}

// HandRaiseUpdate is the notification payload for hand-raise changes.
// Position is the 1-based rank in the raise queue; zero when lowered.
type HandRaiseUpdate struct {
	ParticipantSID ParticipantSID `json:"participant_sid"`
	Raised         bool           `json:"raised"`
	Position       uint32         `json:"position"`
}
