package chat

import "encoding/json"

// LegacyEnvelope is the JSON payload of a chat message delivered on the
// generic data channel. Peers that also send on the stream path mark
// the copy with IgnoreLegacy so receivers do not record it twice. There
// is no shared message id across the two paths, so this stays a
// best-effort dedup.
type LegacyEnvelope struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	TimestampMS  int64  `json:"timestamp"`
	IgnoreLegacy bool   `json:"ignoreLegacy"`
}

// DecodeLegacy parses a legacy chat payload. A malformed envelope is an
// error; the caller drops it (logged only).
func DecodeLegacy(payload []byte) (LegacyEnvelope, error) {
	var env LegacyEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return LegacyEnvelope{}, err
	}
	return env, nil
}
