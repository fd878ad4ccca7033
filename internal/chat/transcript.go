// Package chat holds the append-only message transcript and the legacy
// data-channel envelope format.
package chat

import (
	"sync"

	"github.com/parley-rtc/parley/internal/domain"
)

// StreamTopic is the per-topic text-stream channel used for chat.
const StreamTopic = "lk.chat"

// LegacyTopic is the generic data-channel topic older peers send chat on.
const LegacyTopic = "lk-chat-topic"

// Transcript is the ordered, append-only chat log. Deduplication is a
// policy decision made by the event loop before calling Append; the
// transcript itself records everything it is given.
type Transcript struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(msg domain.ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// Snapshot returns the messages in insertion order.
func (t *Transcript) Snapshot() []domain.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}
