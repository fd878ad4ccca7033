package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-rtc/parley/internal/domain"
)

func TestAppendAndSnapshotOrder(t *testing.T) {
	tr := NewTranscript()
	tr.Append(domain.ChatMessage{ID: "a", Text: "first"})
	tr.Append(domain.ChatMessage{ID: "b", Text: "second"})
	tr.Append(domain.ChatMessage{ID: "c", Text: "third"})

	snap := tr.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "first", snap[0].Text)
	assert.Equal(t, "third", snap[2].Text)
	assert.Equal(t, 3, tr.Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := NewTranscript()
	tr.Append(domain.ChatMessage{ID: "a", Text: "first"})

	snap := tr.Snapshot()
	snap[0].Text = "mutated"

	assert.Equal(t, "first", tr.Snapshot()[0].Text)
}

func TestClear(t *testing.T) {
	tr := NewTranscript()
	tr.Append(domain.ChatMessage{ID: "a"})
	tr.Clear()
	assert.Zero(t, tr.Len())
}

func TestDecodeLegacy(t *testing.T) {
	env, err := DecodeLegacy([]byte(`{"id":"m1","message":"hello","timestamp":1700000000000,"ignoreLegacy":true}`))
	require.NoError(t, err)
	assert.Equal(t, "m1", env.ID)
	assert.Equal(t, "hello", env.Message)
	assert.Equal(t, int64(1700000000000), env.TimestampMS)
	assert.True(t, env.IgnoreLegacy)
}

func TestDecodeLegacyDefaults(t *testing.T) {
	env, err := DecodeLegacy([]byte(`{"message":"hi"}`))
	require.NoError(t, err)
	assert.False(t, env.IgnoreLegacy)
	assert.Empty(t, env.ID)
}

func TestDecodeLegacyMalformed(t *testing.T) {
	_, err := DecodeLegacy([]byte(`not json`))
	assert.Error(t, err)
}
