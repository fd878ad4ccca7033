package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-rtc/parley/internal/domain"
)

func member(sid, name string) domain.Participant {
	return domain.Participant{SID: domain.ParticipantSID(sid), Identity: name, Name: name}
}

func TestAddIsIdempotent(t *testing.T) {
	d := NewDirectory()
	d.Add(member("p1", "alice"))
	d.Add(member("p1", "alice"))
	d.Add(member("p2", "bob"))

	assert.Equal(t, 2, d.Count())
}

func TestCountMatchesJoinsMinusLeaves(t *testing.T) {
	d := NewDirectory()
	d.Add(member("p1", "alice"))
	d.Add(member("p2", "bob"))
	d.Add(member("p3", "carol"))
	d.Remove("p2")
	d.Remove("p2") // redundant leave

	assert.Equal(t, 2, d.Count())
	_, ok := d.Get("p2")
	assert.False(t, ok)
}

func TestSnapshotKeepsJoinOrder(t *testing.T) {
	d := NewDirectory()
	d.Add(member("p3", "carol"))
	d.Add(member("p1", "alice"))
	d.Add(member("p2", "bob"))
	d.Remove("p1")

	snap := d.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, domain.ParticipantSID("p3"), snap[0].SID)
	assert.Equal(t, domain.ParticipantSID("p2"), snap[1].SID)
}

func TestUpdateMutatesStoredEntry(t *testing.T) {
	d := NewDirectory()
	d.Add(member("p1", "alice"))

	ok := d.Update("p1", func(p *domain.Participant) {
		p.IsMuted = true
		p.HasVideo = true
		p.VideoTrackSID = "tr1"
	})
	require.True(t, ok)

	p, found := d.Get("p1")
	require.True(t, found)
	assert.True(t, p.IsMuted)
	assert.True(t, p.HasVideo)
	assert.Equal(t, domain.TrackSID("tr1"), p.VideoTrackSID)

	assert.False(t, d.Update("ghost", func(p *domain.Participant) { p.IsMuted = true }))
}

func TestActiveSpeakersFilteredToRoster(t *testing.T) {
	d := NewDirectory()
	d.SetLocalSID("local")
	d.Add(member("p1", "alice"))

	d.SetActiveSpeakers([]domain.ParticipantSID{"p1", "ghost", "local"})
	assert.Equal(t, []domain.ParticipantSID{"p1", "local"}, d.ActiveSpeakers())
}

func TestRemoveDropsFromSpeakerSet(t *testing.T) {
	d := NewDirectory()
	d.Add(member("p1", "alice"))
	d.Add(member("p2", "bob"))
	d.SetActiveSpeakers([]domain.ParticipantSID{"p1", "p2"})

	d.Remove("p1")
	assert.Equal(t, []domain.ParticipantSID{"p2"}, d.ActiveSpeakers())
}

func TestClearEmptiesEverything(t *testing.T) {
	d := NewDirectory()
	d.SetLocalSID("local")
	d.Add(member("p1", "alice"))
	d.SetActiveSpeakers([]domain.ParticipantSID{"p1"})

	d.Clear()
	assert.Equal(t, 0, d.Count())
	assert.Empty(t, d.ActiveSpeakers())
	assert.Equal(t, domain.ParticipantSID(""), d.LocalSID())
}
