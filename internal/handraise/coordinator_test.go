package handraise

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-rtc/parley/internal/domain"
)

type fakeAttrs struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeAttrs) SetAttribute(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, key+"="+value)
	return nil
}

func (f *fakeAttrs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

type recorder struct {
	mu      sync.Mutex
	updates []domain.HandRaiseUpdate
}

func (r *recorder) notify(u domain.HandRaiseUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) last() (domain.HandRaiseUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return domain.HandRaiseUpdate{}, false
	}
	return r.updates[len(r.updates)-1], true
}

func (r *recorder) lowersFor(sid domain.ParticipantSID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.updates {
		if u.ParticipantSID == sid && !u.Raised {
			n++
		}
	}
	return n
}

func TestQueueOrderedByRaiseTime(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator("local", &fakeAttrs{}, rec.notify)

	c.HandleAttributes("p1", map[string]string{AttributeKey: "2026-01-01T10:00:00.000Z"})
	c.HandleAttributes("p2", map[string]string{AttributeKey: "2026-01-01T10:00:01.000Z"})
	require.NoError(t, c.Raise(context.Background()))

	assert.Equal(t, []domain.ParticipantSID{"p1", "p2", "local"}, c.Queue())
	last, ok := rec.last()
	require.True(t, ok)
	assert.True(t, last.Raised)
	assert.Equal(t, uint32(3), last.Position)
}

func TestEarlierTimestampInsertsAhead(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator("local", &fakeAttrs{}, rec.notify)

	require.NoError(t, c.Raise(context.Background()))
	c.HandleAttributes("p1", map[string]string{AttributeKey: "2020-01-01T00:00:00.000Z"})

	assert.Equal(t, []domain.ParticipantSID{"p1", "local"}, c.Queue())
}

func TestReRaiseGetsLaterPosition(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator("local", &fakeAttrs{}, rec.notify)

	require.NoError(t, c.Raise(context.Background()))
	c.HandleAttributes("p1", map[string]string{AttributeKey: FormatTimestamp(time.Now())})
	require.NoError(t, c.Lower(context.Background()))
	require.NoError(t, c.Raise(context.Background()))

	assert.Equal(t, []domain.ParticipantSID{"p1", "local"}, c.Queue())
}

func TestRaiseIsIdempotent(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator("local", &fakeAttrs{}, rec.notify)

	require.NoError(t, c.Raise(context.Background()))
	require.NoError(t, c.Raise(context.Background()))

	assert.Equal(t, []domain.ParticipantSID{"local"}, c.Queue())
}

func TestEmptyAttributeLowersRemote(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator("local", &fakeAttrs{}, rec.notify)

	c.HandleAttributes("p1", map[string]string{AttributeKey: FormatTimestamp(time.Now())})
	require.True(t, c.Raised("p1"))

	c.HandleAttributes("p1", map[string]string{AttributeKey: ""})
	assert.False(t, c.Raised("p1"))
	last, ok := rec.last()
	require.True(t, ok)
	assert.False(t, last.Raised)
	assert.Zero(t, last.Position)
}

func TestAutoLowerAfterSustainedSpeaking(t *testing.T) {
	attrs := &fakeAttrs{}
	rec := &recorder{}
	c := NewCoordinator("local", attrs, rec.notify, WithAutoLowerDelay(20*time.Millisecond))

	require.NoError(t, c.Raise(context.Background()))
	c.OnActiveSpeakersChanged([]domain.ParticipantSID{"local"})

	assert.Eventually(t, func() bool { return !c.IsLocalRaised() }, time.Second, 5*time.Millisecond)
	// Raise write plus the auto-lower clear.
	assert.Eventually(t, func() bool { return attrs.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.lowersFor("local"))
}

func TestAutoLowerNotArmedWhenNotRaised(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator("local", &fakeAttrs{}, rec.notify, WithAutoLowerDelay(10*time.Millisecond))

	c.OnActiveSpeakersChanged([]domain.ParticipantSID{"local"})
	time.Sleep(50 * time.Millisecond)

	assert.Zero(t, rec.lowersFor("local"))
}

func TestManualLowerWinsInsideWindow(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator("local", &fakeAttrs{}, rec.notify, WithAutoLowerDelay(30*time.Millisecond))

	require.NoError(t, c.Raise(context.Background()))
	c.OnActiveSpeakersChanged([]domain.ParticipantSID{"local"})
	require.NoError(t, c.Lower(context.Background()))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, rec.lowersFor("local"))
	assert.False(t, c.IsLocalRaised())
}

func TestStoppingSpeakingCancelsPendingCheck(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator("local", &fakeAttrs{}, rec.notify, WithAutoLowerDelay(30*time.Millisecond))

	require.NoError(t, c.Raise(context.Background()))
	c.OnActiveSpeakersChanged([]domain.ParticipantSID{"local"})
	c.OnActiveSpeakersChanged(nil)

	time.Sleep(80 * time.Millisecond)
	assert.True(t, c.IsLocalRaised())
	assert.Zero(t, rec.lowersFor("local"))
}

func TestClearEmptiesQueue(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator("local", &fakeAttrs{}, rec.notify)

	require.NoError(t, c.Raise(context.Background()))
	c.HandleAttributes("p1", map[string]string{AttributeKey: FormatTimestamp(time.Now())})
	c.Clear()

	assert.Empty(t, c.Queue())
	assert.False(t, c.IsLocalRaised())
}

func TestParseTimestampFallbacks(t *testing.T) {
	iso := ParseTimestamp("2026-01-02T03:04:05.678Z")
	assert.Equal(t, int64(1767323045678), iso)

	assert.Equal(t, int64(1700000000000), ParseTimestamp("1700000000000"))
	assert.Equal(t, int64(1700000000000), ParseTimestamp("1700000000"))
	assert.Zero(t, ParseTimestamp("garbage"))
}
