package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parley-rtc/parley/internal/domain"
)

func TestEmitReachesAllListeners(t *testing.T) {
	e := NewEmitter()
	var got []Event
	e.AddListener(ListenerFunc(func(ev Event) { got = append(got, ev) }))
	e.AddListener(ListenerFunc(func(ev Event) { got = append(got, ev) }))

	e.Emit(UnreadCountChanged{Count: 1})
	assert.Len(t, got, 2)
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	e := NewEmitter()
	var received int
	e.AddListener(ListenerFunc(func(Event) { panic("listener bug") }))
	e.AddListener(ListenerFunc(func(Event) { received++ }))

	e.Emit(ParticipantLeft{SID: "p1"})
	e.Emit(ParticipantLeft{SID: "p2"})

	assert.Equal(t, 2, received)
}

func TestListenerAddedDuringDispatchMissesCurrentEvent(t *testing.T) {
	e := NewEmitter()
	var lateEvents int
	e.AddListener(ListenerFunc(func(Event) {
		e.AddListener(ListenerFunc(func(Event) { lateEvents++ }))
	}))

	e.Emit(ConnectionStateChanged{State: domain.ConnectionState{Phase: domain.PhaseConnecting}})
	assert.Zero(t, lateEvents)

	e.Emit(ConnectionStateChanged{State: domain.ConnectionState{Phase: domain.PhaseConnected}})
	assert.Equal(t, 1, lateEvents)
}
