package session

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Emitter fans application events out to registered listeners. The
// listener list is copied before dispatch so a slow or panicking
// listener cannot block registration or corrupt the lock held by the
// event loop.
type Emitter struct {
	mu        sync.Mutex
	listeners []Listener
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

func (e *Emitter) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Emit delivers the event to every listener registered at call time.
// A panicking listener is isolated: it is logged and the remaining
// listeners still receive the event.
func (e *Emitter) Emit(event Event) {
	e.mu.Lock()
	snapshot := make([]Listener, len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		dispatch(l, event)
	}
}

func dispatch(l Listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "session").Any("panic", r).Msg("listener panicked, event dropped for this listener")
		}
	}()
	l.OnEvent(event)
}
