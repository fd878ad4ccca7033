// Package roster holds the in-memory participant directory.
package roster

import (
	"sync"

	"github.com/parley-rtc/parley/internal/domain"
)

// Directory is the participant roster, keyed by participant SID.
// Written only by the session event loop; snapshots may be read from
// any goroutine.
type Directory struct {
	mu       sync.RWMutex
	bySID    map[domain.ParticipantSID]*domain.Participant
	order    []domain.ParticipantSID
	speakers []domain.ParticipantSID
	localSID domain.ParticipantSID
}

func NewDirectory() *Directory {
	return &Directory{
		bySID: make(map[domain.ParticipantSID]*domain.Participant),
	}
}

func (d *Directory) SetLocalSID(sid domain.ParticipantSID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.localSID = sid
}

func (d *Directory) LocalSID() domain.ParticipantSID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.localSID
}

// Add inserts a participant. No-op if the SID is already present.
func (d *Directory) Add(p domain.Participant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bySID[p.SID]; ok {
		return
	}
	cp := p
	d.bySID[p.SID] = &cp
	d.order = append(d.order, p.SID)
}

// Remove drops a participant and removes it from the active-speaker set.
func (d *Directory) Remove(sid domain.ParticipantSID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bySID[sid]; !ok {
		return
	}
	delete(d.bySID, sid)
	for i, s := range d.order {
		if s == sid {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.speakers = removeSID(d.speakers, sid)
}

// Get returns a copy of the participant, if present.
func (d *Directory) Get(sid domain.ParticipantSID) (domain.Participant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.bySID[sid]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// Update applies fn to the participant under the write lock. No-op if
// the SID is unknown. This is the single mutation path for roster
// entries, used only by the event loop.
func (d *Directory) Update(sid domain.ParticipantSID, fn func(*domain.Participant)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.bySID[sid]
	if !ok {
		return false
	}
	fn(p)
	return true
}

// Snapshot returns participants in insertion order.
func (d *Directory) Snapshot() []domain.Participant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Participant, 0, len(d.order))
	for _, sid := range d.order {
		out = append(out, *d.bySID[sid])
	}
	return out
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.bySID)
}

// SetActiveSpeakers replaces the active-speaker set. SIDs not present
// in the roster are kept out, preserving the invariant that speakers
// are a subset of current participants.
func (d *Directory) SetActiveSpeakers(sids []domain.ParticipantSID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.ParticipantSID, 0, len(sids))
	for _, sid := range sids {
		if _, ok := d.bySID[sid]; ok || sid == d.localSID {
			out = append(out, sid)
		}
	}
	d.speakers = out
}

func (d *Directory) ActiveSpeakers() []domain.ParticipantSID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.ParticipantSID, len(d.speakers))
	copy(out, d.speakers)
	return out
}

// Clear empties the roster, the speaker set and the local SID.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bySID = make(map[domain.ParticipantSID]*domain.Participant)
	d.order = nil
	d.speakers = nil
	d.localSID = ""
}

func removeSID(sids []domain.ParticipantSID, sid domain.ParticipantSID) []domain.ParticipantSID {
	out := sids[:0]
	for _, s := range sids {
		if s != sid {
			out = append(out, s)
		}
	}
	return out
}
