// Package handraise coordinates the ordered raise queue and the
// speaking-triggered auto-lower timer.
package handraise

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parley-rtc/parley/internal/core"
	"github.com/parley-rtc/parley/internal/domain"
)

// AttributeKey is the protocol-defined participant attribute carrying
// the raise timestamp. Empty value means lowered.
const AttributeKey = "handRaised"

const defaultAutoLowerDelay = 3 * time.Second

// NotifyFunc receives every hand-raise change, local or remote.
type NotifyFunc func(domain.HandRaiseUpdate)

type entry struct {
	ts  int64 // unix millis, ordering key
	seq uint64
	sid domain.ParticipantSID
}

// Coordinator tracks raised hands ordered by raise time. At most one
// entry per participant, at most one pending auto-lower check at a time.
type Coordinator struct {
	localSID domain.ParticipantSID
	attrs    core.AttributeWriter
	notify   NotifyFunc
	delay    time.Duration

	mu      sync.Mutex
	entries []entry
	seq     uint64
	pending *time.Timer
}

type Option func(*Coordinator)

// WithAutoLowerDelay overrides the 3-second auto-lower window.
func WithAutoLowerDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.delay = d }
}

func NewCoordinator(localSID domain.ParticipantSID, attrs core.AttributeWriter, notify NotifyFunc, opts ...Option) *Coordinator {
	c := &Coordinator{
		localSID: localSID,
		attrs:    attrs,
		notify:   notify,
		delay:    defaultAutoLowerDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Raise raises the local participant's hand: publishes the timestamp
// attribute, inserts the queue entry and notifies with the 1-based
// position.
func (c *Coordinator) Raise(ctx context.Context) error {
	ts := FormatTimestamp(time.Now())
	if err := c.attrs.SetAttribute(ctx, AttributeKey, ts); err != nil {
		return err
	}
	c.apply(c.localSID, ts)
	return nil
}

// Lower lowers the local participant's hand: clears the attribute,
// removes the queue entry and cancels any pending auto-lower check.
func (c *Coordinator) Lower(ctx context.Context) error {
	if err := c.attrs.SetAttribute(ctx, AttributeKey, ""); err != nil {
		return err
	}
	c.lowerLocal()
	return nil
}

func (c *Coordinator) lowerLocal() {
	c.mu.Lock()
	c.removeLocked(c.localSID)
	c.cancelPendingLocked()
	c.mu.Unlock()

	c.notify(domain.HandRaiseUpdate{ParticipantSID: c.localSID, Raised: false, Position: 0})
}

// HandleAttributes ingests a participant attribute change. An absent or
// empty handRaised value means lowered; a non-empty value is a raise
// timestamp.
func (c *Coordinator) HandleAttributes(sid domain.ParticipantSID, attributes map[string]string) {
	value := attributes[AttributeKey]
	if value == "" {
		c.mu.Lock()
		c.removeLocked(sid)
		if sid == c.localSID {
			c.cancelPendingLocked()
		}
		c.mu.Unlock()
		c.notify(domain.HandRaiseUpdate{ParticipantSID: sid, Raised: false, Position: 0})
		return
	}
	c.apply(sid, value)
}

func (c *Coordinator) apply(sid domain.ParticipantSID, rawTimestamp string) {
	ts := ParseTimestamp(rawTimestamp)

	c.mu.Lock()
	if !c.raisedLocked(sid) {
		c.seq++
		c.entries = append(c.entries, entry{ts: ts, seq: c.seq, sid: sid})
		sort.Slice(c.entries, func(i, j int) bool {
			if c.entries[i].ts != c.entries[j].ts {
				return c.entries[i].ts < c.entries[j].ts
			}
			return c.entries[i].seq < c.entries[j].seq
		})
	}
	position := c.positionLocked(sid)
	c.mu.Unlock()

	c.notify(domain.HandRaiseUpdate{ParticipantSID: sid, Raised: true, Position: position})
}

// OnActiveSpeakersChanged drives auto-lower. A new speaking report
// always supersedes the previous pending check. The check only arms
// when the local participant is speaking with a raised hand.
func (c *Coordinator) OnActiveSpeakersChanged(sids []domain.ParticipantSID) {
	speaking := false
	for _, sid := range sids {
		if sid == c.localSID {
			speaking = true
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPendingLocked()
	if !speaking || !c.raisedLocked(c.localSID) {
		return
	}
	c.pending = time.AfterFunc(c.delay, c.autoLowerFire)
}

// autoLowerFire re-reads live state: a manual lower inside the window
// must win, so the hand is only lowered if it is still raised now.
func (c *Coordinator) autoLowerFire() {
	c.mu.Lock()
	c.pending = nil
	if !c.raisedLocked(c.localSID) {
		c.mu.Unlock()
		return
	}
	c.removeLocked(c.localSID)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.attrs.SetAttribute(ctx, AttributeKey, ""); err != nil {
		log.Warn().Err(err).Str("module", "handraise").Msg("auto-lower attribute write failed")
	}
	log.Info().Str("module", "handraise").Str("sid", string(c.localSID)).Msg("hand auto-lowered after sustained speaking")

	c.notify(domain.HandRaiseUpdate{ParticipantSID: c.localSID, Raised: false, Position: 0})
}

// IsLocalRaised reports whether the local participant's hand is raised.
func (c *Coordinator) IsLocalRaised() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raisedLocked(c.localSID)
}

// Raised reports whether the given participant's hand is raised.
func (c *Coordinator) Raised(sid domain.ParticipantSID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raisedLocked(sid)
}

// Queue returns the raised SIDs in ascending raise-time order.
func (c *Coordinator) Queue() []domain.ParticipantSID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ParticipantSID, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.sid
	}
	return out
}

// Clear empties the queue and cancels any pending check. Used on
// disconnect.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.cancelPendingLocked()
}

func (c *Coordinator) raisedLocked(sid domain.ParticipantSID) bool {
	for _, e := range c.entries {
		if e.sid == sid {
			return true
		}
	}
	return false
}

func (c *Coordinator) positionLocked(sid domain.ParticipantSID) uint32 {
	for i, e := range c.entries {
		if e.sid == sid {
			return uint32(i + 1)
		}
	}
	return 0
}

func (c *Coordinator) removeLocked(sid domain.ParticipantSID) {
	out := c.entries[:0]
	for _, e := range c.entries {
		if e.sid != sid {
			out = append(out, e)
		}
	}
	c.entries = out
}

func (c *Coordinator) cancelPendingLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}
