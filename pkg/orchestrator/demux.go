package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/instance"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
)

// DefaultPendingTTL is how long a message for a not-yet-created instance is
// held before being discarded (spec §4.5 "a per-entry TTL (default 30 s)").
const DefaultPendingTTL = 30 * time.Second

// DefaultPendingCap bounds the total number of messages buffered across all
// not-yet-created instance ids (spec §4.5 "total-size cap").
const DefaultPendingCap = 4096

type pendingEntry struct {
	msg       transport.NetMessage
	arrivedAt time.Time
}

// Demultiplexer reads a Transport's inbound stream and dispatches each
// NetMessage to its instance id's queue, buffering messages that race ahead
// of their instance's creation (spec §4.5).
type Demultiplexer struct {
	manager *Manager

	mu      sync.Mutex
	pending map[string][]pendingEntry
	total   int

	ttl        time.Duration
	pendingCap int
}

// NewDemultiplexer creates a Demultiplexer over manager. ttl <= 0 uses
// DefaultPendingTTL; pendingCap <= 0 uses DefaultPendingCap.
func NewDemultiplexer(manager *Manager, ttl time.Duration, pendingCap int) *Demultiplexer {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	if pendingCap <= 0 {
		pendingCap = DefaultPendingCap
	}
	return &Demultiplexer{
		manager:    manager,
		pending:    make(map[string][]pendingEntry),
		ttl:        ttl,
		pendingCap: pendingCap,
	}
}

// Run drains t.Inbound() until it closes or ctx is cancelled, dispatching
// each message as it arrives (spec §4.5).
func (d *Demultiplexer) Run(ctx context.Context, t transport.Transport) {
	for {
		select {
		case msg, ok := <-t.Inbound():
			if !ok {
				return
			}
			d.Dispatch(msg, time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// Dispatch routes a single NetMessage to its live instance, or into the
// pending buffer if the instance doesn't exist yet (spec §4.5 steps 1-2).
func (d *Demultiplexer) Dispatch(msg transport.NetMessage, now time.Time) {
	if send, ok := d.manager.GetSender(msg.InstanceID); ok {
		send(msg)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictExpiredLocked(now)
	if d.total >= d.pendingCap {
		return
	}
	d.pending[msg.InstanceID] = append(d.pending[msg.InstanceID], pendingEntry{msg: msg, arrivedAt: now})
	d.total++
}

// evictExpiredLocked discards pending entries older than d.ttl (spec §4.5
// step 3, "messages whose TTL expires are discarded"). Caller holds d.mu.
func (d *Demultiplexer) evictExpiredLocked(now time.Time) {
	for id, entries := range d.pending {
		kept := entries[:0]
		for _, e := range entries {
			if now.Sub(e.arrivedAt) < d.ttl {
				kept = append(kept, e)
			} else {
				d.total--
			}
		}
		if len(kept) == 0 {
			delete(d.pending, id)
		} else {
			d.pending[id] = kept
		}
	}
}

// DrainPending moves any buffered, still-live messages for id into its
// inbound queue in arrival order (spec §4.5 "drain the pending buffer into
// it in arrival order"). Call this immediately after Manager.Create.
func (d *Demultiplexer) DrainPending(id string, now time.Time) {
	d.mu.Lock()
	entries := d.pending[id]
	delete(d.pending, id)
	d.total -= len(entries)
	d.mu.Unlock()

	send, ok := d.manager.GetSender(id)
	if !ok {
		return
	}
	for _, e := range entries {
		if now.Sub(e.arrivedAt) < d.ttl {
			send(e.msg)
		}
	}
}

// PendingIDs returns the instance ids currently holding buffered messages,
// for tests and diagnostics (spec §8 S6).
func (d *Demultiplexer) PendingIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.pending))
	for id := range d.pending {
		ids = append(ids, id)
	}
	return ids
}

// CreateAndDrain creates the instance via d.manager and immediately drains
// any pending messages buffered for id, so callers get spec §4.5's
// create-then-drain rule in one call instead of having to remember both
// steps.
func (d *Demultiplexer) CreateAndDrain(id string, scheme schemeid.ID, grp group.ID) (*instance.Instance, error) {
	inst, err := d.manager.Create(id, scheme, grp)
	if err != nil {
		return nil, err
	}
	d.DrainPending(id, time.Now())
	return inst, nil
}
