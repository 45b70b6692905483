// Package orchestrator implements the Instance Manager, Message
// Demultiplexer, and State Manager actor of spec §4.5-§4.6: the layer
// that routes inbound NetMessages to per-request state machines and
// serializes all keychain access behind a single owner.
package orchestrator

import (
	"sync"
	"time"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/instance"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/therror"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
)

// InboundQueueCap is the default bounded capacity of an instance's inbound
// queue (spec §5 "Per-instance inbound queue ... bounded capacity Q
// (default 256)").
const InboundQueueCap = 256

// DefaultReapAfter is how long a Finished instance stays addressable (for a
// late AwaitResult/GetStatus poll) before Sweep reclaims it.
const DefaultReapAfter = 5 * time.Minute

type managerEntry struct {
	inst       *instance.Instance
	finishedAt time.Time // zero until first observed Finished
}

// Manager owns the instance_id -> Instance mapping (spec §4.5). At most one
// live instance exists per id; Manager tracks liveness and reaping, while
// instance.Instance itself owns the Created/Running/Finished transitions.
type Manager struct {
	mu        sync.RWMutex
	instances map[string]*managerEntry
	reapAfter time.Duration
}

// NewManager creates an empty Manager. reapAfter <= 0 uses DefaultReapAfter.
func NewManager(reapAfter time.Duration) *Manager {
	if reapAfter <= 0 {
		reapAfter = DefaultReapAfter
	}
	return &Manager{instances: make(map[string]*managerEntry), reapAfter: reapAfter}
}

// Create registers a new instance, failing with therror.KindInstanceExists
// if id is already live (spec §4.5 "at most one live instance per
// instance_id").
func (m *Manager) Create(id string, scheme schemeid.ID, grp group.ID) (*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.instances[id]; exists {
		return nil, therror.New(therror.KindInstanceExists, "orchestrator: instance already exists: "+id)
	}
	inst := instance.New(id, scheme, grp, InboundQueueCap)
	m.instances[id] = &managerEntry{inst: inst}
	return inst, nil
}

// Get returns the tracked instance for id, if any (live or recently
// finished).
func (m *Manager) Get(id string) (*instance.Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.instances[id]
	if !ok {
		return nil, false
	}
	return e.inst, true
}

// GetSender returns the instance's inbound-enqueue function, letting the
// demultiplexer deliver a NetMessage without reaching into Instance's
// internals (spec §4.5 "get_sender(id)").
func (m *Manager) GetSender(id string) (func(transport.NetMessage), bool) {
	inst, ok := m.Get(id)
	if !ok {
		return nil, false
	}
	return inst.EnqueueInbound, true
}

// Finish marks an instance Finished with the given result (spec §4.5
// "finish(id, result)").
func (m *Manager) Finish(id string, result instance.Result) {
	inst, ok := m.Get(id)
	if !ok {
		return
	}
	inst.Finish(result)
}

// AwaitResult blocks until id's instance finishes, returning its Result, or
// ok=false if no such instance was ever created (spec §4.5
// "await_result(id)").
func (m *Manager) AwaitResult(id string) (instance.Result, bool) {
	inst, ok := m.Get(id)
	if !ok {
		return instance.Result{}, false
	}
	return inst.AwaitResult(), true
}

// Sweep reclaims instances that have been Finished for longer than
// reapAfter, keeping the map bounded under long-running operation. Call
// periodically from a background goroutine; Manager itself runs no timers.
func (m *Manager) Sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.instances {
		if e.inst.Status() != instance.Finished {
			continue
		}
		if e.finishedAt.IsZero() {
			e.finishedAt = now
			continue
		}
		if now.Sub(e.finishedAt) >= m.reapAfter {
			delete(m.instances, id)
		}
	}
}

// Len reports how many instances Manager currently tracks; used by tests.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}
