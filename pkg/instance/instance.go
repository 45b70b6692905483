// Package instance implements the per-request protocol state machine (spec
// §4.5): Created -> Running -> Finished, with the orchestrator attaching an
// outbound channel on entry to Running and closing it exactly once the
// instance has produced a result or a fatal error.
package instance

import (
	"sync"
	"sync/atomic"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
)

// Status is the instance's position in its state machine (spec §4.5).
type Status uint8

const (
	Created Status = iota
	Running
	Finished
)

func (s Status) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Result is the terminal outcome of an instance: either Value holds the
// operation's output bytes, or Err holds the fatal error that finished it.
type Result struct {
	Value []byte
	Err   error
}

// Instance is one running (or completed) protocol execution, identified by
// a unique InstanceID (spec §3, §4.5).
type Instance struct {
	ID     string
	Scheme schemeid.ID
	Group  group.ID

	// Inbound is the bounded queue the demultiplexer enqueues NetMessages
	// onto; overflow drops the oldest queued message (spec §4.5).
	Inbound chan transport.NetMessage

	mu       sync.Mutex
	status   Status
	outbound chan transport.NetMessage
	done     chan struct{}
	result   Result

	dropped atomic.Int64
}

// New creates an instance in the Created state with a bounded inbound
// queue; its outbound channel is attached when the demultiplexer
// transitions it to Running.
func New(id string, scheme schemeid.ID, grp group.ID, inboundCap int) *Instance {
	return &Instance{
		ID:      id,
		Scheme:  scheme,
		Group:   grp,
		status:  Created,
		done:    make(chan struct{}),
		Inbound: make(chan transport.NetMessage, inboundCap),
	}
}

// EnqueueInbound delivers msg to the instance's bounded inbound queue,
// dropping the oldest queued message if it is full (spec §4.5 "bounded;
// overflow drops oldest with a metric").
func (i *Instance) EnqueueInbound(msg transport.NetMessage) {
	for {
		select {
		case i.Inbound <- msg:
			return
		default:
		}
		select {
		case <-i.Inbound:
			i.dropped.Add(1)
		default:
		}
	}
}

// DroppedCount reports how many inbound messages this instance has dropped
// due to queue overflow.
func (i *Instance) DroppedCount() int64 { return i.dropped.Load() }

// Status returns the instance's current state.
func (i *Instance) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// Start transitions Created -> Running and attaches the outbound channel
// instances send protocol messages on (spec §4.5 "Created --start--> Running").
func (i *Instance) Start(outbound chan transport.NetMessage) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != Created {
		return
	}
	i.status = Running
	i.outbound = outbound
}

// Outbound returns the channel this instance's state machine sends
// NetMessages on, or nil if the instance has not started.
func (i *Instance) Outbound() chan transport.NetMessage {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.outbound
}

// Finish transitions Running -> Finished exactly once: closes the outbound
// channel and publishes the result to AwaitResult callers (spec §4.5
// "an instance's outbound_tx is closed exactly when its state machine has
// returned").
func (i *Instance) Finish(result Result) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status == Finished {
		return
	}
	i.status = Finished
	if i.outbound != nil {
		close(i.outbound)
	}
	i.result = result
	close(i.done)
}

// AwaitResult blocks until Finish is called, then returns its Result. Safe
// to call from multiple goroutines.
func (i *Instance) AwaitResult() Result {
	<-i.done
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.result
}
