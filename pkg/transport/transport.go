// Package transport defines the wire-level NetMessage contract (spec §3,
// §4.5) and a minimal in-process Transport implementation. Real deployments
// plug in a gossip/libp2p network (out of scope, spec §1); LocalBus exists
// so the orchestrator is exercisable end-to-end in tests and the demo CLI,
// mirroring the unbounded mpsc channel pair the original implementation
// wires its network layer through (original_source's
// network/src/channel/channel.rs).
package transport

import (
	"context"
	"fmt"
	"sync"
)

// Channel distinguishes the delivery semantics a NetMessage was sent over
// (spec §3): Gossip is best-effort fan-out, TotalOrder guarantees every
// node observes the same message order (e.g. for coin-flip or signature
// protocols where share order must be agreed).
type Channel uint8

const (
	Gossip Channel = iota
	TotalOrder
)

func (c Channel) String() string {
	if c == TotalOrder {
		return "TotalOrder"
	}
	return "Gossip"
}

// NetMessage is the opaque unit every instance sends and receives (spec
// §3). Payload bytes are meaningful only to the scheme implementation of
// the receiving instance.
type NetMessage struct {
	InstanceID string
	Channel    Channel
	Payload    []byte
}

// Transport is the network abstraction instances and the demultiplexer are
// built against.
type Transport interface {
	// Send delivers msg to every other node reachable over ch.
	Send(ctx context.Context, msg NetMessage) error
	// Inbound returns the stream of messages received from peers.
	Inbound() <-chan NetMessage
	Close() error
}

// LocalBus is an in-process Transport: every node registered on the same
// bus receives every other node's Send calls on its own Inbound channel,
// a gossip-like fan-out requiring no real network (spec §4, "Supplemented
// features").
type LocalBus struct {
	mu      sync.Mutex
	members []*localNode
	closed  bool
}

type localNode struct {
	bus *LocalBus
	in  chan NetMessage
}

// NewLocalBus creates an empty bus. Call Join once per simulated node.
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Join attaches a new node to the bus and returns its Transport handle.
func (b *LocalBus) Join(inboundBuffer int) Transport {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := &localNode{bus: b, in: make(chan NetMessage, inboundBuffer)}
	b.members = append(b.members, n)
	return n
}

func (n *localNode) Send(ctx context.Context, msg NetMessage) error {
	n.bus.mu.Lock()
	defer n.bus.mu.Unlock()
	if n.bus.closed {
		return fmt.Errorf("transport: bus closed")
	}
	for _, m := range n.bus.members {
		if m == n {
			continue
		}
		select {
		case m.in <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Bounded inbound queue: drop rather than block the sender, the
			// demultiplexer (pkg/orchestrator) applies its own overflow
			// policy on top of this.
		}
	}
	return nil
}

func (n *localNode) Inbound() <-chan NetMessage { return n.in }

func (n *localNode) Close() error {
	n.bus.mu.Lock()
	defer n.bus.mu.Unlock()
	close(n.in)
	return nil
}
