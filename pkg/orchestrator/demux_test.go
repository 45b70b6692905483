package orchestrator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/orchestrator"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
)

func TestDemultiplexerDispatchesToLiveInstance(t *testing.T) {
	m := orchestrator.NewManager(time.Minute)
	d := orchestrator.NewDemultiplexer(m, time.Minute, 0)

	inst, err := m.Create("req-1", schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)
	inst.Start(nil)

	d.Dispatch(transport.NetMessage{InstanceID: "req-1", Payload: []byte("share")}, time.Now())

	select {
	case msg := <-inst.Inbound:
		require.Equal(t, []byte("share"), msg.Payload)
	default:
		t.Fatal("message was not enqueued onto the live instance")
	}
}

func TestDemultiplexerBuffersUnknownInstanceAndDrainsInOrder(t *testing.T) {
	m := orchestrator.NewManager(time.Minute)
	d := orchestrator.NewDemultiplexer(m, time.Minute, 0)

	now := time.Now()
	d.Dispatch(transport.NetMessage{InstanceID: "req-1", Payload: []byte("first")}, now)
	d.Dispatch(transport.NetMessage{InstanceID: "req-1", Payload: []byte("second")}, now)

	inst, err := d.CreateAndDrain("req-1", schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)

	first := <-inst.Inbound
	second := <-inst.Inbound
	require.Equal(t, []byte("first"), first.Payload)
	require.Equal(t, []byte("second"), second.Payload)
}

func TestDemultiplexerExpiresOldPendingMessages(t *testing.T) {
	m := orchestrator.NewManager(time.Minute)
	d := orchestrator.NewDemultiplexer(m, 10*time.Millisecond, 0)

	past := time.Now().Add(-time.Hour)
	d.Dispatch(transport.NetMessage{InstanceID: "req-1", Payload: []byte("stale")}, past)

	inst, err := d.CreateAndDrain("req-1", schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)

	select {
	case msg := <-inst.Inbound:
		t.Fatalf("expected no message, got %v", msg)
	default:
	}
}

func TestDemultiplexerEnforcesTotalPendingCap(t *testing.T) {
	m := orchestrator.NewManager(time.Minute)
	d := orchestrator.NewDemultiplexer(m, time.Minute, 2)

	now := time.Now()
	d.Dispatch(transport.NetMessage{InstanceID: "a", Payload: []byte("1")}, now)
	d.Dispatch(transport.NetMessage{InstanceID: "b", Payload: []byte("2")}, now)
	d.Dispatch(transport.NetMessage{InstanceID: "c", Payload: []byte("3")}, now) // dropped, cap reached

	instC, err := d.CreateAndDrain("c", schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)
	select {
	case <-instC.Inbound:
		t.Fatal("expected message for c to have been dropped by the total-size cap")
	default:
	}
}
