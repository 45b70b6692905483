package orchestrator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/instance"
	"github.com/thetacrypt/thetacrypt-go/pkg/orchestrator"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/therror"
)

func TestManagerCreateRejectsDuplicateID(t *testing.T) {
	m := orchestrator.NewManager(time.Minute)
	_, err := m.Create("req-1", schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)

	_, err = m.Create("req-1", schemeid.Sg02, group.Ed25519)
	require.Error(t, err)
	kind, ok := therror.KindOf(err)
	require.True(t, ok)
	require.Equal(t, therror.KindInstanceExists, kind)
}

func TestManagerAwaitResultUnblocksOnFinish(t *testing.T) {
	m := orchestrator.NewManager(time.Minute)
	inst, err := m.Create("req-1", schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)
	inst.Start(nil)

	done := make(chan instance.Result, 1)
	go func() {
		r, ok := m.AwaitResult("req-1")
		require.True(t, ok)
		done <- r
	}()

	m.Finish("req-1", instance.Result{Value: []byte("ok")})

	select {
	case r := <-done:
		require.Equal(t, []byte("ok"), r.Value)
	case <-time.After(time.Second):
		t.Fatal("AwaitResult did not unblock")
	}
}

func TestManagerAwaitResultSupportsMultipleCallers(t *testing.T) {
	m := orchestrator.NewManager(time.Minute)
	inst, err := m.Create("req-1", schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)
	inst.Start(nil)

	results := make(chan instance.Result, 3)
	for i := 0; i < 3; i++ {
		go func() {
			r, _ := m.AwaitResult("req-1")
			results <- r
		}()
	}

	m.Finish("req-1", instance.Result{Value: []byte("shared")})

	for i := 0; i < 3; i++ {
		select {
		case r := <-results:
			require.Equal(t, []byte("shared"), r.Value)
		case <-time.After(time.Second):
			t.Fatal("a concurrent AwaitResult caller did not unblock")
		}
	}
}

func TestManagerSweepReapsFinishedAfterGracePeriod(t *testing.T) {
	m := orchestrator.NewManager(time.Minute)
	inst, err := m.Create("req-1", schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)
	inst.Start(nil)
	inst.Finish(instance.Result{})

	now := time.Now()
	m.Sweep(now) // first sweep only timestamps finishedAt
	require.Equal(t, 1, m.Len())

	m.Sweep(now.Add(2 * time.Minute))
	require.Equal(t, 0, m.Len())
}
