package frontend_test

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/frontend"
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/keychain"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/orchestrator"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/sg02"
	"github.com/thetacrypt/thetacrypt-go/pkg/shamir"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
)

// buildSG02Shares creates an (n, k) SG02 key and returns one
// *keys.PrivateKeyShare per party, all pointing at the same public key.
func buildSG02Shares(t *testing.T, n, k int) []*keys.PrivateKeyShare {
	t.Helper()
	g, err := group.Lookup(group.Ed25519)
	require.NoError(t, err)

	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}
	idSlice := party.NewIDSlice(ids)
	poly := shamir.NewPolynomial(g, k, nil, rand.Reader)
	secretShares := poly.Shares(idSlice)

	y := g.Generator().Pow(poly.Secret())
	verification := make(map[party.ID]group.Element, n)
	for id, s := range secretShares {
		verification[id] = g.Generator().Pow(s)
	}
	pk := keys.NewPublicKey(schemeid.Sg02, g, n, k, y, verification)

	out := make([]*keys.PrivateKeyShare, n)
	for i, id := range ids {
		out[i] = &keys.PrivateKeyShare{ID: id, Scheme: schemeid.Sg02, Grp: group.Ed25519, X: secretShares[id], Pk: pk}
	}
	return out
}

// responder is a simulated peer node: it has its own transport handle on
// the shared bus and reacts to a decryption request by running the same
// orchestrator driver the front-end itself uses, once the test hands it
// the agreed-upon instance id.
type responder struct {
	t       transport.Transport
	manager *orchestrator.Manager
	demux   *orchestrator.Demultiplexer
}

func newResponder(bus *transport.LocalBus) *responder {
	mgr := orchestrator.NewManager(time.Minute)
	return &responder{t: bus.Join(32), manager: mgr, demux: orchestrator.NewDemultiplexer(mgr, time.Minute, 0)}
}

// TestEndToEndSG02DecryptAcrossThreeSimulatedNodes exercises the full
// request front-end against two peer responders over an in-process
// transport bus: node 1 runs frontend.Server.Decrypt, nodes 2 and 3 run the
// orchestrator's cipher driver directly (standing in for their own
// front-ends), and node 1's Decrypt must return the original plaintext.
func TestEndToEndSG02DecryptAcrossThreeSimulatedNodes(t *testing.T) {
	shares := buildSG02Shares(t, 3, 2)

	bus := transport.NewLocalBus()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r2, r3 := newResponder(bus), newResponder(bus)
	go r2.demux.Run(ctx, r2.t)
	go r3.demux.Run(ctx, r3.t)

	kc1 := keychain.New(0)
	require.NoError(t, kc1.InsertPrivateKey(shares[0]))
	server, demux1 := frontend.NewServer(kc1, nil)
	defer server.Close()
	t1 := bus.Join(32)
	go demux1.Run(ctx, t1)

	plaintext := []byte("threshold decryption works")
	ct, err := sg02.Scheme{}.Encrypt(shares[0].Pk, []byte("label"), plaintext, rand.Reader)
	require.NoError(t, err)
	ctBytes, err := ct.MarshalBinary()
	require.NoError(t, err)

	// Node 1 selects its key by fingerprint. The instance id it allocates
	// includes a random nonce, so the responders learn it from their
	// pending buffers below instead of deriving it themselves.
	fp, err := shares[0].Pk.Fingerprint()
	require.NoError(t, err)

	decryptDone := make(chan struct{})
	var decryptResult []byte
	var decryptErr error
	go func() {
		defer close(decryptDone)
		decryptResult, decryptErr = server.Decrypt(ctx, t1, ctBytes, frontend.KeySelector{Fingerprint: fp.String()})
	}()

	// Responders race node 1 to learn of the instance id via the pending
	// buffer: node 1's own share broadcast arrives before the responders
	// have created their local instance, so the demultiplexer buffers it
	// until CreateAndDrain below runs.
	instanceID := waitForPendingInstanceID(t, r2, 2*time.Second)
	inst2, err := r2.demux.CreateAndDrain(instanceID, schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)
	inst3, err := r3.demux.CreateAndDrain(instanceID, schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)
	go orchestrator.RunCipher(ctx, inst2, r2.t, sg02.Scheme{}, shares[1], ct)
	go orchestrator.RunCipher(ctx, inst3, r3.t, sg02.Scheme{}, shares[2], ct)

	select {
	case <-decryptDone:
	case <-time.After(3 * time.Second):
		t.Fatal("Decrypt did not complete")
	}
	require.NoError(t, decryptErr)
	require.Equal(t, plaintext, decryptResult)
}

// waitForPendingInstanceID polls r's pending-buffer instance ids (exposed
// via PendingIDs for tests) until node 1's broadcast share arrives.
func waitForPendingInstanceID(t *testing.T, r *responder, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ids := r.demux.PendingIDs(); len(ids) == 1 {
			return ids[0]
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for a pending instance id")
	return ""
}

func TestGetPublicKeysDeduplicatesByFingerprint(t *testing.T) {
	shares := buildSG02Shares(t, 3, 2)
	kc := keychain.New(0)
	require.NoError(t, kc.InsertPrivateKey(shares[0]))
	server, _ := frontend.NewServer(kc, nil)
	defer server.Close()

	pks := server.GetPublicKeys()
	require.Len(t, pks, 1)
}
