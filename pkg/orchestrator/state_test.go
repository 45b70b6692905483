package orchestrator_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/keychain"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/orchestrator"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/shamir"
)

func testShare(t *testing.T, scheme schemeid.ID) *keys.PrivateKeyShare {
	t.Helper()
	g, err := group.Lookup(group.Ed25519)
	require.NoError(t, err)

	ids := party.NewIDSlice([]party.ID{1, 2, 3})
	poly := shamir.NewPolynomial(g, 2, nil, rand.Reader)
	secretShares := poly.Shares(ids)

	y := g.Generator().Pow(poly.Secret())
	verification := make(map[party.ID]group.Element, len(ids))
	for id, s := range secretShares {
		verification[id] = g.Generator().Pow(s)
	}
	pk := keys.NewPublicKey(scheme, g, len(ids), 2, y, verification)

	return &keys.PrivateKeyShare{ID: 1, Scheme: scheme, Grp: group.Ed25519, X: secretShares[1], Pk: pk}
}

func TestStateManagerGetPrivateKeyByType(t *testing.T) {
	kc := keychain.New(4)
	sk := testShare(t, schemeid.Sg02)
	require.NoError(t, kc.InsertPrivateKey(sk))

	sm := orchestrator.NewStateManager(kc)
	defer sm.Stop()

	k, err := sm.GetPrivateKeyByType(schemeid.Sg02, group.Ed25519)
	require.NoError(t, err)
	require.Equal(t, sk.ID, k.Sk.ID)

	_, err = sm.GetPrivateKeyByType(schemeid.Bls04, group.Bls12381)
	require.ErrorIs(t, err, keychain.ErrIDNotFound)
}

func TestStateManagerFrostPrecomputationPushPop(t *testing.T) {
	kc := keychain.New(4)
	sm := orchestrator.NewStateManager(kc)
	defer sm.Stop()

	require.Nil(t, sm.PopFrostPrecomputation(schemeid.Frost, group.Ed25519))

	sm.PushFrostPrecomputation(schemeid.Frost, group.Ed25519, "precomp-1")
	sm.PushFrostPrecomputation(schemeid.Frost, group.Ed25519, "precomp-2")

	// The command channel is FIFO and single-owner, so by the time this Pop's
	// reply arrives both prior Pushes have already been applied.
	require.Equal(t, "precomp-2", sm.PopFrostPrecomputation(schemeid.Frost, group.Ed25519))
	require.Equal(t, "precomp-1", sm.PopFrostPrecomputation(schemeid.Frost, group.Ed25519))
}
