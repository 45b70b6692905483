package keychain_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/keychain"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/shamir"
)

func testShares(t *testing.T, scheme schemeid.ID, n, k int) []*keys.PrivateKeyShare {
	t.Helper()
	g, err := group.Lookup(group.Ed25519)
	require.NoError(t, err)

	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}
	poly := shamir.NewPolynomial(g, k, nil, rand.Reader)
	secretShares := poly.Shares(party.NewIDSlice(ids))

	y := g.Generator().Pow(poly.Secret())
	verification := make(map[party.ID]group.Element, n)
	for id, s := range secretShares {
		verification[id] = g.Generator().Pow(s)
	}
	pk := keys.NewPublicKey(scheme, g, n, k, y, verification)

	out := make([]*keys.PrivateKeyShare, n)
	for i, id := range ids {
		out[i] = &keys.PrivateKeyShare{
			ID:     id,
			Scheme: scheme,
			Grp:    group.Ed25519,
			X:      secretShares[id],
			Pk:     pk,
		}
	}
	return out
}

func TestInsertAndDefaultSelection(t *testing.T) {
	kc := keychain.New(8)
	shares := testShares(t, schemeid.Frost, 3, 2)

	require.NoError(t, kc.InsertPrivateKey(shares[0]))
	fp, err := shares[0].Pk.Fingerprint()
	require.NoError(t, err)

	entry, err := kc.GetKeyByFingerprint(fp.String(), uint32(shares[0].ID))
	require.NoError(t, err)
	require.True(t, entry.IsDefaultForSchemeGroup)
	require.True(t, entry.IsDefaultForOperation)

	require.ErrorIs(t, kc.InsertPrivateKey(shares[0]), keychain.ErrDuplicateEntry)

	require.NoError(t, kc.InsertPrivateKey(shares[1]))
	second, err := kc.GetKeyByFingerprint(fp.String(), uint32(shares[1].ID))
	require.NoError(t, err)
	require.False(t, second.IsDefaultForSchemeGroup)
	require.False(t, second.IsDefaultForOperation)

	byScheme, err := kc.GetKeyBySchemeAndGroup(schemeid.Frost, group.Ed25519)
	require.NoError(t, err)
	require.Equal(t, shares[0].ID, byScheme.Sk.ID)
}

func TestInsertRejectsIDMismatch(t *testing.T) {
	kc := keychain.New(8)
	a := testShares(t, schemeid.Sg02, 3, 2)
	b := testShares(t, schemeid.Sg02, 3, 2)

	// Splice a's X onto b's public key: the verification point no longer
	// matches, so insertion must fail.
	mismatched := &keys.PrivateKeyShare{
		ID:     b[0].ID,
		Scheme: b[0].Scheme,
		Grp:    b[0].Grp,
		X:      a[0].X,
		Pk:     b[0].Pk,
	}
	require.ErrorIs(t, kc.InsertPrivateKey(mismatched), keychain.ErrIDMismatch)
}

func TestPrecomputePoolLIFOAndBounded(t *testing.T) {
	kc := keychain.New(2)
	kc.PushPrecomputeResult(schemeid.Frost, group.Ed25519, "first")
	kc.PushPrecomputeResult(schemeid.Frost, group.Ed25519, "second")
	kc.PushPrecomputeResult(schemeid.Frost, group.Ed25519, "third")

	require.Equal(t, 2, kc.PrecomputeLen(schemeid.Frost, group.Ed25519))
	require.Equal(t, "third", kc.PopPrecomputeResult(schemeid.Frost, group.Ed25519))
	require.Equal(t, "second", kc.PopPrecomputeResult(schemeid.Frost, group.Ed25519))
	require.Nil(t, kc.PopPrecomputeResult(schemeid.Frost, group.Ed25519))
}

func TestToBytesFromBytesRoundTrip(t *testing.T) {
	kc := keychain.New(4)
	for _, sh := range testShares(t, schemeid.Bls04, 3, 2) {
		require.NoError(t, kc.InsertPrivateKey(sh))
	}

	raw, err := kc.ToBytes()
	require.NoError(t, err)

	restored, err := keychain.FromBytes(raw, 4)
	require.NoError(t, err)

	got, err := restored.GetKeyBySchemeAndGroup(schemeid.Bls04, group.Ed25519)
	require.NoError(t, err)
	require.True(t, got.IsDefaultForSchemeGroup)
}

func TestGetEncryptionKeysFiltersByClass(t *testing.T) {
	kc := keychain.New(4)
	for _, sh := range testShares(t, schemeid.Sg02, 3, 2) {
		require.NoError(t, kc.InsertPrivateKey(sh))
	}
	for _, sh := range testShares(t, schemeid.Bls04, 3, 2) {
		require.NoError(t, kc.InsertPrivateKey(sh))
	}

	enc := kc.GetEncryptionKeys()
	require.Len(t, enc, 3)
	for _, k := range enc {
		require.Equal(t, schemeid.ClassEncryption, k.Sk.Scheme.Class())
	}
}
