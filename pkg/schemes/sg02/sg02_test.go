package sg02_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/dealer"
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/sg02"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Sg02, group.Ed25519, 5, 3, rand.Reader)
	require.NoError(t, err)

	s := sg02.Scheme{}
	msg := []byte("threshold encryption under SG02")
	label := []byte("test-label")
	ct, err := s.Encrypt(shares[0].Pk, label, msg, rand.Reader)
	require.NoError(t, err)

	ok, err := s.VerifyCiphertext(shares[0].Pk, ct)
	require.NoError(t, err)
	require.True(t, ok)

	var shareMsgs []*schemes.DecryptionShare
	for _, sk := range shares[:3] {
		sm, err := s.PartialDecrypt(sk, ct, rand.Reader)
		require.NoError(t, err)
		ok, err := s.VerifyShare(shares[0].Pk, ct, sm)
		require.NoError(t, err)
		require.True(t, ok)
		shareMsgs = append(shareMsgs, sm)
	}

	out, err := s.Assemble(shares[0].Pk, ct, shareMsgs)
	require.NoError(t, err)
	require.Equal(t, msg, out)
}

func TestAssembleFailsBelowThreshold(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Sg02, group.Ed25519, 5, 3, rand.Reader)
	require.NoError(t, err)

	s := sg02.Scheme{}
	ct, err := s.Encrypt(shares[0].Pk, []byte("label"), []byte("msg"), rand.Reader)
	require.NoError(t, err)

	sm, err := s.PartialDecrypt(shares[0], ct, rand.Reader)
	require.NoError(t, err)

	_, err = s.Assemble(shares[0].Pk, ct, []*schemes.DecryptionShare{sm})
	require.Error(t, err)
}

func TestVerifyShareRejectsForeignShare(t *testing.T) {
	a, err := dealer.GenerateGroupKeys(schemeid.Sg02, group.Ed25519, 3, 2, rand.Reader)
	require.NoError(t, err)
	b, err := dealer.GenerateGroupKeys(schemeid.Sg02, group.Ed25519, 3, 2, rand.Reader)
	require.NoError(t, err)

	s := sg02.Scheme{}
	ct, err := s.Encrypt(a[0].Pk, []byte("label"), []byte("msg"), rand.Reader)
	require.NoError(t, err)

	// A share of a's ciphertext computed with b's key share for the same
	// party id must not verify against a's verification point.
	sm, err := s.PartialDecrypt(b[0], ct, rand.Reader)
	require.NoError(t, err)
	ok, err := s.VerifyShare(a[0].Pk, ct, sm)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMarshalUnmarshalCiphertextRoundTrip(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Sg02, group.Ed25519, 3, 2, rand.Reader)
	require.NoError(t, err)

	s := sg02.Scheme{}
	ct, err := s.Encrypt(shares[0].Pk, []byte("label"), []byte("hello"), rand.Reader)
	require.NoError(t, err)

	data, err := ct.MarshalBinary()
	require.NoError(t, err)

	back, err := sg02.UnmarshalCiphertext(shares[0].Pk, data)
	require.NoError(t, err)
	require.Equal(t, ct.Label(), back.Label())
}
