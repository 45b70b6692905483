package bz03_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/dealer"
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/bz03"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Bz03, group.Bn254, 5, 3, rand.Reader)
	require.NoError(t, err)

	s := bz03.Scheme{}
	msg := []byte("threshold encryption under BZ03")
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

func TestAssembleRejectsTamperedCiphertext(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Bz03, group.Bn254, 3, 2, rand.Reader)
	require.NoError(t, err)

	s := bz03.Scheme{}
	ct, err := s.Encrypt(shares[0].Pk, []byte("label"), []byte("msg"), rand.Reader)
	require.NoError(t, err)

	data, err := ct.MarshalBinary()
	require.NoError(t, err)
	tampered, err := bz03.UnmarshalCiphertext(shares[0].Pk, data)
	require.NoError(t, err)
	tampered.(*bz03.Ciphertext).C2[0] ^= 0xFF

	var shareMsgs []*schemes.DecryptionShare
	for _, sk := range shares[:2] {
		sm, err := s.PartialDecrypt(sk, tampered, rand.Reader)
		require.NoError(t, err)
		shareMsgs = append(shareMsgs, sm)
	}
	_, err = s.Assemble(shares[0].Pk, tampered, shareMsgs)
	require.Error(t, err)
}

func TestRejectsNonPairingGroup(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Sg02, group.Ed25519, 3, 2, rand.Reader)
	require.NoError(t, err)

	s := bz03.Scheme{}
	_, err = s.Encrypt(shares[0].Pk, []byte("label"), []byte("msg"), rand.Reader)
	require.Error(t, err)
}
