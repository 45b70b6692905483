package sh00_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/dealer"
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/sh00"
)

func TestSignVerifyAssembleRoundTrip(t *testing.T) {
	shares, err := dealer.GenerateSH00Keys(group.Rsa512, 5, 3, rand.Reader)
	require.NoError(t, err)

	s := sh00.Scheme{}
	msg := []byte("threshold signing under SH00")

	var shareMsgs []*schemes.SignatureShare
	for _, sk := range shares[:3] {
		sm, err := s.PartialSign(sk, msg, rand.Reader)
		require.NoError(t, err)
		ok, err := s.VerifyShare(shares[0].Pk, msg, sm)
		require.NoError(t, err)
		require.True(t, ok)
		shareMsgs = append(shareMsgs, sm)
	}

	sig, err := s.Assemble(shares[0].Pk, msg, shareMsgs)
	require.NoError(t, err)

	ok, err := s.VerifySignature(shares[0].Pk, msg, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifySignatureRejectsWrongMessage(t *testing.T) {
	shares, err := dealer.GenerateSH00Keys(group.Rsa512, 3, 2, rand.Reader)
	require.NoError(t, err)

	s := sh00.Scheme{}
	msg := []byte("real message")
	var shareMsgs []*schemes.SignatureShare
	for _, sk := range shares[:2] {
		sm, err := s.PartialSign(sk, msg, rand.Reader)
		require.NoError(t, err)
		shareMsgs = append(shareMsgs, sm)
	}
	sig, err := s.Assemble(shares[0].Pk, msg, shareMsgs)
	require.NoError(t, err)

	ok, err := s.VerifySignature(shares[0].Pk, []byte("forged message"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAssembleFailsBelowThreshold(t *testing.T) {
	shares, err := dealer.GenerateSH00Keys(group.Rsa512, 4, 3, rand.Reader)
	require.NoError(t, err)

	s := sh00.Scheme{}
	msg := []byte("msg")
	sm, err := s.PartialSign(shares[0], msg, rand.Reader)
	require.NoError(t, err)

	_, err = s.Assemble(shares[0].Pk, msg, []*schemes.SignatureShare{sm})
	require.Error(t, err)
}
