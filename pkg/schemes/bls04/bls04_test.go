package bls04_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/dealer"
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/bls04"
)

func TestSignVerifyAssembleRoundTrip(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Bls04, group.Bls12381, 5, 3, rand.Reader)
	require.NoError(t, err)

	s := bls04.Scheme{}
	msg := []byte("threshold signing under BLS04")

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
	shares, err := dealer.GenerateGroupKeys(schemeid.Bls04, group.Bn254, 3, 2, rand.Reader)
	require.NoError(t, err)

	s := bls04.Scheme{}
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

func TestVerifyShareRejectsMismatchedVerificationPoint(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Bls04, group.Bls12381, 3, 2, rand.Reader)
	require.NoError(t, err)

	s := bls04.Scheme{}
	msg := []byte("message")
	sm, err := s.PartialSign(shares[0], msg, rand.Reader)
	require.NoError(t, err)
	sm.ID = shares[1].ID

	ok, err := s.VerifyShare(shares[0].Pk, msg, sm)
	require.NoError(t, err)
	require.False(t, ok)
}
