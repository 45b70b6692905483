package cks05_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/dealer"
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/cks05"
)

func TestCoinFlipIsDeterministicForSameLabel(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Cks05, group.Bls12381, 5, 3, rand.Reader)
	require.NoError(t, err)

	s := cks05.Scheme{}
	label := []byte("instance-42")

	var shareMsgs []*schemes.CoinShare
	for _, sk := range shares[:3] {
		sm, err := s.CreateShare(sk, label, rand.Reader)
		require.NoError(t, err)
		ok, err := s.VerifyShare(shares[0].Pk, label, sm)
		require.NoError(t, err)
		require.True(t, ok)
		shareMsgs = append(shareMsgs, sm)
	}

	coin1, err := s.Assemble(shares[0].Pk, label, shareMsgs)
	require.NoError(t, err)

	// Assembling again with a different subset (the last 3 of the 5) must
	// agree, since the coin is a deterministic function of the label alone.
	var altShares []*schemes.CoinShare
	for _, sk := range shares[2:] {
		sm, err := s.CreateShare(sk, label, rand.Reader)
		require.NoError(t, err)
		altShares = append(altShares, sm)
	}
	coin2, err := s.Assemble(shares[0].Pk, label, altShares)
	require.NoError(t, err)
	require.Equal(t, coin1, coin2)
}

func TestAssembleFailsBelowThreshold(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Cks05, group.Ed25519, 4, 3, rand.Reader)
	require.NoError(t, err)

	s := cks05.Scheme{}
	label := []byte("label")
	sm, err := s.CreateShare(shares[0], label, rand.Reader)
	require.NoError(t, err)

	_, err = s.Assemble(shares[0].Pk, label, []*schemes.CoinShare{sm})
	require.Error(t, err)
}
