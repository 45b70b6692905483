package frost_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thetacrypt/thetacrypt-go/pkg/dealer"
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/frost"
)

func TestTwoRoundSignVerifyAssemble(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Frost, group.Ed25519, 5, 3, rand.Reader)
	require.NoError(t, err)
	signers := shares[:3]

	g, err := group.Lookup(group.Ed25519)
	require.NoError(t, err)

	precomp := make(map[int]*frost.Precomputation, len(signers))
	commitments := make([]*frost.Commitment, 0, len(signers))
	for i, sk := range signers {
		p := frost.GenerateRound1(g, sk.ID, rand.Reader)
		precomp[i] = p
		commitments = append(commitments, p.Commitment)
	}

	msg := []byte("threshold signing under FROST")
	var r group.Element
	var shareMsgs []*schemes.SignatureShare
	for i, sk := range signers {
		sm, rOut, err := frost.PartialSign(sk, precomp[i].Nonce, msg, commitments)
		require.NoError(t, err)
		r = rOut
		ok, err := frost.VerifyShare(shares[0].Pk, msg, sm, commitments)
		require.NoError(t, err)
		require.True(t, ok)
		shareMsgs = append(shareMsgs, sm)
	}

	sig, err := frost.Assemble(shares[0].Pk, r, shareMsgs)
	require.NoError(t, err)

	ok, err := frost.VerifySignature(shares[0].Pk, msg, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyShareRejectsCommitmentMismatch(t *testing.T) {
	shares, err := dealer.GenerateGroupKeys(schemeid.Frost, group.Ed25519, 3, 2, rand.Reader)
	require.NoError(t, err)
	signers := shares[:2]

	g, err := group.Lookup(group.Ed25519)
	require.NoError(t, err)

	var commitments []*frost.Commitment
	nonces := make(map[int]*frost.Nonce)
	for i, sk := range signers {
		p := frost.GenerateRound1(g, sk.ID, rand.Reader)
		nonces[i] = p.Nonce
		commitments = append(commitments, p.Commitment)
	}

	msg := []byte("message")
	sm, _, err := frost.PartialSign(signers[0], nonces[0], msg, commitments)
	require.NoError(t, err)

	// Swap in a fresh, unrelated commitment set: verification must fail
	// since the binding factors and challenge no longer match what was signed.
	var otherCommitments []*frost.Commitment
	for _, sk := range signers {
		p := frost.GenerateRound1(g, sk.ID, rand.Reader)
		otherCommitments = append(otherCommitments, p.Commitment)
	}
	ok, err := frost.VerifyShare(shares[0].Pk, msg, sm, otherCommitments)
	require.NoError(t, err)
	require.False(t, ok)
}
