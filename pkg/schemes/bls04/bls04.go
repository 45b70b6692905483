// Package bls04 implements the BLS04 threshold BLS signature scheme (spec
// §4.3): partial signatures are H(m)^{x_i}; share verification uses the
// pairing equality e(H(m), y_i) = e(share, g); assembly is exponent-form
// Lagrange interpolation.
//
// Public keys and verification points live in G1 (pkg/group/ec's pairing
// convention); message hashes and signature shares live in G2, so that a
// single pairing checks both against the shared G1 generator.
package bls04

import (
	"io"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/shamir"
)

// hashDomain separates BLS04 message hashing from every other use of
// HashToGroup over the same group.
const hashDomain = "thetacrypt-bls04-H"

// Scheme implements schemes.Signature for BLS04.
type Scheme struct{}

var _ schemes.Signature = (*Scheme)(nil)

func pairingGroupOf(g group.Group) (group.PairingGroup, error) {
	pg, ok := g.(group.PairingGroup)
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "bls04: group is not pairing-friendly")
	}
	return pg, nil
}

func (Scheme) PartialSign(sk *keys.PrivateKeyShare, msg []byte, _ io.Reader) (*schemes.SignatureShare, error) {
	pg, err := pairingGroupOf(sk.Pk.Group())
	if err != nil {
		return nil, err
	}
	hm := pg.G2().HashToGroup([]byte(hashDomain), msg)
	share := hm.Pow(sk.X)
	data, err := share.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &schemes.SignatureShare{ID: sk.ID, Data: data}, nil
}

func (Scheme) VerifyShare(pk *keys.PublicKey, msg []byte, shareMsg *schemes.SignatureShare) (bool, error) {
	pg, err := pairingGroupOf(pk.Group())
	if err != nil {
		return false, err
	}
	share, err := pg.G2().ElementFromBytes(shareMsg.Data)
	if err != nil {
		return false, err
	}
	yi, ok := pk.VerificationPoints[shareMsg.ID]
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidShare, "bls04: unknown party id")
	}
	hm := pg.G2().HashToGroup([]byte(hashDomain), msg)
	lhs, err := pg.Pair(hm, yi)
	if err != nil {
		return false, err
	}
	rhs, err := pg.Pair(share, pg.Generator())
	if err != nil {
		return false, err
	}
	return lhs.Equal(rhs), nil
}

func (Scheme) Assemble(pk *keys.PublicKey, _ []byte, shareMsgs []*schemes.SignatureShare) ([]byte, error) {
	if len(shareMsgs) < pk.K {
		return nil, schemeid.NewError(schemeid.ErrNotEnoughShares, "bls04: not enough shares to assemble")
	}
	pg, err := pairingGroupOf(pk.Group())
	if err != nil {
		return nil, err
	}
	g2 := pg.G2()
	shares := make(map[party.ID]group.Element, len(shareMsgs))
	for _, sm := range shareMsgs {
		share, err := g2.ElementFromBytes(sm.Data)
		if err != nil {
			return nil, err
		}
		shares[sm.ID] = share
	}
	sig, err := shamir.RecoverInExponent(g2, shares)
	if err != nil {
		return nil, schemeid.NewError(schemeid.ErrAssembleFailed, err.Error())
	}
	return sig.MarshalBinary()
}

func (Scheme) VerifySignature(pk *keys.PublicKey, msg, sig []byte) (bool, error) {
	pg, err := pairingGroupOf(pk.Group())
	if err != nil {
		return false, err
	}
	sigElem, err := pg.G2().ElementFromBytes(sig)
	if err != nil {
		return false, err
	}
	hm := pg.G2().HashToGroup([]byte(hashDomain), msg)
	lhs, err := pg.Pair(hm, pk.Y)
	if err != nil {
		return false, err
	}
	rhs, err := pg.Pair(sigElem, pg.Generator())
	if err != nil {
		return false, err
	}
	return lhs.Equal(rhs), nil
}
