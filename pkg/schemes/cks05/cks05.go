// Package cks05 implements the CKS05 threshold common coin (spec §4.3):
// each share is H(label)^{x_i} bound by an equality-of-discrete-log proof
// to the party's verification point; assembly interpolates H(label)^s in
// the exponent and outputs the parity of SHA-256 of its canonical bytes.
package cks05

import (
	"crypto/sha256"
	"io"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/nizk"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/shamir"
	"github.com/thetacrypt/thetacrypt-go/pkg/wireutil"
)

const hashDomain = "thetacrypt-cks05-H"

// Scheme implements schemes.Coin for CKS05.
type Scheme struct{}

var _ schemes.Coin = (*Scheme)(nil)

type shareWire struct {
	Share           []byte
	Challenge, Resp []byte
}

func (Scheme) CreateShare(sk *keys.PrivateKeyShare, label []byte, rand io.Reader) (*schemes.CoinShare, error) {
	g := sk.Pk.Group()
	hlabel := g.HashToGroup([]byte(hashDomain), label)
	share := hlabel.Pow(sk.X)
	yi, ok := sk.Pk.VerificationPoints[sk.ID]
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "cks05: missing verification point")
	}
	proof, err := nizk.Prove(g, rand, g.Generator(), yi, hlabel, share, sk.X, label)
	if err != nil {
		return nil, err
	}
	data, err := marshalShare(share, proof)
	if err != nil {
		return nil, err
	}
	return &schemes.CoinShare{ID: sk.ID, Data: data}, nil
}

func (Scheme) VerifyShare(pk *keys.PublicKey, label []byte, shareMsg *schemes.CoinShare) (bool, error) {
	g := pk.Group()
	share, proof, err := unmarshalShare(g, shareMsg.Data)
	if err != nil {
		return false, err
	}
	yi, ok := pk.VerificationPoints[shareMsg.ID]
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidShare, "cks05: unknown party id")
	}
	hlabel := g.HashToGroup([]byte(hashDomain), label)
	return nizk.Verify(g, proof, g.Generator(), yi, hlabel, share, label)
}

func (Scheme) Assemble(pk *keys.PublicKey, _ []byte, shareMsgs []*schemes.CoinShare) (bool, error) {
	if len(shareMsgs) < pk.K {
		return false, schemeid.NewError(schemeid.ErrNotEnoughShares, "cks05: not enough shares to assemble")
	}
	g := pk.Group()
	shares := make(map[party.ID]group.Element, len(shareMsgs))
	for _, sm := range shareMsgs {
		share, _, err := unmarshalShare(g, sm.Data)
		if err != nil {
			return false, err
		}
		shares[sm.ID] = share
	}
	result, err := shamir.RecoverInExponent(g, shares)
	if err != nil {
		return false, schemeid.NewError(schemeid.ErrAssembleFailed, err.Error())
	}
	b, err := result.MarshalBinary()
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(b)
	return digest[len(digest)-1]&1 == 1, nil
}

func marshalShare(share group.Element, proof *nizk.DLEQProof) ([]byte, error) {
	sb, err := share.MarshalBinary()
	if err != nil {
		return nil, err
	}
	chb, err := proof.Challenge.MarshalBinary()
	if err != nil {
		return nil, err
	}
	rb, err := proof.Response.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wireutil.Marshal(shareWire{Share: sb, Challenge: chb, Resp: rb})
}

func unmarshalShare(g group.Group, data []byte) (group.Element, *nizk.DLEQProof, error) {
	var w shareWire
	if err := wireutil.Unmarshal(data, &w); err != nil {
		return nil, nil, err
	}
	share, err := g.ElementFromBytes(w.Share)
	if err != nil {
		return nil, nil, err
	}
	c, err := g.ScalarFromBytes(w.Challenge)
	if err != nil {
		return nil, nil, err
	}
	resp, err := g.ScalarFromBytes(w.Resp)
	if err != nil {
		return nil, nil, err
	}
	return share, &nizk.DLEQProof{Challenge: c, Response: resp}, nil
}
