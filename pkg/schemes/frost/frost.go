// Package frost implements the FROST interactive two-round Schnorr
// threshold signature scheme (spec §4.3). Unlike the other schemes in
// pkg/schemes, FROST cannot be expressed through the synchronous
// schemes.Signature interface: round 1 produces per-signer nonce
// commitments that must reach every other signer before round 2 can run.
// The orchestrator instance for FROST drives these two rounds directly
// against this package's functions; round-1 output may also be generated
// ahead of time and consumed from the keychain's precomputation pool
// (spec §4.4, §9).
package frost

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/shamir"
	"github.com/thetacrypt/thetacrypt-go/pkg/wireutil"
)

// Nonce is a signer's private round-1 state: (d_i, e_i).
type Nonce struct {
	D, E group.Scalar
}

// Commitment is a signer's public round-1 output: (D_i, E_i) = (g^{d_i}, g^{e_i}).
type Commitment struct {
	ID   party.ID
	D, E group.Element
}

// Precomputation bundles a Nonce with its Commitment for storage in the
// keychain's precomputation pool.
type Precomputation struct {
	Nonce      *Nonce
	Commitment *Commitment
}

// GenerateRound1 samples a fresh nonce pair and its public commitment
// (spec §4.3 "Round 1").
func GenerateRound1(g group.Group, id party.ID, rand io.Reader) *Precomputation {
	d := g.RandomScalar(rand)
	e := g.RandomScalar(rand)
	return &Precomputation{
		Nonce:      &Nonce{D: d, E: e},
		Commitment: &Commitment{ID: id, D: g.Generator().Pow(d), E: g.Generator().Pow(e)},
	}
}

// bindingFactor computes rho_i = H_rho(i, m, B) (spec §4.3 "Round 2").
func bindingFactor(g group.Group, id party.ID, msg []byte, commitments []*Commitment) (group.Scalar, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%d", id)
	h.Write(msg)
	for _, c := range commitments {
		db, err := c.D.MarshalBinary()
		if err != nil {
			return nil, err
		}
		eb, err := c.E.MarshalBinary()
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(h, "%d", c.ID)
		h.Write(db)
		h.Write(eb)
	}
	return g.ScalarFromBytes(h.Sum(nil))
}

// GroupCommitment computes R = Π D_i * E_i^{rho_i} over the ordered signer
// set's commitments, and returns each signer's binding factor alongside it
// (needed again by each signer's own PartialSign call).
func GroupCommitment(g group.Group, msg []byte, commitments []*Commitment) (group.Element, map[party.ID]group.Scalar, error) {
	rhos := make(map[party.ID]group.Scalar, len(commitments))
	r := g.Identity()
	for _, c := range commitments {
		rho, err := bindingFactor(g, c.ID, msg, commitments)
		if err != nil {
			return nil, nil, err
		}
		rhos[c.ID] = rho
		term, err := r.Mul(c.D)
		if err != nil {
			return nil, nil, err
		}
		term, err = term.Mul(c.E.Pow(rho))
		if err != nil {
			return nil, nil, err
		}
		r = term
	}
	return r, rhos, nil
}

// challenge computes c = H_c(R, Y, m).
func challenge(g group.Group, r, y group.Element, msg []byte) (group.Scalar, error) {
	h := sha256.New()
	rb, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	yb, err := y.MarshalBinary()
	if err != nil {
		return nil, err
	}
	h.Write(rb)
	h.Write(yb)
	h.Write(msg)
	return g.ScalarFromBytes(h.Sum(nil))
}

// PartialSign computes z_i = d_i + e_i*rho_i + c*lambda_i*x_i for this
// signer, given the full commitment set of the chosen signers (spec §4.3).
func PartialSign(sk *keys.PrivateKeyShare, nonce *Nonce, msg []byte, commitments []*Commitment) (*schemes.SignatureShare, group.Element, error) {
	if sk.Scheme != schemeid.Frost {
		return nil, nil, schemeid.NewError(schemeid.ErrInvalidInput, "frost: private key share is not a FROST key")
	}
	g := sk.Pk.Group()
	r, rhos, err := GroupCommitment(g, msg, commitments)
	if err != nil {
		return nil, nil, err
	}
	rhoI, ok := rhos[sk.ID]
	if !ok {
		return nil, nil, schemeid.NewError(schemeid.ErrInvalidInput, "frost: signer not present in commitment set")
	}
	c, err := challenge(g, r, sk.Pk.Y, msg)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]party.ID, len(commitments))
	for i, cm := range commitments {
		ids[i] = cm.ID
	}
	lambda, err := shamir.LagrangeCoefficient(g, sk.ID, party.NewIDSlice(ids))
	if err != nil {
		return nil, nil, err
	}
	z := nonce.D.Add(nonce.E.Mul(rhoI)).Add(c.Mul(lambda).Mul(sk.X))
	zb, err := z.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	return &schemes.SignatureShare{ID: sk.ID, Data: zb}, r, nil
}

// VerifyShare checks a single signer's partial signature against their
// commitment and verification point:
// g^{z_i} == D_i * E_i^{rho_i} * Y_i^{c*lambda_i}.
func VerifyShare(pk *keys.PublicKey, msg []byte, share *schemes.SignatureShare, commitments []*Commitment) (bool, error) {
	g := pk.Group()
	r, rhos, err := GroupCommitment(g, msg, commitments)
	if err != nil {
		return false, err
	}
	rhoI, ok := rhos[share.ID]
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidShare, "frost: unknown signer id")
	}
	c, err := challenge(g, r, pk.Y, msg)
	if err != nil {
		return false, err
	}
	var commit *Commitment
	for _, cm := range commitments {
		if cm.ID == share.ID {
			commit = cm
			break
		}
	}
	if commit == nil {
		return false, schemeid.NewError(schemeid.ErrInvalidShare, "frost: missing commitment for signer")
	}
	ids := make([]party.ID, len(commitments))
	for i, cm := range commitments {
		ids[i] = cm.ID
	}
	lambda, err := shamir.LagrangeCoefficient(g, share.ID, party.NewIDSlice(ids))
	if err != nil {
		return false, err
	}
	yi, ok := pk.VerificationPoints[share.ID]
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidShare, "frost: unknown party id")
	}

	z, err := g.ScalarFromBytes(share.Data)
	if err != nil {
		return false, err
	}
	lhs := g.Generator().Pow(z)

	rhs, err := commit.D.Mul(commit.E.Pow(rhoI))
	if err != nil {
		return false, err
	}
	rhs, err = rhs.Mul(yi.Pow(c.Mul(lambda)))
	if err != nil {
		return false, err
	}
	return lhs.Equal(rhs), nil
}

// Signature is the FROST wire format: (R, z).
type Signature struct {
	R group.Element
	Z group.Scalar
}

type wireSignature struct {
	R, Z []byte
}

// Assemble sums every signer's z_i and pairs it with the shared group
// commitment R (spec §4.3 "Assemble: z = Sum z_i").
func Assemble(pk *keys.PublicKey, r group.Element, shares []*schemes.SignatureShare) ([]byte, error) {
	if len(shares) < pk.K {
		return nil, schemeid.NewError(schemeid.ErrNotEnoughShares, "frost: not enough shares to assemble")
	}
	g := pk.Group()
	z := g.NewScalar()
	for _, s := range shares {
		zi, err := g.ScalarFromBytes(s.Data)
		if err != nil {
			return nil, err
		}
		z = z.Add(zi)
	}
	rb, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	zb, err := z.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wireutil.Marshal(wireSignature{R: rb, Z: zb})
}

// VerifySignature checks the standard Schnorr equation g^z == R * Y^c.
func VerifySignature(pk *keys.PublicKey, msg, sig []byte) (bool, error) {
	var w wireSignature
	if err := wireutil.Unmarshal(sig, &w); err != nil {
		return false, err
	}
	g := pk.Group()
	r, err := g.ElementFromBytes(w.R)
	if err != nil {
		return false, err
	}
	z, err := g.ScalarFromBytes(w.Z)
	if err != nil {
		return false, err
	}
	c, err := challenge(g, r, pk.Y, msg)
	if err != nil {
		return false, err
	}
	lhs := g.Generator().Pow(z)
	rhs, err := r.Mul(pk.Y.Pow(c))
	if err != nil {
		return false, err
	}
	return lhs.Equal(rhs), nil
}
