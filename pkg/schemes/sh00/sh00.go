// Package sh00 implements the SH00 Shoup threshold RSA signature scheme
// (spec §4.3): the dealer shares the secret RSA exponent d modulo
// phi(N)/4; partial signatures are m^{2*Delta*s_i} mod N where
// Delta = n!; assembly combines shares with Delta-scaled integer Lagrange
// coefficients (so no party needs phi(N) to combine) and recovers the
// final signature via an extended-Euclid combination against the public
// exponent. Share verification uses a Chaum-Pedersen proof of equal
// discrete log modulo N between bases v/v_i and m^{2Delta}/x_i.
package sh00

import (
	"io"
	"math/big"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/group/rsagrp"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/nizk"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/wireutil"
)

const hashDomain = "thetacrypt-sh00-H"

// PublicExponent is the fixed RSA public exponent this implementation signs
// under. Shoup's scheme requires e to be a prime greater than the party
// count n, so that e is automatically coprime to Delta = n! and to 2; the
// standard RSA exponent 65537 satisfies this for any realistic deployment
// (n < 65537 signers).
var PublicExponent = big.NewInt(65537)

// Scheme implements schemes.Signature for SH00.
type Scheme struct{}

var _ schemes.Signature = (*Scheme)(nil)

func rsaGroupOf(g group.Group) (*rsagrp.Group, error) {
	rg, ok := g.(*rsagrp.Group)
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "sh00: group is not an RSA modular group")
	}
	return rg, nil
}

func factorial(n int) *big.Int {
	f := big.NewInt(1)
	for i := 2; i <= n; i++ {
		f.Mul(f, big.NewInt(int64(i)))
	}
	return f
}

func hashMessage(g *rsagrp.Group, msg []byte) group.Element {
	return g.HashToGroup([]byte(hashDomain), msg)
}

func (Scheme) PartialSign(sk *keys.PrivateKeyShare, msg []byte, rand io.Reader) (*schemes.SignatureShare, error) {
	rg, err := rsaGroupOf(sk.Pk.Group())
	if err != nil {
		return nil, err
	}
	delta := factorial(sk.Pk.N)
	exp := new(big.Int).Mul(big.NewInt(2), delta)
	exp.Mul(exp, sk.X.BigInt())
	expScalar, err := rg.ScalarFromBytes(exp.Bytes())
	if err != nil {
		return nil, err
	}
	m := hashMessage(rg, msg)
	xi := m.Pow(expScalar)

	m2d := m.Pow(mustScalar(rg, new(big.Int).Mul(big.NewInt(2), delta)))
	v := rg.Generator()
	vi, ok := sk.Pk.VerificationPoints[sk.ID]
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "sh00: missing verification point")
	}
	proof, err := nizk.Prove(rg, rand, v, vi, m2d, xi, sk.X, msg)
	if err != nil {
		return nil, err
	}
	data, err := marshalShare(xi, proof)
	if err != nil {
		return nil, err
	}
	return &schemes.SignatureShare{ID: sk.ID, Data: data}, nil
}

func (Scheme) VerifyShare(pk *keys.PublicKey, msg []byte, shareMsg *schemes.SignatureShare) (bool, error) {
	rg, err := rsaGroupOf(pk.Group())
	if err != nil {
		return false, err
	}
	xi, proof, err := unmarshalShare(rg, shareMsg.Data)
	if err != nil {
		return false, err
	}
	vi, ok := pk.VerificationPoints[shareMsg.ID]
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidShare, "sh00: unknown party id")
	}
	delta := factorial(pk.N)
	m := hashMessage(rg, msg)
	m2d := m.Pow(mustScalar(rg, new(big.Int).Mul(big.NewInt(2), delta)))
	v := rg.Generator()
	return nizk.Verify(rg, proof, v, vi, m2d, xi, msg)
}

func (Scheme) Assemble(pk *keys.PublicKey, msg []byte, shareMsgs []*schemes.SignatureShare) ([]byte, error) {
	if len(shareMsgs) < pk.K {
		return nil, schemeid.NewError(schemeid.ErrNotEnoughShares, "sh00: not enough shares to assemble")
	}
	rg, err := rsaGroupOf(pk.Group())
	if err != nil {
		return nil, err
	}
	delta := factorial(pk.N)

	ids := make([]party.ID, 0, len(shareMsgs))
	shares := make(map[party.ID]group.Element, len(shareMsgs))
	for _, sm := range shareMsgs {
		xi, _, err := unmarshalShare(rg, sm.Data)
		if err != nil {
			return nil, err
		}
		shares[sm.ID] = xi
		ids = append(ids, sm.ID)
	}
	set := party.NewIDSlice(ids)

	w := rg.Identity()
	for _, i := range set {
		lambda, err := deltaLagrange(delta, i, set)
		if err != nil {
			return nil, schemeid.NewError(schemeid.ErrAssembleFailed, err.Error())
		}
		exp := new(big.Int).Mul(big.NewInt(2), lambda)
		term := shares[i].Pow(mustScalar(rg, exp))
		w, err = w.Mul(term)
		if err != nil {
			return nil, schemeid.NewError(schemeid.ErrAssembleFailed, err.Error())
		}
	}

	e := PublicExponent
	// w = m^{4*Delta^2*d}, since each share x_i = m^{2*Delta*s_i} is raised
	// to 2*Delta*lambda_i here; the extended-gcd base must match that
	// exponent exactly, not just its Delta^2 magnitude, or w^a*m^b != m.
	fourDeltaSq := new(big.Int).Mul(big.NewInt(4), new(big.Int).Mul(delta, delta))
	a, b, gcd := extGCD(fourDeltaSq, e)
	if gcd.Cmp(big.NewInt(1)) != 0 {
		return nil, schemeid.NewError(schemeid.ErrAssembleFailed, "sh00: public exponent not coprime to 4*Delta^2")
	}

	m := hashMessage(rg, msg)
	sigA := w.Pow(mustScalar(rg, a))
	sigB := m.Pow(mustScalar(rg, b))
	sig, err := sigA.Mul(sigB)
	if err != nil {
		return nil, schemeid.NewError(schemeid.ErrAssembleFailed, err.Error())
	}
	return sig.MarshalBinary()
}

func (Scheme) VerifySignature(pk *keys.PublicKey, msg, sig []byte) (bool, error) {
	rg, err := rsaGroupOf(pk.Group())
	if err != nil {
		return false, err
	}
	sigElem, err := rg.ElementFromBytes(sig)
	if err != nil {
		return false, err
	}
	lhs := sigElem.Pow(mustScalar(rg, PublicExponent))
	rhs := hashMessage(rg, msg)
	return lhs.Equal(rhs), nil
}

// deltaLagrange computes Delta * lambda_i(S) = Delta * prod_{j in S, j!=i} j/(j-i)
// as an exact integer, never requiring phi(N).
func deltaLagrange(delta *big.Int, i party.ID, s party.IDSlice) (*big.Int, error) {
	num := new(big.Int).Set(delta)
	den := big.NewInt(1)
	for _, j := range s {
		if j == i {
			continue
		}
		num.Mul(num, big.NewInt(int64(j)))
		den.Mul(den, big.NewInt(int64(j)-int64(i)))
	}
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		return nil, errNotExact
	}
	return q, nil
}

var errNotExact = schemeid.NewError(schemeid.ErrAssembleFailed, "sh00: Delta-scaled Lagrange coefficient not exact (party count mismatch)")

func mustScalar(rg *rsagrp.Group, v *big.Int) group.Scalar {
	neg := v.Sign() < 0
	abs := v
	if neg {
		abs = new(big.Int).Neg(v)
	}
	s, err := rg.ScalarFromBytes(abs.Bytes())
	if err != nil {
		panic(err)
	}
	if neg {
		s = s.Neg()
	}
	return s
}

type shareWire struct {
	Share           []byte
	Challenge, Resp []byte
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

func unmarshalShare(rg *rsagrp.Group, data []byte) (group.Element, *nizk.DLEQProof, error) {
	var w shareWire
	if err := wireutil.Unmarshal(data, &w); err != nil {
		return nil, nil, err
	}
	share, err := rg.ElementFromBytes(w.Share)
	if err != nil {
		return nil, nil, err
	}
	c, err := rg.ScalarFromBytes(w.Challenge)
	if err != nil {
		return nil, nil, err
	}
	resp, err := rg.ScalarFromBytes(w.Resp)
	if err != nil {
		return nil, nil, err
	}
	return share, &nizk.DLEQProof{Challenge: c, Response: resp}, nil
}

// extGCD returns (x, y, gcd) such that a*x + b*y = gcd.
func extGCD(a, b *big.Int) (*big.Int, *big.Int, *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldS, s := big.NewInt(1), big.NewInt(0)
	oldT, t := big.NewInt(0), big.NewInt(1)

	for r.Sign() != 0 {
		q := new(big.Int).Quo(oldR, r)

		oldR, r = r, new(big.Int).Sub(oldR, new(big.Int).Mul(q, r))
		oldS, s = s, new(big.Int).Sub(oldS, new(big.Int).Mul(q, s))
		oldT, t = t, new(big.Int).Sub(oldT, new(big.Int).Mul(q, t))
	}
	return oldS, oldT, oldR
}
