// Package rsagrp implements the RSA modular-integer group (spec §4.1):
// operations are all mod N, computed by plain big.Int exponentiation. A
// Group holds only N, not its factors, so no CRT acceleration is used. Unlike the elliptic-curve groups in
// pkg/group/ec, an RSA group's modulus N is generated per key by the
// trusted dealer (spec §1 Non-goals), so there is no single shared
// singleton per group.ID; every PublicKey of scheme SH00 carries its own
// *Group alongside the Rsa512/1024/2048/4096 tag.
//
// The dealer's own Shamir sharing of the secret exponent is done modulo
// phi(N)/4 (spec §4.3, SH00); ordinary parties never need phi(N) once they
// hold their share, since Shoup's combination formula (scaled by Delta =
// n!) reconstructs over the integers (see pkg/schemes/sh00).
package rsagrp

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/thetacrypt/thetacrypt-go/pkg/csprng"
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
)

// altGeneratorDomain mirrors pkg/group/ec's fixed derivation tag (spec §6).
const altGeneratorDomain = "thetacrypt_9f1c2e7a4b6d8053c1e7f2a9b4d60e31"

// Group is an RSA modular-integer group Z_N^*, tagged with the bit-length
// ID it was generated for.
type Group struct {
	gid    group.ID
	n      *big.Int
	byteLen int
	altGen *big.Int
	// order is phi(N)/4 when known to the holder (the dealer only); nil
	// otherwise. Ordinary key-share holders run with order == nil and must
	// not call scalar arithmetic that requires it.
	order *big.Int
}

// New wraps an already-generated RSA modulus n as a Group tagged gid.
// order may be nil if the caller (an ordinary party) does not know phi(N).
func New(gid group.ID, n *big.Int, order *big.Int) *Group {
	g := &Group{gid: gid, n: n, byteLen: (n.BitLen() + 7) / 8, order: order}
	g.altGen = hashToZN(n, []byte(altGeneratorDomain), []byte(gid.String()))
	return g
}

func bitsFor(gid group.ID) int {
	switch gid {
	case group.Rsa512:
		return 512
	case group.Rsa1024:
		return 1024
	case group.Rsa2048:
		return 2048
	case group.Rsa4096:
		return 4096
	default:
		return 0
	}
}

func (g *Group) ID() group.ID { return g.gid }

// Order returns phi(N)/4 if this Group instance was constructed with
// knowledge of the factorization (dealer-side); otherwise nil.
func (g *Group) Order() *big.Int { return g.order }

func (g *Group) Modulus() *big.Int { return g.n }

func (g *Group) Identity() group.Element {
	return &Element{gid: g.gid, n: g.n, v: big.NewInt(1)}
}

func (g *Group) Generator() group.Element {
	// A fixed, reproducible quadratic-residue generator: 4 is a square and
	// generates a subgroup of the same smooth structure Shoup's scheme
	// signs within.
	return &Element{gid: g.gid, n: g.n, v: big.NewInt(4)}
}

func (g *Group) AlternateGenerator() group.Element {
	return &Element{gid: g.gid, n: g.n, v: new(big.Int).Set(g.altGen)}
}

func (g *Group) RandomElement(r io.Reader) group.Element {
	v, err := randBelow(r, g.n)
	if err != nil {
		panic(fmt.Errorf("rsagrp: random element: %w", err))
	}
	return &Element{gid: g.gid, n: g.n, v: v}
}

func (g *Group) RandomScalar(r io.Reader) group.Scalar {
	bound := g.order
	if bound == nil {
		bound = g.n
	}
	v, err := randBelow(r, bound)
	if err != nil {
		panic(fmt.Errorf("rsagrp: random scalar: %w", err))
	}
	return &Scalar{gid: g.gid, order: g.order, v: v}
}

func (g *Group) NewScalar() group.Scalar {
	return &Scalar{gid: g.gid, order: g.order, v: big.NewInt(0)}
}

func (g *Group) ScalarFromBytes(b []byte) (group.Scalar, error) {
	return &Scalar{gid: g.gid, order: g.order, v: new(big.Int).SetBytes(b)}, nil
}

func (g *Group) ElementFromBytes(b []byte) (group.Element, error) {
	v := new(big.Int).SetBytes(b)
	if v.Cmp(g.n) >= 0 {
		return nil, fmt.Errorf("rsagrp: element out of range for modulus")
	}
	return &Element{gid: g.gid, n: g.n, v: v}, nil
}

func (g *Group) HashToGroup(domain, msg []byte) group.Element {
	return &Element{gid: g.gid, n: g.n, v: hashToZN(g.n, domain, msg)}
}

func (g *Group) IsPairingFriendly() bool { return false }

var _ group.Group = (*Group)(nil)

func hashToZN(n *big.Int, domain, msg []byte) *big.Int {
	h := sha256.New()
	h.Write(domain)
	h.Write([]byte{0})
	h.Write(msg)
	var seed [32]byte
	copy(seed[:], h.Sum(nil))
	v, err := randBelow(csprng.Deterministic(seed), n)
	if err != nil {
		panic(err)
	}
	return v
}

func randBelow(r io.Reader, bound *big.Int) (*big.Int, error) {
	byteLen := (bound.BitLen() + 7) / 8
	for {
		buf := make([]byte, byteLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		v := new(big.Int).SetBytes(buf)
		v.Mod(v, bound)
		if v.Sign() != 0 {
			return v, nil
		}
	}
}

// Element is an integer mod N.
type Element struct {
	gid group.ID
	n   *big.Int
	v   *big.Int
}

func (e *Element) Group() group.ID          { return e.gid }
func (e *Element) Subgroup() group.Subgroup { return group.SubgroupModular }

func (e *Element) Equal(other group.Element) bool {
	o, ok := other.(*Element)
	return ok && o.gid == e.gid && e.v.Cmp(o.v) == 0
}

func (e *Element) Mul(other group.Element) (group.Element, error) {
	o, ok := other.(*Element)
	if !ok || o.gid != e.gid {
		return nil, group.ErrInvalidSubgroup
	}
	v := new(big.Int).Mul(e.v, o.v)
	v.Mod(v, e.n)
	return &Element{e.gid, e.n, v}, nil
}

func (e *Element) Div(other group.Element) (group.Element, error) {
	o, ok := other.(*Element)
	if !ok || o.gid != e.gid {
		return nil, group.ErrInvalidSubgroup
	}
	inv := new(big.Int).ModInverse(o.v, e.n)
	if inv == nil {
		return nil, fmt.Errorf("rsagrp: element not invertible mod N")
	}
	v := new(big.Int).Mul(e.v, inv)
	v.Mod(v, e.n)
	return &Element{e.gid, e.n, v}, nil
}

func (e *Element) Pow(s group.Scalar) group.Element {
	rs := s.(*Scalar)
	exp := rs.v
	neg := exp.Sign() < 0
	if neg {
		exp = new(big.Int).Neg(exp)
	}
	v := new(big.Int).Exp(e.v, exp, e.n)
	if neg {
		v.ModInverse(v, e.n)
	}
	return &Element{e.gid, e.n, v}
}

func (e *Element) Neg() group.Element {
	inv := new(big.Int).ModInverse(e.v, e.n)
	return &Element{e.gid, e.n, inv}
}

func (e *Element) IsIdentity() bool {
	return e.v.Cmp(big.NewInt(1)) == 0
}

func (e *Element) MarshalBinary() ([]byte, error) {
	byteLen := (e.n.BitLen() + 7) / 8
	buf := make([]byte, byteLen)
	b := e.v.Bytes()
	copy(buf[byteLen-len(b):], b)
	return buf, nil
}

func (e *Element) UnmarshalBinary(b []byte) error {
	e.v = new(big.Int).SetBytes(b)
	return nil
}

// BigInt exposes the raw residue, for schemes (SH00) that need direct
// big.Int interop with crypto/rsa style exponentiation.
func (e *Element) BigInt() *big.Int { return new(big.Int).Set(e.v) }

var _ group.Element = (*Element)(nil)

// Scalar is an RSA exponent, optionally reduced modulo a known order
// (phi(N)/4, dealer-side only).
type Scalar struct {
	gid   group.ID
	order *big.Int
	v     *big.Int
}

func (s *Scalar) Group() group.ID { return s.gid }

func (s *Scalar) reduce(v *big.Int) *big.Int {
	if s.order != nil {
		v.Mod(v, s.order)
	}
	return v
}

func (s *Scalar) Add(other group.Scalar) group.Scalar {
	o := other.(*Scalar)
	v := s.reduce(new(big.Int).Add(s.v, o.v))
	return &Scalar{s.gid, s.order, v}
}

func (s *Scalar) Sub(other group.Scalar) group.Scalar {
	o := other.(*Scalar)
	v := s.reduce(new(big.Int).Sub(s.v, o.v))
	return &Scalar{s.gid, s.order, v}
}

func (s *Scalar) Mul(other group.Scalar) group.Scalar {
	o := other.(*Scalar)
	v := s.reduce(new(big.Int).Mul(s.v, o.v))
	return &Scalar{s.gid, s.order, v}
}

func (s *Scalar) Inv() group.Scalar {
	if s.order == nil {
		panic("rsagrp: Inv requires a known group order")
	}
	v := new(big.Int).ModInverse(s.v, s.order)
	return &Scalar{s.gid, s.order, v}
}

func (s *Scalar) Neg() group.Scalar {
	v := s.reduce(new(big.Int).Neg(s.v))
	return &Scalar{s.gid, s.order, v}
}

func (s *Scalar) Equal(other group.Scalar) bool {
	o, ok := other.(*Scalar)
	return ok && s.v.Cmp(o.v) == 0
}

func (s *Scalar) IsZero() bool { return s.v.Sign() == 0 }

func (s *Scalar) BigInt() *big.Int { return new(big.Int).Set(s.v) }

func (s *Scalar) MarshalBinary() ([]byte, error) { return s.v.Bytes(), nil }

func (s *Scalar) UnmarshalBinary(b []byte) error {
	s.v = new(big.Int).SetBytes(b)
	return nil
}

var _ group.Scalar = (*Scalar)(nil)
