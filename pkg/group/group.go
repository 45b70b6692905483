// Package group abstracts the discrete-log groups and the RSA modular
// group used by the scheme library (spec §4.1). Three categories share one
// interface: pairing-friendly elliptic curves (BLS12-381, BN254), a plain
// elliptic curve (Ed25519), and RSA modular-integer groups. Callers never
// branch on the concrete implementation; they hold a Group and its Elements
// and Scalars.
package group

import (
	"fmt"
	"io"
	"math/big"
)

// ID is the wire-stable tag for a named group (spec §6). These integer
// values must never change.
type ID uint8

const (
	Bls12381 ID = 0
	Bn254    ID = 1
	Ed25519  ID = 2
	Rsa512   ID = 3
	Rsa1024  ID = 4
	Rsa2048  ID = 5
	Rsa4096  ID = 6
)

func (g ID) String() string {
	switch g {
	case Bls12381:
		return "Bls12381"
	case Bn254:
		return "Bn254"
	case Ed25519:
		return "Ed25519"
	case Rsa512:
		return "Rsa512"
	case Rsa1024:
		return "Rsa1024"
	case Rsa2048:
		return "Rsa2048"
	case Rsa4096:
		return "Rsa4096"
	default:
		return fmt.Sprintf("Group(%d)", uint8(g))
	}
}

// IsRSA reports whether the group is one of the modular-integer RSA groups.
func (g ID) IsRSA() bool {
	switch g {
	case Rsa512, Rsa1024, Rsa2048, Rsa4096:
		return true
	default:
		return false
	}
}

// IsPairingFriendly reports whether the group exposes G1/G2/GT and pairing.
func (g ID) IsPairingFriendly() bool {
	return g == Bls12381 || g == Bn254
}

// Subgroup distinguishes the internal variant an Element belongs to, so
// that operations can reject cross-subgroup mixing (spec §4.1).
type Subgroup uint8

const (
	SubgroupG1 Subgroup = iota
	SubgroupG2
	SubgroupGT
	SubgroupPlain
	SubgroupModular
)

func (s Subgroup) String() string {
	switch s {
	case SubgroupG1:
		return "G1"
	case SubgroupG2:
		return "G2"
	case SubgroupGT:
		return "GT"
	case SubgroupPlain:
		return "Plain"
	case SubgroupModular:
		return "Modular"
	default:
		return "Unknown"
	}
}

// ErrInvalidSubgroup is returned by Element operations when combining
// elements that belong to different subgroups or different groups.
var ErrInvalidSubgroup = fmt.Errorf("group: invalid subgroup combination")

// Scalar is an element of the group's scalar field, sized to the group's
// order (the ScalarField / SizedBigInt of spec §3).
type Scalar interface {
	Group() ID
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Inv() Scalar
	Neg() Scalar
	Equal(Scalar) bool
	IsZero() bool
	BigInt() *big.Int
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// Element is a member of a Group (a point on a curve, or an integer mod N).
type Element interface {
	Group() ID
	Subgroup() Subgroup
	Equal(Element) bool
	// Mul composes this element with other under the group operation.
	Mul(other Element) (Element, error)
	// Div composes this element with the inverse of other.
	Div(other Element) (Element, error)
	// Pow raises this element to the given scalar exponent.
	Pow(s Scalar) Element
	Neg() Element
	IsIdentity() bool
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// Group is the scheme-agnostic algebraic structure described in spec §4.1.
type Group interface {
	ID() ID
	// Order returns the order of the group (for RSA groups, the order used
	// for Shamir sharing of the secret exponent, i.e. phi(N)/4).
	Order() *big.Int
	Identity() Element
	Generator() Element
	// AlternateGenerator returns the second, independent generator derived
	// reproducibly by hash-to-group of a fixed domain string (spec §6).
	AlternateGenerator() Element
	RandomElement(rand io.Reader) Element
	RandomScalar(rand io.Reader) Scalar
	NewScalar() Scalar
	ScalarFromBytes(b []byte) (Scalar, error)
	ElementFromBytes(b []byte) (Element, error)
	// HashToGroup deterministically and uniformly maps msg to a group
	// element, domain-separated by domain. Must be reproducible across
	// nodes (spec §4.1).
	HashToGroup(domain, msg []byte) Element
	IsPairingFriendly() bool
}

// PairingGroup is implemented by pairing-friendly groups, which expose a
// second source group and a target group along with the pairing operation
// e(G2, G1) -> GT (spec §4.1).
type PairingGroup interface {
	Group
	G2() Group
	GT() Group
	// Pair computes e(a, b) where a is an element of this group's G1 (or
	// G2, depending on convention — see the concrete implementation doc
	// comment) and b of the other source group. Returns ErrInvalidSubgroup
	// if a or b belong to the wrong subgroup.
	Pair(a, b Element) (Element, error)
}

// registry maps a group ID to its singleton implementation. Populated by
// the group/ec and group/rsagrp packages' init() functions so that callers
// only need to import the groups they actually use.
var registry = map[ID]Group{}

// Register installs g under its own ID. Concrete group packages call this
// from an init() function.
func Register(g Group) {
	registry[g.ID()] = g
}

// Lookup returns the Group registered for id, or an error if no
// implementation of that group has been imported.
func Lookup(id ID) (Group, error) {
	g, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("group: no implementation registered for %s (missing import?)", id)
	}
	return g, nil
}
