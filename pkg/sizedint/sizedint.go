// Package sizedint implements the ScalarField / SizedBigInt abstraction of
// spec §3: a big integer sized to a fixed modulus, with constant-time
// serialization. It is a thin convenience layer over
// github.com/cronokirby/saferith's Nat/Modulus types, which the teacher
// library already depends on for its own modular arithmetic (see
// protocols/lss/sign/sign.go).
package sizedint

import (
	"math/big"

	"github.com/cronokirby/saferith"
)

// SizedBigInt is a big integer reduced modulo a fixed Modulus, serialized to
// a fixed-width byte string regardless of its numeric value (constant-time
// with respect to the value, not the modulus).
type SizedBigInt struct {
	modulus *saferith.Modulus
	nat     *saferith.Nat
	size    int // byte length of the modulus, i.e. the fixed wire width
}

// NewModulus wraps n as a saferith.Modulus usable to construct SizedBigInts.
func NewModulus(n *big.Int) *saferith.Modulus {
	return saferith.ModulusFromNat(new(saferith.Nat).SetBig(n, n.BitLen()))
}

// FromBigInt reduces v modulo the given modulus and sizes it to byteLen
// bytes.
func FromBigInt(v *big.Int, modulus *saferith.Modulus, byteLen int) *SizedBigInt {
	nat := new(saferith.Nat).SetBig(v, v.BitLen())
	nat.Mod(nat, modulus)
	return &SizedBigInt{modulus: modulus, nat: nat, size: byteLen}
}

// Add returns (s + other) mod modulus.
func (s *SizedBigInt) Add(other *SizedBigInt) *SizedBigInt {
	out := new(saferith.Nat).ModAdd(s.nat, other.nat, s.modulus)
	return &SizedBigInt{modulus: s.modulus, nat: out, size: s.size}
}

// Mul returns (s * other) mod modulus.
func (s *SizedBigInt) Mul(other *SizedBigInt) *SizedBigInt {
	out := new(saferith.Nat).ModMul(s.nat, other.nat, s.modulus)
	return &SizedBigInt{modulus: s.modulus, nat: out, size: s.size}
}

// Exp returns s^e mod modulus.
func (s *SizedBigInt) Exp(e *SizedBigInt) *SizedBigInt {
	out := s.nat.Exp(s.nat, e.nat, s.modulus)
	return &SizedBigInt{modulus: s.modulus, nat: out, size: s.size}
}

// BigInt returns the value as a standard library big.Int.
func (s *SizedBigInt) BigInt() *big.Int {
	return s.nat.Big()
}

// Bytes serializes the value to a fixed-width, constant-time encoding.
func (s *SizedBigInt) Bytes() []byte {
	return s.nat.Bytes()
}

// Equal reports whether the two values are numerically equal modulo the
// same modulus.
func (s *SizedBigInt) Equal(other *SizedBigInt) bool {
	return s.nat.Eq(other.nat) == 1
}
