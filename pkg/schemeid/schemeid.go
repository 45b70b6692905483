// Package schemeid defines the threshold scheme catalog (spec §3, §4.3): the
// wire-stable scheme tags, their operation class, and the group
// compatibility table. It is kept separate from pkg/schemes (which defines
// the Cipher/Signature/Coin capability interfaces) so that pkg/keys can
// depend on the tag type without creating an import cycle with the scheme
// implementations.
package schemeid

import "github.com/thetacrypt/thetacrypt-go/pkg/group"

// ID is the wire-stable scheme tag (spec §6). These integer values must
// never change.
type ID uint8

const (
	Bz03  ID = 0
	Sg02  ID = 1
	Bls04 ID = 2
	Cks05 ID = 3
	Frost ID = 4
	Sh00  ID = 5
)

func (s ID) String() string {
	switch s {
	case Bz03:
		return "Bz03"
	case Sg02:
		return "Sg02"
	case Bls04:
		return "Bls04"
	case Cks05:
		return "Cks05"
	case Frost:
		return "Frost"
	case Sh00:
		return "Sh00"
	default:
		return "Unknown"
	}
}

// Class groups schemes by the operation they perform, used by the
// keychain's per-operation default selection (spec §3 "operation class").
type Class uint8

const (
	ClassEncryption Class = iota
	ClassSignature
	ClassCoin
)

// Class returns the operation class this scheme ID belongs to.
func (s ID) Class() Class {
	switch s {
	case Sg02, Bz03:
		return ClassEncryption
	case Bls04, Frost, Sh00:
		return ClassSignature
	case Cks05:
		return ClassCoin
	default:
		panic("schemes: unknown scheme id")
	}
}

// IsInteractive reports whether the scheme requires more than one network
// round (spec §3: only FROST is interactive).
func (s ID) IsInteractive() bool { return s == Frost }

// ConsumesPrecomputation reports whether signing instances of this scheme
// draw from the keychain's precomputation pool (spec §3, §4.4: FROST only).
func (s ID) ConsumesPrecomputation() bool { return s == Frost }

// CompatibleGroups lists the groups each scheme may operate over (spec §3).
func (s ID) CompatibleGroups() []group.ID {
	switch s {
	case Sg02:
		return []group.ID{group.Bls12381, group.Bn254, group.Ed25519}
	case Bz03:
		return []group.ID{group.Bls12381, group.Bn254}
	case Bls04:
		return []group.ID{group.Bls12381, group.Bn254}
	case Frost:
		return []group.ID{group.Bls12381, group.Bn254, group.Ed25519}
	case Cks05:
		return []group.ID{group.Bls12381, group.Bn254, group.Ed25519}
	case Sh00:
		return []group.ID{group.Rsa512, group.Rsa1024, group.Rsa2048, group.Rsa4096}
	default:
		return nil
	}
}

// SupportsGroup reports whether g is a compatible group for this scheme.
func (s ID) SupportsGroup(g group.ID) bool {
	for _, c := range s.CompatibleGroups() {
		if c == g {
			return true
		}
	}
	return false
}

// Error kinds shared by every scheme implementation (spec §4.3 "Error
// conditions uniform across schemes").
type ErrorKind uint8

const (
	ErrInvalidInput ErrorKind = iota
	ErrInvalidShare
	ErrInvalidCiphertext
	ErrNotEnoughShares
	ErrAssembleFailed
)

// Error is the uniform scheme-level error type.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}
