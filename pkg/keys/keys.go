// Package keys defines the PublicKey and PrivateKeyShare data model of
// spec §3.
package keys

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec" // registers Bls12381/Bn254/Ed25519
	"github.com/thetacrypt/thetacrypt-go/pkg/group/rsagrp"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
)

// Fingerprint is the SHA-256 digest of a PublicKey's canonical
// serialization, used as its keychain identity (spec §3, Glossary).
type Fingerprint [sha256.Size]byte

func (f Fingerprint) String() string {
	return fmt.Sprintf("%x", f[:])
}

// PublicKey is the immutable, scheme- and group-tagged group public key
// shared by every party's PrivateKeyShare.
type PublicKey struct {
	Scheme schemeid.ID
	Grp    group.ID
	N      int // number of parties
	K      int // threshold

	Y                  group.Element            // group public element y = g^s
	VerificationPoints map[party.ID]group.Element // y_i = g^{x_i} for i in 1..N

	// rsaModulus carries N for RSA groups, whose Group instance cannot be
	// resolved from Grp alone (see pkg/group/rsagrp doc comment).
	rsaModulus []byte
	grpImpl    group.Group
}

// NewPublicKey constructs a PublicKey over the concrete Group implementation
// grp supplied by the caller, which it stores as is (for RSA groups it also
// records the modulus). Resolution of a group through the global registry
// happens only when a PublicKey is unmarshalled.
func NewPublicKey(scheme schemeid.ID, grp group.Group, n, k int, y group.Element, verification map[party.ID]group.Element) *PublicKey {
	pk := &PublicKey{
		Scheme:             scheme,
		Grp:                grp.ID(),
		N:                  n,
		K:                  k,
		Y:                  y,
		VerificationPoints: verification,
		grpImpl:            grp,
	}
	if rg, ok := grp.(*rsagrp.Group); ok {
		pk.rsaModulus = rg.Modulus().Bytes()
	}
	return pk
}

// Group returns this key's concrete group implementation.
func (pk *PublicKey) Group() group.Group { return pk.grpImpl }

type pkWire struct {
	Scheme       uint8
	Grp          uint8
	N, K         int
	Y            []byte
	Verification map[uint32][]byte
	RSAModulus   []byte `cbor:",omitempty"`
}

// canonicalBytes produces the deterministic serialization that both
// fingerprinting and the keychain file format (spec §6) are defined over.
func (pk *PublicKey) canonicalBytes() ([]byte, error) {
	yb, err := pk.Y.MarshalBinary()
	if err != nil {
		return nil, err
	}
	verif := make(map[uint32][]byte, len(pk.VerificationPoints))
	for id, p := range pk.VerificationPoints {
		b, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		verif[uint32(id)] = b
	}
	w := pkWire{
		Scheme:       uint8(pk.Scheme),
		Grp:          uint8(pk.Grp),
		N:            pk.N,
		K:            pk.K,
		Y:            yb,
		Verification: verif,
		RSAModulus:   pk.rsaModulus,
	}
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return mode.Marshal(w)
}

// Fingerprint computes the SHA-256 digest of the canonical serialization
// (spec §3, §8 property 6: stable under serialize/deserialize round-trips).
func (pk *PublicKey) Fingerprint() (Fingerprint, error) {
	b, err := pk.canonicalBytes()
	if err != nil {
		return Fingerprint{}, err
	}
	return sha256.Sum256(b), nil
}

// MarshalBinary implements the keychain file format's per-entry codec.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	return pk.canonicalBytes()
}

// UnmarshalPublicKey reconstructs a PublicKey from its canonical bytes,
// resolving the concrete group implementation for Grp.
func UnmarshalPublicKey(b []byte) (*PublicKey, error) {
	var w pkWire
	if err := cbor.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("keys: unmarshal public key: %w", err)
	}
	gid := group.ID(w.Grp)
	g, grpErr := resolveGroup(gid, w.RSAModulus)
	if grpErr != nil {
		return nil, grpErr
	}
	y, err := g.ElementFromBytes(w.Y)
	if err != nil {
		return nil, fmt.Errorf("keys: unmarshal y: %w", err)
	}
	verification := make(map[party.ID]group.Element, len(w.Verification))
	for id, data := range w.Verification {
		p, err := g.ElementFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("keys: unmarshal verification point %d: %w", id, err)
		}
		verification[party.ID(id)] = p
	}
	return &PublicKey{
		Scheme:             schemeid.ID(w.Scheme),
		Grp:                gid,
		N:                  w.N,
		K:                  w.K,
		Y:                  y,
		VerificationPoints: verification,
		rsaModulus:         w.RSAModulus,
		grpImpl:            g,
	}, nil
}

func resolveGroup(gid group.ID, rsaModulus []byte) (group.Group, error) {
	if gid.IsRSA() {
		if len(rsaModulus) == 0 {
			return nil, fmt.Errorf("keys: RSA public key missing modulus")
		}
		n := new(big.Int).SetBytes(rsaModulus)
		return rsagrp.New(gid, n, nil), nil
	}
	return group.Lookup(gid)
}

// PrivateKeyShare is a single party's share of a PublicKey's secret (spec
// §3). Two shares of the same PublicKey at the same id are equal.
type PrivateKeyShare struct {
	ID     party.ID
	Scheme schemeid.ID
	Grp    group.ID
	X      group.Scalar
	Pk     *PublicKey
}

// Equal reports whether two shares carry the same id and belong to the same
// public key (by fingerprint), per spec §3's keychain dedupe invariant.
func (s *PrivateKeyShare) Equal(other *PrivateKeyShare) bool {
	if s.ID != other.ID {
		return false
	}
	f1, err1 := s.Pk.Fingerprint()
	f2, err2 := other.Pk.Fingerprint()
	return err1 == nil && err2 == nil && f1 == f2
}
