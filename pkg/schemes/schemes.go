// Package schemes declares the capability interfaces implemented by each
// threshold primitive in the scheme library (spec §4.3): Cipher for
// threshold encryption (SG02, BZ03), Signature for the non-interactive
// threshold signatures (BLS04, SH00), and Coin for the threshold common coin
// (CKS05). FROST implements none of them; it is driven through the package
// functions of pkg/schemes/frost.
//
// It depends on pkg/keys (for PublicKey/PrivateKeyShare) and pkg/schemeid
// (for the scheme tag); pkg/keys does not import this package, which is what
// keeps this package's dependency on keys from forming a cycle.
package schemes

import (
	"io"

	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
)

// Ciphertext is produced by Cipher.Encrypt and consumed by every other
// Cipher method. Concrete schemes define their own wire layout behind this
// interface (spec §4.3).
type Ciphertext interface {
	Label() []byte
	MarshalBinary() ([]byte, error)
}

// DecryptionShare is one party's partial decryption of a Ciphertext.
type DecryptionShare struct {
	ID   party.ID
	Data []byte
}

// Cipher is the threshold-encryption capability (SG02, BZ03).
type Cipher interface {
	Encrypt(pk *keys.PublicKey, label, msg []byte, rand io.Reader) (Ciphertext, error)
	VerifyCiphertext(pk *keys.PublicKey, ct Ciphertext) (bool, error)
	PartialDecrypt(sk *keys.PrivateKeyShare, ct Ciphertext, rand io.Reader) (*DecryptionShare, error)
	VerifyShare(pk *keys.PublicKey, ct Ciphertext, share *DecryptionShare) (bool, error)
	Assemble(pk *keys.PublicKey, ct Ciphertext, shares []*DecryptionShare) ([]byte, error)
}

// SignatureShare is one party's partial signature.
type SignatureShare struct {
	ID   party.ID
	Data []byte
}

// Signature is the non-interactive threshold-signature capability (BLS04,
// SH00). FROST does not implement it; its two rounds are exposed as package
// functions in pkg/schemes/frost.
type Signature interface {
	PartialSign(sk *keys.PrivateKeyShare, msg []byte, rand io.Reader) (*SignatureShare, error)
	VerifyShare(pk *keys.PublicKey, msg []byte, share *SignatureShare) (bool, error)
	Assemble(pk *keys.PublicKey, msg []byte, shares []*SignatureShare) ([]byte, error)
	VerifySignature(pk *keys.PublicKey, msg, sig []byte) (bool, error)
}

// CoinShare is one party's partial evaluation of a common coin.
type CoinShare struct {
	ID   party.ID
	Data []byte
}

// Coin is the threshold-common-coin capability (CKS05).
type Coin interface {
	CreateShare(sk *keys.PrivateKeyShare, label []byte, rand io.Reader) (*CoinShare, error)
	VerifyShare(pk *keys.PublicKey, label []byte, share *CoinShare) (bool, error)
	Assemble(pk *keys.PublicKey, label []byte, shares []*CoinShare) (bool, error)
}
