// Package sg02 implements the SG02 threshold ElGamal + hybrid-AES cipher
// (spec §4.3): a Chaum-Pedersen NIZK binds the ElGamal randomness to the
// symmetric-key encapsulation, decryption shares carry their own
// equality-of-discrete-log proof, and assembly interpolates the shared
// secret in the exponent before unwrapping the AES-GCM payload.
package sg02

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/nizk"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/shamir"
	"github.com/thetacrypt/thetacrypt-go/pkg/wireutil"
)

// gcmNonceSize matches the size crypto/cipher.NewGCM expects; it is fixed to
// all-zero because the AES key it is used with is freshly random per
// ciphertext and never reused.
const gcmNonceSize = 12

// Ciphertext is the SG02 wire format: (c1, c2, label, u, u_bar, e, f).
type Ciphertext struct {
	C1    []byte // symmetric key XOR key-derivation output
	C2    []byte // AES-GCM(k, msg), AAD = label
	label []byte
	U     group.Element // g^r
	Ubar  group.Element // ghat^r
	Proof *nizk.DLEQProof
}

func (c *Ciphertext) Label() []byte { return c.label }

type wireCiphertext struct {
	C1, C2, Label   []byte
	U, Ubar         []byte
	Challenge, Resp []byte
}

func (c *Ciphertext) MarshalBinary() ([]byte, error) {
	ub, err := c.U.MarshalBinary()
	if err != nil {
		return nil, err
	}
	ubarb, err := c.Ubar.MarshalBinary()
	if err != nil {
		return nil, err
	}
	chb, err := c.Proof.Challenge.MarshalBinary()
	if err != nil {
		return nil, err
	}
	rb, err := c.Proof.Response.MarshalBinary()
	if err != nil {
		return nil, err
	}
	w := wireCiphertext{C1: c.C1, C2: c.C2, Label: c.label, U: ub, Ubar: ubarb, Challenge: chb, Resp: rb}
	return wireutil.Marshal(w)
}

// UnmarshalCiphertext reconstructs a Ciphertext from the bytes produced by
// MarshalBinary, resolving its group elements against pk's group.
func UnmarshalCiphertext(pk *keys.PublicKey, data []byte) (schemes.Ciphertext, error) {
	var w wireCiphertext
	if err := wireutil.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	g := pk.Group()
	u, err := g.ElementFromBytes(w.U)
	if err != nil {
		return nil, err
	}
	ubar, err := g.ElementFromBytes(w.Ubar)
	if err != nil {
		return nil, err
	}
	c, err := g.ScalarFromBytes(w.Challenge)
	if err != nil {
		return nil, err
	}
	resp, err := g.ScalarFromBytes(w.Resp)
	if err != nil {
		return nil, err
	}
	return &Ciphertext{
		C1: w.C1, C2: w.C2, label: w.Label, U: u, Ubar: ubar,
		Proof: &nizk.DLEQProof{Challenge: c, Response: resp},
	}, nil
}

// Scheme implements schemes.Cipher for SG02.
type Scheme struct{}

var _ schemes.Cipher = (*Scheme)(nil)

func (Scheme) Encrypt(pk *keys.PublicKey, label, msg []byte, rand io.Reader) (schemes.Ciphertext, error) {
	if pk.Scheme != schemeid.Sg02 {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "sg02: public key is not an SG02 key")
	}
	g := pk.Group()
	r := g.RandomScalar(rand)
	u := g.Generator().Pow(r)
	ubar := g.AlternateGenerator().Pow(r)

	ss := pk.Y.Pow(r) // shared secret element y^r
	key, err := deriveKey(ss, label)
	if err != nil {
		return nil, err
	}
	symKey := make([]byte, 32)
	if _, err := io.ReadFull(rand, symKey); err != nil {
		return nil, fmt.Errorf("sg02: sampling symmetric key: %w", err)
	}
	c1 := xorBytes(symKey, key)

	block, err := aes.NewCipher(symKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcmNonceSize) // safe: symKey is fresh per ciphertext
	c2 := gcm.Seal(nil, nonce, msg, label)

	challengeLabel := bytes.Join([][]byte{c1, label, mustBytes(u), mustBytes(ubar)}, nil)
	proof, err := nizk.Prove(g, rand, g.Generator(), u, g.AlternateGenerator(), ubar, r, challengeLabel)
	if err != nil {
		return nil, err
	}
	return &Ciphertext{C1: c1, C2: c2, label: label, U: u, Ubar: ubar, Proof: proof}, nil
}

func (Scheme) VerifyCiphertext(pk *keys.PublicKey, ctIface schemes.Ciphertext) (bool, error) {
	ct, ok := ctIface.(*Ciphertext)
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidInput, "sg02: not an SG02 ciphertext")
	}
	g := pk.Group()
	challengeLabel := bytes.Join([][]byte{ct.C1, ct.label, mustBytes(ct.U), mustBytes(ct.Ubar)}, nil)
	ok, err := nizk.Verify(g, ct.Proof, g.Generator(), ct.U, g.AlternateGenerator(), ct.Ubar, challengeLabel)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (Scheme) PartialDecrypt(sk *keys.PrivateKeyShare, ctIface schemes.Ciphertext, rand io.Reader) (*schemes.DecryptionShare, error) {
	ct, ok := ctIface.(*Ciphertext)
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "sg02: not an SG02 ciphertext")
	}
	share := ct.U.Pow(sk.X)
	yi, ok := sk.Pk.VerificationPoints[sk.ID]
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "sg02: missing verification point")
	}
	proof, err := nizk.Prove(sk.Pk.Group(), rand, sk.Pk.Group().Generator(), yi, ct.U, share, sk.X, ct.label)
	if err != nil {
		return nil, err
	}
	data, err := marshalShare(share, proof)
	if err != nil {
		return nil, err
	}
	return &schemes.DecryptionShare{ID: sk.ID, Data: data}, nil
}

func (Scheme) VerifyShare(pk *keys.PublicKey, ctIface schemes.Ciphertext, shareMsg *schemes.DecryptionShare) (bool, error) {
	ct, ok := ctIface.(*Ciphertext)
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidInput, "sg02: not an SG02 ciphertext")
	}
	g := pk.Group()
	share, proof, err := unmarshalShare(g, shareMsg.Data)
	if err != nil {
		return false, err
	}
	yi, ok := pk.VerificationPoints[shareMsg.ID]
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidShare, "sg02: unknown party id")
	}
	return nizk.Verify(g, proof, g.Generator(), yi, ct.U, share, ct.label)
}

func (Scheme) Assemble(pk *keys.PublicKey, ctIface schemes.Ciphertext, shareMsgs []*schemes.DecryptionShare) ([]byte, error) {
	ct, ok := ctIface.(*Ciphertext)
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "sg02: not an SG02 ciphertext")
	}
	if len(shareMsgs) < pk.K {
		return nil, schemeid.NewError(schemeid.ErrNotEnoughShares, "sg02: not enough shares to assemble")
	}
	g := pk.Group()
	shares := make(map[party.ID]group.Element, len(shareMsgs))
	for _, sm := range shareMsgs {
		share, _, err := unmarshalShare(g, sm.Data)
		if err != nil {
			return nil, err
		}
		shares[sm.ID] = share
	}
	ss, err := shamir.RecoverInExponent(g, shares)
	if err != nil {
		return nil, schemeid.NewError(schemeid.ErrAssembleFailed, err.Error())
	}
	key, err := deriveKey(ss, ct.label)
	if err != nil {
		return nil, err
	}
	symKey := xorBytes(ct.C1, key)
	block, err := aes.NewCipher(symKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcmNonceSize)
	msg, err := gcm.Open(nil, nonce, ct.C2, ct.label)
	if err != nil {
		return nil, schemeid.NewError(schemeid.ErrAssembleFailed, "sg02: AES-GCM open failed: "+err.Error())
	}
	return msg, nil
}

func deriveKey(ss group.Element, label []byte) ([]byte, error) {
	ssBytes, err := ss.MarshalBinary()
	if err != nil {
		return nil, err
	}
	hk := hkdf.New(sha256.New, ssBytes, label, []byte("thetacrypt-sg02"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i%len(b)]
	}
	return out
}

func mustBytes(e group.Element) []byte {
	b, _ := e.MarshalBinary()
	return b
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
