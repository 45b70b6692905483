// Package bz03 implements the BZ03 pairing-based threshold ElGamal cipher
// (spec §4.3): pairing-friendly groups only. The ciphertext carries
// u = g^r in G1 and H = H(label)^r in G2; its validity check is the
// pairing equality e(u, H(label)) = e(g, H). Decryption shares are
// H^{x_i} in G2, each bound to the party's verification point by a
// Chaum-Pedersen equality-of-discrete-log proof (the "DDH proof").
package bz03

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
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

const (
	hashDomain   = "thetacrypt-bz03-H"
	gcmNonceSize = 12
)

// Ciphertext is the BZ03 wire format: (c2, label, u, H).
type Ciphertext struct {
	C2    []byte
	label []byte
	U     group.Element // g^r, G1
	H     group.Element // H(label)^r, G2
}

func (c *Ciphertext) Label() []byte { return c.label }

type wireCiphertext struct {
	C2, Label []byte
	U, H      []byte
}

func (c *Ciphertext) MarshalBinary() ([]byte, error) {
	ub, err := c.U.MarshalBinary()
	if err != nil {
		return nil, err
	}
	hb, err := c.H.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wireutil.Marshal(wireCiphertext{C2: c.C2, Label: c.label, U: ub, H: hb})
}

// UnmarshalCiphertext reconstructs a Ciphertext from the bytes produced by
// MarshalBinary: U resolves against pk's G1 base group, H against its G2
// companion subgroup.
func UnmarshalCiphertext(pk *keys.PublicKey, data []byte) (schemes.Ciphertext, error) {
	var w wireCiphertext
	if err := wireutil.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	pg, err := pairingGroupOf(pk.Group())
	if err != nil {
		return nil, err
	}
	u, err := pg.ElementFromBytes(w.U)
	if err != nil {
		return nil, err
	}
	h, err := pg.G2().ElementFromBytes(w.H)
	if err != nil {
		return nil, err
	}
	return &Ciphertext{C2: w.C2, label: w.Label, U: u, H: h}, nil
}

// Scheme implements schemes.Cipher for BZ03.
type Scheme struct{}

var _ schemes.Cipher = (*Scheme)(nil)

func pairingGroupOf(g group.Group) (group.PairingGroup, error) {
	pg, ok := g.(group.PairingGroup)
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "bz03: group is not pairing-friendly")
	}
	return pg, nil
}

func (Scheme) Encrypt(pk *keys.PublicKey, label, msg []byte, rand io.Reader) (schemes.Ciphertext, error) {
	pg, err := pairingGroupOf(pk.Group())
	if err != nil {
		return nil, err
	}
	r := pg.RandomScalar(rand)
	u := pg.Generator().Pow(r)
	hlabel := pg.G2().HashToGroup([]byte(hashDomain), label)
	h := hlabel.Pow(r)

	// e(y, H) = e(g, H(label))^{rs}, the same value Assemble
	// reconstructs as e(g, assembled share).
	shared, err := pg.Pair(pk.Y, h)
	if err != nil {
		return nil, err
	}
	key, err := deriveKey(shared, label)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcmNonceSize)
	c2 := gcm.Seal(nil, nonce, msg, label)
	return &Ciphertext{C2: c2, label: label, U: u, H: h}, nil
}

func (Scheme) VerifyCiphertext(pk *keys.PublicKey, ctIface schemes.Ciphertext) (bool, error) {
	ct, ok := ctIface.(*Ciphertext)
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidInput, "bz03: not a BZ03 ciphertext")
	}
	pg, err := pairingGroupOf(pk.Group())
	if err != nil {
		return false, err
	}
	hlabel := pg.G2().HashToGroup([]byte(hashDomain), ct.label)
	lhs, err := pg.Pair(ct.U, hlabel)
	if err != nil {
		return false, err
	}
	rhs, err := pg.Pair(pg.Generator(), ct.H)
	if err != nil {
		return false, err
	}
	return lhs.Equal(rhs), nil
}

func (Scheme) PartialDecrypt(sk *keys.PrivateKeyShare, ctIface schemes.Ciphertext, rand io.Reader) (*schemes.DecryptionShare, error) {
	ct, ok := ctIface.(*Ciphertext)
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "bz03: not a BZ03 ciphertext")
	}
	share := ct.H.Pow(sk.X)
	yi, ok := sk.Pk.VerificationPoints[sk.ID]
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "bz03: missing verification point")
	}
	g := sk.Pk.Group()
	proof, err := nizk.Prove(g, rand, g.Generator(), yi, ct.H, share, sk.X, ct.label)
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
		return false, schemeid.NewError(schemeid.ErrInvalidInput, "bz03: not a BZ03 ciphertext")
	}
	pg, err := pairingGroupOf(pk.Group())
	if err != nil {
		return false, err
	}
	share, proof, err := unmarshalShare(pg.G2(), shareMsg.Data)
	if err != nil {
		return false, err
	}
	yi, ok := pk.VerificationPoints[shareMsg.ID]
	if !ok {
		return false, schemeid.NewError(schemeid.ErrInvalidShare, "bz03: unknown party id")
	}
	return nizk.Verify(pg, proof, pg.Generator(), yi, ct.H, share, ct.label)
}

func (Scheme) Assemble(pk *keys.PublicKey, ctIface schemes.Ciphertext, shareMsgs []*schemes.DecryptionShare) ([]byte, error) {
	ct, ok := ctIface.(*Ciphertext)
	if !ok {
		return nil, schemeid.NewError(schemeid.ErrInvalidInput, "bz03: not a BZ03 ciphertext")
	}
	if len(shareMsgs) < pk.K {
		return nil, schemeid.NewError(schemeid.ErrNotEnoughShares, "bz03: not enough shares to assemble")
	}
	pg, err := pairingGroupOf(pk.Group())
	if err != nil {
		return nil, err
	}
	g2 := pg.G2()
	shares := make(map[party.ID]group.Element, len(shareMsgs))
	for _, sm := range shareMsgs {
		share, _, err := unmarshalShare(g2, sm.Data)
		if err != nil {
			return nil, err
		}
		shares[sm.ID] = share
	}
	assembled, err := shamir.RecoverInExponent(g2, shares)
	if err != nil {
		return nil, schemeid.NewError(schemeid.ErrAssembleFailed, err.Error())
	}
	shared, err := pg.Pair(pg.Generator(), assembled)
	if err != nil {
		return nil, err
	}
	key, err := deriveKey(shared, ct.label)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
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
		return nil, schemeid.NewError(schemeid.ErrAssembleFailed, "bz03: AES-GCM open failed: "+err.Error())
	}
	return msg, nil
}

func deriveKey(shared group.Element, label []byte) ([]byte, error) {
	b, err := shared.MarshalBinary()
	if err != nil {
		return nil, err
	}
	hk := hkdf.New(sha256.New, b, label, []byte("thetacrypt-bz03"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
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
