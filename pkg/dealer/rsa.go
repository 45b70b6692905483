package dealer

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/group/rsagrp"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/shamir"
)

var rsaBits = map[group.ID]int{
	group.Rsa512:  512,
	group.Rsa1024: 1024,
	group.Rsa2048: 2048,
	group.Rsa4096: 4096,
}

// GenerateSH00Keys runs SH00's trusted-dealer keygen (spec §4.3): sample two
// safe primes p = 2p'+1, q = 2q'+1, set N = pq, share the RSA private
// exponent d = e^-1 mod p'q' via Shamir modulo p'q', and publish each
// party's verification point v_i = v^{x_i} mod N (original_source's
// rsa_schemes/keygen.rs).
func GenerateSH00Keys(grp group.ID, n, k int, rand io.Reader) ([]*keys.PrivateKeyShare, error) {
	bits, ok := rsaBits[grp]
	if !ok {
		return nil, fmt.Errorf("dealer: %s is not an RSA group", grp)
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("dealer: invalid threshold %d for %d parties", k, n)
	}

	e := new(big.Int).Set(publicExponent)
	var p, pPrime, q, qPrime, modulus, m *big.Int
	for {
		var err error
		p, pPrime, err = genSafePrime(rand, bits/2)
		if err != nil {
			return nil, fmt.Errorf("dealer: generating p: %w", err)
		}
		q, qPrime, err = genSafePrime(rand, bits/2)
		if err != nil {
			return nil, fmt.Errorf("dealer: generating q: %w", err)
		}
		if p.Cmp(q) == 0 {
			continue
		}
		if new(big.Int).Mod(pPrime, e).Sign() == 0 || new(big.Int).Mod(qPrime, e).Sign() == 0 {
			continue // e must stay coprime to phi(N)/4 = p'q'
		}
		modulus = new(big.Int).Mul(p, q)
		m = new(big.Int).Mul(pPrime, qPrime)
		break
	}

	d := new(big.Int).ModInverse(e, m)
	if d == nil {
		return nil, fmt.Errorf("dealer: public exponent not invertible mod p'q'")
	}

	// dealerGroup knows m and is used only to Shamir-share d; it is never
	// attached to a PublicKey, so phi(N) never reaches a party's key material.
	dealerGroup := rsagrp.New(grp, modulus, m)
	dScalar, err := dealerGroup.ScalarFromBytes(d.Bytes())
	if err != nil {
		return nil, err
	}
	poly := shamir.NewPolynomial(dealerGroup, k, dScalar, rand)

	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}
	idSlice := party.NewIDSlice(ids)
	dealerShares := poly.Shares(idSlice)

	// publicGroup carries no order, so it is safe to embed in every party's
	// PublicKey: its arithmetic is mod N only, never mod phi(N).
	publicGroup := rsagrp.New(grp, modulus, nil)
	v := publicGroup.Generator()

	xShares := make(map[party.ID]group.Scalar, n)
	for _, id := range ids {
		xi, err := publicGroup.ScalarFromBytes(dealerShares[id].BigInt().Bytes())
		if err != nil {
			return nil, err
		}
		xShares[id] = xi
	}
	verification, err := computeVerificationPoints(v, xShares)
	if err != nil {
		return nil, err
	}

	pk := keys.NewPublicKey(schemeid.Sh00, publicGroup, n, k, v, verification)
	out := make([]*keys.PrivateKeyShare, n)
	for i, id := range ids {
		out[i] = &keys.PrivateKeyShare{ID: id, Scheme: schemeid.Sh00, Grp: grp, X: xShares[id], Pk: pk}
	}
	return out, nil
}

// publicExponent mirrors sh00.PublicExponent; duplicated here (rather than
// imported) to keep pkg/dealer from depending on pkg/schemes/sh00 for a
// single constant.
var publicExponent = big.NewInt(65537)

// genSafePrime samples a safe prime p = 2p'+1 with p' prime and p of the
// given bit length.
func genSafePrime(r io.Reader, bits int) (p, pPrime *big.Int, err error) {
	for {
		pPrime, err = rand.Prime(r, bits-1)
		if err != nil {
			return nil, nil, err
		}
		p = new(big.Int).Lsh(pPrime, 1)
		p.Add(p, big.NewInt(1))
		if p.ProbablyPrime(20) {
			return p, pPrime, nil
		}
	}
}
