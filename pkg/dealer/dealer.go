// Package dealer implements the trusted-dealer key generation spec.md §1
// assumes but leaves unspecified ("keys are produced by a trusted dealer"):
// one process samples a Shamir-shared secret (or, for SH00, an RSA modulus
// and its shared private exponent) and returns one keys.PrivateKeyShare per
// party, all pointing at a shared keys.PublicKey. Mirrors
// original_source's protocols/src/bin/keygen.rs (group-based schemes) and
// core/schemes/src/rsa_schemes/keygen.rs (SH00).
package dealer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/pool"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/shamir"
)

// GenerateGroupKeys runs trusted-dealer keygen for any scheme whose secret
// lives in a pkg/group.Group (SG02, BZ03, BLS04, FROST, CKS05): sample a
// degree-(k-1) polynomial, evaluate it at party ids 1..n, and publish
// y = g^secret plus each party's verification point g^{x_i}.
func GenerateGroupKeys(scheme schemeid.ID, grp group.ID, n, k int, rand io.Reader) ([]*keys.PrivateKeyShare, error) {
	if !scheme.SupportsGroup(grp) {
		return nil, fmt.Errorf("dealer: scheme %s does not support group %s", scheme, grp)
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("dealer: invalid threshold %d for %d parties", k, n)
	}
	g, err := group.Lookup(grp)
	if err != nil {
		return nil, err
	}

	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}
	idSlice := party.NewIDSlice(ids)

	poly := shamir.NewPolynomial(g, k, nil, rand)
	shares := poly.Shares(idSlice)

	y := g.Generator().Pow(poly.Secret())
	verification, err := computeVerificationPoints(g.Generator(), shares)
	if err != nil {
		return nil, err
	}
	pk := keys.NewPublicKey(scheme, g, n, k, y, verification)

	out := make([]*keys.PrivateKeyShare, n)
	for i, id := range ids {
		out[i] = &keys.PrivateKeyShare{ID: id, Scheme: scheme, Grp: grp, X: shares[id], Pk: pk}
	}
	return out, nil
}

// computeVerificationPoints computes base.Pow(x) for every share, fanned out
// on the bounded crypto worker pool (spec §5): the n exponentiations are
// independent, so n parties' worth of keygen no longer serializes behind a
// single core the way a plain loop would.
func computeVerificationPoints(base group.Element, shares map[party.ID]group.Scalar) (map[party.ID]group.Element, error) {
	out := make(map[party.ID]group.Element, len(shares))
	var mu sync.Mutex
	p := pool.New(0)
	fns := make([]func() error, 0, len(shares))
	for id, s := range shares {
		id, s := id, s
		fns = append(fns, func() error {
			v := base.Pow(s)
			mu.Lock()
			out[id] = v
			mu.Unlock()
			return nil
		})
	}
	if err := pool.Parallel(context.Background(), p, fns...); err != nil {
		return nil, fmt.Errorf("dealer: computing verification points: %w", err)
	}
	return out, nil
}
