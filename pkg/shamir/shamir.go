// Package shamir implements Shamir secret sharing and Lagrange
// interpolation (spec §4.2), generic over any pkg/group.Group. The
// polynomial evaluation and interpolation strategy mirrors
// go.dedis.ch/kyber/v3/share's PriPoly/PubPoly (the corpus's own Shamir
// implementation), adapted to operate through the group.Scalar/group.Element
// interfaces so that it also works for the RSA modular group, which kyber's
// share package cannot express.
package shamir

import (
	"fmt"
	"io"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
)

// Polynomial is f(x) = a_0 + a_1*x + ... + a_{k-1}*x^{k-1}, with a_0 the
// shared secret.
type Polynomial struct {
	Group        group.Group
	Coefficients []group.Scalar
}

// NewPolynomial samples a degree-(threshold-1) polynomial with the given
// secret as its constant term. If secret is nil, a random one is used
// (useful for generating the auxiliary blinding polynomials of dealer-side
// protocols).
func NewPolynomial(g group.Group, threshold int, secret group.Scalar, rand io.Reader) *Polynomial {
	coeffs := make([]group.Scalar, threshold)
	if secret != nil {
		coeffs[0] = secret
	} else {
		coeffs[0] = g.RandomScalar(rand)
	}
	for i := 1; i < threshold; i++ {
		coeffs[i] = g.RandomScalar(rand)
	}
	return &Polynomial{Group: g, Coefficients: coeffs}
}

// Secret returns the polynomial's constant term.
func (p *Polynomial) Secret() group.Scalar {
	return p.Coefficients[0]
}

// Evaluate computes f(x) via Horner's method (spec §4.2).
func (p *Polynomial) Evaluate(x group.Scalar) group.Scalar {
	acc := p.Group.NewScalar()
	for i := len(p.Coefficients) - 1; i >= 0; i-- {
		acc = acc.Mul(x).Add(p.Coefficients[i])
	}
	return acc
}

// Shares evaluates the polynomial at every id in ids, returning s_i = f(i).
func (p *Polynomial) Shares(ids party.IDSlice) map[party.ID]group.Scalar {
	out := make(map[party.ID]group.Scalar, len(ids))
	for _, id := range ids {
		out[id] = p.Evaluate(idScalar(p.Group, id))
	}
	return out
}

// Commitments returns g^{a_j} for each coefficient a_j, used by verifiable
// secret sharing / Pedersen-style commitment checks.
func (p *Polynomial) Commitments() []group.Element {
	gen := p.Group.Generator()
	out := make([]group.Element, len(p.Coefficients))
	for i, a := range p.Coefficients {
		out[i] = gen.Pow(a)
	}
	return out
}

// idScalar converts a party.ID into its scalar representation x = ID,
// matching spec §4.2's "evaluate shares s_i = f(i)".
func idScalar(g group.Group, id party.ID) group.Scalar {
	return addUint64(g, g.NewScalar(), uint64(id))
}

func addUint64(g group.Group, base group.Scalar, v uint64) group.Scalar {
	one := oneScalar(g)
	acc := base
	for i := 0; i < 64; i++ {
		if v&1 == 1 {
			acc = acc.Add(shiftScalar(g, one, i))
		}
		v >>= 1
		if v == 0 {
			break
		}
	}
	return acc
}

func oneScalar(g group.Group) group.Scalar {
	zero := g.NewScalar()
	one := zero.Add(doublingOne(g))
	return one
}

// doublingOne obtains the scalar '1' by parsing the one-byte encoding
// []byte{1} through the group's ScalarFromBytes; it panics if the group
// rejects that encoding.
func doublingOne(g group.Group) group.Scalar {
	s, err := g.ScalarFromBytes([]byte{1})
	if err != nil {
		panic(fmt.Sprintf("shamir: group %s cannot represent the scalar 1: %v", g.ID(), err))
	}
	return s
}

func shiftScalar(g group.Group, one group.Scalar, bit int) group.Scalar {
	acc := one
	for i := 0; i < bit; i++ {
		acc = acc.Add(acc)
	}
	return acc
}

// LagrangeCoefficient computes lambda_i(S) = prod_{j in S, j != i} j/(j-i)
// mod q, the scalar-field Lagrange basis coefficient for party i given the
// set S (spec §4.2). Ties are broken by ascending i implicitly, since S is
// a set and the product is order-independent.
func LagrangeCoefficient(g group.Group, i party.ID, s party.IDSlice) (group.Scalar, error) {
	if !s.Contains(i) {
		return nil, fmt.Errorf("shamir: %d not in share set", i)
	}
	num := oneScalar(g)
	den := oneScalar(g)
	xi := idScalar(g, i)
	for _, j := range s {
		if j == i {
			continue
		}
		xj := idScalar(g, j)
		num = num.Mul(xj)
		den = den.Mul(xj.Sub(xi))
	}
	return num.Mul(den.Inv()), nil
}

// RecoverSecret interpolates f(0) = secret from k or more (id, share)
// pairs.
func RecoverSecret(g group.Group, shares map[party.ID]group.Scalar) (group.Scalar, error) {
	ids := make([]party.ID, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	s := party.NewIDSlice(ids)
	acc := g.NewScalar()
	for _, id := range s {
		lambda, err := LagrangeCoefficient(g, id, s)
		if err != nil {
			return nil, err
		}
		acc = acc.Add(shares[id].Mul(lambda))
	}
	return acc, nil
}

// RecoverInExponent reconstructs a group element h = g^{f(0)} from shares
// of the form h_i = g^{f(i)}, i.e. exponent-form Lagrange interpolation:
// prod h_i^{lambda_i(S)} (spec §4.2). This is the form used by
// verify/assemble in the non-interactive decryption, signature and coin
// schemes, where individual parties never reveal f(i) itself.
func RecoverInExponent(g group.Group, shares map[party.ID]group.Element) (group.Element, error) {
	ids := make([]party.ID, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	s := party.NewIDSlice(ids)
	acc := g.Identity()
	for _, id := range s {
		lambda, err := LagrangeCoefficient(g, id, s)
		if err != nil {
			return nil, err
		}
		term := shares[id].Pow(lambda)
		var mulErr error
		acc, mulErr = acc.Mul(term)
		if mulErr != nil {
			return nil, fmt.Errorf("shamir: recover in exponent: %w", mulErr)
		}
	}
	return acc, nil
}
