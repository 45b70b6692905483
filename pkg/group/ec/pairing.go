package ec

import (
	"go.dedis.ch/kyber/v3/pairing"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
)

// pairingGroup implements group.PairingGroup. By convention the group
// itself (embedded *baseGroup) represents G1 — where public keys,
// verification points and BZ03's ciphertext randomness u live — while G2()
// and GT() expose the companion subgroups (BZ03 decryption shares and BLS04
// message hashes and signature shares live in G2).
type pairingGroup struct {
	*baseGroup
	g2 *baseGroup
	gt *baseGroup
	s  pairing.Suite
}

func newPairingGroup(gid group.ID, s pairing.Suite) *pairingGroup {
	return &pairingGroup{
		baseGroup: newBaseGroup(gid, group.SubgroupG1, s.G1(), true),
		g2:        newBaseGroup(gid, group.SubgroupG2, s.G2(), true),
		gt:        newBaseGroup(gid, group.SubgroupGT, s.GT(), true),
		s:         s,
	}
}

func (p *pairingGroup) G2() group.Group { return p.g2 }
func (p *pairingGroup) GT() group.Group { return p.gt }

// Pair computes e(a, b). One operand must belong to G1 and the other to G2,
// in either order; the result is always tagged G2 x G1 -> GT.
func (p *pairingGroup) Pair(a, b group.Element) (group.Element, error) {
	ea, aok := a.(*element)
	eb, bok := b.(*element)
	if !aok || !bok {
		return nil, group.ErrInvalidSubgroup
	}
	var g1e, g2e *element
	switch {
	case ea.sub == group.SubgroupG1 && eb.sub == group.SubgroupG2:
		g1e, g2e = ea, eb
	case ea.sub == group.SubgroupG2 && eb.sub == group.SubgroupG1:
		g1e, g2e = eb, ea
	default:
		return nil, group.ErrInvalidSubgroup
	}
	result := p.s.Pair(g2e.p, g1e.p)
	return &element{p.gid, group.SubgroupGT, p.gt.kg, result}, nil
}
