package ec

import (
	"go.dedis.ch/kyber/v3/group/edwards25519"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
)

func init() {
	suite := edwards25519.NewBlakeSHA256Ed25519()
	group.Register(newBaseGroup(group.Ed25519, group.SubgroupPlain, suite, false))
}
