package ec

import (
	"go.dedis.ch/kyber/v3/pairing/bn256"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
)

func init() {
	group.Register(newPairingGroup(group.Bn254, bn256.NewSuite()))
}
