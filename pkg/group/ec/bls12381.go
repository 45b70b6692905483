package ec

import (
	"go.dedis.ch/kyber/v3/pairing/bls12381/kilic"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
)

func init() {
	group.Register(newPairingGroup(group.Bls12381, kilic.NewBLS12381Suite()))
}
