// Command thetacrypt-gengen recomputes each registered group's alternate
// generator from scratch and asserts it matches the cached value every
// AlternateGenerator() call returns, proving the derivation in pkg/group/ec
// and pkg/group/rsagrp is actually reproducible rather than an artifact of
// process-lifetime caching (spec §6). Mirrors original_source's
// core/schemes/src/bin/group_generators_generator.rs, which hashes a fixed
// seed per group and asserts the result against a predefined constant.
package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/group/rsagrp"
	"github.com/thetacrypt/thetacrypt-go/pkg/sizedint"
)

func main() {
	failed := false

	for _, id := range []group.ID{group.Bls12381, group.Bn254, group.Ed25519} {
		if err := checkECGroup(id); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", id, err)
			failed = true
			continue
		}
		fmt.Printf("OK   %s: alternate generator reproducible\n", id)
	}

	for _, id := range []group.ID{group.Rsa512, group.Rsa1024, group.Rsa2048, group.Rsa4096} {
		if err := checkRSAGroup(id); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", id, err)
			failed = true
			continue
		}
		fmt.Printf("OK   %s: alternate generator reproducible\n", id)

		if err := checkSizedIntRoundtrip(id); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", id, err)
			failed = true
			continue
		}
		fmt.Printf("OK   %s: fixed-width SizedBigInt round-trip\n", id)
	}

	if failed {
		os.Exit(1)
	}
}

// checkECGroup recomputes id's registered alternate generator (and, for
// pairing-friendly curves, its G2/GT companions) via ec.RecomputeAlternateGenerator
// and asserts it equals the cached AlternateGenerator() the rest of the
// codebase actually uses.
func checkECGroup(id group.ID) error {
	g, err := group.Lookup(id)
	if err != nil {
		return err
	}
	if err := assertReproducible(g); err != nil {
		return err
	}

	pg, ok := g.(group.PairingGroup)
	if !ok {
		return nil
	}
	for _, sub := range []group.Group{pg.G2(), pg.GT()} {
		if err := assertReproducible(sub); err != nil {
			return fmt.Errorf("%s: %w", sub.ID(), err)
		}
	}
	return nil
}

// assertReproducible recomputes g's alternate generator from scratch and
// compares it against the cached value AlternateGenerator() returns.
func assertReproducible(g group.Group) error {
	cached := g.AlternateGenerator()
	fresh, err := ec.RecomputeAlternateGenerator(g)
	if err != nil {
		return err
	}
	if !cached.Equal(fresh) {
		return fmt.Errorf("recomputed alternate generator does not match cached value")
	}
	return nil
}

// checkRSAGroup demonstrates determinism for RSA groups: unlike the EC
// groups, an RSA group's modulus N is generated per key by the trusted
// dealer (spec §1 Non-goals), so there is no single global "predefined"
// alternate generator to compare against. Instead this constructs two
// independent rsagrp.Group values over the same fixed test modulus and
// asserts hashToZN derives the identical point both times.
func checkRSAGroup(id group.ID) error {
	n := testModulus(id)
	a := rsagrp.New(id, n, nil)
	b := rsagrp.New(id, n, nil)
	if !a.AlternateGenerator().Equal(b.AlternateGenerator()) {
		return fmt.Errorf("two independently constructed groups over the same modulus disagree")
	}
	return nil
}

// checkSizedIntRoundtrip exercises pkg/sizedint's fixed-width serialization
// over the same test modulus: encoding the alternate generator and decoding
// it back must reproduce the original value, regardless of its numeric size
// relative to the modulus (spec §3, "constant-time serialization").
func checkSizedIntRoundtrip(id group.ID) error {
	n := testModulus(id)
	byteLen := (n.BitLen() + 7) / 8
	modulus := sizedint.NewModulus(n)

	g := rsagrp.New(id, n, nil)
	altGen := g.AlternateGenerator().(*rsagrp.Element).BigInt()

	s := sizedint.FromBigInt(altGen, modulus, byteLen)
	roundTripped := sizedint.FromBigInt(s.BigInt(), modulus, byteLen)
	if !s.Equal(roundTripped) {
		return fmt.Errorf("sizedint round-trip mismatch")
	}
	if len(s.Bytes()) != byteLen {
		return fmt.Errorf("sizedint serialization is not fixed-width: got %d, want %d bytes", len(s.Bytes()), byteLen)
	}
	return nil
}

// testModulus returns a fixed, publicly-known composite of the right bit
// length for id, used only to exercise rsagrp's derivation determinism; it
// is never used for any cryptographic operation.
func testModulus(id group.ID) *big.Int {
	bits := map[group.ID]int{
		group.Rsa512:  512,
		group.Rsa1024: 1024,
		group.Rsa2048: 2048,
		group.Rsa4096: 4096,
	}[id]
	n := big.NewInt(1)
	n.Lsh(n, uint(bits))
	n.Sub(n, big.NewInt(159)) // an arbitrary odd composite of the target bit length
	return n
}
