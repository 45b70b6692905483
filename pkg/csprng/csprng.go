// Package csprng fixes the RNG discipline required by spec §9: production
// code must use an OS-backed source, and a seeded deterministic source is
// only reachable through explicit construction, never a package-level
// default.
package csprng

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/chacha20"
)

// OS returns the operating system's cryptographically secure RNG. This is
// the only source that production code (key generation, nonce sampling,
// Shamir polynomial coefficients) should use.
func OS() io.Reader {
	return rand.Reader
}

// Deterministic returns a seeded, reproducible RNG stream. It must only be
// constructed explicitly by test code: there is deliberately no
// package-level default that resolves to it.
func Deterministic(seed [32]byte) io.Reader {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		// chacha20.NewUnauthenticatedCipher only fails on bad key/nonce
		// lengths, which are fixed-size arrays here and can never be wrong.
		panic(err)
	}
	return &streamReader{cipher: c}
}

type streamReader struct {
	cipher *chacha20.Cipher
}

func (s *streamReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	s.cipher.XORKeyStream(p, p)
	return len(p), nil
}
