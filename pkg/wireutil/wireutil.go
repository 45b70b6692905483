// Package wireutil provides the shared canonical-CBOR envelope helpers used
// by the SG02, BZ03, CKS05 and SH00 ciphertext/share wire formats and by
// FROST's signature encoding (spec §4.3, §6); BLS04 shares and signatures
// are raw group-element bytes.
package wireutil

import "github.com/fxamacker/cbor/v2"

var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// Marshal encodes v using the deterministic canonical CBOR encoding.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes b into v.
func Unmarshal(b []byte, v interface{}) error {
	return cbor.Unmarshal(b, v)
}
