// Package keychain implements the typed, multi-scheme private key store of
// spec §4.4: indexed by fingerprint, with default-key selection per
// (scheme, group) and per operation class, and a bounded FROST
// precomputation pool.
package keychain

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
)

// Errors returned by Keychain operations (spec §4.4, §7 "Keychain errors").
var (
	ErrDuplicateEntry = errors.New("keychain: duplicate (public key, id) entry")
	ErrIDMismatch     = errors.New("keychain: share id does not match its embedded public key's verification point")
	ErrIDNotFound     = errors.New("keychain: no matching key")
)

// Key is a single keychain entry (spec §3).
type Key struct {
	Fingerprint             string
	IsDefaultForSchemeGroup bool
	IsDefaultForOperation   bool
	Sk                      *keys.PrivateKeyShare
}

// Keychain is the indexed private-key-share store. Every method takes the
// internal read/write lock, so it is safe for concurrent use; the state
// manager actor in pkg/orchestrator additionally serializes the accesses
// routed through it.
type Keychain struct {
	mu sync.RWMutex

	entries map[string]*Key // keyed by "<fingerprint>/<id>"

	defaultSchemeGroup map[schemeGroupKey]string // -> fingerprint/id key
	defaultOperation   map[schemeid.Class]string // -> fingerprint/id key

	precompute *precomputePool
}

type schemeGroupKey struct {
	scheme schemeid.ID
	grp    group.ID
}

// New creates an empty Keychain with a precomputation pool bounded to
// capacity frostPoolCap (spec §4.4, §3 "bounded LIFO pool").
func New(frostPoolCap int) *Keychain {
	return &Keychain{
		entries:            make(map[string]*Key),
		defaultSchemeGroup: make(map[schemeGroupKey]string),
		defaultOperation:   make(map[schemeid.Class]string),
		precompute:         newPrecomputePool(frostPoolCap),
	}
}

func entryKey(fingerprint string, id uint32) string {
	return fmt.Sprintf("%s/%d", fingerprint, id)
}

// InsertPrivateKey adds a private key share to the chain (spec §4.4).
func (kc *Keychain) InsertPrivateKey(sk *keys.PrivateKeyShare) error {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	fp, err := sk.Pk.Fingerprint()
	if err != nil {
		return fmt.Errorf("keychain: computing fingerprint: %w", err)
	}
	fpStr := fp.String()
	ek := entryKey(fpStr, uint32(sk.ID))
	if _, exists := kc.entries[ek]; exists {
		return ErrDuplicateEntry
	}

	expected, ok := sk.Pk.VerificationPoints[sk.ID]
	if !ok {
		return ErrIDMismatch
	}
	actual := sk.Pk.Group().Generator().Pow(sk.X)
	if !actual.Equal(expected) {
		return ErrIDMismatch
	}

	key := &Key{Fingerprint: fpStr, Sk: sk}

	sgKey := schemeGroupKey{scheme: sk.Scheme, grp: sk.Grp}
	if _, hasDefault := kc.defaultSchemeGroup[sgKey]; !hasDefault {
		kc.defaultSchemeGroup[sgKey] = ek
		key.IsDefaultForSchemeGroup = true
	}

	class := sk.Scheme.Class()
	if _, hasDefault := kc.defaultOperation[class]; !hasDefault {
		kc.defaultOperation[class] = ek
		key.IsDefaultForOperation = true
	}

	kc.entries[ek] = key
	return nil
}

// GetKeyByFingerprint returns the entry whose public key has the given
// fingerprint, for the given party id.
func (kc *Keychain) GetKeyByFingerprint(fingerprint string, id uint32) (*Key, error) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	k, ok := kc.entries[entryKey(fingerprint, id)]
	if !ok {
		return nil, ErrIDNotFound
	}
	return k, nil
}

// GetKeyByFingerprintAny returns the first entry found whose public key has
// the given fingerprint, regardless of party id -- useful to a node that
// only ever holds a single id's share of any one public key.
func (kc *Keychain) GetKeyByFingerprintAny(fingerprint string) (*Key, error) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	for _, k := range kc.entries {
		if k.Fingerprint == fingerprint {
			return k, nil
		}
	}
	return nil, ErrIDNotFound
}

// GetKeyBySchemeAndGroup returns the (scheme, group) default if present,
// else any matching entry, else ErrIDNotFound (spec §4.4).
func (kc *Keychain) GetKeyBySchemeAndGroup(scheme schemeid.ID, grp group.ID) (*Key, error) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()

	sgKey := schemeGroupKey{scheme: scheme, grp: grp}
	if ek, ok := kc.defaultSchemeGroup[sgKey]; ok {
		return kc.entries[ek], nil
	}
	for _, k := range kc.entries {
		if k.Sk.Scheme == scheme && k.Sk.Grp == grp {
			return k, nil
		}
	}
	return nil, ErrIDNotFound
}

// GetDefaultForOperation returns the default key for a whole operation
// class (encryption/signature/coin), used when the caller does not specify
// a scheme explicitly (spec §4.7).
func (kc *Keychain) GetDefaultForOperation(class schemeid.Class) (*Key, error) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	ek, ok := kc.defaultOperation[class]
	if !ok {
		return nil, ErrIDNotFound
	}
	return kc.entries[ek], nil
}

// GetEncryptionKeys returns every entry whose scheme belongs to the
// encryption class (spec §4.4).
func (kc *Keychain) GetEncryptionKeys() []*Key {
	return kc.entriesInClass(schemeid.ClassEncryption)
}

// GetSignatureKeys returns every entry whose scheme belongs to the
// signature class.
func (kc *Keychain) GetSignatureKeys() []*Key {
	return kc.entriesInClass(schemeid.ClassSignature)
}

// GetCoinKeys returns every entry whose scheme belongs to the coin class.
func (kc *Keychain) GetCoinKeys() []*Key {
	return kc.entriesInClass(schemeid.ClassCoin)
}

func (kc *Keychain) entriesInClass(class schemeid.Class) []*Key {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	var out []*Key
	for _, k := range kc.entries {
		if k.Sk.Scheme.Class() == class {
			out = append(out, k)
		}
	}
	return out
}

// PushPrecomputeResult stores a FROST precomputation for later reuse (spec
// §4.4). LIFO, bounded; the oldest entry is evicted if the pool is full
// (spec §9 Open Questions: eviction policy fixed as LIFO+bounded by this
// implementation).
func (kc *Keychain) PushPrecomputeResult(scheme schemeid.ID, grp group.ID, precomp interface{}) {
	kc.precompute.push(schemeGroupKey{scheme, grp}, precomp)
}

// PopPrecomputeResult removes and returns the most recently pushed
// precomputation for (scheme, group), or nil if the pool is empty.
func (kc *Keychain) PopPrecomputeResult(scheme schemeid.ID, grp group.ID) interface{} {
	return kc.precompute.pop(schemeGroupKey{scheme, grp})
}

// PrecomputeLen reports how many precomputations are currently pooled for
// (scheme, group); used by tests (spec §8 S3: pool shrinks by one per run).
func (kc *Keychain) PrecomputeLen(scheme schemeid.ID, grp group.ID) int {
	return kc.precompute.len(schemeGroupKey{scheme, grp})
}

// chainWire is the canonical, length-prefixed, tag-typed serialization of a
// Keychain (spec §6 "Keychain file format").
type chainWire struct {
	Entries []entryWire
}

type entryWire struct {
	PublicKey               []byte
	ID                      uint32
	X                       []byte
	IsDefaultForSchemeGroup bool
	IsDefaultForOperation   bool
}

// ToBytes serializes the keychain to its canonical wire format (spec §6).
func (kc *Keychain) ToBytes() ([]byte, error) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()

	// CBOR's canonical mode only sorts map keys, not array element order, so
	// kc.entries (a Go map) must be walked in a stable order here or
	// ToBytes would not be byte-stable across calls (spec §6 "canonical").
	entryKeys := make([]string, 0, len(kc.entries))
	for key := range kc.entries {
		entryKeys = append(entryKeys, key)
	}
	sort.Strings(entryKeys)

	w := chainWire{}
	for _, key := range entryKeys {
		k := kc.entries[key]
		pkBytes, err := k.Sk.Pk.MarshalBinary()
		if err != nil {
			return nil, err
		}
		xBytes, err := k.Sk.X.MarshalBinary()
		if err != nil {
			return nil, err
		}
		w.Entries = append(w.Entries, entryWire{
			PublicKey:               pkBytes,
			ID:                      uint32(k.Sk.ID),
			X:                       xBytes,
			IsDefaultForSchemeGroup: k.IsDefaultForSchemeGroup,
			IsDefaultForOperation:   k.IsDefaultForOperation,
		})
	}
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return mode.Marshal(w)
}

// FromBytes reconstructs a Keychain from its canonical wire format. The
// resulting chain's precomputation pool is empty (precomputations are not
// persisted; spec §4.4 only requires the key material to round-trip).
func FromBytes(b []byte, frostPoolCap int) (*Keychain, error) {
	var w chainWire
	if err := cbor.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("keychain: unmarshal: %w", err)
	}
	kc := New(frostPoolCap)
	for _, e := range w.Entries {
		pk, err := keys.UnmarshalPublicKey(e.PublicKey)
		if err != nil {
			return nil, err
		}
		x, err := pk.Group().ScalarFromBytes(e.X)
		if err != nil {
			return nil, fmt.Errorf("keychain: unmarshal share scalar: %w", err)
		}
		sk := &keys.PrivateKeyShare{
			ID:     party.ID(e.ID),
			Scheme: pk.Scheme,
			Grp:    pk.Grp,
			X:      x,
			Pk:     pk,
		}
		fp, err := pk.Fingerprint()
		if err != nil {
			return nil, err
		}
		ek := entryKey(fp.String(), e.ID)
		key := &Key{
			Fingerprint:             fp.String(),
			IsDefaultForSchemeGroup: e.IsDefaultForSchemeGroup,
			IsDefaultForOperation:   e.IsDefaultForOperation,
			Sk:                      sk,
		}
		kc.entries[ek] = key
		if e.IsDefaultForSchemeGroup {
			kc.defaultSchemeGroup[schemeGroupKey{pk.Scheme, pk.Grp}] = ek
		}
		if e.IsDefaultForOperation {
			kc.defaultOperation[pk.Scheme.Class()] = ek
		}
	}
	return kc, nil
}
