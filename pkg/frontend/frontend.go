// Package frontend implements the request front-end of spec §4.7: the RPC
// surface clients call to decrypt, sign, or flip a coin, each request
// allocating an Instance and driving it to completion through
// pkg/orchestrator.
package frontend

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/instance"
	"github.com/thetacrypt/thetacrypt-go/pkg/keychain"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/orchestrator"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/bls04"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/bz03"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/cks05"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/frost"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/sg02"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/sh00"
	"github.com/thetacrypt/thetacrypt-go/pkg/therror"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
)

var (
	ciphers    = map[schemeid.ID]schemes.Cipher{schemeid.Sg02: sg02.Scheme{}, schemeid.Bz03: bz03.Scheme{}}
	signatures = map[schemeid.ID]schemes.Signature{schemeid.Bls04: bls04.Scheme{}, schemeid.Sh00: sh00.Scheme{}}
	coins      = map[schemeid.ID]schemes.Coin{schemeid.Cks05: cks05.Scheme{}}
)

func unmarshalCiphertext(scheme schemeid.ID, pk *keys.PublicKey, data []byte) (schemes.Ciphertext, error) {
	switch scheme {
	case schemeid.Sg02:
		return sg02.UnmarshalCiphertext(pk, data)
	case schemeid.Bz03:
		return bz03.UnmarshalCiphertext(pk, data)
	default:
		return nil, therror.New(therror.KindSchemeNotSupported, fmt.Sprintf("frontend: scheme %s is not an encryption scheme", scheme))
	}
}

// KeySelector picks a private key either by explicit fingerprint or leaves
// it empty to request the default key for an operation (spec §4.7 "Pick the
// private key (by explicit fingerprint or default)").
type KeySelector struct {
	Fingerprint string
	Scheme      schemeid.ID
	Group       group.ID
}

// Server is the request front-end of spec §4.7, wiring the orchestrator's
// Instance Manager, Demultiplexer, and State Manager to a Transport.
type Server struct {
	manager *orchestrator.Manager
	demux   *orchestrator.Demultiplexer
	state   *orchestrator.StateManager
	kc      *keychain.Keychain
	log     *zap.Logger
}

// NewServer wires a front-end over an already-populated keychain. The
// caller is responsible for running the returned demultiplexer's Run against
// its Transport's inbound stream (see Demultiplexer.Run) in its own
// goroutine.
func NewServer(kc *keychain.Keychain, log *zap.Logger) (*Server, *orchestrator.Demultiplexer) {
	if log == nil {
		log = zap.NewNop()
	}
	mgr := orchestrator.NewManager(0)
	demux := orchestrator.NewDemultiplexer(mgr, 0, 0)
	return &Server{
		manager: mgr,
		demux:   demux,
		state:   orchestrator.NewStateManager(kc),
		kc:      kc,
		log:     log,
	}, demux
}

// Close stops the server's State Manager actor.
func (s *Server) Close() { s.state.Stop() }

// allocateInstanceID derives an instance id from a hash of the request
// payload and a fresh random nonce (spec §4.7 "Allocate instance_id
// (client-supplied or hash of request + nonce)").
func allocateInstanceID(kind string, payload []byte) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("frontend: sampling instance id nonce: %w", err)
	}
	h := blake3.New()
	h.Write([]byte(kind))
	h.Write(payload)
	h.Write(nonce)
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (s *Server) resolveKey(sel KeySelector, class schemeid.Class) (*keychain.Key, error) {
	if sel.Fingerprint != "" {
		k, err := s.kc.GetKeyByFingerprintAny(sel.Fingerprint)
		if err == nil {
			return k, nil
		}
	}
	if sel.Scheme != 0 || sel.Group != 0 {
		k, err := s.state.GetPrivateKeyByType(sel.Scheme, sel.Group)
		if err == nil {
			return k, nil
		}
	}
	k, err := s.kc.GetDefaultForOperation(class)
	if err != nil {
		return nil, therror.New(therror.KindSchemeNotSupported, "frontend: no key available for requested operation")
	}
	return k, nil
}

// Decrypt implements spec §4.7's Decrypt(ciphertext_bytes, key_selector),
// blocking until the threshold decryption instance finishes.
func (s *Server) Decrypt(ctx context.Context, t transport.Transport, ciphertextBytes []byte, sel KeySelector) ([]byte, error) {
	key, err := s.resolveKey(sel, schemeid.ClassEncryption)
	if err != nil {
		return nil, err
	}
	sk := key.Sk
	scheme, ok := ciphers[sk.Scheme]
	if !ok {
		return nil, therror.New(therror.KindSchemeNotSupported, fmt.Sprintf("frontend: scheme %s not supported for decryption", sk.Scheme))
	}
	ct, err := unmarshalCiphertext(sk.Scheme, sk.Pk, ciphertextBytes)
	if err != nil {
		return nil, therror.New(therror.KindInvalidCiphertext, err.Error())
	}
	if valid, err := scheme.VerifyCiphertext(sk.Pk, ct); err != nil || !valid {
		return nil, therror.New(therror.KindInvalidCiphertext, "frontend: ciphertext failed validity check")
	}

	id, err := allocateInstanceID("decrypt", ciphertextBytes)
	if err != nil {
		return nil, err
	}
	inst, err := s.demux.CreateAndDrain(id, sk.Scheme, sk.Grp)
	if err != nil {
		return nil, err
	}
	s.log.Info("decrypt instance created", zap.String("instance_id", id), zap.Stringer("scheme", sk.Scheme))
	go orchestrator.RunCipher(ctx, inst, t, scheme, sk, ct)
	msg, err := s.awaitInstance(id)
	if err != nil {
		s.log.Warn("decrypt instance failed", zap.String("instance_id", id), zap.Error(err))
	}
	return msg, err
}

// Sign implements spec §4.7's Sign(message, label, scheme, group). label is
// currently only meaningful as an AAD-style domain separator for callers
// that want distinct instance ids per (message, label) pair; the signature
// schemes themselves sign message alone.
func (s *Server) Sign(ctx context.Context, t transport.Transport, message, label []byte, sel KeySelector) ([]byte, error) {
	key, err := s.resolveKey(sel, schemeid.ClassSignature)
	if err != nil {
		return nil, err
	}
	sk := key.Sk

	id, err := allocateInstanceID("sign", append(append([]byte{}, message...), label...))
	if err != nil {
		return nil, err
	}

	if sk.Scheme == schemeid.Frost {
		inst, err := s.demux.CreateAndDrain(id, sk.Scheme, sk.Grp)
		if err != nil {
			return nil, err
		}
		precomp, _ := s.state.PopFrostPrecomputation(sk.Scheme, sk.Grp).(*frost.Precomputation)
		go orchestrator.RunFrost(ctx, inst, t, sk, message, precomp)
		return s.awaitInstance(id)
	}

	scheme, ok := signatures[sk.Scheme]
	if !ok {
		return nil, therror.New(therror.KindSchemeNotSupported, fmt.Sprintf("frontend: scheme %s not supported for signing", sk.Scheme))
	}
	inst, err := s.demux.CreateAndDrain(id, sk.Scheme, sk.Grp)
	if err != nil {
		return nil, err
	}
	go orchestrator.RunSignature(ctx, inst, t, scheme, sk, message)
	return s.awaitInstance(id)
}

// Coin implements spec §4.7's Coin(label, scheme, group).
func (s *Server) Coin(ctx context.Context, t transport.Transport, label []byte, sel KeySelector) (bool, error) {
	key, err := s.resolveKey(sel, schemeid.ClassCoin)
	if err != nil {
		return false, err
	}
	sk := key.Sk
	scheme, ok := coins[sk.Scheme]
	if !ok {
		return false, therror.New(therror.KindSchemeNotSupported, fmt.Sprintf("frontend: scheme %s not supported for coin-flipping", sk.Scheme))
	}

	id, err := allocateInstanceID("coin", label)
	if err != nil {
		return false, err
	}
	inst, err := s.demux.CreateAndDrain(id, sk.Scheme, sk.Grp)
	if err != nil {
		return false, err
	}
	go orchestrator.RunCoin(ctx, inst, t, scheme, sk, label)
	result, err := s.awaitInstance(id)
	if err != nil {
		return false, err
	}
	return len(result) == 1 && result[0] == 1, nil
}

// GetPublicKeys returns every public key currently held, across all
// operation classes (spec §4.7 "GetPublicKeys()").
func (s *Server) GetPublicKeys() []*keys.PublicKey {
	var out []*keys.PublicKey
	seen := make(map[string]bool)
	add := func(entries []*keychain.Key) {
		for _, e := range entries {
			if seen[e.Fingerprint] {
				continue
			}
			seen[e.Fingerprint] = true
			out = append(out, e.Sk.Pk)
		}
	}
	add(s.kc.GetEncryptionKeys())
	add(s.kc.GetSignatureKeys())
	add(s.kc.GetCoinKeys())
	return out
}

// GetStatus implements spec §4.7's GetStatus(instance_id), for clients that
// chose the polling contract over blocking on the RPC call.
func (s *Server) GetStatus(instanceID string) (instance.Status, bool) {
	inst, ok := s.manager.Get(instanceID)
	if !ok {
		return 0, false
	}
	return inst.Status(), true
}

func (s *Server) awaitInstance(id string) ([]byte, error) {
	result, ok := s.manager.AwaitResult(id)
	if !ok {
		return nil, therror.New(therror.KindInstanceExists, "frontend: instance vanished before completion")
	}
	if result.Err != nil {
		return nil, result.Err
	}
	return result.Value, nil
}

// Sweep reclaims finished instances; call periodically from a background
// goroutine (spec §4.5's sweeper).
func (s *Server) Sweep() { s.manager.Sweep(time.Now()) }
