package orchestrator

import (
	"context"
	"crypto/rand"

	"github.com/thetacrypt/thetacrypt-go/pkg/instance"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/therror"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
	"github.com/thetacrypt/thetacrypt-go/pkg/wireutil"
)

// shareEnvelope is the wire wrapper every synchronous scheme share travels
// in over a NetMessage's Payload, so the driver can unmarshal the sender's
// party.ID before handing the scheme-specific bytes back to the scheme
// package.
type shareEnvelope struct {
	ID   uint32
	Data []byte
}

func wrapShare(id party.ID, data []byte) ([]byte, error) {
	return wireutil.Marshal(shareEnvelope{ID: uint32(id), Data: data})
}

func unwrapShare(payload []byte) (party.ID, []byte, error) {
	var e shareEnvelope
	if err := wireutil.Unmarshal(payload, &e); err != nil {
		return 0, nil, err
	}
	return party.ID(e.ID), e.Data, nil
}

func broadcast(ctx context.Context, t transport.Transport, inst *instance.Instance, data []byte) error {
	return t.Send(ctx, transport.NetMessage{InstanceID: inst.ID, Channel: transport.Gossip, Payload: data})
}

// RunCipher drives one SG02/BZ03-style threshold decryption instance to
// completion (spec §4.5 state machine): compute and broadcast this party's
// own decryption share on entry to Running, then collect and verify
// inbound shares until k valid ones are gathered, assemble, and Finish.
func RunCipher(ctx context.Context, inst *instance.Instance, t transport.Transport, scheme schemes.Cipher, sk *keys.PrivateKeyShare, ct schemes.Ciphertext) {
	inst.Start(make(chan transport.NetMessage, 1))
	defer drainOutbound(ctx, t, inst)

	ownShare, err := scheme.PartialDecrypt(sk, ct, rand.Reader)
	if err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}
	if err := sendOwnShare(ctx, t, inst, sk.ID, ownShare.Data); err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}

	shares := map[party.ID]*schemes.DecryptionShare{sk.ID: ownShare}
	for len(shares) < sk.Pk.K {
		id, data, ok := nextShare(ctx, inst)
		if !ok {
			return
		}
		if _, dup := shares[id]; dup {
			continue
		}
		share := &schemes.DecryptionShare{ID: id, Data: data}
		valid, err := scheme.VerifyShare(sk.Pk, ct, share)
		if err != nil || !valid {
			continue // spec §7 "share errors: logged, share discarded"
		}
		shares[id] = share
	}

	list := make([]*schemes.DecryptionShare, 0, len(shares))
	for _, s := range shares {
		list = append(list, s)
	}
	msg, err := scheme.Assemble(sk.Pk, ct, list)
	if err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}
	inst.Finish(instance.Result{Value: msg})
}

// RunSignature drives one BLS04/SH00-style threshold signature instance to
// completion, mirroring RunCipher's share-collect-assemble loop.
func RunSignature(ctx context.Context, inst *instance.Instance, t transport.Transport, scheme schemes.Signature, sk *keys.PrivateKeyShare, msg []byte) {
	inst.Start(make(chan transport.NetMessage, 1))
	defer drainOutbound(ctx, t, inst)

	ownShare, err := scheme.PartialSign(sk, msg, rand.Reader)
	if err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}
	if err := sendOwnShare(ctx, t, inst, sk.ID, ownShare.Data); err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}

	shares := map[party.ID]*schemes.SignatureShare{sk.ID: ownShare}
	for len(shares) < sk.Pk.K {
		id, data, ok := nextShare(ctx, inst)
		if !ok {
			return
		}
		if _, dup := shares[id]; dup {
			continue
		}
		share := &schemes.SignatureShare{ID: id, Data: data}
		valid, err := scheme.VerifyShare(sk.Pk, msg, share)
		if err != nil || !valid {
			continue
		}
		shares[id] = share
	}

	list := make([]*schemes.SignatureShare, 0, len(shares))
	for _, s := range shares {
		list = append(list, s)
	}
	sig, err := scheme.Assemble(sk.Pk, msg, list)
	if err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}
	inst.Finish(instance.Result{Value: sig})
}

// RunCoin drives one CKS05 common-coin instance to completion. Its result
// Value is a single byte: 1 if the coin landed heads, 0 otherwise (spec
// §4.3 "the low bit of the assembled value's hash").
func RunCoin(ctx context.Context, inst *instance.Instance, t transport.Transport, scheme schemes.Coin, sk *keys.PrivateKeyShare, label []byte) {
	inst.Start(make(chan transport.NetMessage, 1))
	defer drainOutbound(ctx, t, inst)

	ownShare, err := scheme.CreateShare(sk, label, rand.Reader)
	if err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}
	if err := sendOwnShare(ctx, t, inst, sk.ID, ownShare.Data); err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}

	shares := map[party.ID]*schemes.CoinShare{sk.ID: ownShare}
	for len(shares) < sk.Pk.K {
		id, data, ok := nextShare(ctx, inst)
		if !ok {
			return
		}
		if _, dup := shares[id]; dup {
			continue
		}
		share := &schemes.CoinShare{ID: id, Data: data}
		valid, err := scheme.VerifyShare(sk.Pk, label, share)
		if err != nil || !valid {
			continue
		}
		shares[id] = share
	}

	list := make([]*schemes.CoinShare, 0, len(shares))
	for _, s := range shares {
		list = append(list, s)
	}
	heads, err := scheme.Assemble(sk.Pk, label, list)
	if err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}
	result := byte(0)
	if heads {
		result = 1
	}
	inst.Finish(instance.Result{Value: []byte{result}})
}

func sendOwnShare(ctx context.Context, t transport.Transport, inst *instance.Instance, id party.ID, data []byte) error {
	payload, err := wrapShare(id, data)
	if err != nil {
		return therror.New(therror.KindAssembleFailed, "orchestrator: marshaling own share: "+err.Error())
	}
	return broadcast(ctx, t, inst, payload)
}

// nextShare blocks for the next inbound NetMessage on inst and unwraps its
// share envelope, or returns ok=false if ctx was cancelled or the instance
// was otherwise finished out from under this driver.
func nextShare(ctx context.Context, inst *instance.Instance) (party.ID, []byte, bool) {
	select {
	case msg, open := <-inst.Inbound:
		if !open {
			return 0, nil, false
		}
		id, data, err := unwrapShare(msg.Payload)
		if err != nil {
			return 0, nil, true // malformed envelope: caller's loop just retries
		}
		return id, data, true
	case <-ctx.Done():
		inst.Finish(instance.Result{Err: ctx.Err()})
		return 0, nil, false
	}
}

// drainOutbound forwards every NetMessage the instance queued on its
// outbound channel (currently unused by the synchronous share-broadcast
// drivers above, which call broadcast directly, but kept symmetric with
// instance.Outbound for protocol styles that queue rather than send
// inline) and returns once the channel is closed by Finish.
func drainOutbound(ctx context.Context, t transport.Transport, inst *instance.Instance) {
	out := inst.Outbound()
	if out == nil {
		return
	}
	for {
		select {
		case msg, open := <-out:
			if !open {
				return
			}
			_ = t.Send(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}
