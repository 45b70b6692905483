package orchestrator

import (
	"context"
	"crypto/rand"
	"sort"

	"github.com/thetacrypt/thetacrypt-go/pkg/instance"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/party"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemes/frost"
	"github.com/thetacrypt/thetacrypt-go/pkg/therror"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
	"github.com/thetacrypt/thetacrypt-go/pkg/wireutil"
)

// frostRound distinguishes the two interactive rounds FROST needs (spec
// §4.3); both travel over the same instance inbound queue, tagged so the
// driver can demultiplex them locally without a second NetMessage channel.
type frostRound int

const (
	frostRoundCommit frostRound = 1
	frostRoundSign   frostRound = 2
)

type frostMsg struct {
	Round frostRound
	ID    uint32
	D, E  []byte // populated for frostRoundCommit
	Data  []byte // populated for frostRoundSign: schemes.SignatureShare.Data
}

func sendFrostMsg(ctx context.Context, t transport.Transport, inst *instance.Instance, m frostMsg) error {
	payload, err := wireutil.Marshal(m)
	if err != nil {
		return therror.New(therror.KindAssembleFailed, "orchestrator: marshaling frost message: "+err.Error())
	}
	return broadcast(ctx, t, inst, payload)
}

// RunFrost drives FROST's two interactive rounds to completion (spec
// §4.3): broadcast this signer's round-1 commitment (reusing a pooled
// precomputation when one was supplied), collect k-1 other signers'
// commitments, compute and broadcast the round-2 partial signature, then
// collect and assemble k signature shares.
func RunFrost(ctx context.Context, inst *instance.Instance, t transport.Transport, sk *keys.PrivateKeyShare, msg []byte, precomp *frost.Precomputation) {
	inst.Start(make(chan transport.NetMessage, 1))
	defer drainOutbound(ctx, t, inst)
	fr := &frostReader{inst: inst}

	if precomp == nil {
		precomp = frost.GenerateRound1(sk.Pk.Group(), sk.ID, rand.Reader)
	}
	if err := sendFrostMsg(ctx, t, inst, frostMsg{
		Round: frostRoundCommit, ID: uint32(sk.ID),
		D: mustMarshal(precomp.Commitment.D), E: mustMarshal(precomp.Commitment.E),
	}); err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}

	commitments := map[party.ID]*frost.Commitment{
		sk.ID: precomp.Commitment,
	}
	for len(commitments) < sk.Pk.K {
		m, ok := fr.next(ctx, frostRoundCommit)
		if !ok {
			return
		}
		id := party.ID(m.ID)
		if _, dup := commitments[id]; dup {
			continue
		}
		g := sk.Pk.Group()
		d, err1 := g.ElementFromBytes(m.D)
		e, err2 := g.ElementFromBytes(m.E)
		if err1 != nil || err2 != nil {
			continue
		}
		commitments[id] = &frost.Commitment{ID: id, D: d, E: e}
	}

	commitList := make([]*frost.Commitment, 0, len(commitments))
	for _, c := range commitments {
		commitList = append(commitList, c)
	}
	sort.Slice(commitList, func(i, j int) bool { return commitList[i].ID < commitList[j].ID })

	ownShare, r, err := frost.PartialSign(sk, precomp.Nonce, msg, commitList)
	if err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}
	if err := sendFrostMsg(ctx, t, inst, frostMsg{Round: frostRoundSign, ID: uint32(sk.ID), Data: ownShare.Data}); err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}

	shares := map[party.ID]*schemes.SignatureShare{sk.ID: ownShare}
	for len(shares) < sk.Pk.K {
		m, ok := fr.next(ctx, frostRoundSign)
		if !ok {
			return
		}
		id := party.ID(m.ID)
		if _, dup := shares[id]; dup {
			continue
		}
		share := &schemes.SignatureShare{ID: id, Data: m.Data}
		valid, err := frost.VerifyShare(sk.Pk, msg, share, commitList)
		if err != nil || !valid {
			continue
		}
		shares[id] = share
	}

	list := make([]*schemes.SignatureShare, 0, len(shares))
	for _, s := range shares {
		list = append(list, s)
	}
	sig, err := frost.Assemble(sk.Pk, r, list)
	if err != nil {
		inst.Finish(instance.Result{Err: err})
		return
	}
	inst.Finish(instance.Result{Value: sig})
}

// frostReader buffers inbound FROST messages that arrive for a round ahead
// of the one the driver is currently waiting on -- FROST signers may race
// into round 2 before this signer has finished collecting round 1
// commitments, and those messages must survive until the driver asks for
// them instead of being dropped or re-queued into a busy loop.
type frostReader struct {
	inst  *instance.Instance
	stash []frostMsg
}

// next blocks for the next message belonging to wantRound, serving from the
// stash first.
func (r *frostReader) next(ctx context.Context, wantRound frostRound) (frostMsg, bool) {
	for i, m := range r.stash {
		if m.Round == wantRound {
			r.stash = append(r.stash[:i], r.stash[i+1:]...)
			return m, true
		}
	}
	for {
		select {
		case netMsg, open := <-r.inst.Inbound:
			if !open {
				return frostMsg{}, false
			}
			var m frostMsg
			if err := wireutil.Unmarshal(netMsg.Payload, &m); err != nil {
				continue
			}
			if m.Round != wantRound {
				r.stash = append(r.stash, m)
				continue
			}
			return m, true
		case <-ctx.Done():
			r.inst.Finish(instance.Result{Err: ctx.Err()})
			return frostMsg{}, false
		}
	}
}

func mustMarshal(s interface{ MarshalBinary() ([]byte, error) }) []byte {
	b, _ := s.MarshalBinary()
	return b
}
