package orchestrator

import (
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/keychain"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
)

type stateCmdKind uint8

const (
	cmdGetPrivateKeyByType stateCmdKind = iota
	cmdGetEncryptionKeys
	cmdPopFrostPrecomputation
	cmdPushFrostPrecomputation
)

type stateCmd struct {
	kind    stateCmdKind
	scheme  schemeid.ID
	grp     group.ID
	precomp interface{}
	reply   chan stateReply // nil for the fire-and-forget Push
}

type stateReply struct {
	key     *keychain.Key
	keys    []*keychain.Key
	precomp interface{}
}

// StateManager is the single-owner actor of spec §4.6: the keychain reads
// and writes and the precomputation-pool pushes and pops sent to it go
// through its command channel and are applied one at a time, in arrival
// order. Not every keychain access goes through it: pkg/frontend performs
// its key lookups directly on the Keychain, which guards itself with its
// own lock.
type StateManager struct {
	cmds chan stateCmd
}

// NewStateManager starts the actor loop over kc and returns a handle. The
// loop runs until Stop is called.
func NewStateManager(kc *keychain.Keychain) *StateManager {
	sm := &StateManager{cmds: make(chan stateCmd, 64)}
	go sm.run(kc)
	return sm
}

func (sm *StateManager) run(kc *keychain.Keychain) {
	for cmd := range sm.cmds {
		switch cmd.kind {
		case cmdGetPrivateKeyByType:
			k, err := kc.GetKeyBySchemeAndGroup(cmd.scheme, cmd.grp)
			if cmd.reply == nil {
				continue
			}
			if err != nil {
				cmd.reply <- stateReply{}
			} else {
				cmd.reply <- stateReply{key: k}
			}
		case cmdGetEncryptionKeys:
			if cmd.reply != nil {
				cmd.reply <- stateReply{keys: kc.GetEncryptionKeys()}
			}
		case cmdPopFrostPrecomputation:
			p := kc.PopPrecomputeResult(cmd.scheme, cmd.grp)
			if cmd.reply != nil {
				cmd.reply <- stateReply{precomp: p}
			}
		case cmdPushFrostPrecomputation:
			kc.PushPrecomputeResult(cmd.scheme, cmd.grp, cmd.precomp)
		}
	}
}

// GetPrivateKeyByType fetches the default key for (scheme, group), or
// keychain.ErrIDNotFound if none exists (spec §4.6 command
// "GetPrivateKeyByType").
func (sm *StateManager) GetPrivateKeyByType(scheme schemeid.ID, grp group.ID) (*keychain.Key, error) {
	reply := make(chan stateReply, 1)
	sm.cmds <- stateCmd{kind: cmdGetPrivateKeyByType, scheme: scheme, grp: grp, reply: reply}
	if r := <-reply; r.key != nil {
		return r.key, nil
	}
	return nil, keychain.ErrIDNotFound
}

// GetEncryptionKeys returns every encryption-class key currently held
// (spec §4.6 command "GetEncryptionKeys").
func (sm *StateManager) GetEncryptionKeys() []*keychain.Key {
	reply := make(chan stateReply, 1)
	sm.cmds <- stateCmd{kind: cmdGetEncryptionKeys, reply: reply}
	return (<-reply).keys
}

// PopFrostPrecomputation removes and returns the most recent precomputation
// for (scheme, group), or nil if none is pooled (spec §4.6 command
// "PopFrostPrecomputation").
func (sm *StateManager) PopFrostPrecomputation(scheme schemeid.ID, grp group.ID) interface{} {
	reply := make(chan stateReply, 1)
	sm.cmds <- stateCmd{kind: cmdPopFrostPrecomputation, scheme: scheme, grp: grp, reply: reply}
	return (<-reply).precomp
}

// PushFrostPrecomputation is fire-and-forget (spec §4.6 "Push is
// fire-and-forget").
func (sm *StateManager) PushFrostPrecomputation(scheme schemeid.ID, grp group.ID, precomp interface{}) {
	sm.cmds <- stateCmd{kind: cmdPushFrostPrecomputation, scheme: scheme, grp: grp, precomp: precomp}
}

// Stop terminates the actor loop. Any command sent afterwards panics on a
// closed channel; that is the fatal condition spec §4.6 requires ("dropping
// its input channel is a fatal condition").
func (sm *StateManager) Stop() {
	close(sm.cmds)
}
