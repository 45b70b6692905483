// Package therror defines the uniform error taxonomy shared by every layer
// of the service (spec §7): a single tagged Error type plus the sentinel
// Kinds each layer raises, so that the front-end can classify any failure
// without type-asserting against every package's own error type.
package therror

import "fmt"

// Kind classifies an error by the handling a caller should apply (spec §7):
// input errors are surfaced immediately and finish the instance; share
// errors are logged and the protocol continues; protocol errors are
// surfaced once the instance gives up; keychain errors are surfaced at
// insertion/lookup time.
type Kind uint8

const (
	// Input errors (spec §7 "surfaced to the caller; instance -> Finished").
	KindInvalidCiphertext Kind = iota
	KindInvalidMessage
	KindSchemeMismatch
	KindGroupMismatch
	KindSchemeNotSupported

	// Share errors (spec §7 "logged with rate-limit, share discarded").
	KindInvalidShare
	KindDuplicateShare

	// Protocol errors (spec §7 "surfaced to the caller").
	KindNotEnoughShares
	KindAssembleFailed

	// Keychain errors (spec §7 "surfaced at insertion/lookup time").
	KindDuplicateEntry
	KindIDMismatch
	KindIDNotFound

	// Orchestration errors.
	KindInstanceExists
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCiphertext:
		return "InvalidCiphertext"
	case KindInvalidMessage:
		return "InvalidMessage"
	case KindSchemeMismatch:
		return "SchemeMismatch"
	case KindGroupMismatch:
		return "GroupMismatch"
	case KindSchemeNotSupported:
		return "SchemeNotSupported"
	case KindInvalidShare:
		return "InvalidShare"
	case KindDuplicateShare:
		return "DuplicateShare"
	case KindNotEnoughShares:
		return "NotEnoughShares"
	case KindAssembleFailed:
		return "AssembleFailed"
	case KindDuplicateEntry:
		return "DuplicateEntry"
	case KindIDMismatch:
		return "IdMismatch"
	case KindIDNotFound:
		return "IdNotFound"
	case KindInstanceExists:
		return "InstanceExists"
	default:
		return "Unknown"
	}
}

// Error is the uniform error value returned across package boundaries,
// analogous to the teacher's protocol.Error{Culprits, Err} (spec §7).
type Error struct {
	Kind Kind
	Msg  string
	// Culprits holds the party ids responsible, when the error arose from
	// an inbound share (e.g. InvalidShare, DuplicateShare).
	Culprits []uint32
}

func (e *Error) Error() string {
	if len(e.Culprits) > 0 {
		return fmt.Sprintf("%s: %s (culprits: %v)", e.Kind, e.Msg, e.Culprits)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New constructs an Error with no culprits.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WithCulprits constructs an Error attributing blame to specific parties.
func WithCulprits(kind Kind, msg string, culprits ...uint32) *Error {
	return &Error{Kind: kind, Msg: msg, Culprits: culprits}
}

// Is reports whether err is a *Error of the given Kind, so callers can use
// errors.Is(err, therror.New(KindInvalidShare, "")) style checks — but the
// simpler and preferred idiom is KindOf(err) == KindInvalidShare.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Kind == t.Kind
}

// KindOf extracts the Kind from err if it is a *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	e, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}
