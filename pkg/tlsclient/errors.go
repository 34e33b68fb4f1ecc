package tlsclient

import "fmt"

// Kind classifies why a session closed. See spec §7 for the trigger for
// each kind.
type Kind int

const (
	// KindUnknown is the zero value; never produced deliberately.
	KindUnknown Kind = iota
	KindOutOfMemory
	KindNotSupported
	KindProtocolViolation
	KindInvalidArgument
	KindPermissionDenied
	KindIncompleteChain
	KindWrongName
	KindNotConnected
)

func (k Kind) String() string {
	switch k {
	case KindOutOfMemory:
		return "out_of_memory"
	case KindNotSupported:
		return "not_supported"
	case KindProtocolViolation:
		return "protocol_violation"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindPermissionDenied:
		return "permission_denied"
	case KindIncompleteChain:
		return "incomplete_chain"
	case KindWrongName:
		return "wrong_name"
	case KindNotConnected:
		return "not_connected"
	default:
		return "unknown"
	}
}

// Error is the error type surfaced to the session close path. It carries a
// Kind so callers can branch on failure category with errors.As, and wraps
// the underlying cause (if any) for diagnostics.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tlsclient: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("tlsclient: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
