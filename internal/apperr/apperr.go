// Package apperr defines the error kinds shared across the server core.
//
// Every component reports failures as one of a small set of kinds so the
// HTTP and room-dispatch boundaries can translate them into status codes,
// close codes, or per-hex result reasons without string-matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories from the error handling design.
type Kind int

const (
	// KindBadInput marks a client-fault input error (invalid username,
	// bad color format, unknown upgrade type, ...).
	KindBadInput Kind = iota
	// KindAuthFailed marks a missing/invalid token or allowedPlayerIds violation.
	KindAuthFailed
	// KindNotFound marks an unknown player, game, lobby, or hex.
	KindNotFound
	// KindPrecondition marks a rejected-but-valid action (insufficient points,
	// not adjacent, not owner, impassable, duplicate session).
	KindPrecondition
	// KindUnavailable marks a KV-unreachable or timed-out operation.
	KindUnavailable
	// KindInternal marks an unexpected failure that must not crash the room.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBadInput:
		return "bad_input"
	case KindAuthFailed:
		return "auth_failed"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition_failed"
	case KindUnavailable:
		return "unavailable"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is an apperr-flavored error carrying a Kind, a short machine-readable
// Reason (used verbatim in fillResult/batchFillResult/upgradeResult payloads),
// and an optional wrapped cause.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an apperr.Error with no wrapped cause.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap builds an apperr.Error around an existing error.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// ReasonOf returns the Reason field for an apperr.Error, or "" otherwise.
func ReasonOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}

var (
	// ErrKVUnavailable is a sentinel cause used by the KV facade when the
	// liveness check has tripped and the loop that checks it should suspend.
	ErrKVUnavailable = errors.New("kv store unavailable")
)
