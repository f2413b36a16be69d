package client

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the operation-level error taxonomy. A datagram that fails to
// decode as a whole (format, unknown-attribute) is dropped and never
// reaches a caller; an attribute of a matched response that fails to
// decode is returned to that response's caller as package stun's error.
type Kind int

// Operation-level error kinds.
const (
	KindTimeout Kind = iota
	KindNoAllocation
	KindNoPermission
	KindUnauthorized
	KindStaleNonce
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNoAllocation:
		return "no-allocation"
	case KindNoPermission:
		return "no-permission"
	case KindUnauthorized:
		return "unauthorized"
	case KindStaleNonce:
		return "stale-nonce"
	case KindServerError:
		return "server-error"
	default:
		return "kind(?)"
	}
}

// Error is the error type returned from Session operations.
type Error struct {
	Kind Kind
	// Code and Reason are populated for KindServerError, KindUnauthorized
	// and KindStaleNonce: the numeric ERROR-CODE and its reason phrase.
	Code   int
	Reason string
}

func (e *Error) Error() string {
	if e.Kind == KindServerError {
		return fmt.Sprintf("server-error: %d %s", e.Code, e.Reason)
	}
	return e.Kind.String()
}

func errKind(k Kind) error { return &Error{Kind: k} }

func errServer(code int, reason string) error {
	return &Error{Kind: KindServerError, Code: code, Reason: reason}
}

// ErrNoAllocation is returned when an operation needing an active
// allocation is attempted with none present.
var ErrNoAllocation = errKind(KindNoAllocation)

// ErrNoPermission is returned by Send when no acked permission exists for
// the destination peer's IP.
var ErrNoPermission = errKind(KindNoPermission)

// ErrTimeout is returned when a transaction's deadline elapses with no
// matching response.
var ErrTimeout = errKind(KindTimeout)

// ErrClosed is returned by operations submitted to a session that has
// terminated.
var ErrClosed = errors.New("session closed")
