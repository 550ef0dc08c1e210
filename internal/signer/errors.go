package signer

import (
	"context"
	"errors"
	"strings"
)

// Kind classifies a signer failure.
type Kind int

// Signer failure kinds.
const (
	KindUnknown Kind = iota
	KindCancelled
	KindRejected
	KindSessionInvalid
	KindTimeout
	KindInsufficientFunds
	KindUnavailable

	// KindInterrupted means the session ended without an answer and without
	// the wallet saying why, e.g. the bridge process died.
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindCancelled:
		return "cancelled"
	case KindRejected:
		return "rejected"
	case KindSessionInvalid:
		return "session_invalid"
	case KindTimeout:
		return "timeout"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindUnavailable:
		return "unavailable"
	case KindInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Error is a classified signer failure.
type Error struct {
	Kind    Kind
	Op      string // Signer operation, e.g. "authorize"
	Message string // Raw message from the wallet, kept for diagnostics

	// RequestSent is set once the request reached the wallet. A sign-and-send
	// that fails after this point may still have been broadcast.
	RequestSent bool

	Cause error
}

func (e *Error) Error() string {
	msg := "signer " + e.Op + ": " + e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil && e.Message == "" {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// OutcomeUnknown reports whether a sign-and-send request reached the wallet
// and then ended without an answer. The transaction may have been broadcast.
func (e *Error) OutcomeUnknown() bool {
	return e.RequestSent && e.Op == OpSignAndSend &&
		(e.Kind == KindTimeout || e.Kind == KindInterrupted)
}

// NewError returns a classified error.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// KindOf returns the kind of a signer error, or KindUnknown for anything else.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a signer error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// Classify converts an arbitrary error into a *Error for op. Already
// classified errors pass through unchanged. This is the only place where
// message text is inspected; everything downstream switches on Kind.
func Classify(op string, err error, requestSent bool) *Error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return se
	}

	out := &Error{Op: op, Message: err.Error(), RequestSent: requestSent, Cause: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Kind = KindTimeout
	case errors.Is(err, context.Canceled):
		out.Kind = KindCancelled
	default:
		out.Kind = kindFromMessage(err.Error())
	}
	return out
}

//nolint:gochecknoglobals // Lookup table
var messageKinds = []struct {
	kind    Kind
	needles []string
}{
	{KindCancelled, []string{"cancellationexception", "cancelled", "canceled", "user closed"}},
	{KindRejected, []string{"rejected", "declined", "denied", "not signed"}},
	{KindSessionInvalid, []string{"auth_token", "auth token", "not authorized", "unauthorized", "expired"}},
	{KindTimeout, []string{"timeout", "timed out"}},
	{KindInsufficientFunds, []string{"insufficient"}},
	{KindUnavailable, []string{"no wallet", "wallet not found", "connection refused"}},
}

func kindFromMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	for _, mk := range messageKinds {
		for _, n := range mk.needles {
			if strings.Contains(msg, n) {
				return mk.kind
			}
		}
	}
	return KindUnknown
}
