package signer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Messages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want Kind
	}{
		{"CancellationException: user closed the wallet", KindCancelled},
		{"User cancelled the request", KindCancelled},
		{"Transaction rejected by user", KindRejected},
		{"authorization request declined", KindRejected},
		{"auth_token not valid for signing", KindSessionInvalid},
		{"session expired", KindSessionInvalid},
		{"request timed out", KindTimeout},
		{"insufficient lamports", KindInsufficientFunds},
		{"no wallet found to handle the request", KindUnavailable},
		{"something odd happened", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()
			got := Classify(OpSignAndSend, errors.New(tt.msg), true) //nolint:err113 // raw wallet messages
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.msg, got.Message)
			assert.True(t, got.RequestSent)
		})
	}
}

func TestClassify_Context(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindTimeout, Classify(OpAuthorize, fmt.Errorf("read: %w", context.DeadlineExceeded), false).Kind)
	assert.Equal(t, KindCancelled, Classify(OpAuthorize, context.Canceled, false).Kind)
}

func TestClassify_PassesThroughTypedErrors(t *testing.T) {
	t.Parallel()

	typed := &Error{Kind: KindRejected, Op: OpAuthorize, Message: "cancelled by policy"}
	wrapped := fmt.Errorf("open: %w", typed)

	got := Classify(OpSignAndSend, wrapped, true)
	assert.Same(t, typed, got)
	assert.Equal(t, KindRejected, got.Kind, "typed kind wins over message text")
	assert.Nil(t, Classify("x", nil, false))
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrap: %w", NewError(KindSessionInvalid, OpSignMessages, ""))
	assert.Equal(t, KindSessionInvalid, KindOf(err))
	assert.True(t, IsKind(err, KindSessionInvalid))
	assert.False(t, IsKind(err, KindRejected))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain"))) //nolint:err113 // test
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "signer authorize: rejected: nope", NewError(KindRejected, "authorize", "nope").Error())
	assert.Equal(t, "signer close: unknown", (&Error{Op: "close"}).Error())
}

func TestError_OutcomeUnknown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"send timed out after request", &Error{Kind: KindTimeout, Op: OpSignAndSend, RequestSent: true}, true},
		{"send interrupted after request", &Error{Kind: KindInterrupted, Op: OpSignAndSend, RequestSent: true}, true},
		{"send timed out before request", &Error{Kind: KindTimeout, Op: OpSignAndSend}, false},
		{"send cancelled", &Error{Kind: KindCancelled, Op: OpSignAndSend, RequestSent: true}, false},
		{"authorize interrupted", &Error{Kind: KindInterrupted, Op: OpAuthorize, RequestSent: true}, false},
		{"sign messages timed out", &Error{Kind: KindTimeout, Op: OpSignMessages, RequestSent: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.OutcomeUnknown())
		})
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "interrupted", KindInterrupted.String())
	assert.Equal(t, "timeout", KindTimeout.String())
}
