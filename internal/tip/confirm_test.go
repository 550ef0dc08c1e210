package tip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tipjar/internal/chain"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

func testBound() chain.FreshnessBound {
	return chain.FreshnessBound{Blockhash: "11111111111111111111111111111111", LastValidBlockHeight: 250, MinContextSlot: 1}
}

func TestConfirmer_Await(t *testing.T) {
	t.Parallel()

	t.Run("reaches commitment", func(t *testing.T) {
		t.Parallel()
		ledger := newFakeLedger(t)
		ledger.statuses = []*chain.SignatureStatus{
			nil,
			{Slot: 9, ConfirmationStatus: chain.CommitmentProcessed},
			{Slot: 9, ConfirmationStatus: chain.CommitmentConfirmed},
		}
		c := NewConfirmer(ledger, chain.CommitmentConfirmed, time.Second, 5*time.Millisecond, nil)

		require.NoError(t, c.Await(context.Background(), "SIG1", testBound()))
		assert.Equal(t, 3, ledger.counts().status)
	})

	t.Run("finalized satisfies confirmed", func(t *testing.T) {
		t.Parallel()
		ledger := newFakeLedger(t)
		ledger.statuses = []*chain.SignatureStatus{{ConfirmationStatus: chain.CommitmentFinalized}}
		c := NewConfirmer(ledger, "", time.Second, 5*time.Millisecond, nil)

		require.NoError(t, c.Await(context.Background(), "SIG1", testBound()))
	})

	t.Run("ledger error is a failed transaction", func(t *testing.T) {
		t.Parallel()
		ledger := newFakeLedger(t)
		ledger.statuses = []*chain.SignatureStatus{{ConfirmationStatus: chain.CommitmentConfirmed, Err: `{"InstructionError":[0,"Custom"]}`}}
		c := NewConfirmer(ledger, chain.CommitmentConfirmed, time.Second, 5*time.Millisecond, nil)

		err := c.Await(context.Background(), "SIG1", testBound())
		require.ErrorIs(t, err, ErrTxFailed)
		assert.Contains(t, tjerr.Details(err)["ledger_error"], "InstructionError")
	})

	t.Run("expired bound is unknown", func(t *testing.T) {
		t.Parallel()
		ledger := newFakeLedger(t)
		ledger.setHeight(251)
		c := NewConfirmer(ledger, chain.CommitmentConfirmed, time.Second, 5*time.Millisecond, nil)

		err := c.Await(context.Background(), "SIG1", testBound())
		require.ErrorIs(t, err, ErrUnknownOutcome)
		assert.Equal(t, "250", tjerr.Details(err)["last_valid_block_height"])
		assert.Equal(t, 1, ledger.counts().height)
	})

	t.Run("timeout is unknown", func(t *testing.T) {
		t.Parallel()
		ledger := newFakeLedger(t)
		c := NewConfirmer(ledger, chain.CommitmentConfirmed, 30*time.Millisecond, 5*time.Millisecond, nil)

		err := c.Await(context.Background(), "SIG1", testBound())
		require.ErrorIs(t, err, ErrUnknownOutcome)
		assert.Equal(t, CategoryUnknown, CategoryOf(err))
	})

	t.Run("read errors keep polling", func(t *testing.T) {
		t.Parallel()
		ledger := newFakeLedger(t)
		ledger.statusErr = chain.ErrNetworkUnavailable
		c := NewConfirmer(ledger, chain.CommitmentConfirmed, 40*time.Millisecond, 5*time.Millisecond, nil)

		err := c.Await(context.Background(), "SIG1", testBound())
		require.ErrorIs(t, err, ErrUnknownOutcome)
		assert.Greater(t, ledger.counts().status, 1)
	})

	t.Run("caller gives up", func(t *testing.T) {
		t.Parallel()
		ledger := newFakeLedger(t)
		c := NewConfirmer(ledger, chain.CommitmentConfirmed, time.Minute, 5*time.Millisecond, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, c.Await(ctx, "SIG1", testBound()), ErrUnknownOutcome)
	})
}

func TestNewConfirmer_Defaults(t *testing.T) {
	t.Parallel()

	c := NewConfirmer(newFakeLedger(t), "", 0, 0, nil)
	assert.Equal(t, chain.CommitmentConfirmed, c.commitment)
	assert.Equal(t, DefaultConfirmTimeout, c.timeout)
	assert.Equal(t, DefaultPollInterval, c.interval)
}
