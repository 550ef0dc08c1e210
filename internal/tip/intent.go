package tip

import (
	"context"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/chain/sol"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// TransferIntent is a validated request to move Amount from Sender to Recipient.
type TransferIntent struct {
	Sender    chain.Account
	Recipient chain.Account
	Amount    Amount
}

// Validate checks the intent's invariants.
func (i TransferIntent) Validate() error {
	if i.Sender.Equal(i.Recipient) {
		return tjerr.WithDetails(ErrSelfTip, map[string]string{"recipient": i.Recipient.Short()})
	}
	if i.Amount == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// UnsignedTransaction is an immutable transfer tied to one freshness bound.
// It must be broadcast before the bound passes, or rebuilt.
type UnsignedTransaction struct {
	Intent  TransferIntent
	Bound   chain.FreshnessBound
	payload []byte
}

// Bytes returns a copy of the wire encoding handed to the signer.
func (u *UnsignedTransaction) Bytes() []byte {
	return append([]byte(nil), u.payload...)
}

// TransactionBuilder builds transfers against a freshly fetched bound.
type TransactionBuilder struct {
	reader chain.FreshnessReader
}

// NewTransactionBuilder creates a builder.
func NewTransactionBuilder(reader chain.FreshnessReader) *TransactionBuilder {
	return &TransactionBuilder{reader: reader}
}

// Build fetches a new freshness bound and encodes a single-instruction
// transfer. Bounds are never cached: every call fetches its own.
func (b *TransactionBuilder) Build(ctx context.Context, intent TransferIntent) (*UnsignedTransaction, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	bound, err := b.reader.GetFreshnessBound(ctx)
	if err != nil {
		return nil, ledgerError(ctx, err)
	}

	tx, err := sol.NewTransfer(intent.Sender, intent.Recipient, uint64(intent.Amount), bound)
	if err != nil {
		return nil, tjerr.WithCause(ErrNetworkUnavailable, err)
	}
	payload, err := tx.Serialize()
	if err != nil {
		return nil, tjerr.WithCause(ErrNetworkUnavailable, err)
	}

	return &UnsignedTransaction{Intent: intent, Bound: bound, payload: payload}, nil
}
