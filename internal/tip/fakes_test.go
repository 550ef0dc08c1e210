package tip

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tipjar/internal/chain"
)

func testAccount(t *testing.T, b byte) chain.Account {
	t.Helper()
	a, err := chain.AccountFromBytes(bytes.Repeat([]byte{b}, chain.AccountSize), "")
	require.NoError(t, err)
	return a
}

// fakeLedger is an in-memory chain.Ledger. Each GetFreshnessBound returns a
// new blockhash so tests can tell bounds apart.
type fakeLedger struct {
	mu sync.Mutex

	balance    uint64
	balanceErr error
	boundErr   error
	statuses   []*chain.SignatureStatus // consumed per status read; last one repeats
	statusErr  error
	height     uint64

	nBalance, nBound, nStatus, nHeight int
}

type ledgerCounts struct {
	balance, bound, status, height int
}

func newFakeLedger(t *testing.T) *fakeLedger {
	t.Helper()
	return &fakeLedger{height: 100}
}

func (f *fakeLedger) counts() ledgerCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ledgerCounts{f.nBalance, f.nBound, f.nStatus, f.nHeight}
}

func (f *fakeLedger) GetBalance(ctx context.Context, _ chain.Account) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nBalance++
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, ctx.Err()
}

func (f *fakeLedger) GetFreshnessBound(ctx context.Context) (chain.FreshnessBound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nBound++
	if f.boundErr != nil {
		return chain.FreshnessBound{}, f.boundErr
	}
	hash := bytes.Repeat([]byte{byte(f.nBound)}, 32)
	return chain.FreshnessBound{
		Blockhash:            base58.Encode(hash),
		LastValidBlockHeight: f.height + 150,
		MinContextSlot:       uint64(1000 + f.nBound), //nolint:gosec // test counter
	}, ctx.Err()
}

func (f *fakeLedger) GetSignatureStatus(_ context.Context, _ string) (*chain.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nStatus++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if len(f.statuses) == 0 {
		return nil, nil
	}
	s := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return s, nil
}

func (f *fakeLedger) GetBlockHeight(_ context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nHeight++
	return f.height, nil
}

func (f *fakeLedger) setHeight(h uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.height = h
}

// countingBalances and countingBuilder record calls for the
// no-network-before-validation properties.
type countingBalances struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingBalances) Check(context.Context, chain.Account, Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

type countingBuilder struct {
	mu    sync.Mutex
	calls int
	inner TxBuilder
}

func (c *countingBuilder) Build(ctx context.Context, intent TransferIntent) (*UnsignedTransaction, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.inner == nil {
		return nil, fmt.Errorf("unexpected build: %w", ErrNetworkUnavailable)
	}
	return c.inner.Build(ctx, intent)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) RecordTipOutcome(category, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, category+"/"+code)
}

func (r *outcomeRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}
