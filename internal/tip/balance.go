package tip

import (
	"context"
	"math"

	"github.com/mrz1836/tipjar/internal/chain"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// BalanceGuard checks that the sender can cover a tip plus fee headroom.
// It only reads; nothing is reserved, so a concurrent spend can still make
// the eventual broadcast fail at the signer.
type BalanceGuard struct {
	reader chain.BalanceReader
	policy Policy
}

// NewBalanceGuard creates a guard reading balances from reader.
func NewBalanceGuard(reader chain.BalanceReader, p Policy) *BalanceGuard {
	return &BalanceGuard{reader: reader, policy: p}
}

// Check fetches the sender's balance and evaluates it against amount.
func (g *BalanceGuard) Check(ctx context.Context, sender chain.Account, amount Amount) error {
	balance, err := g.reader.GetBalance(ctx, sender)
	if err != nil {
		return ledgerError(ctx, err)
	}
	return g.Evaluate(balance, amount)
}

// Evaluate compares an observed balance with amount + fee.
func (g *BalanceGuard) Evaluate(balance uint64, amount Amount) error {
	units := uint64(amount)
	details := map[string]string{
		"balance": chain.FormatFixed(balance, g.policy.Decimals, 4) + " " + g.policy.Symbol,
	}

	if balance < units {
		details["required"] = chain.FormatFixed(units, g.policy.Decimals, 4) + " " + g.policy.Symbol
		return tjerr.WithDetails(ErrInsufficientForAmount, details)
	}

	if units > math.MaxUint64-g.policy.FeeLamports {
		return tjerr.WithDetails(ErrInsufficientForFee, details)
	}
	required := units + g.policy.FeeLamports
	if balance < required {
		details["required"] = chain.FormatFixed(required, g.policy.Decimals, 4) + " " + g.policy.Symbol
		details["fee"] = FormatAmount(Amount(g.policy.FeeLamports), g.policy.Decimals) + " " + g.policy.Symbol
		return tjerr.WithDetails(ErrInsufficientForFee, details)
	}
	return nil
}

// ledgerError passes caller cancellation through and makes sure every other
// ledger failure is reported as NETWORK_UNAVAILABLE or TIMEOUT.
func ledgerError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if tjerr.Is(err, ErrTimeout) || tjerr.Is(err, ErrNetworkUnavailable) {
		return err
	}
	return tjerr.WithCause(ErrNetworkUnavailable, err)
}
