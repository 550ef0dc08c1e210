// Package tip implements sending a native-currency tip through an external
// signer: amount validation, balance check, transaction building, signing
// under the wallet session and outcome classification.
package tip

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/walletsession"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// BalanceChecker checks that a sender can afford a tip.
type BalanceChecker interface {
	Check(ctx context.Context, sender chain.Account, amount Amount) error
}

// TxBuilder builds unsigned transactions.
type TxBuilder interface {
	Build(ctx context.Context, intent TransferIntent) (*UnsignedTransaction, error)
}

// SessionRunner is the part of the wallet session the coordinator uses.
type SessionRunner interface {
	Account() (chain.Account, bool)
	Authorize(ctx context.Context) (chain.Account, error)
	RunAuthorized(ctx context.Context, op walletsession.Operation) error
}

// Awaiter waits for a broadcast transaction to confirm.
type Awaiter interface {
	Await(ctx context.Context, signature string, bound chain.FreshnessBound) error
}

// Recorder receives tip outcome metrics.
type Recorder interface {
	RecordTipOutcome(category, code string)
}

// Config holds dependencies for the coordinator.
type Config struct {
	Validator *AmountValidator
	Balances  BalanceChecker
	Builder   TxBuilder
	Session   SessionRunner

	// Confirmer is optional; without it successful tips are reported as submitted.
	Confirmer Awaiter

	// ExplorerURL renders a link for a signature; optional.
	ExplorerURL func(signature string) string

	Logger   LogWriter
	Recorder Recorder
}

// Coordinator is the entry point for sending tips. It holds no state of its
// own between calls: every call re-validates, re-reads the balance and
// fetches a new freshness bound.
type Coordinator struct {
	validator *AmountValidator
	balances  BalanceChecker
	builder   TxBuilder
	session   SessionRunner
	confirmer Awaiter
	explorer  func(string) string
	logger    LogWriter
	recorder  Recorder
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(cfg *Config) *Coordinator {
	c := &Coordinator{
		validator: cfg.Validator,
		balances:  cfg.Balances,
		builder:   cfg.Builder,
		session:   cfg.Session,
		confirmer: cfg.Confirmer,
		explorer:  cfg.ExplorerURL,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
	}
	if c.logger == nil {
		c.logger = nopLogger{}
	}
	return c
}

// Validator returns the amount validator.
func (c *Coordinator) Validator() *AmountValidator {
	return c.validator
}

// SendTip sends amountText (display units) to recipientText (base58 address).
//
// Each step's failure is terminal; the only automatic retry is the wallet
// session's single re-authorization. On ErrUnknownOutcome and ErrTxFailed
// the error details carry the signature.
func (c *Coordinator) SendTip(ctx context.Context, recipientText, amountText string) (*Result, error) {
	id := uuid.NewString()
	start := time.Now()

	res, err := c.sendTip(ctx, id, recipientText, amountText)

	category := CategoryOf(err)
	code := "OK"
	if err != nil {
		code = tjerr.Code(err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = "ABANDONED"
		}
	}
	if c.recorder != nil {
		c.recorder.RecordTipOutcome(string(category), code)
	}

	switch category {
	case CategorySuccess:
		c.logger.Debug("tip %s: %s sent in %s (signature %s)", id, res.DisplayAmount, time.Since(start).Round(time.Millisecond), chain.Ellipsify(res.Signature, 8))
	case CategoryError, CategoryUnknown:
		c.logger.Error("tip %s: %s: %v", id, category, err)
	default:
		c.logger.Debug("tip %s: %s (%s)", id, category, code)
	}
	return res, err
}

func (c *Coordinator) sendTip(ctx context.Context, id, recipientText, amountText string) (*Result, error) {
	policy := c.validator.Policy()

	amount, err := c.validator.Validate(amountText)
	if err != nil {
		return nil, err
	}

	recipient, err := chain.ParseAccount(recipientText)
	if err != nil {
		return nil, tjerr.WithCause(ErrInvalidRecipient, err)
	}

	sender, ok := c.session.Account()
	if ok && sender.Equal(recipient) {
		return nil, tjerr.WithDetails(ErrSelfTip, map[string]string{"recipient": recipient.Short()})
	}
	if !ok {
		c.logger.Debug("tip %s: no wallet session, authorizing", id)
		sender, err = c.session.Authorize(ctx)
		if err != nil {
			return nil, FromSigner(err)
		}
	}

	intent := TransferIntent{Sender: sender, Recipient: recipient, Amount: amount}
	if err = intent.Validate(); err != nil {
		return nil, err
	}

	if err = c.balances.Check(ctx, sender, amount); err != nil {
		return nil, err
	}

	tx, err := c.builder.Build(ctx, intent)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("tip %s: built transfer %s -> %s, valid until height %d", id, sender.Short(), recipient.Short(), tx.Bound.LastValidBlockHeight)

	var signature string
	err = c.session.RunAuthorized(ctx, func(ctx context.Context, w walletsession.Wallet) error {
		if !w.Account().Equal(sender) {
			return tjerr.WithDetails(ErrAccountChanged, map[string]string{
				"expected": sender.Short(),
				"actual":   w.Account().Short(),
			})
		}
		sig, err := w.SignAndSend(ctx, tx.Bytes(), tx.Bound.MinContextSlot)
		if err != nil {
			return err
		}
		signature = sig
		return nil
	})
	if err != nil {
		return nil, FromSigner(err)
	}

	res := &Result{
		ID:            id,
		Signature:     signature,
		Amount:        amount,
		DisplayAmount: FormatAmount(amount, policy.Decimals) + " " + policy.Symbol,
		Symbol:        policy.Symbol,
		Sender:        sender,
		Recipient:     recipient,
		Status:        StatusSubmitted,
		Freshness:     tx.Bound,
	}
	if c.explorer != nil {
		res.ExplorerURL = c.explorer(signature)
	}

	if c.confirmer == nil {
		return res, nil
	}
	if err = c.confirmer.Await(ctx, signature, tx.Bound); err != nil {
		details := map[string]string{"signature": signature}
		if res.ExplorerURL != "" {
			details["explorer_url"] = res.ExplorerURL
		}
		return nil, tjerr.WithDetails(err, details)
	}
	res.Status = StatusConfirmed
	return res, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
