package tip

import (
	"context"
	"strconv"
	"time"

	"github.com/mrz1836/tipjar/internal/chain"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// Confirmer defaults.
const (
	DefaultConfirmTimeout = 30 * time.Second
	DefaultPollInterval   = time.Second
)

// Confirmer polls the ledger for the status of a broadcast transaction.
// Polling is a status read, not a retry: nothing is ever re-sent.
type Confirmer struct {
	reader     chain.StatusReader
	commitment string
	timeout    time.Duration
	interval   time.Duration
	log        LogWriter
}

// NewConfirmer creates a Confirmer. Zero durations use the defaults.
func NewConfirmer(reader chain.StatusReader, commitment string, timeout, interval time.Duration, log LogWriter) *Confirmer {
	if commitment == "" {
		commitment = chain.CommitmentConfirmed
	}
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Confirmer{reader: reader, commitment: commitment, timeout: timeout, interval: interval, log: log}
}

// Await waits until signature reaches the configured commitment. It returns
// ErrTxFailed when the ledger recorded an execution error and
// ErrUnknownOutcome when the timeout elapses, the caller gives up, or the
// freshness bound expires without the ledger reporting the signature.
func (c *Confirmer) Await(ctx context.Context, signature string, bound chain.FreshnessBound) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		done, err := c.poll(ctx, signature, bound)
		if done {
			return err
		}

		select {
		case <-ctx.Done():
			return tjerr.WithDetails(ErrUnknownOutcome, map[string]string{"reason": "confirmation not observed in time"})
		case <-ticker.C:
		}
	}
}

// poll performs one status read. done reports a final answer.
func (c *Confirmer) poll(ctx context.Context, signature string, bound chain.FreshnessBound) (bool, error) {
	status, err := c.reader.GetSignatureStatus(ctx, signature)
	if err != nil {
		c.log.Debug("signature status read failed: %v", err)
		return false, nil
	}

	if status != nil {
		if status.Err != "" {
			return true, tjerr.WithDetails(ErrTxFailed, map[string]string{"ledger_error": status.Err})
		}
		if status.Reached(c.commitment) {
			return true, nil
		}
		return false, nil
	}

	if bound.LastValidBlockHeight == 0 {
		return false, nil
	}
	height, err := c.reader.GetBlockHeight(ctx)
	if err != nil {
		c.log.Debug("block height read failed: %v", err)
		return false, nil
	}
	if height > bound.LastValidBlockHeight {
		return true, tjerr.WithDetails(ErrUnknownOutcome, map[string]string{
			"reason":                  "blockhash expired before the ledger reported the transaction",
			"last_valid_block_height": strconv.FormatUint(bound.LastValidBlockHeight, 10),
		})
	}
	return false, nil
}
