// Package sol implements the chain interfaces for Solana-compatible ledgers.
package sol

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/chain/sol/rpc"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// Native token parameters.
const (
	Decimals          = 9
	Symbol            = "SOL"
	LamportsPerSOL    = 1_000_000_000
	DefaultFeePerSign = 5000
)

// DefaultTimeout bounds each ledger read.
const DefaultTimeout = 10 * time.Second

// Recorder receives one observation per RPC call.
type Recorder interface {
	RecordRPCCall(method string, duration time.Duration, err error)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	RPCURL      string
	Commitment  string
	Timeout     time.Duration
	RateLimiter *chain.RateLimiter
	HTTPClient  *http.Client
	Recorder    Recorder
}

// Client reads ledger state over JSON-RPC. Every call is rate limited and
// bounded by the configured timeout.
type Client struct {
	rpc        *rpc.Client
	commitment string
	timeout    time.Duration
	limiter    *chain.RateLimiter
	recorder   Recorder
}

var _ chain.Ledger = (*Client)(nil)

// NewClient creates a ledger client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.RPCURL == "" {
		return nil, tjerr.WithDetails(tjerr.ErrInvalidInput, map[string]string{"field": "rpc url"})
	}
	if opts.Commitment == "" {
		opts.Commitment = chain.CommitmentConfirmed
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		rpc:        rpc.NewClient(opts.RPCURL, opts.HTTPClient),
		commitment: opts.Commitment,
		timeout:    opts.Timeout,
		limiter:    opts.RateLimiter,
		recorder:   opts.Recorder,
	}, nil
}

// Commitment returns the commitment level used for reads.
func (c *Client) Commitment() string {
	return c.commitment
}

// do runs fn under the rate limiter and the per-call timeout and maps the
// failure to the ledger error taxonomy.
func (c *Client) do(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.limiter.Wait(callCtx, c.rpc.URL())
	if err == nil {
		err = fn(callCtx)
	}
	if c.recorder != nil {
		c.recorder.RecordRPCCall(method, time.Since(start), err)
	}
	if err == nil {
		return nil
	}
	return classify(ctx, callCtx, method, err)
}

func classify(parent, callCtx context.Context, method string, err error) error {
	details := map[string]string{"method": method}
	switch {
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return tjerr.WithDetails(tjerr.WithCause(chain.ErrTimeout, err), details)
	default:
		return tjerr.WithDetails(tjerr.WithCause(chain.ErrNetworkUnavailable, err), details)
	}
}

// GetBalance returns the account balance in lamports.
func (c *Client) GetBalance(ctx context.Context, account chain.Account) (uint64, error) {
	var balance uint64
	err := c.do(ctx, "getBalance", func(ctx context.Context) error {
		res, err := c.rpc.GetBalance(ctx, account.String(), c.commitment)
		if err != nil {
			return err
		}
		balance = res.Value
		return nil
	})
	return balance, err
}

// GetFreshnessBound fetches the latest blockhash. The response context slot
// becomes the minimum context slot for the broadcast.
func (c *Client) GetFreshnessBound(ctx context.Context) (chain.FreshnessBound, error) {
	var bound chain.FreshnessBound
	err := c.do(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		res, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
		if err != nil {
			return err
		}
		bound = chain.FreshnessBound{
			Blockhash:            res.Value.Blockhash,
			LastValidBlockHeight: res.Value.LastValidBlockHeight,
			MinContextSlot:       res.Context.Slot,
		}
		return nil
	})
	return bound, err
}

// GetSignatureStatus returns the status of a submitted transaction, or nil
// when the ledger has not seen it yet.
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*chain.SignatureStatus, error) {
	var status *chain.SignatureStatus
	err := c.do(ctx, "getSignatureStatuses", func(ctx context.Context) error {
		res, err := c.rpc.GetSignatureStatuses(ctx, []string{signature}, true)
		if err != nil {
			return err
		}
		if len(res) == 0 || res[0] == nil {
			return nil
		}
		s := res[0]
		status = &chain.SignatureStatus{
			Slot:               s.Slot,
			Confirmations:      s.Confirmations,
			ConfirmationStatus: s.ConfirmationStatus,
		}
		if s.Failed() {
			status.Err = string(s.Err)
		}
		return nil
	})
	return status, err
}

// GetBlockHeight returns the current block height.
func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.do(ctx, "getBlockHeight", func(ctx context.Context) error {
		h, err := c.rpc.GetBlockHeight(ctx, c.commitment)
		height = h
		return err
	})
	return height, err
}

// Ping checks that the node is reachable and healthy.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "getHealth", c.rpc.GetHealth)
}
