// Package rpc provides a minimal JSON-RPC 2.0 client for Solana-compatible nodes.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

var (
	// ErrRPCRequest indicates an RPC request failed.
	ErrRPCRequest = &tjerr.TipjarError{
		Code:     "RPC_REQUEST_FAILED",
		Message:  "RPC request failed",
		ExitCode: tjerr.ExitGeneral,
	}

	// ErrRPCResponse indicates an invalid RPC response.
	ErrRPCResponse = &tjerr.TipjarError{
		Code:     "RPC_INVALID_RESPONSE",
		Message:  "invalid RPC response",
		ExitCode: tjerr.ExitGeneral,
	}
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 4 << 20

// Client is a minimal Solana JSON-RPC client.
type Client struct {
	url        string
	httpClient *http.Client
	idCounter  atomic.Uint64
}

// NewClient creates a new RPC client. A nil httpClient uses a default client;
// deadlines come from the request context.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		url:        url,
		httpClient: httpClient,
	}
}

// URL returns the endpoint the client talks to.
func (c *Client) URL() string {
	return c.url
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Call performs a JSON-RPC call and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.idCounter.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending HTTP request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, tjerr.WithDetails(ErrRPCRequest, map[string]string{
			"method": method,
			"status": httpResp.Status,
		})
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, tjerr.WithCause(ErrRPCResponse, err)
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// Context is the slot context attached to most RPC results.
type Context struct {
	Slot uint64 `json:"slot"`
}

// BalanceResult is the getBalance result.
type BalanceResult struct {
	Context Context `json:"context"`
	Value   uint64  `json:"value"`
}

// BlockhashResult is the getLatestBlockhash result.
type BlockhashResult struct {
	Context Context `json:"context"`
	Value   struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

// SignatureStatus is one entry of a getSignatureStatuses result.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Failed reports whether the node recorded an execution error.
func (s *SignatureStatus) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

type commitmentConfig struct {
	Commitment string `json:"commitment,omitempty"`
}

// GetBalance returns the balance of an address in lamports.
func (c *Client) GetBalance(ctx context.Context, address, commitment string) (*BalanceResult, error) {
	result, err := c.Call(ctx, "getBalance", address, commitmentConfig{Commitment: commitment})
	if err != nil {
		return nil, err
	}

	var out BalanceResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, tjerr.WithCause(ErrRPCResponse, fmt.Errorf("parsing balance: %w", err))
	}
	return &out, nil
}

// GetLatestBlockhash returns the most recent blockhash and its expiry height.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment string) (*BlockhashResult, error) {
	result, err := c.Call(ctx, "getLatestBlockhash", commitmentConfig{Commitment: commitment})
	if err != nil {
		return nil, err
	}

	var out BlockhashResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, tjerr.WithCause(ErrRPCResponse, fmt.Errorf("parsing blockhash: %w", err))
	}
	if out.Value.Blockhash == "" {
		return nil, tjerr.WithDetails(ErrRPCResponse, map[string]string{"method": "getLatestBlockhash"})
	}
	return &out, nil
}

// GetSignatureStatuses returns one status per signature; unknown signatures
// yield nil entries.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string, searchHistory bool) ([]*SignatureStatus, error) {
	cfg := map[string]bool{"searchTransactionHistory": searchHistory}
	result, err := c.Call(ctx, "getSignatureStatuses", signatures, cfg)
	if err != nil {
		return nil, err
	}

	var out struct {
		Context Context            `json:"context"`
		Value   []*SignatureStatus `json:"value"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, tjerr.WithCause(ErrRPCResponse, fmt.Errorf("parsing signature statuses: %w", err))
	}
	return out.Value, nil
}

// GetBlockHeight returns the current block height.
func (c *Client) GetBlockHeight(ctx context.Context, commitment string) (uint64, error) {
	result, err := c.Call(ctx, "getBlockHeight", commitmentConfig{Commitment: commitment})
	if err != nil {
		return 0, err
	}

	var height uint64
	if err := json.Unmarshal(result, &height); err != nil {
		return 0, tjerr.WithCause(ErrRPCResponse, fmt.Errorf("parsing block height: %w", err))
	}
	return height, nil
}

// GetHealth returns nil when the node reports itself healthy.
func (c *Client) GetHealth(ctx context.Context) error {
	result, err := c.Call(ctx, "getHealth")
	if err != nil {
		return err
	}

	var status string
	if err := json.Unmarshal(result, &status); err != nil || status != "ok" {
		return tjerr.WithDetails(ErrRPCResponse, map[string]string{"method": "getHealth", "status": string(result)})
	}
	return nil
}
