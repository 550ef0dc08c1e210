package sol

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/metrics"
)

// rpcServer answers JSON-RPC calls from a method -> result table.
func rpcServer(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, ok := results[req.Method]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string, timeout time.Duration, rec Recorder) *Client {
	t.Helper()
	c, err := NewClient(ClientOptions{
		RPCURL:      url,
		Timeout:     timeout,
		RateLimiter: chain.NewRateLimiter(0, 0),
		Recorder:    rec,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresURL(t *testing.T) {
	t.Parallel()
	_, err := NewClient(ClientOptions{})
	require.Error(t, err)
}

func TestClient_Reads(t *testing.T) {
	t.Parallel()

	srv := rpcServer(t, map[string]any{
		"getBalance": map[string]any{"context": map[string]any{"slot": 9}, "value": 12_000_000},
		"getLatestBlockhash": map[string]any{
			"context": map[string]any{"slot": 1000},
			"value":   map[string]any{"blockhash": testBound().Blockhash, "lastValidBlockHeight": 3090},
		},
		"getSignatureStatuses": map[string]any{
			"context": map[string]any{"slot": 1001},
			"value":   []any{map[string]any{"slot": 1001, "confirmations": 0, "err": nil, "confirmationStatus": "confirmed"}},
		},
		"getBlockHeight": 3000,
		"getHealth":      "ok",
	})

	m := metrics.New()
	c := newTestClient(t, srv.URL, time.Second, m)
	ctx := context.Background()

	bal, err := c.GetBalance(ctx, account(t, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(12_000_000), bal)

	bound, err := c.GetFreshnessBound(ctx)
	require.NoError(t, err)
	assert.Equal(t, testBound(), bound)

	status, err := c.GetSignatureStatus(ctx, "sig")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.True(t, status.Reached(chain.CommitmentConfirmed))
	assert.Empty(t, status.Err)

	height, err := c.GetBlockHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), height)

	require.NoError(t, c.Ping(ctx))
	count, err := testutil.GatherAndCount(m.Registry(), "tipjar_rpc_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestClient_UnknownSignature(t *testing.T) {
	t.Parallel()

	srv := rpcServer(t, map[string]any{
		"getSignatureStatuses": map[string]any{"context": map[string]any{"slot": 1}, "value": []any{nil}},
	})
	status, err := newTestClient(t, srv.URL, time.Second, nil).GetSignatureStatus(context.Background(), "sig")
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestClient_FailedSignature(t *testing.T) {
	t.Parallel()

	srv := rpcServer(t, map[string]any{
		"getSignatureStatuses": map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   []any{map[string]any{"slot": 1, "err": map[string]any{"InstructionError": []any{0, "Custom"}}, "confirmationStatus": "confirmed"}},
		},
	})
	status, err := newTestClient(t, srv.URL, time.Second, nil).GetSignatureStatus(context.Background(), "sig")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Contains(t, status.Err, "InstructionError")
}

func TestClient_NetworkUnavailable(t *testing.T) {
	t.Parallel()

	srv := rpcServer(t, map[string]any{})
	_, err := newTestClient(t, srv.URL, time.Second, nil).GetBalance(context.Background(), account(t, 1))
	require.ErrorIs(t, err, chain.ErrNetworkUnavailable)

	srv.Close()
	_, err = newTestClient(t, srv.URL, time.Second, nil).GetBlockHeight(context.Background())
	require.ErrorIs(t, err, chain.ErrNetworkUnavailable)
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(t, srv.URL, 30*time.Millisecond, nil).GetBalance(context.Background(), account(t, 1))
	require.ErrorIs(t, err, chain.ErrTimeout)
}

func TestClient_ParentCanceled(t *testing.T) {
	t.Parallel()

	srv := rpcServer(t, map[string]any{"getBlockHeight": 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv.URL, time.Second, nil).GetBlockHeight(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
