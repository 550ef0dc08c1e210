package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/config"
	"github.com/mrz1836/tipjar/internal/metrics"
	"github.com/mrz1836/tipjar/internal/output"
	"github.com/mrz1836/tipjar/internal/signer/signertest"
)

// saveGlobals saves all package-level globals and returns a restore function.
func saveGlobals(t *testing.T) func() {
	t.Helper()
	origCfg := cfg
	origLogger := logger
	origFormatter := formatter
	origCmdCtx := cmdCtx
	origHomeDir := homeDir
	origOutputFormat := outputFormat
	origVerbose := verbose
	origBuild := buildInfo
	return func() {
		cfg = origCfg
		logger = origLogger
		formatter = origFormatter
		cmdCtx = origCmdCtx
		homeDir = origHomeDir
		outputFormat = origOutputFormat
		verbose = origVerbose
		buildInfo = origBuild
	}
}

// setupTestEnv points the globals at a temp home with default config and a
// text formatter. Tests using it must not run in parallel.
func setupTestEnv(t *testing.T) (string, func()) {
	t.Helper()
	restore := saveGlobals(t)

	tmpDir := t.TempDir()
	cfg = config.Defaults()
	cfg.Home = tmpDir
	logger = config.NullLogger()
	formatter = output.NewFormatter(output.FormatText, nil)
	cmdCtx = NewCommandContext(cfg, logger, formatter).WithMetrics(metrics.New())

	return tmpDir, restore
}

// setFormat switches the global formatter.
func setFormat(f output.Format) {
	formatter = output.NewFormatter(f, nil)
	cmdCtx.Fmt = formatter
}

// newTestCmd returns a command with a context and captured output.
func newTestCmd(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(t.Context())
	return cmd, &buf
}

func testAccount(t *testing.T, b byte) chain.Account {
	t.Helper()
	a, err := chain.AccountFromBytes(bytes.Repeat([]byte{b}, chain.AccountSize), "")
	require.NoError(t, err)
	return a
}

// fakeLedger is a JSON-RPC node answering the reads a tip makes.
type fakeLedger struct {
	mu      sync.Mutex
	balance uint64
	healthy bool
	methods []string
}

func (f *fakeLedger) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func newFakeLedger(t *testing.T, balance uint64) (*fakeLedger, *httptest.Server) {
	t.Helper()
	f := &fakeLedger{balance: balance, healthy: true}
	blockhash := testAccount(t, 7).String()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		f.mu.Lock()
		f.methods = append(f.methods, req.Method)
		balance, healthy := f.balance, f.healthy
		f.mu.Unlock()

		var result any
		switch req.Method {
		case "getBalance":
			result = map[string]any{"context": map[string]any{"slot": 900}, "value": balance}
		case "getLatestBlockhash":
			result = map[string]any{
				"context": map[string]any{"slot": 1000},
				"value":   map[string]any{"blockhash": blockhash, "lastValidBlockHeight": 3150},
			}
		case "getSignatureStatuses":
			result = map[string]any{
				"context": map[string]any{"slot": 1001},
				"value":   []any{map[string]any{"slot": 1001, "confirmations": nil, "err": nil, "confirmationStatus": "finalized"}},
			}
		case "getBlockHeight":
			result = 3000
		case "getHealth":
			if !healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			result = "ok"
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}))
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

// wireFakes points the command context at a fake ledger and wallet.
func wireFakes(t *testing.T, balance uint64) (*fakeLedger, *signertest.Signer) {
	t.Helper()
	ledger, srv := newFakeLedger(t, balance)
	wallet := signertest.New(testAccount(t, 1))

	cfg.Network.RPC = srv.URL
	cfg.Network.RatePerSecond = 0
	cfg.Timeouts.Network = 2 * time.Second
	cfg.Timeouts.SignerRoundTrip = 2 * time.Second
	cfg.Timeouts.Confirmation = 2 * time.Second
	cfg.Timeouts.PollInterval = 10 * time.Millisecond
	cmdCtx.WithTransport(wallet)
	return ledger, wallet
}
