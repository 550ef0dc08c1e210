package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRPC = errors.New("rpc failed")

func TestMetrics_RecordRPCCall(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordRPCCall("getBalance", 100*time.Millisecond, nil)
	m.RecordRPCCall("getBalance", 50*time.Millisecond, errRPC)
	m.RecordRPCCall("getLatestBlockhash", 10*time.Millisecond, nil)

	assert.InDelta(t, 1, testutil.ToFloat64(m.rpcCalls.WithLabelValues("getBalance", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rpcCalls.WithLabelValues("getBalance", "error")), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(m.rpcCalls))
	assert.Equal(t, 2, testutil.CollectAndCount(m.rpcLatency))
}

func TestMetrics_SignerAndSessions(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordSignerCall("authorize", "ok", time.Second)
	m.RecordSignerCall("sign_and_send", "cancelled", 2*time.Second)
	m.RecordReauthorization()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.InDelta(t, 1, testutil.ToFloat64(m.signerCalls.WithLabelValues("sign_and_send", "cancelled")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.reauthorizations), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.openSessions), 0)
}

func TestMetrics_RecordTipOutcome(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordTipOutcome("success", "OK")
	m.RecordTipOutcome("success", "OK")
	m.RecordTipOutcome("cancelled", "USER_CANCELLED")

	assert.InDelta(t, 2, testutil.ToFloat64(m.tipOutcomes.WithLabelValues("success", "OK")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.tipOutcomes.WithLabelValues("cancelled", "USER_CANCELLED")), 0)
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRPCCall("getBalance", time.Millisecond, nil)
		m.RecordSignerCall("authorize", "ok", time.Millisecond)
		m.RecordTipOutcome("success", "OK")
		m.RecordReauthorization()
		m.SessionOpened()
		m.SessionClosed()
		m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()
	m := New()
	m.RecordHTTPRequest(http.MethodPost, "/api/v1/tips", http.StatusOK, 20*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx // test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tipjar_http_requests_total{method="POST",route="/api/v1/tips",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	a.RecordReauthorization()
	assert.InDelta(t, 0, testutil.ToFloat64(b.reauthorizations), 0)
	assert.NotSame(t, a.Registry(), b.Registry())
}
