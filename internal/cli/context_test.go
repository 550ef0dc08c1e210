package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tipjar/internal/config"
	"github.com/mrz1836/tipjar/internal/metrics"
	"github.com/mrz1836/tipjar/internal/output"
	"github.com/mrz1836/tipjar/internal/signer/signertest"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

func TestNewCommandContext(t *testing.T) {
	t.Parallel()

	c := config.Defaults()
	l := config.NullLogger()
	f := output.NewFormatter(output.FormatText, nil)

	cc := NewCommandContext(c, l, f)
	assert.Same(t, c, cc.Cfg)
	assert.Same(t, l, cc.Log)
	assert.Same(t, f, cc.Fmt)
	assert.Same(t, metrics.Global, cc.Metrics)
	assert.Nil(t, cc.Transport)

	m := metrics.New()
	wallet := signertest.New(testAccount(t, 1))
	cc.WithMetrics(m).WithTransport(wallet)
	assert.Same(t, m, cc.Metrics)
	assert.Equal(t, wallet, cc.Transport)
}

func TestCommandContext_Policy(t *testing.T) {
	t.Parallel()

	c := config.Defaults()
	c.Policy.MinTip = "0.05"
	c.Policy.Symbol = "TIP"
	p := NewCommandContext(c, config.NullLogger(), nil).Policy()

	assert.Equal(t, "0.05", p.MinTip)
	assert.Equal(t, 9, p.Decimals)
	assert.Equal(t, uint64(5000), p.FeeLamports)
	assert.Equal(t, "TIP", p.Symbol)
}

func TestCommandContext_Services(t *testing.T) {
	t.Parallel()

	c := config.Defaults()
	cc := NewCommandContext(c, config.NullLogger(), nil).WithMetrics(metrics.New())

	svc, err := cc.Services()
	require.NoError(t, err)
	assert.NotNil(t, svc.Ledger)
	assert.NotNil(t, svc.Session)
	assert.NotNil(t, svc.Coordinator)
	assert.Equal(t, "confirmed", svc.Ledger.Commitment())
	assert.False(t, svc.Session.IsAuthorized())
}

func TestCommandContext_ServicesRejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"no rpc", func(c *config.Config) { c.Network.RPC = "" }},
		{"plain http bridge", func(c *config.Config) { c.Signer.BridgeURL = "ws://wallet.example.com" }},
		{"bad minimum", func(c *config.Config) { c.Policy.MinTip = "zero" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := config.Defaults()
			tc.mutate(c)
			_, err := NewCommandContext(c, config.NullLogger(), nil).Services()
			require.Error(t, err)
			assert.True(t, tjerr.Is(err, tjerr.ErrConfigInvalid), "got %v", err)
		})
	}
}
