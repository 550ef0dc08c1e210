package cli

import (
	"net/http"

	"github.com/mrz1836/tipjar/internal/chain"
	"github.com/mrz1836/tipjar/internal/chain/sol"
	"github.com/mrz1836/tipjar/internal/config"
	"github.com/mrz1836/tipjar/internal/metrics"
	"github.com/mrz1836/tipjar/internal/output"
	"github.com/mrz1836/tipjar/internal/signer"
	"github.com/mrz1836/tipjar/internal/signer/wsbridge"
	"github.com/mrz1836/tipjar/internal/tip"
	"github.com/mrz1836/tipjar/internal/walletsession"
)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Log     *config.Logger
	Fmt     *output.Formatter
	Metrics *metrics.Metrics

	// Transport reaches the external wallet; defaults to the configured bridge.
	Transport signer.Transport

	// HTTPClient is used for ledger RPC; nil uses the default client.
	HTTPClient *http.Client
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(
	cfg *config.Config,
	logger *config.Logger,
	formatter *output.Formatter,
) *CommandContext {
	return &CommandContext{
		Cfg:     cfg,
		Log:     logger,
		Fmt:     formatter,
		Metrics: metrics.Global,
	}
}

// WithTransport sets the signer transport.
func (c *CommandContext) WithTransport(t signer.Transport) *CommandContext {
	c.Transport = t
	return c
}

// WithMetrics sets the metrics instance.
func (c *CommandContext) WithMetrics(m *metrics.Metrics) *CommandContext {
	c.Metrics = m
	return c
}

// Services are the wired tipping components for one process.
type Services struct {
	Ledger      *sol.Client
	Session     *walletsession.Session
	Validator   *tip.AmountValidator
	Coordinator *tip.Coordinator
}

// Policy returns the tipping policy from configuration.
func (c *CommandContext) Policy() tip.Policy {
	p := c.Cfg.Policy
	return tip.Policy{
		MinTip:      p.MinTip,
		Decimals:    p.Decimals,
		FeeLamports: p.FeeLamports,
		Symbol:      p.Symbol,
	}
}

// Ledger creates the rate-limited ledger client.
func (c *CommandContext) Ledger() (*sol.Client, error) {
	n := c.Cfg.Network
	return sol.NewClient(sol.ClientOptions{
		RPCURL:      n.RPC,
		Commitment:  n.Commitment,
		Timeout:     c.Cfg.Timeouts.Network,
		RateLimiter: chain.NewRateLimiter(n.RatePerSecond, n.Burst),
		HTTPClient:  c.HTTPClient,
		Recorder:    c.Metrics,
	})
}

// Session creates an unauthorized wallet session over the configured transport.
func (c *CommandContext) Session() *walletsession.Session {
	transport := c.Transport
	if transport == nil {
		transport = wsbridge.New(c.Cfg.Signer.BridgeURL)
	}
	return walletsession.New(transport, walletsession.Config{
		Identity:         c.Cfg.Signer.AppIdentity,
		Chain:            c.Cfg.Signer.Chain,
		RoundTripTimeout: c.Cfg.Timeouts.SignerRoundTrip,
	}, walletsession.WithLogger(c.Log), walletsession.WithRecorder(c.Metrics))
}

// Services validates the configuration and wires every tipping component.
func (c *CommandContext) Services() (*Services, error) {
	if err := c.Cfg.Validate(); err != nil {
		return nil, err
	}

	validator, err := tip.NewAmountValidator(c.Policy())
	if err != nil {
		return nil, err
	}
	ledger, err := c.Ledger()
	if err != nil {
		return nil, err
	}
	session := c.Session()

	tc := &tip.Config{
		Validator:   validator,
		Balances:    tip.NewBalanceGuard(ledger, c.Policy()),
		Builder:     tip.NewTransactionBuilder(ledger),
		Session:     session,
		ExplorerURL: c.Cfg.ExplorerTxURL,
		Logger:      c.Log,
		Recorder:    c.Metrics,
	}
	if c.Cfg.Confirm.Enabled {
		tc.Confirmer = tip.NewConfirmer(ledger, c.Cfg.Network.Commitment,
			c.Cfg.Timeouts.Confirmation, c.Cfg.Timeouts.PollInterval, c.Log)
	}

	return &Services{
		Ledger:      ledger,
		Session:     session,
		Validator:   validator,
		Coordinator: tip.NewCoordinator(tc),
	}, nil
}
