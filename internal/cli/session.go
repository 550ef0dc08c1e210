package cli

import (
	"encoding/base64"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tipjar/internal/config"
	"github.com/mrz1836/tipjar/internal/output"
	"github.com/mrz1836/tipjar/internal/signer"
	"github.com/mrz1836/tipjar/internal/tip"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// sessionCmd is the parent command for wallet session operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Authorize with the external wallet",
	Long: `Work with the external wallet through the signer bridge.

A session lasts as long as the tipjar process. One-shot commands revoke the
authorization before they exit; use "tipjar serve" to keep a session open
across many tips.`,
}

// sessionConnectCmd authorizes and shows the account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Authorize and show the wallet account",
	Long: `Ask the wallet to authorize tipjar and print the account it grants.

With --statement the wallet is asked to sign in, and the signed message and
signature are printed as well.`,
	Example: `  tipjar session connect
  tipjar session connect --statement "Sign in to Tipjar" -o json`,
	Args: cobra.NoArgs,
	RunE: runSessionConnect,
}

// sessionSignCmd signs an arbitrary message.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionSignCmd = &cobra.Command{
	Use:     "sign <message>",
	Short:   "Sign a message with the wallet account",
	Long:    `Ask the wallet to sign a UTF-8 message and print the base64 signature.`,
	Example: `  tipjar session sign "hello"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionSign,
}

// sessionStatusCmd probes the signer bridge and the ledger.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the signer bridge and ledger RPC",
	Long: `Check that the signer bridge accepts connections and that the ledger RPC
node reports healthy. The wallet is not asked to authorize.`,
	Example: `  tipjar session status`,
	Args:    cobra.NoArgs,
	RunE:    runSessionStatus,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	signInStatement string
	signInDomain    string
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	sessionCmd.GroupID = "wallet"
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionConnectCmd)
	sessionCmd.AddCommand(sessionSignCmd)
	sessionCmd.AddCommand(sessionStatusCmd)

	sessionConnectCmd.Flags().StringVar(&signInStatement, "statement", "", "sign in with this statement")
	sessionConnectCmd.Flags().StringVar(&signInDomain, "domain", "", "domain shown in the sign-in request")
}

func runSessionConnect(cmd *cobra.Command, _ []string) error {
	svc, err := Context().Services()
	if err != nil {
		return err
	}
	defer revokeQuietly(svc, cfg.Timeouts.SignerRoundTrip)

	ctx := commandContext(cmd)
	f := cmdFormatter(cmd)

	if signInStatement == "" && signInDomain == "" {
		account, err := svc.Session.Authorize(ctx)
		if err != nil {
			return err
		}
		return f.Fields(
			[2]string{"state", svc.Session.State().String()},
			[2]string{"account", account.String()},
		)
	}

	res, err := svc.Session.SignIn(ctx, signer.SignInPayload{
		Domain:    signInDomain,
		Statement: signInStatement,
		URI:       cfg.Signer.AppIdentity.URI,
	})
	if err != nil {
		return err
	}
	return f.Fields(
		[2]string{"state", svc.Session.State().String()},
		[2]string{"account", res.Address.String()},
		[2]string{"signed_message", base64.StdEncoding.EncodeToString(res.SignedMessage)},
		[2]string{"signature", base64.StdEncoding.EncodeToString(res.Signature)},
	)
}

func runSessionSign(cmd *cobra.Command, args []string) error {
	if args[0] == "" {
		return tjerr.WithDetails(tjerr.ErrInvalidInput, map[string]string{"field": "message"})
	}

	svc, err := Context().Services()
	if err != nil {
		return err
	}
	defer revokeQuietly(svc, cfg.Timeouts.SignerRoundTrip)

	sig, err := svc.Session.SignMessage(commandContext(cmd), []byte(args[0]))
	if err != nil {
		return err
	}
	account, _ := svc.Session.Account()
	return cmdFormatter(cmd).Fields(
		[2]string{"account", account.String()},
		[2]string{"signature", base64.StdEncoding.EncodeToString(sig)},
	)
}

func runSessionStatus(cmd *cobra.Command, _ []string) error {
	cc := Context()
	if err := cc.Cfg.Validate(); err != nil {
		return err
	}
	f := cmdFormatter(cmd)

	ledgerState := "ok"
	ledger, err := cc.Ledger()
	if err == nil {
		ctx, cancel := contextWithTimeout(cmd, cc.Cfg.Timeouts.Network)
		err = ledger.Ping(ctx)
		cancel()
	}
	if err != nil {
		ledgerState = tjerr.Code(err)
		cc.Log.Debug("ledger probe: %v", err)
	}

	bridgeState := "ok"
	if err := cc.Session().Probe(commandContext(cmd)); err != nil {
		bridgeState = tjerr.Code(tip.FromSigner(err))
		cc.Log.Debug("bridge probe: %v", err)
	}

	if !f.IsJSON() && (ledgerState != "ok" || bridgeState != "ok") {
		output.Warnf(cmd.ErrOrStderr(), "Some components are unreachable")
	}
	return f.Fields(
		[2]string{"rpc", config.SanitizeURL(cc.Cfg.Network.RPC)},
		[2]string{"ledger", ledgerState},
		[2]string{"bridge", config.SanitizeURL(cc.Cfg.Signer.BridgeURL)},
		[2]string{"signer", bridgeState},
	)
}
