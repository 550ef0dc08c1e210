package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tipjar/internal/output"
	"github.com/mrz1836/tipjar/internal/tip"
)

// tipCmd is the parent command for tipping.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Send tips and list preset amounts",
	Long: `Send a tip from the account authorized in your external wallet.

Each tip checks the amount and your balance, builds a transfer with a fresh
blockhash, and hands it to the wallet to sign and broadcast. Exactly one
outcome is reported: sent, cancelled, failed, or unknown. An unknown outcome
means the transfer may have happened; check the explorer link before retrying.`,
}

// tipSendCmd sends one tip.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tipSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a tip to a recipient",
	Long: `Send a tip to a recipient address.

The wallet is asked to authorize first if there is no session, and once more
if it reports the session as expired. Nothing is retried after the wallet has
been asked to sign.`,
	Example: `  tipjar tip send --to 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin --amount 0.01
  tipjar tip send --to 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin --amount 0.5 --no-confirm -o json`,
	Args: cobra.NoArgs,
	RunE: runTipSend,
}

// tipAmountsCmd lists the preset amounts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tipAmountsCmd = &cobra.Command{
	Use:     "amounts",
	Short:   "List preset tip amounts",
	Long:    `List the configured quick amounts with the minimum tip and fee headroom.`,
	Example: `  tipjar tip amounts`,
	Args:    cobra.NoArgs,
	RunE:    runTipAmounts,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	tipTo        string
	tipAmount    string
	tipNoConfirm bool
	tipNoQR      bool
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	tipCmd.GroupID = "tipping"
	rootCmd.AddCommand(tipCmd)
	tipCmd.AddCommand(tipSendCmd)
	tipCmd.AddCommand(tipAmountsCmd)

	tipSendCmd.Flags().StringVar(&tipTo, "to", "", "recipient address, base58 (required)")
	tipSendCmd.Flags().StringVar(&tipAmount, "amount", "", "amount in display units, e.g. 0.01 (required)")
	tipSendCmd.Flags().BoolVar(&tipNoConfirm, "no-confirm", false, "report the tip once broadcast without waiting for confirmation")
	tipSendCmd.Flags().BoolVar(&tipNoQR, "no-qr", false, "do not render the explorer link as a QR code")

	_ = tipSendCmd.MarkFlagRequired("to")
	_ = tipSendCmd.MarkFlagRequired("amount")
}

func runTipSend(cmd *cobra.Command, _ []string) error {
	cc := Context()
	if tipNoConfirm {
		cc.Cfg.Confirm.Enabled = false
	}

	svc, err := cc.Services()
	if err != nil {
		return err
	}
	defer revokeQuietly(svc, cc.Cfg.Timeouts.SignerRoundTrip)

	w := cmd.OutOrStdout()
	f := cmdFormatter(cmd)
	if !f.IsJSON() {
		output.Infof(cmd.ErrOrStderr(), "Approve the transfer in your wallet...")
	}

	res, err := svc.Coordinator.SendTip(commandContext(cmd), tipTo, tipAmount)
	if err != nil {
		return err
	}

	if f.IsJSON() {
		return f.Print(res)
	}

	output.Successf(w, "Sent %s", res.DisplayAmount)
	if err := f.Fields(
		[2]string{"Recipient", res.Recipient.String()},
		[2]string{"From", res.Sender.String()},
		[2]string{"Status", string(res.Status)},
		[2]string{"Signature", res.Signature},
		[2]string{"Explorer", res.ExplorerURL},
	); err != nil {
		return err
	}
	if !tipNoQR && res.ExplorerURL != "" {
		output.RenderQR(w, res.ExplorerURL, output.DefaultQRConfig())
	}
	return nil
}

func runTipAmounts(cmd *cobra.Command, _ []string) error {
	cc := Context()
	policy := cc.Policy()

	validator, err := tip.NewAmountValidator(policy)
	if err != nil {
		return err
	}
	amounts, err := validator.QuickAmounts(cc.Cfg.Policy.QuickAmounts)
	if err != nil {
		return err
	}

	f := cmdFormatter(cmd)
	if f.IsJSON() {
		return f.Print(map[string]any{
			"minimum": tip.FormatAmount(validator.Minimum(), policy.Decimals),
			"symbol":  policy.Symbol,
			"fee":     tip.FormatAmount(tip.Amount(policy.FeeLamports), policy.Decimals),
			"amounts": amounts,
		})
	}

	t := output.NewTable("AMOUNT", "SYMBOL", "UNITS")
	t.AlignRight(0)
	t.AlignRight(2)
	for _, a := range amounts {
		t.AddRow(a.Text, policy.Symbol, strconv.FormatUint(uint64(a.Units), 10))
	}
	w := cmd.OutOrStdout()
	if err := t.Render(w); err != nil {
		return err
	}
	outln(w)
	out(w, "Minimum tip: %s %s (plus %s %s fee headroom)\n",
		tip.FormatAmount(validator.Minimum(), policy.Decimals), policy.Symbol,
		tip.FormatAmount(tip.Amount(policy.FeeLamports), policy.Decimals), policy.Symbol)
	return nil
}

// revokeQuietly ends the wallet authorization when a one-shot command exits.
func revokeQuietly(svc *Services, timeout time.Duration) {
	if !svc.Session.IsAuthorized() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := svc.Session.Revoke(ctx); err != nil && logger != nil {
		logger.Debug("revoke on exit: %v", err)
	}
}
