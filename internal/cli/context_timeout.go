package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := commandContext(cmd)
	if d <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, d)
}

// commandContext returns the command context without a deadline. Tip and
// wallet calls carry their own per-step timeouts.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
