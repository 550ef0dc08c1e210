package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tipjar/internal/output"
)

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

// cmdFormatter returns a formatter in the global format that writes to the
// command's output stream.
func cmdFormatter(cmd *cobra.Command) *output.Formatter {
	format := output.FormatText
	if formatter != nil {
		format = formatter.Format()
	}
	return output.NewFormatter(format, cmd.OutOrStdout())
}
