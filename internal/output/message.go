package output

import (
	"fmt"
	"io"
)

// Status line prefixes for text output.
const (
	prefixInfo    = "ℹ️  "
	prefixWarn    = "⚠️  "
	prefixSuccess = "✅ "
)

// Infof writes an informational line.
func Infof(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, prefixInfo+fmt.Sprintf(format, args...))
}

// Warnf writes a warning line.
func Warnf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, prefixWarn+fmt.Sprintf(format, args...))
}

// Successf writes a success line.
func Successf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, prefixSuccess+fmt.Sprintf(format, args...))
}
