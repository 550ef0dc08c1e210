package cli

import (
	"github.com/mrz1836/tipjar/internal/api"
	"github.com/mrz1836/tipjar/internal/config"
	"github.com/mrz1836/tipjar/internal/output"
	"github.com/mrz1836/tipjar/internal/tip"
	"github.com/mrz1836/tipjar/internal/walletsession"
)

// Compile-time interface checks.
var (
	_ ConfigProvider          = (*config.Config)(nil)
	_ LogWriter               = (*config.Logger)(nil)
	_ FormatProvider          = (*output.Formatter)(nil)
	_ api.TipSender           = (*tip.Coordinator)(nil)
	_ api.SessionManager      = (*walletsession.Session)(nil)
	_ tip.SessionRunner       = (*walletsession.Session)(nil)
	_ walletsession.LogWriter = (*config.Logger)(nil)
)

// ConfigProvider provides read access to configuration values.
// This interface enables mocking configuration in tests.
type ConfigProvider interface {
	// GetHome returns the tipjar home directory path.
	GetHome() string

	// GetLoggingLevel returns the configured logging level.
	GetLoggingLevel() string

	// GetLoggingFile returns the configured log file path.
	GetLoggingFile() string

	// GetOutputFormat returns the default output format.
	GetOutputFormat() string

	// ExplorerTxURL renders the explorer link for a signature.
	ExplorerTxURL(signature string) string
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
	Close() error
}

// FormatProvider provides output format information.
type FormatProvider interface {
	Format() output.Format
}
