package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"

	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// Environment variable names.
const (
	EnvHome         = "TIPJAR_HOME"
	EnvRPC          = "TIPJAR_RPC"
	EnvSignerURL    = "TIPJAR_SIGNER_URL"
	EnvListen       = "TIPJAR_LISTEN"
	EnvOutputFormat = "TIPJAR_OUTPUT_FORMAT"
	EnvLogLevel     = "TIPJAR_LOG_LEVEL"
	EnvConfirm      = "TIPJAR_CONFIRM"
	EnvNoColor      = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvSignerURL); v != "" {
		cfg.Signer.BridgeURL = SanitizeURL(v)
	}

	if v := os.Getenv(EnvListen); v != "" {
		cfg.Server.Listen = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvConfirm); v != "" {
		cfg.Confirm.Enabled = parseBool(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided RPC URLs that may contain copy-paste artifacts.
func SanitizeURL(raw string) string {
	return sanitize.URL(strings.TrimSpace(raw))
}

// ValidateRPCURL checks that an endpoint URL uses TLS unless it points at the
// local machine. An empty URL is accepted and means "use the default".
func ValidateRPCURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return tjerr.WithDetails(tjerr.ErrConfigInvalid, map[string]string{"url": raw})
	}

	switch u.Scheme {
	case "https", "wss":
		return nil
	case "http", "ws":
		host := u.Hostname()
		if host == "localhost" {
			return nil
		}
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			return nil
		}
		return tjerr.WithSuggestion(
			tjerr.WithDetails(tjerr.ErrConfigInvalid, map[string]string{"url": raw}),
			"Use https:// or wss:// for remote endpoints",
		)
	default:
		return tjerr.WithDetails(tjerr.ErrConfigInvalid, map[string]string{"url": raw, "scheme": u.Scheme})
	}
}
