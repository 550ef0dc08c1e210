// Package config provides configuration management for Tipjar.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/tipjar/internal/fileutil"
	"github.com/mrz1836/tipjar/internal/signer"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Network  NetworkConfig  `yaml:"network"`
	Policy   PolicyConfig   `yaml:"policy"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Signer   SignerConfig   `yaml:"signer"`
	Confirm  ConfirmConfig  `yaml:"confirm"`
	Server   ServerConfig   `yaml:"server"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NetworkConfig defines ledger RPC settings.
type NetworkConfig struct {
	RPC           string  `yaml:"rpc"`
	Cluster       string  `yaml:"cluster"`
	ExplorerURL   string  `yaml:"explorer_url"`
	Commitment    string  `yaml:"commitment"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// PolicyConfig defines the tip amount policy.
type PolicyConfig struct {
	MinTip       string   `yaml:"min_tip"`
	Decimals     int      `yaml:"decimals"`
	FeeLamports  uint64   `yaml:"fee_lamports"`
	Symbol       string   `yaml:"symbol"`
	QuickAmounts []string `yaml:"quick_amounts"`
}

// TimeoutsConfig bounds every blocking interaction.
type TimeoutsConfig struct {
	Network         time.Duration `yaml:"network"`
	SignerRoundTrip time.Duration `yaml:"signer_round_trip"`
	Confirmation    time.Duration `yaml:"confirmation"`
	PollInterval    time.Duration `yaml:"poll_interval"`
}

// SignerConfig defines how the external wallet is reached.
type SignerConfig struct {
	BridgeURL   string             `yaml:"bridge_url"`
	AppIdentity signer.AppIdentity `yaml:"app_identity"`
	Chain       string             `yaml:"chain"`
}

// ConfirmConfig controls post-broadcast confirmation polling.
type ConfirmConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads configuration from the specified file. Keys missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tjerr.WithDetails(tjerr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, tjerr.WithCause(tjerr.WithDetails(tjerr.ErrConfigInvalid, map[string]string{"path": path}), err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file, replacing it atomically.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Validate checks values that would otherwise fail deep inside a tip.
func (c *Config) Validate() error {
	invalid := func(key, value string) error {
		return tjerr.WithDetails(tjerr.ErrConfigInvalid, map[string]string{"key": key, "value": value})
	}

	if strings.TrimSpace(c.Network.RPC) == "" {
		return invalid("network.rpc", c.Network.RPC)
	}
	if err := ValidateRPCURL(c.Network.RPC); err != nil {
		return tjerr.WithDetails(err, map[string]string{"key": "network.rpc"})
	}
	if err := ValidateRPCURL(c.Signer.BridgeURL); err != nil {
		return tjerr.WithDetails(err, map[string]string{"key": "signer.bridge_url"})
	}
	switch c.Network.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return invalid("network.commitment", c.Network.Commitment)
	}
	if c.Policy.Decimals < 0 || c.Policy.Decimals > 18 {
		return invalid("policy.decimals", strconv.Itoa(c.Policy.Decimals))
	}
	if strings.TrimSpace(c.Policy.MinTip) == "" {
		return invalid("policy.min_tip", c.Policy.MinTip)
	}
	if c.Timeouts.Network <= 0 {
		return invalid("timeouts.network", c.Timeouts.Network.String())
	}
	if c.Timeouts.SignerRoundTrip <= 0 {
		return invalid("timeouts.signer_round_trip", c.Timeouts.SignerRoundTrip.String())
	}
	return nil
}

// ExplorerTxURL renders the explorer link for a transaction signature, or
// "" when no explorer is configured.
func (c *Config) ExplorerTxURL(signature string) string {
	base := strings.TrimRight(c.Network.ExplorerURL, "/")
	if base == "" || signature == "" {
		return ""
	}
	u := base + "/tx/" + signature
	if c.Network.Cluster != "" && c.Network.Cluster != "mainnet-beta" {
		u += "?cluster=" + c.Network.Cluster
	}
	return u
}

// GetHome returns the tipjar home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// DefaultHome returns the default tipjar home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tipjar"
	}
	return filepath.Join(home, ".tipjar")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}
