package config

import (
	"time"

	"github.com/mrz1836/tipjar/internal/signer"
)

// Default endpoints. The public mainnet RPC is rate limited, so the default
// request rate stays well below its published limit.
const (
	DefaultRPCURL      = "https://api.mainnet-beta.solana.com"
	DefaultExplorerURL = "https://explorer.solana.com"
	DefaultBridgeURL   = "ws://127.0.0.1:8765/signer"
	DefaultListen      = ":8089"
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.tipjar",
		Network: NetworkConfig{
			RPC:           DefaultRPCURL,
			Cluster:       "mainnet-beta",
			ExplorerURL:   DefaultExplorerURL,
			Commitment:    "confirmed",
			RatePerSecond: 4,
			Burst:         2,
		},
		Policy: PolicyConfig{
			MinTip:       "0.001",
			Decimals:     9,
			FeeLamports:  5000,
			Symbol:       "SOL",
			QuickAmounts: []string{"0.001", "0.01", "0.1", "0.5"},
		},
		Timeouts: TimeoutsConfig{
			Network:         10 * time.Second,
			SignerRoundTrip: 5 * time.Minute,
			Confirmation:    30 * time.Second,
			PollInterval:    time.Second,
		},
		Signer: SignerConfig{
			BridgeURL: DefaultBridgeURL,
			AppIdentity: signer.AppIdentity{
				Name: "Tipjar",
				URI:  "https://tipjar.local",
				Icon: "favicon.ico",
			},
			Chain: "solana:mainnet",
		},
		Confirm: ConfirmConfig{
			Enabled: true,
		},
		Server: ServerConfig{
			Listen: DefaultListen,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
		},
		Logging: LoggingConfig{
			Level:      "error",
			File:       "~/.tipjar/tipjar.log",
			MaxSizeMB:  10,
			MaxAgeDays: 14,
		},
	}
}
