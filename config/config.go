// Package config handles engine configuration.
//
// Two categories of settings live here:
//   - Protocol-tracking values (dust threshold, coinbase maturity) that
//     must match the consensus node's policy
//   - Client settings (node endpoint, cache TTLs) that vary per user
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hoosat-tools/htnforge/internal/feerate"
	"github.com/hoosat-tools/htnforge/pkg/tx"
	"github.com/hoosat-tools/htnforge/pkg/utxo"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds client runtime configuration.
type Config struct {
	// Core
	Network NetworkType
	DataDir string

	// Node/proxy endpoint
	NodeURL     string
	HTTPTimeout time.Duration

	// Fee estimation
	Fees FeesConfig

	// Protocol-tracking values
	CoinbaseMaturity uint64
	DustThreshold    uint64

	// Logging
	Log LogConfig
}

// FeesConfig holds market fee estimator settings.
type FeesConfig struct {
	CacheTTL   time.Duration
	MinSamples int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	JSON  bool
}

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network:     Mainnet,
		DataDir:     DefaultDataDir(),
		NodeURL:     "http://127.0.0.1:42421",
		HTTPTimeout: 10 * time.Second,
		Fees: FeesConfig{
			CacheTTL:   feerate.DefaultTTL,
			MinSamples: feerate.DefaultMinSamples,
		},
		CoinbaseMaturity: utxo.DefaultCoinbaseMaturity,
		DustThreshold:    tx.DustThreshold,
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.NodeURL = "http://127.0.0.1:42422"
	return cfg
}

// DefaultDataDir returns the platform data directory for the client.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".htnforge"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "htnforge")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "htnforge")
		}
		return filepath.Join(home, "htnforge")
	default:
		return filepath.Join(home, ".htnforge")
	}
}

// Validate checks for settings that cannot work.
func (c *Config) Validate() error {
	if c.Network != Mainnet && c.Network != Testnet {
		return fmt.Errorf("unknown network %q", c.Network)
	}
	if c.NodeURL == "" {
		return fmt.Errorf("node URL must be set")
	}
	if c.Fees.CacheTTL < 0 {
		return fmt.Errorf("fee cache TTL must not be negative")
	}
	if c.Fees.MinSamples < 1 {
		return fmt.Errorf("fee minimum sample count must be at least 1")
	}
	return nil
}
