// Package config handles application configuration.
//
// Settings come from three layers with increasing precedence: built-in
// defaults, the .conf file, and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/dogewatch/dogewatch-core/pkg/types"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds runtime configuration for a dogewatchd instance.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// RPC server
	RPC RPCConfig

	// Chain indexer API
	Chain ChainConfig

	// IPFS pinning
	IPFS IPFSConfig

	// Wallet seed
	Wallet WalletConfig

	// Case escrow and resolution
	Escrow EscrowConfig

	// Ledger withdrawal policy
	Ledger LedgerConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// ChainConfig holds chain indexer API settings.
type ChainConfig struct {
	Endpoint   string `conf:"chain.endpoint"`
	Token      string `conf:"chain.token"`
	TimeoutSec int    `conf:"chain.timeout"`
}

// IPFSConfig holds evidence pinning settings. Disabled means cases
// store no evidence CID.
type IPFSConfig struct {
	Enabled   bool   `conf:"ipfs.enabled"`
	Endpoint  string `conf:"ipfs.endpoint"`
	APIKey    string `conf:"ipfs.key"`
	APISecret string `conf:"ipfs.secret"`
}

// WalletConfig holds seed storage settings.
type WalletConfig struct {
	SeedFile string `conf:"wallet.seedfile"` // Empty = <datadir>/<network>/seed.json
}

// EscrowConfig holds case lifecycle settings.
type EscrowConfig struct {
	MinStake           types.Amount `conf:"escrow.minstake"`
	FeeBps             int64        `conf:"escrow.feebps"`
	WindowHours        int          `conf:"escrow.window"`
	ResolveIntervalSec int          `conf:"escrow.resolve_interval"`
}

// LedgerConfig holds withdrawal policy settings.
type LedgerConfig struct {
	MinWithdrawal types.Amount `conf:"ledger.min_withdrawal"`
	NetworkFee    types.Amount `conf:"ledger.network_fee"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.dogewatch
//	macOS:   ~/Library/Application Support/Dogewatch
//	Windows: %APPDATA%\Dogewatch
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dogewatch"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Dogewatch")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Dogewatch")
		}
		return filepath.Join(home, "AppData", "Roaming", "Dogewatch")
	default:
		return filepath.Join(home, ".dogewatch")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// DBDir returns the database directory.
func (c *Config) DBDir() string {
	return filepath.Join(c.NetworkDataDir(), "db")
}

// SeedFilePath returns the sealed seed file path, honoring the
// wallet.seedfile override.
func (c *Config) SeedFilePath() string {
	if c.Wallet.SeedFile != "" {
		return c.Wallet.SeedFile
	}
	return filepath.Join(c.NetworkDataDir(), "seed.json")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "dogewatch.conf")
}
