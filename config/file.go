package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dogewatch/dogewatch-core/pkg/types"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key. Monetary values are
// written in DOGE ("1.5"), not koinu.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Chain
	case "chain.endpoint":
		cfg.Chain.Endpoint = value
	case "chain.token":
		cfg.Chain.Token = value
	case "chain.timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Chain.TimeoutSec = n

	// IPFS
	case "ipfs.enabled", "ipfs":
		cfg.IPFS.Enabled = parseBool(value)
	case "ipfs.endpoint":
		cfg.IPFS.Endpoint = value
	case "ipfs.key":
		cfg.IPFS.APIKey = value
	case "ipfs.secret":
		cfg.IPFS.APISecret = value

	// Wallet
	case "wallet.seedfile":
		cfg.Wallet.SeedFile = value

	// Escrow
	case "escrow.minstake":
		amt, err := types.ParseAmount(value)
		if err != nil {
			return err
		}
		cfg.Escrow.MinStake = amt
	case "escrow.feebps":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Escrow.FeeBps = n
	case "escrow.window":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Escrow.WindowHours = n
	case "escrow.resolve_interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Escrow.ResolveIntervalSec = n

	// Ledger
	case "ledger.min_withdrawal":
		amt, err := types.ParseAmount(value)
		if err != nil {
			return err
		}
		cfg.Ledger.MinWithdrawal = amt
	case "ledger.network_fee":
		amt, err := types.ParseAmount(value)
		if err != nil {
			return err
		}
		cfg.Ledger.NetworkFee = amt

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# Dogewatch Node Configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.dogewatch)
# datadir = ~/.dogewatch

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + defaultRPCPort(network) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Chain Indexer
# ============================================================================

# BlockCypher-compatible API base URL
chain.endpoint = ` + defaultChainEndpoint(network) + `
# API token (recommended; raises rate limits)
# chain.token =
chain.timeout = 30

# ============================================================================
# IPFS Evidence Pinning
# ============================================================================

ipfs.enabled = false
# ipfs.endpoint = https://api.pinata.cloud
# ipfs.key =
# ipfs.secret =

# ============================================================================
# Wallet
# ============================================================================

# Sealed seed file (default: <datadir>/<network>/seed.json)
# wallet.seedfile =

# ============================================================================
# Escrow
# ============================================================================

# Minimum stake per vote, in DOGE
escrow.minstake = 1
# Platform fee on the losing pool, in basis points
escrow.feebps = 500
# Verification window for new cases, in hours
escrow.window = 72
# Background resolver interval, in seconds
escrow.resolve_interval = 60

# ============================================================================
# Ledger
# ============================================================================

# Minimum withdrawal, in DOGE
ledger.min_withdrawal = 10
# Network fee reserved per withdrawal, in DOGE
ledger.network_fee = 1

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}

func defaultRPCPort(network NetworkType) string {
	if network == Testnet {
		return "8645"
	}
	return "8545"
}

func defaultChainEndpoint(network NetworkType) string {
	if network == Testnet {
		return ""
	}
	return "https://api.blockcypher.com/v1/doge/main"
}
