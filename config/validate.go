package config

import (
	"fmt"
	"net/url"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}

	if cfg.Chain.Endpoint != "" {
		u, err := url.Parse(cfg.Chain.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("chain.endpoint must be an http(s) URL")
		}
	}
	if cfg.Chain.TimeoutSec <= 0 {
		cfg.Chain.TimeoutSec = 30
	}

	if cfg.IPFS.Enabled && cfg.IPFS.APIKey == "" {
		return fmt.Errorf("ipfs.enabled requires ipfs.key")
	}

	if cfg.Escrow.MinStake <= 0 {
		return fmt.Errorf("escrow.minstake must be positive")
	}
	if cfg.Escrow.FeeBps < 0 || cfg.Escrow.FeeBps > 10000 {
		return fmt.Errorf("escrow.feebps must be in range [0, 10000]")
	}
	if cfg.Escrow.WindowHours <= 0 {
		return fmt.Errorf("escrow.window must be positive")
	}
	if cfg.Escrow.ResolveIntervalSec <= 0 {
		cfg.Escrow.ResolveIntervalSec = 60
	}

	if cfg.Ledger.MinWithdrawal <= 0 {
		return fmt.Errorf("ledger.min_withdrawal must be positive")
	}
	if cfg.Ledger.NetworkFee < 0 {
		return fmt.Errorf("ledger.network_fee must not be negative")
	}

	return nil
}
