package config

import "github.com/dogewatch/dogewatch-core/pkg/types"

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       8545,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Chain: ChainConfig{
			Endpoint:   "https://api.blockcypher.com/v1/doge/main",
			TimeoutSec: 30,
		},
		IPFS: IPFSConfig{
			Enabled:  false,
			Endpoint: "https://api.pinata.cloud",
		},
		Escrow: EscrowConfig{
			MinStake:           1 * types.KoinuPerCoin,
			FeeBps:             500,
			WindowHours:        72,
			ResolveIntervalSec: 60,
		},
		Ledger: LedgerConfig{
			MinWithdrawal: 10 * types.KoinuPerCoin,
			NetworkFee:    1 * types.KoinuPerCoin,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet. The
// indexer endpoint must be supplied by the operator; no public testnet
// indexer is assumed.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.Port = 8645
	cfg.Chain.Endpoint = ""
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
