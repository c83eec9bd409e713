// Package node wires the custodial wallet, case engine, chain client,
// and RPC server into a single embeddable service.
package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dogewatch/dogewatch-core/config"
	"github.com/dogewatch/dogewatch-core/internal/chain"
	"github.com/dogewatch/dogewatch-core/internal/escrow"
	"github.com/dogewatch/dogewatch-core/internal/ipfs"
	"github.com/dogewatch/dogewatch-core/internal/ledger"
	klog "github.com/dogewatch/dogewatch-core/internal/log"
	"github.com/dogewatch/dogewatch-core/internal/rpc"
	"github.com/dogewatch/dogewatch-core/internal/storage"
	"github.com/dogewatch/dogewatch-core/internal/wallet"
	"github.com/dogewatch/dogewatch-core/pkg/types"
)

// Node is a fully-initialized dogewatch service.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db      storage.DB
	deriver *wallet.Service
	ledger  *ledger.Ledger
	engine  *escrow.Engine
	chain   chain.Client

	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a Node from an unsealed master seed. It
// performs all setup steps (logger, storage, derivation, ledger, case
// engine, RPC) but does NOT start background goroutines. Call Start()
// for that. The caller keeps ownership of seed and should zero it
// after New returns.
func New(cfg *config.Config, seed []byte) (*Node, error) {
	// Address version is process-wide; it must be set before any
	// address is derived or parsed.
	params := wallet.MainnetParams
	if cfg.Network == config.Testnet {
		types.SetAddressVersion(types.TestnetPubKeyHash)
		params = wallet.TestnetParams
	} else {
		types.SetAddressVersion(types.MainnetPubKeyHash)
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = logsDir + "/dogewatchd.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("chain_endpoint", cfg.Chain.Endpoint).
		Msg("Starting dogewatch node")

	deriver, err := wallet.NewService(seed, params)
	if err != nil {
		return nil, fmt.Errorf("derivation service: %w", err)
	}

	db, err := storage.NewBadger(cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.DBDir(), err)
	}
	logger.Info().Str("path", cfg.DBDir()).Msg("Database opened")

	chainClient := chain.NewHTTPClient(cfg.Chain.Endpoint, cfg.Chain.Token,
		time.Duration(cfg.Chain.TimeoutSec)*time.Second)

	led := ledger.New(storage.NewPrefixDB(db, []byte("ledger/")), deriver, chainClient)
	treasury, err := led.EnsureTreasury()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure treasury wallet: %w", err)
	}
	logger.Info().Str("address", string(treasury.Address)).Msg("Treasury wallet ready")

	var pinner escrow.Pinner
	if cfg.IPFS.Enabled {
		pinner = ipfs.NewPinner(cfg.IPFS.Endpoint, cfg.IPFS.APIKey, cfg.IPFS.APISecret, 0)
		logger.Info().Msg("Evidence pinning enabled")
	}

	eng := escrow.New(storage.NewPrefixDB(db, []byte("escrow/")), led, pinner, escrow.Config{
		MinStake: cfg.Escrow.MinStake,
		FeeBps:   cfg.Escrow.FeeBps,
		Window:   time.Duration(cfg.Escrow.WindowHours) * time.Hour,
	})

	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		rpcServer = rpc.New(addr, string(cfg.Network), led, eng, chainClient,
			deriver, cfg.Ledger, cfg.RPC)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		deriver:   deriver,
		ledger:    led,
		engine:    eng,
		chain:     chainClient,
		rpcServer: rpcServer,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start launches the RPC server and the background case resolver.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start rpc server: %w", err)
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server listening")
	}

	interval := time.Duration(n.cfg.Escrow.ResolveIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	n.wg.Add(1)
	go n.runResolver(interval)

	return nil
}

// Stop shuts down background work, the RPC server, and the database.
func (n *Node) Stop() {
	n.logger.Info().Msg("Shutting down")
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC server shutdown")
		}
	}
	if err := n.db.Close(); err != nil {
		n.logger.Warn().Err(err).Msg("Database close")
	}
	n.logger.Info().Msg("Shutdown complete")
}

// RPCAddr returns the actual RPC listen address, or "" when RPC is disabled.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Ledger exposes the wallet ledger for embedding binaries.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Engine exposes the case engine for embedding binaries.
func (n *Node) Engine() *escrow.Engine {
	return n.engine
}

// runResolver periodically settles cases whose voting window has closed.
func (n *Node) runResolver(interval time.Duration) {
	defer n.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.resolveDue()
		}
	}
}

func (n *Node) resolveDue() {
	due, err := n.engine.Pending(time.Now())
	if err != nil {
		n.logger.Error().Err(err).Msg("List pending cases")
		return
	}
	for i := range due {
		c := &due[i]
		res, err := n.engine.Resolve(c.ID)
		if err != nil {
			// Another caller may have settled it between listing and here.
			if errors.Is(err, escrow.ErrAlreadyResolved) {
				continue
			}
			n.logger.Error().Err(err).Str("case", c.ID).Msg("Resolve case")
			continue
		}
		n.logger.Info().
			Str("case", c.ID).
			Str("status", string(res.Status)).
			Str("fee", res.PlatformFee.String()).
			Msg("Case resolved")
	}
}
