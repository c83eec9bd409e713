package rpcclient

import (
	"context"
	"errors"
	"testing"

	"github.com/dogewatch/dogewatch-core/config"
	"github.com/dogewatch/dogewatch-core/internal/chain"
	"github.com/dogewatch/dogewatch-core/internal/escrow"
	"github.com/dogewatch/dogewatch-core/internal/ledger"
	klog "github.com/dogewatch/dogewatch-core/internal/log"
	"github.com/dogewatch/dogewatch-core/internal/rpc"
	"github.com/dogewatch/dogewatch-core/internal/storage"
	"github.com/dogewatch/dogewatch-core/internal/wallet"
	"github.com/dogewatch/dogewatch-core/pkg/types"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

// stubChain satisfies chain.Client for tests that never reach the network.
type stubChain struct{}

func (stubChain) Balance(ctx context.Context, addr types.Address) (*chain.AddressBalance, error) {
	return &chain.AddressBalance{Address: string(addr)}, nil
}

func (stubChain) NewTransaction(ctx context.Context, from, to types.Address, amount types.Amount) (*chain.TxSkeleton, error) {
	return nil, chain.ErrUnavailable
}

func (stubChain) Send(ctx context.Context, skel *chain.TxSkeleton, sigs, pubkeys [][]byte) (string, error) {
	return "", chain.ErrUnavailable
}

func (stubChain) Transaction(ctx context.Context, hash string) (*chain.TxStatus, error) {
	return &chain.TxStatus{Hash: hash, Confirmations: 6, BlockHeight: 42}, nil
}

type testEnv struct {
	client *Client
	ledger *ledger.Ledger
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	svc, err := wallet.NewServiceFromMnemonic(testMnemonic, "", wallet.MainnetParams)
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	led := ledger.New(storage.NewMemory(), svc, stubChain{})
	if _, err := led.EnsureTreasury(); err != nil {
		t.Fatalf("treasury: %v", err)
	}
	eng := escrow.New(storage.NewMemory(), led, nil, escrow.DefaultConfig())

	srv := rpc.New("127.0.0.1:0", "mainnet", led, eng, stubChain{}, svc, config.LedgerConfig{
		MinWithdrawal: 10 * types.KoinuPerCoin,
		NetworkFee:    types.KoinuPerCoin,
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		client: New("http://" + srv.Addr()),
		ledger: led,
	}
}

func TestWalletMethods(t *testing.T) {
	env := setupTestEnv(t)

	created, err := env.client.WalletCreate("alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.UserID != "alice" || created.Address == "" {
		t.Errorf("created = %+v", created)
	}

	if _, err := env.ledger.Credit("alice", 25*types.KoinuPerCoin, "test credit", ""); err != nil {
		t.Fatal(err)
	}

	got, err := env.client.WalletGet("alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance.Koinu != 25*types.KoinuPerCoin {
		t.Errorf("balance = %d", got.Balance.Koinu)
	}

	hist, err := env.client.WalletHistory("alice", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist.Transactions) != 1 || hist.Transactions[0].Reason != "test credit" {
		t.Errorf("history = %+v", hist.Transactions)
	}
}

func TestCaseMethods(t *testing.T) {
	env := setupTestEnv(t)

	for _, u := range []string{"sub", "voter"} {
		if _, err := env.client.WalletCreate(u); err != nil {
			t.Fatal(err)
		}
		if _, err := env.ledger.Credit(u, 50*types.KoinuPerCoin, "seed", ""); err != nil {
			t.Fatal(err)
		}
	}

	c, err := env.client.CaseOpen("sub", "20", "fake exchange", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if c.Status != "open" || c.Bounty.Koinu != 20*types.KoinuPerCoin {
		t.Errorf("case = %+v", c)
	}

	v, err := env.client.CaseVote(c.ID, "voter", "valid", "5")
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if v.Choice != "valid" || v.Stake.Koinu != 5*types.KoinuPerCoin {
		t.Errorf("vote = %+v", v)
	}

	detail, err := env.client.CaseGet(c.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Votes) != 1 {
		t.Errorf("votes = %d", len(detail.Votes))
	}

	open, err := env.client.CaseList("open")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 1 {
		t.Errorf("open cases = %d", len(open))
	}

	pending, err := env.client.CasePending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, window still open", len(pending))
	}
}

func TestNodeMethods(t *testing.T) {
	env := setupTestEnv(t)

	treasury, err := env.client.TreasuryGet()
	if err != nil {
		t.Fatalf("treasury: %v", err)
	}
	if treasury.DerivationIndex != 0 {
		t.Errorf("treasury index = %d", treasury.DerivationIndex)
	}

	info, err := env.client.NodeInfo()
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Network != "mainnet" || info.TreasuryAddress != treasury.Address {
		t.Errorf("info = %+v", info)
	}

	st, err := env.client.ChainTransaction("abc")
	if err != nil {
		t.Fatalf("chain tx: %v", err)
	}
	if !st.Confirmed || st.Confirmations != 6 {
		t.Errorf("status = %+v", st)
	}
}

func TestErrorMapping(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.client.WalletGet("nobody")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error type = %T", err)
	}
	if rpcErr.Code != rpc.CodeNotFound {
		t.Errorf("code = %d", rpcErr.Code)
	}
}

func TestUnreachableEndpoint(t *testing.T) {
	c := New("http://127.0.0.1:1")
	if _, err := c.NodeInfo(); err == nil {
		t.Error("expected transport error")
	}
}
