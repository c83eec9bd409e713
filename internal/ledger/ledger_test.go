package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dogewatch/dogewatch-core/internal/chain"
	"github.com/dogewatch/dogewatch-core/internal/storage"
	"github.com/dogewatch/dogewatch-core/internal/wallet"
	"github.com/dogewatch/dogewatch-core/pkg/types"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

// fakeChain serves canned balances keyed by address.
type fakeChain struct {
	mu       sync.Mutex
	balances map[types.Address]*chain.AddressBalance
	err      error
}

func (f *fakeChain) Balance(ctx context.Context, addr types.Address) (*chain.AddressBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.balances[addr]; ok {
		return b, nil
	}
	return &chain.AddressBalance{Address: string(addr)}, nil
}

func (f *fakeChain) NewTransaction(ctx context.Context, from types.Address, to types.Address, amount types.Amount) (*chain.TxSkeleton, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChain) Send(ctx context.Context, skel *chain.TxSkeleton, sigs, pubKeys [][]byte) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeChain) Transaction(ctx context.Context, hash string) (*chain.TxStatus, error) {
	return nil, errors.New("not implemented")
}

func newTestLedger(t *testing.T) (*Ledger, *fakeChain) {
	t.Helper()
	svc, err := wallet.NewServiceFromMnemonic(testMnemonic, "", wallet.MainnetParams)
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	fc := &fakeChain{balances: make(map[types.Address]*chain.AddressBalance)}
	return New(storage.NewMemory(), svc, fc), fc
}

func TestCreateWallet(t *testing.T) {
	l, _ := newTestLedger(t)

	w, err := l.CreateWallet("alice")
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	if w.DerivationIndex != wallet.FirstUserIndex {
		t.Errorf("first user index = %d, want %d", w.DerivationIndex, wallet.FirstUserIndex)
	}
	if w.Address == "" || w.Address[0] != 'D' {
		t.Errorf("unexpected address %q", w.Address)
	}
	if w.Balance != 0 {
		t.Errorf("new wallet balance = %d, want 0", w.Balance)
	}

	// Idempotent: same user, same wallet, no new index burned.
	again, err := l.CreateWallet("alice")
	if err != nil {
		t.Fatalf("repeat CreateWallet: %v", err)
	}
	if again.Address != w.Address || again.DerivationIndex != w.DerivationIndex {
		t.Errorf("repeat create changed the wallet: %+v vs %+v", again, w)
	}

	bob, err := l.CreateWallet("bob")
	if err != nil {
		t.Fatalf("CreateWallet bob: %v", err)
	}
	if bob.DerivationIndex != wallet.FirstUserIndex+1 {
		t.Errorf("second user index = %d, want %d", bob.DerivationIndex, wallet.FirstUserIndex+1)
	}
	if bob.Address == w.Address {
		t.Error("distinct users share an address")
	}
}

func TestCreateWalletValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet(""); err == nil {
		t.Error("empty user ID accepted")
	}
	if _, err := l.CreateWallet("a/b"); err == nil {
		t.Error("user ID with separator accepted")
	}
}

func TestTreasuryReservedIndex(t *testing.T) {
	l, _ := newTestLedger(t)

	tw, err := l.EnsureTreasury()
	if err != nil {
		t.Fatalf("EnsureTreasury: %v", err)
	}
	if tw.DerivationIndex != wallet.TreasuryIndex {
		t.Errorf("treasury index = %d, want %d", tw.DerivationIndex, wallet.TreasuryIndex)
	}

	// User creation never hands out the treasury index, even when the
	// treasury was created first.
	uw, err := l.CreateWallet("carol")
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	if uw.DerivationIndex == wallet.TreasuryIndex {
		t.Error("user wallet got the treasury index")
	}

	// Creating "treasury" as a user resolves to the same wallet.
	same, err := l.CreateWallet(TreasuryUserID)
	if err != nil {
		t.Fatalf("CreateWallet treasury: %v", err)
	}
	if same.Address != tw.Address {
		t.Error("treasury wallet not stable across creation paths")
	}
}

func TestCreditDebit(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Credit("alice", 500, "bounty refund", ""); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := l.Debit("alice", 200, "vote stake", ""); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	w, err := l.Get("alice")
	if err != nil {
		t.Fatal(err)
	}
	if w.Balance != 300 {
		t.Errorf("balance = %d, want 300", w.Balance)
	}
	if w.TotalEarned != 500 || w.TotalSpent != 200 {
		t.Errorf("totals = earned %d spent %d, want 500/200", w.TotalEarned, w.TotalSpent)
	}
}

func TestDebitInsufficientFailsClosed(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Credit("alice", 100, "seed", ""); err != nil {
		t.Fatal(err)
	}

	_, err := l.Debit("alice", 101, "too much", "")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// Balance and log untouched by the failed debit.
	w, _ := l.Get("alice")
	if w.Balance != 100 {
		t.Errorf("balance changed on failed debit: %d", w.Balance)
	}
	hist, err := l.History("alice", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 {
		t.Errorf("history has %d entries, want 1", len(hist))
	}
}

func TestMutationValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Credit("alice", 0, "zero", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero credit err = %v, want ErrInvalidAmount", err)
	}
	if _, err := l.Debit("alice", -5, "negative", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative debit err = %v, want ErrInvalidAmount", err)
	}
	if _, err := l.Credit("nobody", 10, "ghost", ""); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("missing wallet err = %v, want ErrWalletNotFound", err)
	}
}

func TestReferenceIdempotency(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}

	const ref = "payout:case-1:alice"
	first, err := l.Credit("alice", 250, "case payout", ref)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	second, err := l.Credit("alice", 250, "case payout", ref)
	if err != nil {
		t.Fatalf("repeat Credit: %v", err)
	}
	if second.ID != first.ID {
		t.Error("repeat credit recorded a new transaction")
	}

	w, _ := l.Get("alice")
	if w.Balance != 250 {
		t.Errorf("balance = %d, want 250 (credit applied twice)", w.Balance)
	}
	hist, _ := l.History("alice", 0)
	if len(hist) != 1 {
		t.Errorf("history has %d entries, want 1", len(hist))
	}
}

func TestHistoryOrderAndLimit(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if _, err := l.Credit("alice", types.Amount(10*(i+1)), "drip", ""); err != nil {
			t.Fatal(err)
		}
	}

	hist, err := l.History("alice", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 5 {
		t.Fatalf("history has %d entries, want 5", len(hist))
	}
	if hist[0].Amount != 50 || hist[4].Amount != 10 {
		t.Errorf("history not newest first: first %d, last %d", hist[0].Amount, hist[4].Amount)
	}

	capped, err := l.History("alice", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(capped) != 2 || capped[0].Amount != 50 {
		t.Errorf("limited history wrong: %+v", capped)
	}
}

func TestPendingDebitSettle(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Credit("alice", 1000, "seed", ""); err != nil {
		t.Fatal(err)
	}

	const ref = "withdraw:abc"
	if _, err := l.DebitPending("alice", 400, "withdrawal", ref); err != nil {
		t.Fatalf("DebitPending: %v", err)
	}
	w, _ := l.Get("alice")
	if w.Balance != 600 {
		t.Errorf("balance after pending debit = %d, want 600", w.Balance)
	}

	tx, err := l.Settle("alice", ref, StatusConfirmed, "deadbeef")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if tx.Status != StatusConfirmed || tx.TxHash != "deadbeef" {
		t.Errorf("settled tx = %+v", tx)
	}

	// A second settle has nothing pending to act on.
	if _, err := l.Settle("alice", ref, StatusConfirmed, "deadbeef"); err == nil {
		t.Error("repeat settle succeeded")
	}
}

func TestSettleFailureRefunds(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Credit("alice", 1000, "seed", ""); err != nil {
		t.Fatal(err)
	}

	const ref = "withdraw:fail"
	if _, err := l.DebitPending("alice", 400, "withdrawal", ref); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Settle("alice", ref, StatusFailed, ""); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	w, _ := l.Get("alice")
	if w.Balance != 1000 {
		t.Errorf("balance after failed withdrawal = %d, want 1000", w.Balance)
	}
}

func TestReconcile(t *testing.T) {
	l, fc := newTestLedger(t)
	w, err := l.CreateWallet("alice")
	if err != nil {
		t.Fatal(err)
	}
	fc.balances[w.Address] = &chain.AddressBalance{
		Address:  string(w.Address),
		Final:    7500,
		TotalIn:  9000,
		TotalOut: 1500,
	}

	got, err := l.Reconcile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got.Balance != 7500 || got.TotalEarned != 9000 || got.TotalSpent != 1500 {
		t.Errorf("reconciled wallet = %+v", got)
	}

	hist, _ := l.History("alice", 0)
	if len(hist) != 1 || hist[0].Type != TxReconcile || hist[0].Amount != 7500 {
		t.Errorf("reconcile audit entry wrong: %+v", hist)
	}

	// Unchanged chain state writes no second entry.
	if _, err := l.Reconcile(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	hist, _ = l.History("alice", 0)
	if len(hist) != 1 {
		t.Errorf("no-op reconcile appended an entry: %d", len(hist))
	}
}

func TestReconcileBlockedByPending(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Credit("alice", 1000, "seed", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := l.DebitPending("alice", 100, "withdrawal", "withdraw:x"); err != nil {
		t.Fatal(err)
	}

	_, err := l.Reconcile(context.Background(), "alice")
	if !errors.Is(err, ErrPendingOperation) {
		t.Errorf("err = %v, want ErrPendingOperation", err)
	}
}

func TestReconcileChainUnavailable(t *testing.T) {
	l, fc := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}
	fc.err = chain.ErrUnavailable

	_, err := l.Reconcile(context.Background(), "alice")
	if !errors.Is(err, chain.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	// Ledger state untouched on failure.
	w, _ := l.Get("alice")
	if w.Balance != 0 {
		t.Errorf("balance mutated on failed reconcile: %d", w.Balance)
	}
}

func TestConcurrentMutations(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CreateWallet("alice"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Credit("alice", 5, "concurrent", ""); err != nil {
				t.Errorf("Credit: %v", err)
			}
		}()
	}
	wg.Wait()

	w, _ := l.Get("alice")
	if w.Balance != 100 {
		t.Errorf("balance = %d, want 100", w.Balance)
	}
	hist, _ := l.History("alice", 0)
	if len(hist) != 20 {
		t.Errorf("history has %d entries, want 20", len(hist))
	}
}

func TestSignerFor(t *testing.T) {
	l, _ := newTestLedger(t)
	w, err := l.CreateWallet("alice")
	if err != nil {
		t.Fatal(err)
	}
	dk, err := l.SignerFor("alice")
	if err != nil {
		t.Fatalf("SignerFor: %v", err)
	}
	if dk.Address != w.Address {
		t.Errorf("signer address %s does not match wallet %s", dk.Address, w.Address)
	}
	if _, err := l.SignerFor("nobody"); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("err = %v, want ErrWalletNotFound", err)
	}
}
