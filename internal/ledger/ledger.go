package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dogewatch/dogewatch-core/internal/chain"
	"github.com/dogewatch/dogewatch-core/internal/log"
	"github.com/dogewatch/dogewatch-core/internal/storage"
	"github.com/dogewatch/dogewatch-core/internal/wallet"
	"github.com/dogewatch/dogewatch-core/pkg/types"
)

var (
	// ErrWalletNotFound is returned when the user has no wallet.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientBalance is returned when a debit exceeds the
	// wallet's ledger balance. The balance is left untouched.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for zero or negative mutation amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrPendingOperation is returned when a reconcile would race an
	// in-flight withdrawal.
	ErrPendingOperation = errors.New("wallet has a pending operation")
)

// Ledger maintains custodial wallet balances. Each user maps to one
// derived address; the chain holds the funds, the ledger holds who owns
// how much. Mutations are serialized per wallet and committed together
// with their audit entry.
type Ledger struct {
	store   *Store
	deriver *wallet.Service
	chain   chain.Client
	logger  zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a ledger over the given database. The deriver assigns
// addresses at wallet creation; the chain client serves reconciliation.
func New(db storage.DB, deriver *wallet.Service, chainClient chain.Client) *Ledger {
	return &Ledger{
		store:   NewStore(db),
		deriver: deriver,
		chain:   chainClient,
		logger:  log.Ledger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing mutations for one wallet.
func (l *Ledger) lockFor(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	return m
}

func validUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("empty user ID")
	}
	if strings.Contains(userID, "/") {
		return fmt.Errorf("user ID must not contain %q", "/")
	}
	return nil
}

// EnsureTreasury creates the treasury wallet at the reserved derivation
// index if it does not exist yet. Called once at startup.
func (l *Ledger) EnsureTreasury() (*Wallet, error) {
	return l.createAt(TreasuryUserID, wallet.TreasuryIndex)
}

// CreateWallet creates a wallet for the user at the next free
// derivation index. Calling it again for the same user returns the
// existing wallet unchanged.
func (l *Ledger) CreateWallet(userID string) (*Wallet, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	if userID == TreasuryUserID {
		return l.EnsureTreasury()
	}

	lock := l.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	if ok, err := l.store.HasWallet(userID); err != nil {
		return nil, err
	} else if ok {
		return l.store.GetWallet(userID)
	}

	// Index allocation shares state across users; serialize it globally.
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, err := l.store.NextIndex()
	if err != nil {
		return nil, err
	}
	w, err := l.create(userID, idx, idx+1)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// createAt creates a wallet at a fixed index without touching the
// allocation counter. Used for the treasury only.
func (l *Ledger) createAt(userID string, index uint32) (*Wallet, error) {
	lock := l.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	if ok, err := l.store.HasWallet(userID); err != nil {
		return nil, err
	} else if ok {
		return l.store.GetWallet(userID)
	}
	return l.create(userID, index, 0)
}

func (l *Ledger) create(userID string, index, nextIndex uint32) (*Wallet, error) {
	dk, err := l.deriver.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("derive index %d: %w", index, err)
	}
	now := time.Now().UTC()
	w := &Wallet{
		UserID:          userID,
		Address:         dk.Address,
		DerivationIndex: index,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := l.store.writeState(w, nil, nextIndex); err != nil {
		return nil, err
	}
	l.logger.Info().
		Str("user", userID).
		Str("address", string(w.Address)).
		Uint32("index", index).
		Msg("wallet created")
	return w, nil
}

// Get returns the wallet for the user.
func (l *Ledger) Get(userID string) (*Wallet, error) {
	ok, err := l.store.HasWallet(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWalletNotFound
	}
	return l.store.GetWallet(userID)
}

// Credit adds funds to the wallet. When reference is non-empty and a
// transaction was already recorded under it, the credit is a no-op and
// the original transaction is returned.
func (l *Ledger) Credit(userID string, amount types.Amount, reason, reference string) (*Transaction, error) {
	return l.mutate(userID, TxCredit, amount, reason, reference, StatusConfirmed)
}

// Debit removes funds from the wallet, failing closed on insufficient
// balance. Idempotent under the same non-empty reference.
func (l *Ledger) Debit(userID string, amount types.Amount, reason, reference string) (*Transaction, error) {
	return l.mutate(userID, TxDebit, amount, reason, reference, StatusConfirmed)
}

// DebitPending records a debit whose final outcome is external, such as
// a withdrawal awaiting broadcast. The balance moves immediately; the
// entry stays pending until Settle.
func (l *Ledger) DebitPending(userID string, amount types.Amount, reason, reference string) (*Transaction, error) {
	if reference == "" {
		return nil, fmt.Errorf("pending debit requires a reference")
	}
	return l.mutate(userID, TxDebit, amount, reason, reference, StatusPending)
}

// Settle finalizes a pending entry. A failed withdrawal refunds the
// debited amount in the same commit.
func (l *Ledger) Settle(userID, reference string, status TxStatus, txHash string) (*Transaction, error) {
	if status != StatusConfirmed && status != StatusFailed {
		return nil, fmt.Errorf("cannot settle to status %q", status)
	}
	lock := l.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := l.store.settle(userID, reference, status, txHash)
	if err != nil {
		return nil, err
	}
	if status == StatusFailed {
		// Compensating credit under a derived reference so a settle
		// retry cannot refund twice.
		if _, err := l.applyLocked(userID, TxCredit, -tx.Amount, "refund: "+tx.Reason, reference+":refund", StatusConfirmed); err != nil {
			return nil, fmt.Errorf("refund failed debit: %w", err)
		}
	}
	l.logger.Info().
		Str("user", userID).
		Str("reference", reference).
		Str("status", string(status)).
		Str("tx_hash", txHash).
		Msg("entry settled")
	return tx, nil
}

func (l *Ledger) mutate(userID string, typ TxType, amount types.Amount, reason, reference string, status TxStatus) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	lock := l.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()
	return l.applyLocked(userID, typ, amount, reason, reference, status)
}

// applyLocked performs the balance mutation. The caller holds the
// wallet lock.
func (l *Ledger) applyLocked(userID string, typ TxType, amount types.Amount, reason, reference string, status TxStatus) (*Transaction, error) {
	if reference != "" {
		if prior, err := l.store.TxByReference(reference); err != nil {
			return nil, err
		} else if prior != nil {
			l.logger.Debug().
				Str("user", userID).
				Str("reference", reference).
				Msg("duplicate reference, returning recorded entry")
			return prior, nil
		}
	}

	ok, err := l.store.HasWallet(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWalletNotFound
	}
	w, err := l.store.GetWallet(userID)
	if err != nil {
		return nil, err
	}

	signed := amount
	switch typ {
	case TxDebit:
		if w.Balance < amount {
			return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, w.Balance, amount)
		}
		next, err := w.Balance.Sub(amount)
		if err != nil {
			return nil, err
		}
		w.Balance = next
		if w.TotalSpent, err = w.TotalSpent.Add(amount); err != nil {
			return nil, err
		}
		signed = -amount
	case TxCredit:
		next, err := w.Balance.Add(amount)
		if err != nil {
			return nil, err
		}
		w.Balance = next
		if w.TotalEarned, err = w.TotalEarned.Add(amount); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown mutation type %q", typ)
	}
	w.UpdatedAt = time.Now().UTC()

	tx := &Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Amount:    signed,
		Reason:    reason,
		Reference: reference,
		Status:    status,
		CreatedAt: w.UpdatedAt,
	}
	if err := l.store.writeState(w, tx, 0); err != nil {
		return nil, err
	}
	l.logger.Debug().
		Str("user", userID).
		Str("type", string(typ)).
		Str("amount", amount.String()).
		Str("reason", reason).
		Msg("balance updated")
	return tx, nil
}

// Reconcile overwrites the wallet's balance and totals with the chain's
// view of its address. The chain is authoritative; any drift is logged
// as a reconcile entry carrying the applied delta. Refused while a
// withdrawal is in flight, since the chain cannot yet reflect it.
func (l *Ledger) Reconcile(ctx context.Context, userID string) (*Wallet, error) {
	lock := l.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	ok, err := l.store.HasWallet(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWalletNotFound
	}
	if pending, err := l.store.HasPending(userID); err != nil {
		return nil, err
	} else if pending {
		return nil, ErrPendingOperation
	}

	w, err := l.store.GetWallet(userID)
	if err != nil {
		return nil, err
	}
	bal, err := l.chain.Balance(ctx, w.Address)
	if err != nil {
		return nil, fmt.Errorf("chain balance: %w", err)
	}

	delta := bal.Final - w.Balance
	if delta == 0 && bal.TotalIn == w.TotalEarned && bal.TotalOut == w.TotalSpent {
		return w, nil
	}
	w.Balance = bal.Final
	w.TotalEarned = bal.TotalIn
	w.TotalSpent = bal.TotalOut
	w.UpdatedAt = time.Now().UTC()

	tx := &Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      TxReconcile,
		Amount:    delta,
		Reason:    "chain reconciliation",
		Status:    StatusConfirmed,
		CreatedAt: w.UpdatedAt,
	}
	if err := l.store.writeState(w, tx, 0); err != nil {
		return nil, err
	}
	l.logger.Info().
		Str("user", userID).
		Str("address", string(w.Address)).
		Str("delta", delta.String()).
		Msg("wallet reconciled")
	return w, nil
}

// History returns the user's ledger entries, newest first.
func (l *Ledger) History(userID string, limit int) ([]Transaction, error) {
	ok, err := l.store.HasWallet(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWalletNotFound
	}
	return l.store.History(userID, limit)
}

// SignerFor returns the signing key for the user's address. The key is
// re-derived on demand and never stored.
func (l *Ledger) SignerFor(userID string) (*wallet.DerivedKey, error) {
	w, err := l.Get(userID)
	if err != nil {
		return nil, err
	}
	return l.deriver.Derive(w.DerivationIndex)
}
