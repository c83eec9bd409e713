// Package ledger owns all wallet balance state. Every balance mutation
// flows through Debit/Credit and lands in the append-only transaction
// log, so a wallet's history replays to its current balance.
package ledger

import (
	"time"

	"github.com/dogewatch/dogewatch-core/pkg/types"
)

// TreasuryUserID identifies the platform treasury wallet, pinned at
// the reserved derivation index.
const TreasuryUserID = "treasury"

// Wallet is the durable per-user record. DerivationIndex is assigned
// once and never changes; it is the only link back to the signing key.
type Wallet struct {
	UserID          string       `json:"user_id"`
	Address         types.Address `json:"address"`
	DerivationIndex uint32       `json:"derivation_index"`
	Balance         types.Amount `json:"balance"`
	TotalEarned     types.Amount `json:"total_earned"`
	TotalSpent      types.Amount `json:"total_spent"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// TxType distinguishes ledger entry kinds.
type TxType string

const (
	TxDebit     TxType = "debit"
	TxCredit    TxType = "credit"
	TxReconcile TxType = "reconcile"
)

// TxStatus is the lifecycle of a ledger entry. Internal transfers are
// confirmed at creation; withdrawals stay pending until the chain
// confirms or the broadcast definitively fails.
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusConfirmed TxStatus = "confirmed"
	StatusFailed    TxStatus = "failed"
)

// Transaction is one append-only audit record. Amount is signed:
// negative for debits, positive for credits. Only Status and TxHash
// may change after creation.
type Transaction struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Type      TxType       `json:"type"`
	Amount    types.Amount `json:"amount"`
	Reason    string       `json:"reason"`
	Reference string       `json:"reference,omitempty"`
	TxHash    string       `json:"tx_hash,omitempty"`
	Status    TxStatus     `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
