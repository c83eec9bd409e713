package rpc

import (
	"time"

	"github.com/dogewatch/dogewatch-core/internal/escrow"
	"github.com/dogewatch/dogewatch-core/internal/ledger"
	"github.com/dogewatch/dogewatch-core/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeConflict       = -32001
	CodeInsufficient   = -32002
	CodeUnavailable    = -32003
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────
//
// Monetary params are decimal DOGE strings ("12.5"); the boundary
// converts to koinu before anything else touches the value.

// UserParam is used by endpoints that take a user ID.
type UserParam struct {
	UserID string `json:"user_id"`
}

// HistoryParam is used by wallet_history.
type HistoryParam struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

// WithdrawParam is used by wallet_withdraw.
type WithdrawParam struct {
	UserID    string `json:"user_id"`
	ToAddress string `json:"to_address"`
	Amount    string `json:"amount"`
}

// CaseOpenParam is used by case_open.
type CaseOpenParam struct {
	SubmitterID string      `json:"submitter_id"`
	Bounty      string      `json:"bounty"`
	Description string      `json:"description,omitempty"`
	Evidence    interface{} `json:"evidence,omitempty"`
}

// CaseParam is used by endpoints that take a case ID.
type CaseParam struct {
	CaseID string `json:"case_id"`
}

// CaseListParam is used by case_list.
type CaseListParam struct {
	Status string `json:"status,omitempty"`
}

// VoteParam is used by case_vote.
type VoteParam struct {
	CaseID  string `json:"case_id"`
	VoterID string `json:"voter_id"`
	Choice  string `json:"choice"`
	Stake   string `json:"stake"`
}

// TxParam is used by chain_getTransaction.
type TxParam struct {
	Hash string `json:"hash"`
}

// ── Result types ────────────────────────────────────────────────────────

// AmountResult pairs the raw koinu value with its display form.
type AmountResult struct {
	Koinu types.Amount `json:"koinu"`
	Doge  string       `json:"doge"`
}

func amt(a types.Amount) AmountResult {
	return AmountResult{Koinu: a, Doge: a.String()}
}

// WalletResult is returned by the wallet endpoints.
type WalletResult struct {
	UserID          string       `json:"user_id"`
	Address         string       `json:"address"`
	DerivationIndex uint32       `json:"derivation_index"`
	Balance         AmountResult `json:"balance"`
	TotalEarned     AmountResult `json:"total_earned"`
	TotalSpent      AmountResult `json:"total_spent"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewWalletResult converts a ledger wallet for RPC responses.
func NewWalletResult(w *ledger.Wallet) *WalletResult {
	return &WalletResult{
		UserID:          w.UserID,
		Address:         string(w.Address),
		DerivationIndex: w.DerivationIndex,
		Balance:         amt(w.Balance),
		TotalEarned:     amt(w.TotalEarned),
		TotalSpent:      amt(w.TotalSpent),
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

// TransactionResult is one ledger history entry.
type TransactionResult struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Amount    AmountResult `json:"amount"`
	Reason    string       `json:"reason"`
	Reference string       `json:"reference,omitempty"`
	TxHash    string       `json:"tx_hash,omitempty"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// HistoryResult is returned by wallet_history.
type HistoryResult struct {
	UserID       string              `json:"user_id"`
	Transactions []TransactionResult `json:"transactions"`
}

// WithdrawResult is returned by wallet_withdraw.
type WithdrawResult struct {
	TxHash    string       `json:"tx_hash"`
	Amount    AmountResult `json:"amount"`
	Fee       AmountResult `json:"fee"`
	Reference string       `json:"reference"`
}

// CaseResult is returned by the case endpoints.
type CaseResult struct {
	ID                   string       `json:"id"`
	SubmitterID          string       `json:"submitter_id"`
	Description          string       `json:"description,omitempty"`
	Bounty               AmountResult `json:"bounty"`
	EvidenceCID          string       `json:"evidence_cid,omitempty"`
	Status               string       `json:"status"`
	CreatedAt            time.Time    `json:"created_at"`
	VerificationClosesAt time.Time    `json:"verification_closes_at"`
	ResolvedAt           *time.Time   `json:"resolved_at,omitempty"`
}

// NewCaseResult converts an escrow case for RPC responses.
func NewCaseResult(c *escrow.Case) *CaseResult {
	return &CaseResult{
		ID:                   c.ID,
		SubmitterID:          c.SubmitterID,
		Description:          c.Description,
		Bounty:               amt(c.Bounty),
		EvidenceCID:          c.EvidenceCID,
		Status:               string(c.Status),
		CreatedAt:            c.CreatedAt,
		VerificationClosesAt: c.VerificationClosesAt,
		ResolvedAt:           c.ResolvedAt,
	}
}

// VoteResult is one vote on a case.
type VoteResult struct {
	ID           string       `json:"id"`
	CaseID       string       `json:"case_id"`
	VoterID      string       `json:"voter_id"`
	Choice       string       `json:"choice"`
	Stake        AmountResult `json:"stake"`
	PayoutStatus string       `json:"payout_status"`
	Payout       AmountResult `json:"payout"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewVoteResult converts an escrow vote for RPC responses.
func NewVoteResult(v *escrow.Vote) *VoteResult {
	return &VoteResult{
		ID:           v.ID,
		CaseID:       v.CaseID,
		VoterID:      v.VoterID,
		Choice:       string(v.Choice),
		Stake:        amt(v.Stake),
		PayoutStatus: string(v.PayoutStatus),
		Payout:       amt(v.Payout),
		CreatedAt:    v.CreatedAt,
	}
}

// CaseDetailResult is returned by case_get: the case plus its votes.
type CaseDetailResult struct {
	Case  *CaseResult  `json:"case"`
	Votes []VoteResult `json:"votes"`
}

// ResolutionResult is returned by case_resolve.
type ResolutionResult struct {
	CaseID       string                  `json:"case_id"`
	Status       string                  `json:"status"`
	Winner       string                  `json:"winning_choice,omitempty"`
	ValidStake   AmountResult            `json:"valid_stake"`
	InvalidStake AmountResult            `json:"invalid_stake"`
	LosingPool   AmountResult            `json:"losing_pool"`
	WinnerPool   AmountResult            `json:"winner_pool"`
	PlatformFee  AmountResult            `json:"platform_fee"`
	BountyPaid   AmountResult            `json:"bounty_paid"`
	Payouts      map[string]AmountResult `json:"payouts,omitempty"`
}

// NewResolutionResult converts a resolution summary for RPC responses.
func NewResolutionResult(r *escrow.Resolution) *ResolutionResult {
	payouts := make(map[string]AmountResult, len(r.Payouts))
	for id, p := range r.Payouts {
		payouts[id] = amt(p)
	}
	return &ResolutionResult{
		CaseID:       r.CaseID,
		Status:       string(r.Status),
		Winner:       string(r.Winner),
		ValidStake:   amt(r.ValidStake),
		InvalidStake: amt(r.InvalidStake),
		LosingPool:   amt(r.LosingPool),
		WinnerPool:   amt(r.WinnerPool),
		PlatformFee:  amt(r.PlatformFee),
		BountyPaid:   amt(r.BountyPaid),
		Payouts:      payouts,
	}
}

// TxStatusResult is returned by chain_getTransaction.
type TxStatusResult struct {
	Hash          string `json:"hash"`
	Confirmations int    `json:"confirmations"`
	Confirmed     bool   `json:"confirmed"`
	BlockHeight   int64  `json:"block_height,omitempty"`
	DoubleSpend   bool   `json:"double_spend"`
}

// NodeInfoResult is returned by node_getInfo.
type NodeInfoResult struct {
	Version         string       `json:"version"`
	Network         string       `json:"network"`
	TreasuryAddress string       `json:"treasury_address"`
	TreasuryBalance AmountResult `json:"treasury_balance"`
	OpenCases       int          `json:"open_cases"`
	UptimeSeconds   int64        `json:"uptime_seconds"`
}
