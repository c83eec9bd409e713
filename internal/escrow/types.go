// Package escrow runs the case lifecycle: bounties escrowed at
// submission, stakes escrowed per vote, and a single atomic
// redistribution when the verification window closes.
package escrow

import (
	"time"

	"github.com/dogewatch/dogewatch-core/pkg/types"
)

// Status is the case lifecycle state. A case leaves resolving for
// exactly one terminal state; terminal states never change.
type Status string

const (
	StatusOpen      Status = "open"
	StatusResolving Status = "resolving"
	StatusVerified  Status = "verified"
	StatusRejected  Status = "rejected"
	StatusDisputed  Status = "disputed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected || s == StatusDisputed
}

// Choice is a voter's verdict on a case.
type Choice string

const (
	ChoiceValid   Choice = "valid"
	ChoiceInvalid Choice = "invalid"
)

// PayoutStatus records how a vote settled. It is the idempotency
// anchor for resolution: a re-run only touches pending votes.
type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutWon     PayoutStatus = "won"
	PayoutLost    PayoutStatus = "lost"
)

// Case is a submitted finding with an escrowed bounty.
type Case struct {
	ID                   string       `json:"id"`
	SubmitterID          string       `json:"submitter_id"`
	Description          string       `json:"description,omitempty"`
	Bounty               types.Amount `json:"bounty"`
	EvidenceCID          string       `json:"evidence_cid,omitempty"`
	Status               Status       `json:"status"`
	CreatedAt            time.Time    `json:"created_at"`
	VerificationClosesAt time.Time    `json:"verification_closes_at"`
	ResolvedAt           *time.Time   `json:"resolved_at,omitempty"`
	FeeCollected         types.Amount `json:"fee_collected,omitempty"`
}

// Vote is one voter's staked verdict. Stake has already been debited
// from the voter when the record exists.
type Vote struct {
	ID           string       `json:"id"`
	CaseID       string       `json:"case_id"`
	VoterID      string       `json:"voter_id"`
	Choice       Choice       `json:"choice"`
	Stake        types.Amount `json:"stake"`
	PayoutStatus PayoutStatus `json:"payout_status"`
	Payout       types.Amount `json:"payout,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Resolution summarizes a completed case settlement.
type Resolution struct {
	CaseID       string                  `json:"case_id"`
	Status       Status                  `json:"status"`
	Winner       Choice                  `json:"winning_choice,omitempty"`
	ValidStake   types.Amount            `json:"valid_stake"`
	InvalidStake types.Amount            `json:"invalid_stake"`
	LosingPool   types.Amount            `json:"losing_pool"`
	WinnerPool   types.Amount            `json:"winner_pool"`
	PlatformFee  types.Amount            `json:"platform_fee"`
	BountyPaid   types.Amount            `json:"bounty_paid"`
	Payouts      map[string]types.Amount `json:"payouts,omitempty"`
}
