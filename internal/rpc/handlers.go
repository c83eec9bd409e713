package rpc

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dogewatch/dogewatch-core/internal/chain"
	"github.com/dogewatch/dogewatch-core/internal/escrow"
	"github.com/dogewatch/dogewatch-core/internal/ledger"
	"github.com/dogewatch/dogewatch-core/pkg/crypto"
	"github.com/dogewatch/dogewatch-core/pkg/types"
)

const version = "0.1.0"

// toRPCError maps domain errors onto JSON-RPC error codes.
func toRPCError(err error) *Error {
	var apiErr *chain.APIError
	switch {
	case errors.Is(err, ledger.ErrWalletNotFound),
		errors.Is(err, escrow.ErrCaseNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return &Error{Code: CodeInsufficient, Message: err.Error()}
	case errors.Is(err, escrow.ErrAlreadyVoted),
		errors.Is(err, escrow.ErrAlreadyResolved),
		errors.Is(err, escrow.ErrCaseClosed),
		errors.Is(err, escrow.ErrSelfVote),
		errors.Is(err, escrow.ErrWindowOpen),
		errors.Is(err, ledger.ErrPendingOperation):
		return &Error{Code: CodeConflict, Message: err.Error()}
	case errors.Is(err, escrow.ErrStakeTooLow),
		errors.Is(err, ledger.ErrInvalidAmount):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, chain.ErrUnavailable):
		return &Error{Code: CodeUnavailable, Message: err.Error()}
	case errors.As(err, &apiErr):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

// parseDoge converts a decimal DOGE string into koinu, rejecting
// non-positive values.
func parseDoge(field, value string) (types.Amount, *Error) {
	if value == "" {
		return 0, &Error{Code: CodeInvalidParams, Message: field + " is required"}
	}
	a, err := types.ParseAmount(value)
	if err != nil {
		return 0, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid %s: %v", field, err)}
	}
	if !a.IsPositive() {
		return 0, &Error{Code: CodeInvalidParams, Message: field + " must be positive"}
	}
	return a, nil
}

// ── Wallet endpoints ────────────────────────────────────────────────────

func (s *Server) handleWalletCreate(req *Request) (interface{}, *Error) {
	var params UserParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.UserID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "user_id is required"}
	}

	w, err := s.ledger.CreateWallet(params.UserID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return NewWalletResult(w), nil
}

func (s *Server) handleWalletGet(req *Request) (interface{}, *Error) {
	var params UserParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.UserID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "user_id is required"}
	}

	w, err := s.ledger.Get(params.UserID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return NewWalletResult(w), nil
}

func (s *Server) handleWalletSync(ctx context.Context, req *Request) (interface{}, *Error) {
	var params UserParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.UserID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "user_id is required"}
	}

	w, err := s.ledger.Reconcile(ctx, params.UserID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return NewWalletResult(w), nil
}

func (s *Server) handleWalletHistory(req *Request) (interface{}, *Error) {
	var params HistoryParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.UserID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "user_id is required"}
	}

	txs, err := s.ledger.History(params.UserID, params.Limit)
	if err != nil {
		return nil, toRPCError(err)
	}
	out := make([]TransactionResult, len(txs))
	for i, tx := range txs {
		out[i] = TransactionResult{
			ID:        tx.ID,
			Type:      string(tx.Type),
			Amount:    amt(tx.Amount),
			Reason:    tx.Reason,
			Reference: tx.Reference,
			TxHash:    tx.TxHash,
			Status:    string(tx.Status),
			CreatedAt: tx.CreatedAt,
		}
	}
	return &HistoryResult{UserID: params.UserID, Transactions: out}, nil
}

// handleWalletWithdraw moves funds from a user's custodial balance to
// an external address. The ledger debit is optimistic: it lands as a
// pending entry before broadcast. A failure before broadcast refunds
// it; a failure during broadcast leaves it pending, because the
// transaction may have reached the network (callers check the
// reference, never blind-retry).
func (s *Server) handleWalletWithdraw(ctx context.Context, req *Request) (interface{}, *Error) {
	var params WithdrawParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.UserID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "user_id is required"}
	}
	to, err := types.ParseAddress(params.ToAddress)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid to_address: %v", err)}
	}
	amount, rpcErr := parseDoge("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if amount < s.policy.MinWithdrawal {
		return nil, &Error{Code: CodeInvalidParams,
			Message: fmt.Sprintf("amount below minimum withdrawal of %s DOGE", s.policy.MinWithdrawal)}
	}
	total, aerr := amount.Add(s.policy.NetworkFee)
	if aerr != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: aerr.Error()}
	}

	ref := "withdraw:" + uuid.NewString()
	if _, err := s.ledger.DebitPending(params.UserID, total, "withdrawal to "+string(to), ref); err != nil {
		return nil, toRPCError(err)
	}

	hash, err := s.broadcast(ctx, params.UserID, to, amount)
	if err != nil {
		var pre *preBroadcastError
		if errors.As(err, &pre) {
			// Funds never left; release the hold.
			if _, serr := s.ledger.Settle(params.UserID, ref, ledger.StatusFailed, ""); serr != nil {
				s.logger.Error().Err(serr).Str("reference", ref).Msg("settle after failed withdrawal")
			}
			return nil, toRPCError(pre.err)
		}
		// Broadcast outcome unknown; the hold stays pending.
		s.logger.Warn().Err(err).Str("reference", ref).Msg("withdrawal broadcast unresolved")
		rpcErr := toRPCError(err)
		rpcErr.Data = map[string]string{"reference": ref}
		return nil, rpcErr
	}

	if _, err := s.ledger.Settle(params.UserID, ref, ledger.StatusConfirmed, hash); err != nil {
		s.logger.Error().Err(err).Str("reference", ref).Str("tx_hash", hash).Msg("settle after broadcast")
	}

	s.logger.Info().
		Str("user", params.UserID).
		Str("to", string(to)).
		Str("amount", amount.String()).
		Str("tx_hash", hash).
		Msg("withdrawal broadcast")
	return &WithdrawResult{
		TxHash:    hash,
		Amount:    amt(amount),
		Fee:       amt(s.policy.NetworkFee),
		Reference: ref,
	}, nil
}

// preBroadcastError marks failures that happen before the transaction
// could have reached the network, so the hold is safe to release.
type preBroadcastError struct{ err error }

func (e *preBroadcastError) Error() string { return e.err.Error() }
func (e *preBroadcastError) Unwrap() error { return e.err }

func preBroadcast(err error) error {
	return &preBroadcastError{err: err}
}

// broadcast builds, signs, and sends the withdrawal transaction.
func (s *Server) broadcast(ctx context.Context, userID string, to types.Address, amount types.Amount) (string, error) {
	dk, err := s.ledger.SignerFor(userID)
	if err != nil {
		return "", preBroadcast(err)
	}

	skel, err := s.chain.NewTransaction(ctx, dk.Address, to, amount)
	if err != nil {
		return "", preBroadcast(err)
	}

	digests := make([][]byte, len(skel.ToSign))
	for i, d := range skel.ToSign {
		raw, derr := hex.DecodeString(d)
		if derr != nil {
			return "", preBroadcast(fmt.Errorf("malformed signing digest %d: %w", i, derr))
		}
		digests[i] = raw
	}

	signer, err := s.deriver.Signer(dk.PrivateKeyWIF)
	if err != nil {
		return "", preBroadcast(err)
	}
	defer signer.Zero()

	sigs, err := crypto.SignDigests(signer, digests)
	if err != nil {
		return "", preBroadcast(err)
	}
	pubkeys := make([][]byte, len(sigs))
	for i := range pubkeys {
		pubkeys[i] = dk.PublicKey
	}

	return s.chain.Send(ctx, skel, sigs, pubkeys)
}

// ── Case endpoints ──────────────────────────────────────────────────────

func (s *Server) handleCaseOpen(ctx context.Context, req *Request) (interface{}, *Error) {
	var params CaseOpenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.SubmitterID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "submitter_id is required"}
	}
	bounty, rpcErr := parseDoge("bounty", params.Bounty)
	if rpcErr != nil {
		return nil, rpcErr
	}

	c, err := s.engine.OpenCase(ctx, params.SubmitterID, bounty, params.Description, params.Evidence)
	if err != nil {
		return nil, toRPCError(err)
	}
	return NewCaseResult(c), nil
}

func (s *Server) handleCaseGet(req *Request) (interface{}, *Error) {
	var params CaseParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.CaseID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "case_id is required"}
	}

	c, err := s.engine.Get(params.CaseID)
	if err != nil {
		return nil, toRPCError(err)
	}
	votes, err := s.engine.Votes(params.CaseID)
	if err != nil {
		return nil, toRPCError(err)
	}
	out := make([]VoteResult, len(votes))
	for i := range votes {
		out[i] = *NewVoteResult(&votes[i])
	}
	return &CaseDetailResult{Case: NewCaseResult(c), Votes: out}, nil
}

func (s *Server) handleCaseList(req *Request) (interface{}, *Error) {
	var params CaseListParam
	if req.Params != nil {
		if err := parseParams(req, &params); err != nil {
			return nil, err
		}
	}

	cases, err := s.engine.List(escrow.Status(params.Status))
	if err != nil {
		return nil, toRPCError(err)
	}
	out := make([]*CaseResult, len(cases))
	for i := range cases {
		out[i] = NewCaseResult(&cases[i])
	}
	return out, nil
}

func (s *Server) handleCaseVote(req *Request) (interface{}, *Error) {
	var params VoteParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.CaseID == "" || params.VoterID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "case_id and voter_id are required"}
	}
	choice := escrow.Choice(params.Choice)
	if choice != escrow.ChoiceValid && choice != escrow.ChoiceInvalid {
		return nil, &Error{Code: CodeInvalidParams, Message: `choice must be "valid" or "invalid"`}
	}
	stake, rpcErr := parseDoge("stake", params.Stake)
	if rpcErr != nil {
		return nil, rpcErr
	}

	v, err := s.engine.CastVote(params.CaseID, params.VoterID, choice, stake)
	if err != nil {
		return nil, toRPCError(err)
	}
	return NewVoteResult(v), nil
}

func (s *Server) handleCaseResolve(req *Request) (interface{}, *Error) {
	var params CaseParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.CaseID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "case_id is required"}
	}

	res, err := s.engine.Resolve(params.CaseID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return NewResolutionResult(res), nil
}

func (s *Server) handleCasePending(req *Request) (interface{}, *Error) {
	cases, err := s.engine.Pending(time.Now())
	if err != nil {
		return nil, toRPCError(err)
	}
	out := make([]*CaseResult, len(cases))
	for i := range cases {
		out[i] = NewCaseResult(&cases[i])
	}
	return out, nil
}

// ── Node endpoints ──────────────────────────────────────────────────────

func (s *Server) handleTreasuryGet(req *Request) (interface{}, *Error) {
	w, err := s.ledger.Get(ledger.TreasuryUserID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return NewWalletResult(w), nil
}

func (s *Server) handleChainGetTransaction(ctx context.Context, req *Request) (interface{}, *Error) {
	var params TxParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Hash == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "hash is required"}
	}

	st, err := s.chain.Transaction(ctx, params.Hash)
	if err != nil {
		return nil, toRPCError(err)
	}
	return &TxStatusResult{
		Hash:          st.Hash,
		Confirmations: st.Confirmations,
		Confirmed:     st.Confirmed(),
		BlockHeight:   st.BlockHeight,
		DoubleSpend:   st.DoubleSpend,
	}, nil
}

func (s *Server) handleNodeGetInfo(req *Request) (interface{}, *Error) {
	treasury, err := s.ledger.Get(ledger.TreasuryUserID)
	if err != nil {
		return nil, toRPCError(err)
	}
	open, err := s.engine.List(escrow.StatusOpen)
	if err != nil {
		return nil, toRPCError(err)
	}
	return &NodeInfoResult{
		Version:         version,
		Network:         s.network,
		TreasuryAddress: string(treasury.Address),
		TreasuryBalance: amt(treasury.Balance),
		OpenCases:       len(open),
		UptimeSeconds:   int64(time.Since(s.started).Seconds()),
	}, nil
}
