package chain

import (
	"github.com/dogewatch/dogewatch-core/pkg/types"
)

// AddressBalance is the indexer's view of an address. Amounts are in
// koinu, as returned by the API.
type AddressBalance struct {
	Address     string       `json:"address"`
	Confirmed   types.Amount `json:"balance"`
	Unconfirmed types.Amount `json:"unconfirmed_balance"`
	Final       types.Amount `json:"final_balance"`
	TotalIn     types.Amount `json:"total_received"`
	TotalOut    types.Amount `json:"total_sent"`
	TxCount     int          `json:"n_tx"`
}

// TxSkeleton is an unsigned transaction as built by the indexer,
// together with the sighash digests that must be signed. The skeleton
// round-trips through the signer untouched.
type TxSkeleton struct {
	Tx         SkeletonTx `json:"tx"`
	ToSign     []string   `json:"tosign"`
	Signatures []string   `json:"signatures,omitempty"`
	PubKeys    []string   `json:"pubkeys,omitempty"`
	Errors     []apiIssue `json:"errors,omitempty"`
}

// SkeletonTx is the transaction body inside a skeleton.
type SkeletonTx struct {
	Hash    string           `json:"hash"`
	Inputs  []SkeletonInput  `json:"inputs"`
	Outputs []SkeletonOutput `json:"outputs"`
}

// SkeletonInput is one input of an unsigned transaction.
type SkeletonInput struct {
	Addresses []string `json:"addresses"`
}

// SkeletonOutput is one output of an unsigned transaction.
type SkeletonOutput struct {
	Addresses []string     `json:"addresses"`
	Value     types.Amount `json:"value"`
}

// apiIssue is a per-field error entry in an API response body.
type apiIssue struct {
	Error string `json:"error"`
}

// TxStatus is the confirmation state of a broadcast transaction.
type TxStatus struct {
	Hash          string `json:"hash"`
	Confirmations int    `json:"confirmations"`
	BlockHeight   int64  `json:"block_height"`
	DoubleSpend   bool   `json:"double_spend"`
}

// Confirmed reports whether the transaction is in a block.
func (s *TxStatus) Confirmed() bool {
	return s.Confirmations > 0
}
