// Package rpcclient provides a JSON-RPC 2.0 client for dogewatch nodes.
package rpcclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dogewatch/dogewatch-core/internal/rpc"
)

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, 10*time.Second)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
	Data    map[string]string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded.
func (c *Client) Call(method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// ── Wallet methods ──────────────────────────────────────────────────────

// WalletCreate creates (or returns) the custodial wallet for a user.
func (c *Client) WalletCreate(userID string) (*rpc.WalletResult, error) {
	var out rpc.WalletResult
	if err := c.Call("wallet_create", rpc.UserParam{UserID: userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletGet fetches a user's wallet.
func (c *Client) WalletGet(userID string) (*rpc.WalletResult, error) {
	var out rpc.WalletResult
	if err := c.Call("wallet_get", rpc.UserParam{UserID: userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletSync reconciles a wallet against the chain and returns it.
func (c *Client) WalletSync(userID string) (*rpc.WalletResult, error) {
	var out rpc.WalletResult
	if err := c.Call("wallet_sync", rpc.UserParam{UserID: userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletHistory fetches a user's most recent ledger entries.
func (c *Client) WalletHistory(userID string, limit int) (*rpc.HistoryResult, error) {
	var out rpc.HistoryResult
	if err := c.Call("wallet_history", rpc.HistoryParam{UserID: userID, Limit: limit}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw sends funds from a user's balance to an external address.
// amount is a decimal DOGE string.
func (c *Client) Withdraw(userID, toAddress, amount string) (*rpc.WithdrawResult, error) {
	var out rpc.WithdrawResult
	err := c.Call("wallet_withdraw", rpc.WithdrawParam{
		UserID:    userID,
		ToAddress: toAddress,
		Amount:    amount,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Case methods ────────────────────────────────────────────────────────

// CaseOpen submits a new case with a bounty, in decimal DOGE.
func (c *Client) CaseOpen(submitterID, bounty, description string, evidence interface{}) (*rpc.CaseResult, error) {
	var out rpc.CaseResult
	err := c.Call("case_open", rpc.CaseOpenParam{
		SubmitterID: submitterID,
		Bounty:      bounty,
		Description: description,
		Evidence:    evidence,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CaseGet fetches a case and its votes.
func (c *Client) CaseGet(caseID string) (*rpc.CaseDetailResult, error) {
	var out rpc.CaseDetailResult
	if err := c.Call("case_get", rpc.CaseParam{CaseID: caseID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CaseList lists cases, optionally filtered by status.
func (c *Client) CaseList(status string) ([]rpc.CaseResult, error) {
	var out []rpc.CaseResult
	if err := c.Call("case_list", rpc.CaseListParam{Status: status}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CaseVote stakes DOGE on a verdict. stake is a decimal DOGE string.
func (c *Client) CaseVote(caseID, voterID, choice, stake string) (*rpc.VoteResult, error) {
	var out rpc.VoteResult
	err := c.Call("case_vote", rpc.VoteParam{
		CaseID:  caseID,
		VoterID: voterID,
		Choice:  choice,
		Stake:   stake,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CaseResolve settles a case whose voting window has closed.
func (c *Client) CaseResolve(caseID string) (*rpc.ResolutionResult, error) {
	var out rpc.ResolutionResult
	if err := c.Call("case_resolve", rpc.CaseParam{CaseID: caseID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CasePending lists unresolved cases whose window has closed.
func (c *Client) CasePending() ([]rpc.CaseResult, error) {
	var out []rpc.CaseResult
	if err := c.Call("case_pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ── Node methods ────────────────────────────────────────────────────────

// TreasuryGet fetches the platform treasury wallet.
func (c *Client) TreasuryGet() (*rpc.WalletResult, error) {
	var out rpc.WalletResult
	if err := c.Call("treasury_get", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChainTransaction fetches the confirmation state of a broadcast transaction.
func (c *Client) ChainTransaction(hash string) (*rpc.TxStatusResult, error) {
	var out rpc.TxStatusResult
	if err := c.Call("chain_getTransaction", rpc.TxParam{Hash: hash}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NodeInfo fetches node version, network, and treasury summary.
func (c *Client) NodeInfo() (*rpc.NodeInfoResult, error) {
	var out rpc.NodeInfoResult
	if err := c.Call("node_getInfo", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
