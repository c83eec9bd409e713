// Package chain adapts an external blockchain indexing and broadcast
// API. It shuttles balances, unsigned transaction skeletons, and signed
// transactions; it never holds key material.
package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dogewatch/dogewatch-core/internal/log"
	"github.com/dogewatch/dogewatch-core/pkg/types"
	"github.com/rs/zerolog"
)

// ErrUnavailable marks transient transport or upstream failures.
// Reads are safe to retry on it; broadcasts are not — a prior attempt
// may already have been accepted, so callers must check the
// transaction status by hash first.
var ErrUnavailable = errors.New("chain service unavailable")

// APIError is a definitive rejection from the indexer (bad request,
// unknown address, insufficient funds at the UTXO level).
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chain api error %d: %s", e.Status, e.Body)
}

// Client is the interface the ledger and withdrawal flow depend on.
type Client interface {
	// Balance fetches the confirmed/unconfirmed balance of an address.
	// Idempotent, safe to retry.
	Balance(ctx context.Context, addr types.Address) (*AddressBalance, error)
	// NewTransaction asks the indexer to build an unsigned transaction
	// skeleton moving amount from one address to another.
	NewTransaction(ctx context.Context, from, to types.Address, amount types.Amount) (*TxSkeleton, error)
	// Send attaches signatures and public keys to a skeleton and
	// broadcasts it, returning the transaction hash.
	Send(ctx context.Context, skel *TxSkeleton, sigs, pubkeys [][]byte) (string, error)
	// Transaction fetches the confirmation status of a transaction.
	Transaction(ctx context.Context, hash string) (*TxStatus, error)
}

// HTTPClient talks to a BlockCypher-style REST API.
type HTTPClient struct {
	base   string
	token  string
	http   *http.Client
	logger zerolog.Logger
}

// NewHTTPClient creates a client for the given API base URL
// (e.g. "https://api.blockcypher.com/v1/doge/main"). The token may be
// empty for unauthenticated rate limits.
func NewHTTPClient(base, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		http:   &http.Client{Timeout: timeout},
		logger: log.Chain,
	}
}

// url builds a request URL with the optional API token attached.
func (c *HTTPClient) url(path string) string {
	u := c.base + path
	if c.token != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		u += sep + "token=" + c.token
	}
	return u
}

// Balance implements Client.
func (c *HTTPClient) Balance(ctx context.Context, addr types.Address) (*AddressBalance, error) {
	var bal AddressBalance
	if err := c.get(ctx, "/addrs/"+addr.String()+"/balance", &bal); err != nil {
		return nil, err
	}
	return &bal, nil
}

// NewTransaction implements Client.
func (c *HTTPClient) NewTransaction(ctx context.Context, from, to types.Address, amount types.Amount) (*TxSkeleton, error) {
	req := map[string]interface{}{
		"inputs":  []SkeletonInput{{Addresses: []string{from.String()}}},
		"outputs": []SkeletonOutput{{Addresses: []string{to.String()}, Value: amount}},
	}
	var skel TxSkeleton
	if err := c.post(ctx, "/txs/new", req, &skel); err != nil {
		return nil, err
	}
	if len(skel.ToSign) == 0 {
		return nil, &APIError{Status: http.StatusOK, Body: "skeleton has no digests to sign"}
	}
	return &skel, nil
}

// Send implements Client.
func (c *HTTPClient) Send(ctx context.Context, skel *TxSkeleton, sigs, pubkeys [][]byte) (string, error) {
	if len(sigs) != len(skel.ToSign) || len(pubkeys) != len(skel.ToSign) {
		return "", fmt.Errorf("have %d signatures and %d pubkeys for %d digests",
			len(sigs), len(pubkeys), len(skel.ToSign))
	}

	signed := *skel
	signed.Signatures = make([]string, len(sigs))
	signed.PubKeys = make([]string, len(pubkeys))
	for i := range sigs {
		signed.Signatures[i] = hex.EncodeToString(sigs[i])
		signed.PubKeys[i] = hex.EncodeToString(pubkeys[i])
	}

	var resp TxSkeleton
	if err := c.post(ctx, "/txs/send", &signed, &resp); err != nil {
		return "", err
	}
	if resp.Tx.Hash == "" {
		return "", &APIError{Status: http.StatusOK, Body: "broadcast response missing tx hash"}
	}
	c.logger.Info().Str("tx_hash", resp.Tx.Hash).Msg("transaction broadcast")
	return resp.Tx.Hash, nil
}

// Transaction implements Client.
func (c *HTTPClient) Transaction(ctx context.Context, hash string) (*TxStatus, error) {
	if hash == "" {
		return nil, fmt.Errorf("empty tx hash")
	}
	var status TxStatus
	if err := c.get(ctx, "/txs/"+hash, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// get performs a GET request and decodes the JSON response into out.
func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes a request, classifying failures into ErrUnavailable
// (transport errors, 5xx, 429) versus APIError (4xx rejections).
func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
