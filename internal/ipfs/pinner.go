// Package ipfs pins evidence payloads to a Pinata-compatible pinning
// service. The returned CID is stored as an opaque string; nothing in
// the service reads pinned content back.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dogewatch/dogewatch-core/internal/log"
)

const defaultEndpoint = "https://api.pinata.cloud"

// Pinner uploads JSON documents to the pinning API.
type Pinner struct {
	endpoint string
	key      string
	secret   string
	http     *http.Client
	logger   zerolog.Logger
}

// NewPinner creates a pinner. endpoint may be empty for the hosted
// default.
func NewPinner(endpoint, key, secret string, timeout time.Duration) *Pinner {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Pinner{
		endpoint: endpoint,
		key:      key,
		secret:   secret,
		http:     &http.Client{Timeout: timeout},
		logger:   log.WithComponent("ipfs"),
	}
}

type pinRequest struct {
	Metadata pinMetadata `json:"pinataMetadata"`
	Content  any         `json:"pinataContent"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinJSON pins v under the given name and returns its CID.
func (p *Pinner) PinJSON(ctx context.Context, name string, v any) (string, error) {
	body, err := json.Marshal(pinRequest{
		Metadata: pinMetadata{Name: name},
		Content:  v,
	})
	if err != nil {
		return "", fmt.Errorf("marshal pin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("pinata_api_key", p.key)
	req.Header.Set("pinata_secret_api_key", p.secret)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read pin response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pin failed: status %d: %s", resp.StatusCode, data)
	}

	var pr pinResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return "", fmt.Errorf("decode pin response: %w", err)
	}
	if pr.IpfsHash == "" {
		return "", fmt.Errorf("pin response missing hash")
	}

	p.logger.Debug().
		Str("name", name).
		Str("cid", pr.IpfsHash).
		Int64("size", pr.PinSize).
		Msg("content pinned")
	return pr.IpfsHash, nil
}
