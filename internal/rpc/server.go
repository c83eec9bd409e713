// Package rpc implements the JSON-RPC 2.0 API server.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dogewatch/dogewatch-core/config"
	"github.com/dogewatch/dogewatch-core/internal/chain"
	"github.com/dogewatch/dogewatch-core/internal/escrow"
	"github.com/dogewatch/dogewatch-core/internal/ledger"
	klog "github.com/dogewatch/dogewatch-core/internal/log"
	"github.com/dogewatch/dogewatch-core/internal/wallet"
	"github.com/rs/zerolog"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr        string
	network     string
	ledger      *ledger.Ledger
	engine      *escrow.Engine
	chain       chain.Client
	deriver     *wallet.Service
	policy      config.LedgerConfig
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowlist   []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.
	started     time.Time
}

// New creates a new RPC server. The rpcCfg parameter controls IP
// filtering and CORS. A zero-value RPCConfig allows all IPs and
// disables CORS.
func New(addr, network string, led *ledger.Ledger, eng *escrow.Engine,
	chainClient chain.Client, deriver *wallet.Service,
	policy config.LedgerConfig, rpcCfg ...config.RPCConfig) *Server {

	s := &Server{
		addr:    addr,
		network: network,
		ledger:  led,
		engine:  eng,
		chain:   chainClient,
		deriver: deriver,
		policy:  policy,
		logger:  klog.WithComponent("rpc"),
		started: time.Now(),
	}

	if len(rpcCfg) > 0 {
		s.allowlist = parseAllowlist(rpcCfg[0].AllowedIPs)
		s.corsOrigins = rpcCfg[0].CORSOrigins
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// Withdrawals block on the upstream indexer.
		WriteTimeout: 2 * time.Minute,
	}

	return s
}

// parseAllowlist converts IP and CIDR strings into networks. Bare IPs
// become single-host networks; entries that parse as neither are
// skipped.
func parseAllowlist(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if !s.remoteAllowed(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	s.applyCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		replyError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	req, rpcErr := decodeRequest(r.Body)
	if rpcErr != nil {
		var id interface{}
		if req != nil {
			id = req.ID
		}
		replyError(w, id, rpcErr.Code, rpcErr.Message)
		return
	}

	result, rpcErr := s.dispatch(r.Context(), req)
	if rpcErr != nil {
		reply(w, Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID})
		return
	}
	reply(w, Response{JSONRPC: "2.0", Result: result, ID: req.ID})
}

// decodeRequest reads and validates the JSON-RPC envelope. When the
// envelope parsed but is invalid, the request is returned alongside
// the error so the caller can echo its ID.
func decodeRequest(body io.Reader) (*Request, *Error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return nil, &Error{Code: CodeParseError, Message: "failed to read request body"}
	}
	if len(data) > maxBodySize {
		return nil, &Error{Code: CodeInvalidRequest, Message: "request body too large"}
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &Error{Code: CodeParseError, Message: "invalid JSON"}
	}
	if req.JSONRPC != "2.0" {
		return &req, &Error{Code: CodeInvalidRequest, Message: `jsonrpc must be "2.0"`}
	}
	return &req, nil
}

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *Error) {
	switch req.Method {
	case "wallet_create":
		return s.handleWalletCreate(req)
	case "wallet_get":
		return s.handleWalletGet(req)
	case "wallet_sync":
		return s.handleWalletSync(ctx, req)
	case "wallet_withdraw":
		return s.handleWalletWithdraw(ctx, req)
	case "wallet_history":
		return s.handleWalletHistory(req)
	case "case_open":
		return s.handleCaseOpen(ctx, req)
	case "case_get":
		return s.handleCaseGet(req)
	case "case_list":
		return s.handleCaseList(req)
	case "case_vote":
		return s.handleCaseVote(req)
	case "case_resolve":
		return s.handleCaseResolve(req)
	case "case_pending":
		return s.handleCasePending(req)
	case "treasury_get":
		return s.handleTreasuryGet(req)
	case "chain_getTransaction":
		return s.handleChainGetTransaction(ctx, req)
	case "node_getInfo":
		return s.handleNodeGetInfo(req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

func reply(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func replyError(w http.ResponseWriter, id interface{}, code int, message string) {
	reply(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// remoteAllowed reports whether the peer address passes the IP
// allowlist. An empty allowlist admits everyone.
func (s *Server) remoteAllowed(remoteAddr string) bool {
	if len(s.allowlist) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range s.allowlist {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// applyCORS adds CORS headers when the request origin matches one of
// the configured origins.
func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	for _, o := range s.corsOrigins {
		if o != "*" && o != origin {
			continue
		}
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		return
	}
}

// parseParams unmarshals the request params into the given target.
func parseParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}

	data, err := json.Marshal(req.Params)
	if err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
