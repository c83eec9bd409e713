package ipfs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPinJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinJSONToIPFS" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("pinata_api_key"); got != "key" {
			t.Errorf("api key header = %q", got)
		}
		if got := r.Header.Get("pinata_secret_api_key"); got != "secret" {
			t.Errorf("secret header = %q", got)
		}

		var req struct {
			Metadata struct {
				Name string `json:"name"`
			} `json:"pinataMetadata"`
			Content map[string]any `json:"pinataContent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Metadata.Name != "case-1" {
			t.Errorf("name = %q", req.Metadata.Name)
		}
		if req.Content["url"] != "https://example.com" {
			t.Errorf("content = %v", req.Content)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"IpfsHash":  "QmTestCID",
			"PinSize":   42,
			"Timestamp": "2026-03-01T00:00:00Z",
		})
	}))
	defer srv.Close()

	p := NewPinner(srv.URL, "key", "secret", time.Second)
	cid, err := p.PinJSON(context.Background(), "case-1", map[string]string{"url": "https://example.com"})
	if err != nil {
		t.Fatalf("PinJSON: %v", err)
	}
	if cid != "QmTestCID" {
		t.Errorf("cid = %q", cid)
	}
}

func TestPinJSONErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		p := NewPinner(srv.URL, "bad", "bad", time.Second)
		if _, err := p.PinJSON(context.Background(), "x", map[string]int{"a": 1}); err == nil {
			t.Error("expected error on 401")
		}
	})

	t.Run("missing hash", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		p := NewPinner(srv.URL, "k", "s", time.Second)
		if _, err := p.PinJSON(context.Background(), "x", map[string]int{"a": 1}); err == nil {
			t.Error("expected error on empty response")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		p := NewPinner("http://127.0.0.1:1", "k", "s", 200*time.Millisecond)
		if _, err := p.PinJSON(context.Background(), "x", nil); err == nil {
			t.Error("expected transport error")
		}
	})
}
