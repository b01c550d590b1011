package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHandleHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Errorf("got %d %q, want 200 OK", rr.Code, rr.Body.String())
	}
}

func TestHandleReadiness(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{"storage reachable", nil, http.StatusOK},
		{"storage down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			HandleReadiness(stubPinger{err: tt.pingErr})(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleVersion(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleVersion("v1.2.3", "2026-01-01T00:00:00Z", "sepolia,amoy")(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	var resp VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Version != "v1.2.3" || resp.Service != "verifier-server" || resp.Networks != "sepolia,amoy" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleJWKS(t *testing.T) {
	key, err := crypto.GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateEd25519KeyPair() error = %v", err)
	}
	signer, err := crypto.NewReceiptSigner(key)
	if err != nil {
		t.Fatalf("NewReceiptSigner() error = %v", err)
	}

	t.Run("signing key configured", func(t *testing.T) {
		rr := httptest.NewRecorder()
		HandleJWKS(signer.PublicKeySet())(rr, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

		set, err := jwk.Parse(rr.Body.Bytes())
		if err != nil {
			t.Fatalf("jwk.Parse() error = %v", err)
		}
		if set.Len() != 1 {
			t.Fatalf("got %d keys, want 1", set.Len())
		}
		if _, ok := set.LookupKeyID(signer.KeyID()); !ok {
			t.Errorf("key %s not found in set", signer.KeyID())
		}
	})

	t.Run("no signing key", func(t *testing.T) {
		rr := httptest.NewRecorder()
		HandleJWKS(nil)(rr, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

		var resp JWKSResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Keys) != 0 {
			t.Errorf("got %d keys, want none", len(resp.Keys))
		}
	})
}
