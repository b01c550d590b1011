//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/information-sharing-networks/doc-verifier/internal/api"
	"github.com/information-sharing-networks/doc-verifier/internal/oa"
	"github.com/information-sharing-networks/doc-verifier/internal/oa/testutil"
	"github.com/information-sharing-networks/doc-verifier/internal/verify/verifytest"
)

// issueDocument wraps a v2 document issued on sepolia and marks it as issued on the fake chain.
func (e *testEnv) issueDocument(t *testing.T) []byte {
	t.Helper()

	raw := testutil.WrapV2(t, map[string]any{
		"$template": map[string]any{"name": "main", "type": "EMBEDDED_RENDERER", "url": "https://renderer.example.com"},
		"recipient": map[string]any{"name": "Jane"},
		"network":   map[string]any{"chain": "ETH", "chainId": "11155111"},
		"issuers": []any{map[string]any{
			"name":          "ACME",
			"documentStore": storeAddress,
			"identityProof": map[string]any{"type": oa.IdentityProofDNSTXT, "location": issuerDomain},
		}},
	}, testutil.RandomHash(t))

	doc, err := oa.ParseWrappedDocument(raw)
	if err != nil {
		t.Fatalf("ParseWrappedDocument() error = %v", err)
	}
	proof, err := oa.GetMerkleProof(doc)
	if err != nil {
		t.Fatalf("GetMerkleProof() error = %v", err)
	}
	e.chain.Issued[verifytest.HashKey(proof.MerkleRoot)] = true
	return raw
}

// request sends a request with the test API key and returns the status and body.
func (e *testEnv) request(t *testing.T, method, path string, body []byte, headers map[string]string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", testAPIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, respBody
}

func documentRequest(t *testing.T, document []byte) []byte {
	t.Helper()

	body, err := json.Marshal(api.DocumentRequest{Document: document})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	return body
}

func decodeResponse[T any](t *testing.T, body []byte) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("failed to decode response %s: %v", body, err)
	}
	return v
}
