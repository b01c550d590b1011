package verify

import (
	"context"
	"testing"

	"github.com/information-sharing-networks/doc-verifier/internal/oa"
	"github.com/information-sharing-networks/doc-verifier/internal/verify/verifytest"
)

const (
	sepoliaChainID = 11155111
	storeAddress   = "0x8bA63EAB43342AAc3AdBB4B827b68Cf4aAE5Caca"
	issuerDomain   = "example.com"
)

func parseDocument(t *testing.T, raw []byte) *oa.WrappedDocument {
	t.Helper()

	doc, err := oa.ParseWrappedDocument(raw)
	if err != nil {
		t.Fatalf("ParseWrappedDocument() error = %v", err)
	}
	return doc
}

func merkleRootOf(t *testing.T, doc *oa.WrappedDocument) string {
	t.Helper()

	proof, err := oa.GetMerkleProof(doc)
	if err != nil {
		t.Fatalf("GetMerkleProof() error = %v", err)
	}
	return proof.MerkleRoot
}

func targetHashOf(t *testing.T, doc *oa.WrappedDocument) string {
	t.Helper()

	proof, err := oa.GetMerkleProof(doc)
	if err != nil {
		t.Fatalf("GetMerkleProof() error = %v", err)
	}
	return proof.TargetHash
}

func documentStoreIssuer(store string) map[string]any {
	return map[string]any{
		"name":          "ACME",
		"documentStore": store,
		"identityProof": map[string]any{
			"type":     oa.IdentityProofDNSTXT,
			"location": issuerDomain,
		},
	}
}

func tokenRegistryIssuer(registry string) map[string]any {
	return map[string]any{
		"name":          "ACME",
		"tokenRegistry": registry,
		"identityProof": map[string]any{
			"type":     oa.IdentityProofDNSTXT,
			"location": issuerDomain,
		},
	}
}

func didIssuer(did, identityType string, revocation map[string]any) map[string]any {
	issuer := map[string]any{
		"id":   did,
		"name": "ACME",
		"identityProof": map[string]any{
			"type": identityType,
			"key":  did + "#controller",
		},
		"revocation": revocation,
	}
	if identityType == oa.IdentityProofDNSDID {
		issuer["identityProof"].(map[string]any)["location"] = issuerDomain
	}
	return issuer
}

func documentData(issuers ...map[string]any) map[string]any {
	list := make([]any, len(issuers))
	for i, issuer := range issuers {
		list[i] = issuer
	}
	return map[string]any{
		"$template": map[string]any{"name": "main", "type": "EMBEDDED_RENDERER", "url": "https://renderer.example.com"},
		"recipient": map[string]any{"name": "Jane"},
		"network":   map[string]any{"chain": "ETH", "chainId": "11155111"},
		"issuers":   list,
	}
}

func verifyWith(t *testing.T, v Verifier, doc *oa.WrappedDocument, opts Options) Fragment {
	t.Helper()

	if !v.Test(doc) {
		t.Fatalf("%s does not apply to the document", v.Name())
	}
	return v.Verify(context.Background(), doc, opts)
}

func chainOptions(chain *verifytest.Chain, resolver *verifytest.Resolver) Options {
	opts := Options{Provider: chain}
	if resolver != nil {
		opts.Resolver = resolver
	}
	return opts
}

func assertFragment(t *testing.T, fragment Fragment, status Status, code string) {
	t.Helper()

	if fragment.Status != status {
		t.Fatalf("%s status = %s, want %s (reason %+v)", fragment.Name, fragment.Status, status, fragment.Reason)
	}
	if code == "" {
		if fragment.Reason != nil {
			t.Errorf("%s reason = %+v, want none", fragment.Name, fragment.Reason)
		}
		return
	}
	if fragment.Reason == nil || fragment.Reason.CodeString != code {
		t.Errorf("%s reason = %+v, want %s", fragment.Name, fragment.Reason, code)
	}
}
