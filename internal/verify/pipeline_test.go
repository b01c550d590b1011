package verify

import (
	"context"
	"testing"

	"github.com/information-sharing-networks/doc-verifier/internal/oa"
	"github.com/information-sharing-networks/doc-verifier/internal/oa/testutil"
	"github.com/information-sharing-networks/doc-verifier/internal/verify/verifytest"
)

func standardPipeline(chain *verifytest.Chain, resolver *verifytest.Resolver) Pipeline {
	return Builder(append(OpenAttestationVerifiers(), DidIdentityProof()), chainOptions(chain, resolver))
}

func TestPipeline_V2DocumentStore(t *testing.T) {
	doc := parseDocument(t, testutil.WrapV2(t, documentData(documentStoreIssuer(storeAddress))))

	chain := verifytest.NewChain(sepoliaChainID)
	chain.Issued[verifytest.HashKey(merkleRootOf(t, doc))] = true
	resolver := &verifytest.Resolver{Records: map[string][]string{
		issuerDomain: {"openatts net=ethereum netId=11155111 addr=" + storeAddress},
	}}

	fragments := standardPipeline(chain, resolver)(context.Background(), doc)
	if len(fragments) != 7 {
		t.Fatalf("got %d fragments, want 7", len(fragments))
	}
	if !IsValid(fragments) {
		t.Fatalf("expected a valid document, got %+v", fragments)
	}

	for name, want := range map[string]Status{
		"OpenAttestationHash":                        StatusValid,
		"OpenAttestationEthereumTokenRegistryStatus": StatusSkipped,
		"OpenAttestationEthereumDocumentStoreStatus": StatusValid,
		"OpenAttestationDidSignedDocumentStatus":     StatusSkipped,
		"OpenAttestationDnsTxtIdentityProof":         StatusValid,
		"OpenAttestationDnsDidIdentityProof":         StatusSkipped,
		"OpenAttestationDidIdentityProof":            StatusSkipped,
	} {
		fragment, ok := fragments.ByName(name)
		if !ok {
			t.Errorf("missing fragment %s", name)
			continue
		}
		if fragment.Status != want {
			t.Errorf("%s status = %s, want %s", name, fragment.Status, want)
		}
	}
}

func TestPipeline_V2NotIssued(t *testing.T) {
	doc := parseDocument(t, testutil.WrapV2(t, documentData(documentStoreIssuer(storeAddress))))

	resolver := &verifytest.Resolver{Records: map[string][]string{
		issuerDomain: {"openatts net=ethereum netId=11155111 addr=" + storeAddress},
	}}
	fragments := standardPipeline(verifytest.NewChain(sepoliaChainID), resolver)(context.Background(), doc)

	if IsValid(fragments) {
		t.Fatal("expected an invalid document")
	}
	if !IsValid(fragments, DocumentIntegrity, IssuerIdentity) {
		t.Error("integrity and identity should still be valid")
	}
}

func TestPipeline_V2DidSigned(t *testing.T) {
	key, did := testutil.NewSigner(t)
	wrapped := testutil.WrapV2(t, documentData(didIssuer(did, oa.IdentityProofDID, map[string]any{"type": oa.RevocationNone})))
	doc := parseDocument(t, testutil.SignV2(t, wrapped, key, did+"#controller"))

	fragments := standardPipeline(verifytest.NewChain(sepoliaChainID), &verifytest.Resolver{})(context.Background(), doc)
	if !IsValid(fragments) {
		t.Fatalf("expected a valid document, got %+v", fragments)
	}
	if f, _ := fragments.ByName("OpenAttestationDidIdentityProof"); f.Status != StatusValid {
		t.Errorf("OpenAttestationDidIdentityProof status = %s, want VALID", f.Status)
	}
}

func v3Credential(method, value string, identityProof map[string]any) map[string]any {
	return map[string]any{
		"@context": []any{
			"https://www.w3.org/2018/credentials/v1",
			"https://schemata.openattestation.com/com/openattestation/1.0/OpenAttestation.v3.json",
		},
		"type":              []any{"VerifiableCredential", "OpenAttestationCredential"},
		"issuanceDate":      "2026-01-01T00:00:00Z",
		"issuer":            map[string]any{"id": "https://example.com", "name": "ACME"},
		"credentialSubject": map[string]any{"name": "Jane", "licenses": []any{"A", "B"}, "age": 42, "active": true},
		"network":           map[string]any{"chain": "ETH", "chainId": "11155111"},
		"openAttestationMetadata": map[string]any{
			"template": map[string]any{"name": "main", "type": "EMBEDDED_RENDERER", "url": "https://renderer.example.com"},
			"proof": map[string]any{
				"type":   "OpenAttestationProofMethod",
				"method": method,
				"value":  value,
			},
			"identityProof": identityProof,
		},
	}
}

func TestPipeline_V3DocumentStore(t *testing.T) {
	raw := testutil.WrapV3(t, v3Credential(oa.MethodDocumentStore, storeAddress, map[string]any{
		"type":       oa.IdentityProofDNSTXT,
		"identifier": issuerDomain,
	}), testutil.RandomHash(t))
	doc := parseDocument(t, raw)
	if oa.DetectVariant(doc) != oa.VariantV3 {
		t.Fatalf("DetectVariant() = %s, want v3", oa.DetectVariant(doc))
	}

	chain := verifytest.NewChain(sepoliaChainID)
	chain.Issued[verifytest.HashKey(merkleRootOf(t, doc))] = true
	resolver := &verifytest.Resolver{Records: map[string][]string{
		issuerDomain: {"openatts net=ethereum netId=11155111 addr=" + storeAddress},
	}}

	fragments := standardPipeline(chain, resolver)(context.Background(), doc)
	if !IsValid(fragments) {
		t.Fatalf("expected a valid document, got %+v", fragments)
	}
}

func TestPipeline_V3DidSigned(t *testing.T) {
	key, did := testutil.NewSigner(t)
	credential := v3Credential(oa.MethodDID, did, map[string]any{
		"type":       oa.IdentityProofDNSDID,
		"identifier": issuerDomain,
	})
	credential["openAttestationMetadata"].(map[string]any)["proof"].(map[string]any)["revocation"] = map[string]any{"type": oa.RevocationNone}
	doc := parseDocument(t, testutil.SignV3(t, testutil.WrapV3(t, credential), key, did+"#controller"))

	resolver := &verifytest.Resolver{Records: map[string][]string{
		issuerDomain: {"openatts a=dns-did; p=" + did + "#controller; v=1.0;"},
	}}
	fragments := standardPipeline(verifytest.NewChain(sepoliaChainID), resolver)(context.Background(), doc)
	if !IsValid(fragments) {
		t.Fatalf("expected a valid document, got %+v", fragments)
	}
	if f, _ := fragments.ByName("OpenAttestationDnsDidIdentityProof"); f.Status != StatusValid {
		t.Errorf("OpenAttestationDnsDidIdentityProof status = %s, want VALID", f.Status)
	}
}

func TestPipeline_UnrecognisedDocument(t *testing.T) {
	doc := parseDocument(t, []byte(`{"data":{"name":"not wrapped"}}`))

	fragments := standardPipeline(verifytest.NewChain(sepoliaChainID), &verifytest.Resolver{})(context.Background(), doc)
	for _, f := range fragments {
		if f.Status != StatusSkipped {
			t.Errorf("%s status = %s, want SKIPPED", f.Name, f.Status)
		}
	}
	if IsValid(fragments) {
		t.Error("a document with only skipped fragments must not be valid")
	}
}
