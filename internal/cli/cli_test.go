package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
	"github.com/information-sharing-networks/doc-verifier/internal/network"
	"github.com/information-sharing-networks/doc-verifier/internal/oa"
	"github.com/information-sharing-networks/doc-verifier/internal/oa/testutil"
	"github.com/information-sharing-networks/doc-verifier/internal/verify/verifytest"
)

const (
	storeAddress = "0x8bA63EAB43342AAc3AdBB4B827b68Cf4aAE5Caca"
	issuerDomain = "example.com"
)

// run executes the command tree with a service backed by chain and returns stdout.
func run(t *testing.T, chain *verifytest.Chain, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "none")

	a := &app{}
	a.newService = func() (*docverify.Service, error) {
		table, err := network.NewTableFromDescriptors(network.Descriptor{
			Name:    "sepolia",
			ChainID: 11155111,
			Providers: []network.ProviderFactory{func(ctx context.Context) (network.Provider, error) {
				return chain, nil
			}},
		})
		if err != nil {
			return nil, err
		}
		resolver := &verifytest.Resolver{Records: map[string][]string{
			issuerDomain: {"openatts net=ethereum netId=11155111 addr=" + storeAddress},
		}}
		return docverify.NewService(table, resolver, nil, a.logger), nil
	}

	cmd := a.rootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// writeDocument writes a wrapped v2 document issued on sepolia and returns its path and merkle root.
func writeDocument(t *testing.T) (string, string) {
	t.Helper()

	raw := testutil.WrapV2(t, map[string]any{
		"$template": map[string]any{"name": "main", "type": "EMBEDDED_RENDERER", "url": "https://renderer.example.com"},
		"recipient": map[string]any{"name": "Jane", "address": "1 Main St"},
		"network":   map[string]any{"chain": "ETH", "chainId": "11155111"},
		"issuers": []any{map[string]any{
			"name":          "ACME",
			"documentStore": storeAddress,
			"identityProof": map[string]any{"type": oa.IdentityProofDNSTXT, "location": issuerDomain},
		}},
	})

	doc, err := oa.ParseWrappedDocument(raw)
	if err != nil {
		t.Fatalf("ParseWrappedDocument() error = %v", err)
	}
	proof, err := oa.GetMerkleProof(doc)
	if err != nil {
		t.Fatalf("GetMerkleProof() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "document.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
	return path, proof.MerkleRoot
}

func TestNetworkCommand(t *testing.T) {
	path, _ := writeDocument(t)

	out, err := run(t, verifytest.NewChain(11155111), "network", path)
	if err != nil {
		t.Fatalf("network error = %v", err)
	}
	if strings.TrimSpace(out) != "sepolia" {
		t.Errorf("output = %q, want sepolia", out)
	}
}

func TestVerifyCommand(t *testing.T) {
	path, merkleRoot := writeDocument(t)

	t.Run("issued", func(t *testing.T) {
		chain := verifytest.NewChain(11155111)
		chain.Issued[verifytest.HashKey(merkleRoot)] = true

		out, err := run(t, chain, "verify", path)
		if err != nil {
			t.Fatalf("verify error = %v", err)
		}
		var result verifyOutput
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("failed to decode output %q: %v", out, err)
		}
		if !result.Valid || result.Network != "sepolia" || len(result.Summary) == 0 {
			t.Errorf("output = %+v", result)
		}
	})

	t.Run("not issued", func(t *testing.T) {
		out, err := run(t, verifytest.NewChain(11155111), "verify", path)
		if err == nil {
			t.Fatal("expected an error for a document that was not issued")
		}
		var result verifyOutput
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("failed to decode output %q: %v", out, err)
		}
		if result.Valid || len(result.Summary) == 0 {
			t.Errorf("output = %+v", result)
		}
	})

	t.Run("unsupported network flag", func(t *testing.T) {
		if _, err := run(t, verifytest.NewChain(11155111), "verify", "--network", "goerli", path); err == nil {
			t.Fatal("expected an error for an unsupported network")
		}
	})
}

func TestEncryptDecryptCommands(t *testing.T) {
	path, _ := writeDocument(t)
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}

	out, err := run(t, nil, "encrypt", path)
	if err != nil {
		t.Fatalf("encrypt error = %v", err)
	}
	var encrypted docverify.EncryptedDocumentResult
	if err := json.Unmarshal([]byte(out), &encrypted); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if encrypted.EncryptedDocument.Type != crypto.EncryptionType {
		t.Errorf("type = %s", encrypted.EncryptedDocument.Type)
	}

	encryptedPath := filepath.Join(t.TempDir(), "encrypted.json")
	if err := os.WriteFile(encryptedPath, []byte(out), 0o600); err != nil {
		t.Fatalf("failed to write encrypted document: %v", err)
	}

	out, err = run(t, nil, "decrypt", "--key", encrypted.EncryptedDocumentKey, encryptedPath)
	if err != nil {
		t.Fatalf("decrypt error = %v", err)
	}
	if strings.TrimSuffix(out, "\n") != string(original) {
		t.Error("decrypted output does not match the original document")
	}

	wrongKey := strings.Repeat("0", 64)
	if _, err := run(t, nil, "decrypt", "--key", wrongKey, encryptedPath); err == nil {
		t.Error("expected an error when decrypting with the wrong key")
	}
}

func TestEncryptCommand_ExistingKey(t *testing.T) {
	path, _ := writeDocument(t)
	key := strings.Repeat("ab", 32)

	out, err := run(t, nil, "encrypt", "--key", key, path)
	if err != nil {
		t.Fatalf("encrypt error = %v", err)
	}
	var encrypted docverify.EncryptedDocumentResult
	if err := json.Unmarshal([]byte(out), &encrypted); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if encrypted.EncryptedDocumentKey != key {
		t.Errorf("key = %s, want %s", encrypted.EncryptedDocumentKey, key)
	}
}

func TestObfuscateCommand(t *testing.T) {
	path, merkleRoot := writeDocument(t)

	out, err := run(t, nil, "obfuscate", "--field", "recipient.address", path)
	if err != nil {
		t.Fatalf("obfuscate error = %v", err)
	}
	if strings.Contains(out, "1 Main St") {
		t.Error("obfuscated document still contains the removed value")
	}

	obfuscatedPath := filepath.Join(t.TempDir(), "obfuscated.json")
	if err := os.WriteFile(obfuscatedPath, []byte(out), 0o600); err != nil {
		t.Fatalf("failed to write obfuscated document: %v", err)
	}

	chain := verifytest.NewChain(11155111)
	chain.Issued[verifytest.HashKey(merkleRoot)] = true
	if _, err := run(t, chain, "verify", obfuscatedPath); err != nil {
		t.Errorf("obfuscated document does not verify: %v", err)
	}
}

func TestKeygenAndReceiptCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")

	if _, err := run(t, nil, "keygen", "--outputdir", dir); err != nil {
		t.Fatalf("keygen error = %v", err)
	}

	privateKey, err := crypto.LoadReceiptSigningKey(filepath.Join(dir, "receipt.private.jwk"))
	if err != nil {
		t.Fatalf("LoadReceiptSigningKey() error = %v", err)
	}
	signer, err := crypto.NewReceiptSigner(privateKey)
	if err != nil {
		t.Fatalf("NewReceiptSigner() error = %v", err)
	}
	token, _, err := signer.Sign("sepolia", strings.Repeat("a", 64), true)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	out, err := run(t, nil, "receipt", "--jwks", filepath.Join(dir, "receipt.public.jwk"), token)
	if err != nil {
		t.Fatalf("receipt error = %v", err)
	}
	var receipt crypto.Receipt
	if err := json.Unmarshal([]byte(out), &receipt); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if receipt.Network != "sepolia" || !receipt.Valid {
		t.Errorf("receipt = %+v", receipt)
	}
}
