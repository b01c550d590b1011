// Package testutil builds wrapped documents for tests.
package testutil

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/information-sharing-networks/doc-verifier/internal/oa"
)

const placeholderHash = "0000000000000000000000000000000000000000000000000000000000000000"

// WrapV2 salts data and wraps it as a v2 document. siblings is the merkle proof path,
// leave it empty for a single document batch (merkleRoot == targetHash).
func WrapV2(t testing.TB, data map[string]any, siblings ...string) []byte {
	t.Helper()

	document := map[string]any{
		"version": oa.SchemaV2,
		"data":    saltV2(data),
		"signature": map[string]any{
			"type":       "SHA3MerkleProof",
			"targetHash": placeholderHash,
			"proof":      []string{},
			"merkleRoot": placeholderHash,
		},
	}

	targetHash := digest(t, document)
	merkleRoot := merkleRoot(t, targetHash, siblings)
	if siblings == nil {
		siblings = []string{}
	}
	document["signature"] = map[string]any{
		"type":       "SHA3MerkleProof",
		"targetHash": targetHash,
		"proof":      siblings,
		"merkleRoot": merkleRoot,
	}
	return mustMarshal(t, document)
}

// WrapV3 salts credential and wraps it as a v3 document. credential must contain the
// @context and openAttestationMetadata blocks; version is set here.
func WrapV3(t testing.TB, credential map[string]any, siblings ...string) []byte {
	t.Helper()

	document := make(map[string]any, len(credential)+2)
	for k, v := range credential {
		document[k] = v
	}
	document["version"] = oa.SchemaV3

	var salts []map[string]string
	collectV3Paths("", roundTrip(t, document), func(path string) {
		salts = append(salts, map[string]string{"value": randomHex(t), "path": path})
	})

	proof := map[string]any{
		"type":         "OpenAttestationMerkleProofSignature2018",
		"proofPurpose": "assertionMethod",
		"targetHash":   placeholderHash,
		"proofs":       []string{},
		"merkleRoot":   placeholderHash,
		"salts":        base64.StdEncoding.EncodeToString(mustMarshal(t, salts)),
		"privacy":      map[string]any{"obfuscated": []string{}},
	}
	document["proof"] = proof

	targetHash := digest(t, document)
	if siblings == nil {
		siblings = []string{}
	}
	proof["targetHash"] = targetHash
	proof["proofs"] = siblings
	proof["merkleRoot"] = merkleRoot(t, targetHash, siblings)
	return mustMarshal(t, document)
}

// SignV2 adds a DID signature over the merkle root of a wrapped v2 document.
func SignV2(t testing.TB, wrapped []byte, key *ecdsa.PrivateKey, verificationMethod string) []byte {
	t.Helper()

	document := roundTrip(t, wrapped)
	signature := document["signature"].(map[string]any)
	proof := map[string]any{
		"type":               "OpenAttestationSignature2018",
		"created":            "2026-01-01T00:00:00.000Z",
		"proofPurpose":       "assertionMethod",
		"verificationMethod": verificationMethod,
		"signature":          SignMerkleRoot(t, signature["merkleRoot"].(string), key),
	}
	document["proof"] = []any{proof}
	return mustMarshal(t, document)
}

// SignV3 adds a DID signature over the merkle root of a wrapped v3 document.
func SignV3(t testing.TB, wrapped []byte, key *ecdsa.PrivateKey, verificationMethod string) []byte {
	t.Helper()

	document := roundTrip(t, wrapped)
	proof := document["proof"].(map[string]any)
	proof["key"] = verificationMethod
	proof["signature"] = SignMerkleRoot(t, proof["merkleRoot"].(string), key)
	return mustMarshal(t, document)
}

// SignMerkleRoot signs the merkle root bytes as an ethereum personal message and returns 0x prefixed hex.
func SignMerkleRoot(t testing.TB, merkleRoot string, key *ecdsa.PrivateKey) string {
	t.Helper()

	root, err := hex.DecodeString(merkleRoot)
	if err != nil {
		t.Fatalf("invalid merkle root: %v", err)
	}
	sig, err := crypto.Sign(accounts.TextHash(root), key)
	if err != nil {
		t.Fatalf("failed to sign merkle root: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return "0x" + hex.EncodeToString(sig)
}

// NewSigner returns a new ethereum key and its did:ethr identifier.
func NewSigner(t testing.TB) (*ecdsa.PrivateKey, string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key, "did:ethr:" + crypto.PubkeyToAddress(key.PublicKey).Hex()
}

// RandomHash returns a random 32 byte hash as hex.
func RandomHash(t testing.TB) string {
	t.Helper()
	return randomHex(t)
}

func saltV2(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = saltV2(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = saltV2(child)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = saltV2(child)
		}
		return out
	case string:
		return salted("string", v)
	case bool:
		return salted("boolean", strconv.FormatBool(v))
	case int:
		return salted("number", strconv.Itoa(v))
	case float64:
		return salted("number", strconv.FormatFloat(v, 'f', -1, 64))
	case nil:
		return salted("null", "null")
	default:
		return salted("string", fmt.Sprint(v))
	}
}

func salted(valueType, value string) string {
	return uuid.New().String() + ":" + valueType + ":" + value
}

func collectV3Paths(prefix string, value any, emit func(path string)) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			collectV3Paths(path, child, emit)
		}
	case []any:
		for i, child := range v {
			collectV3Paths(fmt.Sprintf("%s[%d]", prefix, i), child, emit)
		}
	default:
		emit(prefix)
	}
}

func digest(t testing.TB, document map[string]any) string {
	t.Helper()

	doc, err := oa.ParseWrappedDocument(mustMarshal(t, document))
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	targetHash, err := oa.DigestDocument(doc)
	if err != nil {
		t.Fatalf("failed to digest document: %v", err)
	}
	return targetHash
}

func merkleRoot(t testing.TB, targetHash string, siblings []string) string {
	t.Helper()

	hashes, err := oa.IntermediateHashes(targetHash, siblings)
	if err != nil {
		t.Fatalf("failed to compute merkle root: %v", err)
	}
	return hashes[len(hashes)-1]
}

func roundTrip(t testing.TB, v any) map[string]any {
	t.Helper()

	var raw []byte
	switch b := v.(type) {
	case []byte:
		raw = b
	default:
		raw = mustMarshal(t, v)
	}
	doc, err := oa.ParseWrappedDocument(raw)
	if err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	return doc.Fields()
}

func randomHex(t testing.TB) string {
	t.Helper()

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("failed to read random bytes: %v", err)
	}
	return hex.EncodeToString(b)
}

func mustMarshal(t testing.TB, v any) []byte {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return b
}
