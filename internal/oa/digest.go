package oa

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// DigestDocument recomputes the target hash of a wrapped document from its visible and
// obfuscated data. The result is lowercase hex without a 0x prefix.
func DigestDocument(doc *WrappedDocument) (string, error) {
	switch DetectVariant(doc) {
	case VariantV2:
		return digestV2(doc)
	case VariantV3:
		return digestV3(doc)
	default:
		return "", fmt.Errorf("unrecognised document schema")
	}
}

// VerifySignature checks that the document data hashes to its target hash and that the
// target hash folds through the proof path to the merkle root.
func VerifySignature(doc *WrappedDocument) (bool, error) {
	proof, err := GetMerkleProof(doc)
	if err != nil {
		return false, err
	}

	digest, err := DigestDocument(doc)
	if err != nil {
		return false, err
	}
	if digest != normalizeHash(proof.TargetHash) {
		return false, nil
	}

	hashes, err := IntermediateHashes(proof.TargetHash, proof.Proofs)
	if err != nil {
		return false, err
	}
	return hashes[len(hashes)-1] == normalizeHash(proof.MerkleRoot), nil
}

// IntermediateHashes returns the target hash followed by every hash obtained while folding the
// proof path. The last element is the computed merkle root.
func IntermediateHashes(targetHash string, proofs []string) ([]string, error) {
	current, err := hashToBytes(targetHash)
	if err != nil {
		return nil, fmt.Errorf("invalid target hash: %w", err)
	}

	hashes := []string{hex.EncodeToString(current)}
	for i, p := range proofs {
		sibling, err := hashToBytes(p)
		if err != nil {
			return nil, fmt.Errorf("invalid proof hash %d: %w", i, err)
		}
		current = combineHashes(current, sibling)
		hashes = append(hashes, hex.EncodeToString(current))
	}
	return hashes, nil
}

// combineHashes hashes the two buffers sorted by byte order so that the proof does not need to record sides.
func combineHashes(a, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256(a, b)
}

func digestV2(doc *WrappedDocument) (string, error) {
	data, ok := asObject(doc.fields["data"])
	if !ok {
		return "", fmt.Errorf("document has no data object")
	}

	var hashes []string
	flattenV2("", data, func(path string, value any) {
		hashes = append(hashes, keccakHex(jsStringifyEntry(path, value)))
	})

	obfuscated, err := stringList(lookupPath(doc.fields, "privacy", "obfuscatedData"))
	if err != nil {
		return "", fmt.Errorf("invalid privacy.obfuscatedData: %w", err)
	}

	return digestHashes(append(obfuscated, hashes...)), nil
}

// flattenV2 flattens nested data into dot separated paths, arrays use their index as the key.
// Empty objects, empty arrays and nulls are leaves.
func flattenV2(prefix string, value any, emit func(path string, value any)) {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}

	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 && prefix != "" {
			emit(prefix, v)
			return
		}
		for key, child := range v {
			flattenV2(join(key), child, emit)
		}
	case []any:
		if len(v) == 0 && prefix != "" {
			emit(prefix, v)
			return
		}
		for i, child := range v {
			flattenV2(join(strconv.Itoa(i)), child, emit)
		}
	default:
		emit(prefix, v)
	}
}

type salt struct {
	Value string `json:"value"`
	Path  string `json:"path"`
}

func digestV3(doc *WrappedDocument) (string, error) {
	proof, err := GetV3Proof(doc)
	if err != nil {
		return "", err
	}

	decoded, err := base64.StdEncoding.DecodeString(proof.Salts)
	if err != nil {
		return "", fmt.Errorf("proof.salts is not valid base64: %w", err)
	}
	var salts []salt
	if err := json.Unmarshal(decoded, &salts); err != nil {
		return "", fmt.Errorf("proof.salts is not a valid salt list: %w", err)
	}
	saltByPath := make(map[string]string, len(salts))
	for _, s := range salts {
		saltByPath[s.Path] = s.Value
	}

	visible := make(map[string]any, len(doc.fields))
	for k, v := range doc.fields {
		if k != "proof" {
			visible[k] = v
		}
	}

	var hashes []string
	var missing string
	flattenV3("", visible, func(path string, value any) {
		saltValue, ok := saltByPath[path]
		if !ok {
			if missing == "" {
				missing = path
			}
			return
		}
		hashes = append(hashes, keccakHex(jsStringifyEntry(path, saltValue+":"+jsTemplateString(value))))
	})
	if missing != "" {
		return "", fmt.Errorf("salt not found for %s", missing)
	}

	return digestHashes(append(append([]string{}, proof.Privacy.Obfuscated...), hashes...)), nil
}

// flattenV3 flattens data into paths of the form a.b[0].c. Every leaf is emitted, including null.
func flattenV3(prefix string, value any, emit func(path string, value any)) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			flattenV3(path, child, emit)
		}
	case []any:
		for i, child := range v {
			flattenV3(fmt.Sprintf("%s[%d]", prefix, i), child, emit)
		}
	default:
		emit(prefix, v)
	}
}

func digestHashes(hashes []string) string {
	sort.Strings(hashes)

	quoted := make([]string, len(hashes))
	for i, h := range hashes {
		quoted[i] = jsQuote(h)
	}
	return keccakHex("[" + strings.Join(quoted, ",") + "]")
}

func keccakHex(s string) string {
	return hex.EncodeToString(crypto.Keccak256([]byte(s)))
}

// jsStringifyEntry serializes {path: value} the way JSON.stringify does.
func jsStringifyEntry(path string, value any) string {
	return "{" + jsQuote(path) + ":" + jsValue(value) + "}"
}

func jsValue(value any) string {
	switch v := value.(type) {
	case string:
		return jsQuote(v)
	case json.Number:
		return jsNumber(v)
	case float64:
		return formatJSNumber(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	case map[string]any:
		return "{}"
	case []any:
		return "[]"
	default:
		return jsQuote(fmt.Sprint(v))
	}
}

// jsTemplateString converts a leaf the way a template literal does.
func jsTemplateString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return jsNumber(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	default:
		return fmt.Sprint(v)
	}
}

// jsQuote quotes s as JSON.stringify does: no HTML escaping and U+2028/U+2029 left as is.
func jsQuote(s string) string {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(s)

	quoted := strings.TrimSuffix(buf.String(), "\n")
	quoted = strings.ReplaceAll(quoted, `\u2028`, "\u2028")
	return strings.ReplaceAll(quoted, `\u2029`, "\u2029")
}

func jsNumber(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return formatJSNumber(f)
}

// formatJSNumber formats f like Number.prototype.toString.
func formatJSNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	mantissa, exponent, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	sign := exponent[:1]
	digits := strings.TrimLeft(exponent[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}

func lookupPath(fields map[string]any, path ...string) any {
	var current any = fields
	for _, p := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[p]
	}
	return current
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected an array of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

// hashToBytes decodes a 32 byte hex hash with or without a 0x prefix.
func hashToBytes(h string) ([]byte, error) {
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X"))
	if err != nil {
		return nil, err
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("expected 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

func normalizeHash(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X"))
}
