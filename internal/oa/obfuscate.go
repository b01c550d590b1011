package oa

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Obfuscate removes fields from a wrapped document and records their hashes so the document still verifies.
//
// A field is a dot separated path into the data (v2) or the credential (v3); every leaf under it is
// removed. Paths must not go through arrays.
func Obfuscate(doc *WrappedDocument, fields ...string) (*WrappedDocument, error) {
	variant := DetectVariant(doc)
	if variant == VariantUnknown {
		return nil, fmt.Errorf("unrecognised document schema")
	}

	copied, err := decodeObject(doc.raw)
	if err != nil {
		return nil, err
	}

	switch variant {
	case VariantV2:
		err = obfuscateV2(copied, fields)
	case VariantV3:
		err = obfuscateV3(copied, fields)
	}
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(copied)
	if err != nil {
		return nil, fmt.Errorf("failed to encode obfuscated document: %w", err)
	}
	return ParseWrappedDocument(encoded)
}

func obfuscateV2(fields map[string]any, paths []string) error {
	data, _ := asObject(fields["data"])

	var hashes []string
	for _, path := range paths {
		found := false
		flattenV2("", data, func(p string, value any) {
			if matchesPath(p, path) {
				found = true
				hashes = append(hashes, keccakHex(jsStringifyEntry(p, value)))
			}
		})
		if !found {
			return fmt.Errorf("field %q not found in document data", path)
		}
		if err := deletePath(data, path); err != nil {
			return err
		}
	}

	privacy, ok := asObject(fields["privacy"])
	if !ok {
		privacy = map[string]any{}
		fields["privacy"] = privacy
	}
	existing, err := stringList(privacy["obfuscatedData"])
	if err != nil {
		return fmt.Errorf("invalid privacy.obfuscatedData: %w", err)
	}
	privacy["obfuscatedData"] = toAnyList(append(existing, hashes...))
	return nil
}

func obfuscateV3(fields map[string]any, paths []string) error {
	proof, _ := asObject(fields["proof"])

	decoded, err := base64.StdEncoding.DecodeString(asString(proof["salts"]))
	if err != nil {
		return fmt.Errorf("proof.salts is not valid base64: %w", err)
	}
	var salts []salt
	if err := json.Unmarshal(decoded, &salts); err != nil {
		return fmt.Errorf("proof.salts is not a valid salt list: %w", err)
	}
	saltByPath := make(map[string]string, len(salts))
	for _, s := range salts {
		saltByPath[s.Path] = s.Value
	}

	removed := make(map[string]bool)
	var hashes []string
	for _, path := range paths {
		if path == "proof" || strings.HasPrefix(path, "proof.") {
			return fmt.Errorf("the proof cannot be obfuscated")
		}
		for key, value := range fields {
			if key == "proof" {
				continue
			}
			flattenV3(key, value, func(p string, leaf any) {
				if matchesPath(p, path) {
					removed[p] = true
					hashes = append(hashes, keccakHex(jsStringifyEntry(p, saltByPath[p]+":"+jsTemplateString(leaf))))
				}
			})
		}
		if err := deletePath(fields, path); err != nil {
			return err
		}
	}
	if len(hashes) == 0 {
		return fmt.Errorf("no fields matched %v", paths)
	}

	remaining := make([]salt, 0, len(salts))
	for _, s := range salts {
		if !removed[s.Path] {
			remaining = append(remaining, s)
		}
	}
	encodedSalts, err := json.Marshal(remaining)
	if err != nil {
		return fmt.Errorf("failed to encode salts: %w", err)
	}
	proof["salts"] = base64.StdEncoding.EncodeToString(encodedSalts)

	privacy, ok := asObject(proof["privacy"])
	if !ok {
		privacy = map[string]any{}
		proof["privacy"] = privacy
	}
	existing, err := stringList(privacy["obfuscated"])
	if err != nil {
		return fmt.Errorf("invalid proof.privacy.obfuscated: %w", err)
	}
	privacy["obfuscated"] = toAnyList(append(existing, hashes...))
	return nil
}

func matchesPath(flattened, path string) bool {
	return flattened == path || strings.HasPrefix(flattened, path+".") || strings.HasPrefix(flattened, path+"[")
}

func deletePath(root map[string]any, path string) error {
	keys := strings.Split(path, ".")
	current := root
	for _, key := range keys[:len(keys)-1] {
		next, ok := asObject(current[key])
		if !ok {
			return fmt.Errorf("field %q cannot be removed: %s is not an object", path, key)
		}
		current = next
	}
	last := keys[len(keys)-1]
	if _, ok := current[last]; !ok {
		return fmt.Errorf("field %q not found", path)
	}
	delete(current, last)
	return nil
}

func toAnyList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
