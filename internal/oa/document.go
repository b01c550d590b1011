// Package oa reads wrapped OpenAttestation documents.
//
// Two schema variants are recognised: the legacy v2 layout, where the issuer data is salted and
// carried in `data` with a `signature` block, and the current v3 layout, which is a verifiable
// credential with a top-level `proof` and `openAttestationMetadata`.
//
// Documents are kept as decoded JSON (map[string]any with json.Number leaves) rather than
// structs so that hashing works on exactly the fields that were submitted.
package oa

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	SchemaV2 = "https://schema.openattestation.com/2.0/schema.json"
	SchemaV3 = "https://schema.openattestation.com/3.0/schema.json"
)

// Variant is the schema variant of a wrapped document.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantV2
	VariantV3
)

func (v Variant) String() string {
	switch v {
	case VariantV2:
		return "v2"
	case VariantV3:
		return "v3"
	default:
		return "unknown"
	}
}

// WrappedDocument is a wrapped document as submitted by the client.
type WrappedDocument struct {
	raw    json.RawMessage
	fields map[string]any
}

// ParseWrappedDocument decodes a JSON object. It does not check the schema, use DetectVariant for that.
func ParseWrappedDocument(data []byte) (*WrappedDocument, error) {
	doc := &WrappedDocument{}
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *WrappedDocument) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	d.raw = append(json.RawMessage(nil), data...)
	d.fields = fields
	return nil
}

// MarshalJSON returns the document exactly as it was submitted.
func (d *WrappedDocument) MarshalJSON() ([]byte, error) {
	if d == nil || d.raw == nil {
		return []byte("null"), nil
	}
	return d.raw, nil
}

// Raw returns the submitted JSON.
func (d *WrappedDocument) Raw() []byte {
	if d == nil {
		return nil
	}
	return d.raw
}

// Fields returns the decoded top-level object.
func (d *WrappedDocument) Fields() map[string]any {
	if d == nil {
		return nil
	}
	return d.fields
}

// Field returns a top-level field.
func (d *WrappedDocument) Field(name string) (any, bool) {
	if d == nil || d.fields == nil {
		return nil, false
	}
	v, ok := d.fields[name]
	return v, ok
}

func decodeObject(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("invalid document JSON: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("document must be a JSON object")
	}
	if decoder.More() {
		return nil, fmt.Errorf("unexpected data after the document")
	}
	return fields, nil
}

// IsWrappedV2Document reports whether doc has the shape of a wrapped v2 document:
// no version (or the v2 schema id), a data object and a signature holding targetHash and merkleRoot.
func IsWrappedV2Document(doc *WrappedDocument) bool {
	if doc == nil {
		return false
	}
	if version, ok := doc.Field("version"); ok && version != SchemaV2 {
		return false
	}
	if _, ok := asObject(doc.fields["data"]); !ok {
		return false
	}
	signature, ok := asObject(doc.fields["signature"])
	if !ok {
		return false
	}
	return isHash(signature["targetHash"]) && isHash(signature["merkleRoot"])
}

// IsWrappedV3Document reports whether doc has the shape of a wrapped v3 document:
// the v3 schema id, an @context, openAttestationMetadata and a proof holding targetHash and merkleRoot.
func IsWrappedV3Document(doc *WrappedDocument) bool {
	if doc == nil {
		return false
	}
	if version, _ := doc.Field("version"); version != SchemaV3 {
		return false
	}
	if _, ok := doc.Field("@context"); !ok {
		return false
	}
	if _, ok := asObject(doc.fields["openAttestationMetadata"]); !ok {
		return false
	}
	proof, ok := asObject(doc.fields["proof"])
	if !ok {
		return false
	}
	return isHash(proof["targetHash"]) && isHash(proof["merkleRoot"])
}

// DetectVariant returns the schema variant of doc.
func DetectVariant(doc *WrappedDocument) Variant {
	switch {
	case IsWrappedV2Document(doc):
		return VariantV2
	case IsWrappedV3Document(doc):
		return VariantV3
	default:
		return VariantUnknown
	}
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func isHash(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := hashToBytes(s)
	return err == nil
}
