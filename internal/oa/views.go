package oa

import (
	"encoding/json"
	"fmt"
)

// identity proof types
const (
	IdentityProofDNSTXT = "DNS-TXT"
	IdentityProofDNSDID = "DNS-DID"
	IdentityProofDID    = "DID"
)

// v3 proof methods
const (
	MethodDocumentStore = "DOCUMENT_STORE"
	MethodTokenRegistry = "TOKEN_REGISTRY"
	MethodDID           = "DID"
)

// revocation types
const (
	RevocationNone          = "NONE"
	RevocationStore         = "REVOCATION_STORE"
	RevocationOCSPResponder = "OCSP_RESPONDER"
)

type IdentityProof struct {
	Type string `json:"type"`

	// v2 uses location, v3 uses identifier
	Location   string `json:"location,omitempty"`
	Identifier string `json:"identifier,omitempty"`

	// verification method (did#controller) for DID and DNS-DID proofs
	Key string `json:"key,omitempty"`
}

// Domain returns the domain to query for DNS identity proofs.
func (p IdentityProof) Domain() string {
	if p.Location != "" {
		return p.Location
	}
	return p.Identifier
}

type Revocation struct {
	Type     string `json:"type"`
	Location string `json:"location,omitempty"`
}

// Issuer is a v2 issuer entry, read from the unsalted data.
type Issuer struct {
	ID               string         `json:"id,omitempty"`
	Name             string         `json:"name,omitempty"`
	DocumentStore    string         `json:"documentStore,omitempty"`
	CertificateStore string         `json:"certificateStore,omitempty"`
	TokenRegistry    string         `json:"tokenRegistry,omitempty"`
	IdentityProof    *IdentityProof `json:"identityProof,omitempty"`
	Revocation       *Revocation    `json:"revocation,omitempty"`
}

// StoreAddress returns the document store address (or the legacy certificate store).
func (i Issuer) StoreAddress() string {
	if i.DocumentStore != "" {
		return i.DocumentStore
	}
	return i.CertificateStore
}

// V2Signature is the merkle signature block of a v2 document.
type V2Signature struct {
	Type       string   `json:"type"`
	TargetHash string   `json:"targetHash"`
	Proof      []string `json:"proof"`
	MerkleRoot string   `json:"merkleRoot"`
}

// SignatureProof is a DID signature over the merkle root (v2 `proof` entries).
type SignatureProof struct {
	Type               string `json:"type"`
	Created            string `json:"created,omitempty"`
	ProofPurpose       string `json:"proofPurpose,omitempty"`
	VerificationMethod string `json:"verificationMethod"`
	Signature          string `json:"signature"`
}

// V3Proof is the top-level proof of a v3 document.
type V3Proof struct {
	Type       string   `json:"type"`
	TargetHash string   `json:"targetHash"`
	Proofs     []string `json:"proofs"`
	MerkleRoot string   `json:"merkleRoot"`
	Salts      string   `json:"salts"`
	Privacy    struct {
		Obfuscated []string `json:"obfuscated"`
	} `json:"privacy"`

	// set on DID signed documents
	Key       string `json:"key,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// V3Metadata is the openAttestationMetadata block of a v3 document.
type V3Metadata struct {
	Proof struct {
		Type       string      `json:"type"`
		Method     string      `json:"method"`
		Value      string      `json:"value"`
		Revocation *Revocation `json:"revocation,omitempty"`
	} `json:"proof"`
	IdentityProof IdentityProof `json:"identityProof"`
}

// MerkleProof is the variant independent view of a document's merkle signature.
type MerkleProof struct {
	TargetHash string
	Proofs     []string
	MerkleRoot string
}

// GetIssuers returns the issuers of a v2 document.
func GetIssuers(doc *WrappedDocument) ([]Issuer, error) {
	data, err := GetData(doc)
	if err != nil {
		return nil, err
	}
	var issuers []Issuer
	if err := decodeInto(data["issuers"], &issuers); err != nil {
		return nil, fmt.Errorf("invalid issuers: %w", err)
	}
	if len(issuers) == 0 {
		return nil, fmt.Errorf("document has no issuers")
	}
	return issuers, nil
}

// GetV2Signature returns the signature block of a v2 document.
func GetV2Signature(doc *WrappedDocument) (*V2Signature, error) {
	signature := &V2Signature{}
	if err := decodeInto(doc.fields["signature"], signature); err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	return signature, nil
}

// GetV2Proofs returns the DID signatures of a signed v2 document (nil when unsigned).
func GetV2Proofs(doc *WrappedDocument) ([]SignatureProof, error) {
	raw, ok := doc.Field("proof")
	if !ok {
		return nil, nil
	}
	var proofs []SignatureProof
	if err := decodeInto(raw, &proofs); err != nil {
		return nil, fmt.Errorf("invalid proof: %w", err)
	}
	return proofs, nil
}

// GetV3Proof returns the proof block of a v3 document.
func GetV3Proof(doc *WrappedDocument) (*V3Proof, error) {
	proof := &V3Proof{}
	if err := decodeInto(doc.fields["proof"], proof); err != nil {
		return nil, fmt.Errorf("invalid proof: %w", err)
	}
	return proof, nil
}

// GetV3Metadata returns the openAttestationMetadata block of a v3 document.
func GetV3Metadata(doc *WrappedDocument) (*V3Metadata, error) {
	metadata := &V3Metadata{}
	if err := decodeInto(doc.fields["openAttestationMetadata"], metadata); err != nil {
		return nil, fmt.Errorf("invalid openAttestationMetadata: %w", err)
	}
	return metadata, nil
}

// GetMerkleProof returns the target hash, proof path and merkle root of a v2 or v3 document.
func GetMerkleProof(doc *WrappedDocument) (*MerkleProof, error) {
	switch DetectVariant(doc) {
	case VariantV2:
		signature, err := GetV2Signature(doc)
		if err != nil {
			return nil, err
		}
		return &MerkleProof{TargetHash: signature.TargetHash, Proofs: signature.Proof, MerkleRoot: signature.MerkleRoot}, nil
	case VariantV3:
		proof, err := GetV3Proof(doc)
		if err != nil {
			return nil, err
		}
		return &MerkleProof{TargetHash: proof.TargetHash, Proofs: proof.Proofs, MerkleRoot: proof.MerkleRoot}, nil
	default:
		return nil, fmt.Errorf("unrecognised document schema")
	}
}

func decodeInto(v any, out any) error {
	if v == nil {
		return fmt.Errorf("value is missing")
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}
