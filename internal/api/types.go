package api

import (
	"encoding/json"

	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
	"github.com/information-sharing-networks/doc-verifier/internal/verify"
)

// DocumentRequest is the body of POST /verify, POST /storage and POST /storage/{id}.
type DocumentRequest struct {
	// Document is the wrapped OpenAttestation document (v2 or v3)
	Document json.RawMessage `json:"document" swaggertype:"object"`
}

// VerifyResponse is returned for a valid document.
type VerifyResponse struct {
	Network string `json:"network" example:"sepolia"`
	Valid   bool   `json:"valid" example:"true"`

	// SHA-256 of the canonical JSON of the submitted document
	DocumentHash string `json:"documentHash" example:"0c6b6e0b4b1d5e5f1f8b0a3e7c2d1c9b7a6f5e4d3c2b1a09f8e7d6c5b4a39281"`

	// The verification fragments (one per verifier)
	Summary verify.Fragments `json:"summary"`

	// JWS signed receipt, only present when the server has a receipt signing key
	Receipt string `json:"receipt,omitempty"`
}

// StorageResponse is returned when a document has been stored.
type StorageResponse struct {
	ID   string `json:"id" example:"6a3d7a5e-3c9c-4a3f-9a53-0e4b7d6d1f10"`
	Key  string `json:"key" example:"2b1f..."`
	Type string `json:"type" example:"OPEN-ATTESTATION-TYPE-1"`

	// seconds until the document expires
	TTL int64 `json:"ttl" example:"2592000"`
}

// QueueResponse is returned when a storage slot is reserved.
type QueueResponse struct {
	ID  string `json:"id" example:"6a3d7a5e-3c9c-4a3f-9a53-0e4b7d6d1f10"`
	Key string `json:"key" example:"2b1f..."`
}

// StoredDocumentResponse is returned by GET /storage/{id}.
type StoredDocumentResponse struct {
	Document crypto.EncryptedPayload `json:"document"`
}
