package docverify

import (
	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
)

// EncryptedDocumentResult is the encrypted document and the key needed to decrypt it.
type EncryptedDocumentResult struct {
	EncryptedDocument    crypto.EncryptedPayload `json:"encryptedDocument"`
	EncryptedDocumentKey string                  `json:"encryptedDocumentKey"`
}

// GetEncryptedDocument encrypts str with existingKey, or with a new random key when existingKey is empty.
func GetEncryptedDocument(str, existingKey string) (*EncryptedDocumentResult, error) {
	result, err := crypto.EncryptString(str, existingKey)
	if err != nil {
		return nil, err
	}
	return &EncryptedDocumentResult{
		EncryptedDocument:    result.EncryptedPayload,
		EncryptedDocumentKey: result.Key,
	}, nil
}
