// encryption.go - symmetric encryption of documents handed to the storage API.
//
// The payload format is OPEN-ATTESTATION-TYPE-1 so that documents encrypted here can be
// decrypted by any OpenAttestation compatible viewer:
//   - AES-256-GCM with a random 12 byte IV
//   - the key is 32 bytes, exchanged as 64 hex characters
//   - cipherText, iv and tag (16 bytes) are base64 encoded
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	EncryptionType = "OPEN-ATTESTATION-TYPE-1"

	encryptionKeyBytes = 32
	ivBytes            = 12
	tagBytes           = 16
)

// EncryptedPayload is the encrypted form of a document, without the key.
type EncryptedPayload struct {
	CipherText string `json:"cipherText"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	Type       string `json:"type"`
}

// EncryptionResult is the output of EncryptString: the payload plus the hex key used to produce it.
type EncryptionResult struct {
	EncryptedPayload
	Key string `json:"key"`
}

// GenerateEncryptionKey returns a new random AES-256 key as 64 hex characters.
func GenerateEncryptionKey() (string, error) {
	key := make([]byte, encryptionKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return "", WrapInternalError(err, "failed to generate encryption key")
	}
	return hex.EncodeToString(key), nil
}

// EncryptString encrypts plaintext with AES-256-GCM.
//
// When existingKey is empty a new key is generated, otherwise existingKey must be a 64 character hex string.
func EncryptString(plaintext, existingKey string) (*EncryptionResult, error) {
	keyHex := existingKey
	if keyHex == "" {
		var err error
		if keyHex, err = GenerateEncryptionKey(); err != nil {
			return nil, err
		}
	}

	aead, err := newGCM(keyHex)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivBytes)
	if _, err := rand.Read(iv); err != nil {
		return nil, WrapInternalError(err, "failed to generate iv")
	}

	// Seal appends the tag to the ciphertext
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	cipherText, tag := sealed[:len(sealed)-tagBytes], sealed[len(sealed)-tagBytes:]

	return &EncryptionResult{
		EncryptedPayload: EncryptedPayload{
			CipherText: base64.StdEncoding.EncodeToString(cipherText),
			IV:         base64.StdEncoding.EncodeToString(iv),
			Tag:        base64.StdEncoding.EncodeToString(tag),
			Type:       EncryptionType,
		},
		Key: keyHex,
	}, nil
}

// DecryptString reverses EncryptString. It fails when the key does not match or the payload was modified.
func DecryptString(payload EncryptedPayload, keyHex string) (string, error) {
	if payload.Type != EncryptionType {
		return "", NewEncryptionError(fmt.Sprintf("unsupported encryption type %q", payload.Type))
	}

	aead, err := newGCM(keyHex)
	if err != nil {
		return "", err
	}

	cipherText, err := base64.StdEncoding.DecodeString(payload.CipherText)
	if err != nil {
		return "", WrapEncryptionError(err, "cipherText is not valid base64")
	}
	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return "", WrapEncryptionError(err, "iv is not valid base64")
	}
	tag, err := base64.StdEncoding.DecodeString(payload.Tag)
	if err != nil {
		return "", WrapEncryptionError(err, "tag is not valid base64")
	}
	if len(iv) != ivBytes {
		return "", NewEncryptionError(fmt.Sprintf("iv must be %d bytes, got %d", ivBytes, len(iv)))
	}
	if len(tag) != tagBytes {
		return "", NewEncryptionError(fmt.Sprintf("tag must be %d bytes, got %d", tagBytes, len(tag)))
	}

	plaintext, err := aead.Open(nil, iv, append(cipherText, tag...), nil)
	if err != nil {
		return "", WrapEncryptionError(err, "failed to decrypt document")
	}
	return string(plaintext), nil
}

func newGCM(keyHex string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, WrapEncryptionError(err, "encryption key must be hex encoded")
	}
	if len(key) != encryptionKeyBytes {
		return nil, NewEncryptionError(fmt.Sprintf("encryption key must be %d bytes (%d hex characters), got %d bytes",
			encryptionKeyBytes, encryptionKeyBytes*2, len(key)))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, WrapEncryptionError(err, "failed to create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, WrapInternalError(err, "failed to create GCM")
	}
	return aead, nil
}
