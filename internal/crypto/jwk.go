// JWK (JSON Web Key) helpers for the receipt signing key
//
// these functions convert raw Ed25519 keys to JWK format
// Reference: https://datatracker.ietf.org/doc/html/rfc7517 (JSON Web Key standard)
//
// they are used by the keygen CLI to write key files and by receipt.go to publish
// the public key via /.well-known/jwks.json

package crypto

import (
	"crypto"
	"crypto/ed25519"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// Ed25519PublicKeyToJWK converts an Ed25519 public key to JWK format
func Ed25519PublicKeyToJWK(publicKey ed25519.PublicKey, keyID string) (jwk.Key, error) {
	if publicKey == nil {
		return nil, NewKeyManagementError("public key is nil")
	}
	return importSigningKey(publicKey, keyID)
}

// Ed25519PrivateKeyToJWK converts an Ed25519 private key to JWK format
func Ed25519PrivateKeyToJWK(privateKey ed25519.PrivateKey, keyID string) (jwk.Key, error) {
	if privateKey == nil {
		return nil, NewKeyManagementError("private key is nil")
	}
	return importSigningKey(privateKey, keyID)
}

func importSigningKey(raw any, keyID string) (jwk.Key, error) {
	if keyID == "" {
		return nil, NewKeyManagementError("keyID is required")
	}

	key, err := jwk.Import(raw)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to create JWK from Ed25519 key")
	}

	// Set key ID
	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set key ID")
	}

	// Set algorithm
	if err := key.Set(jwk.AlgorithmKey, jwa.EdDSA()); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set algorithm")
	}

	// Set key usage
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, WrapKeyManagementError(err, "failed to set key usage")
	}

	return key, nil
}

// GenerateKeyIDFromEd25519Key generates a key ID from an Ed25519 public key using SHA-256 thumbprint.
// Returns the first 16 characters of the hex-encoded thumbprint (RFC 7638)
func GenerateKeyIDFromEd25519Key(publicKey ed25519.PublicKey) (string, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", NewKeyManagementError("invalid Ed25519 public key length")
	}
	// Import to JWK to calculate thumbprint
	jwkKey, err := jwk.Import(publicKey)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to import key")
	}

	thumbprint, err := jwkKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", WrapKeyManagementError(err, "failed to generate thumbprint")
	}

	return fmt.Sprintf("%x", thumbprint)[:16], nil
}
