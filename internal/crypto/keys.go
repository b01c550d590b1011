// this file contains functions to generate and load the Ed25519 key pair used to sign verification receipts.
// keys are saved in JWK format (a JWK set containing a single key)

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// GenerateEd25519KeyPair generates a new ED25519 private key
func GenerateEd25519KeyPair() (ed25519.PrivateKey, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to generate key pair")
	}

	return privateKey, nil
}

// SaveEd25519PrivateKeyToJWKFile saves an ED25519 private key to a JWK file
// note the key is not encrypted
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "receipt-private.jwk")
func SaveEd25519PrivateKeyToJWKFile(privateKey ed25519.PrivateKey, keyID, baseDir, filename string) error {
	jwkKey, err := Ed25519PrivateKeyToJWK(privateKey, keyID)
	if err != nil {
		return err
	}
	return writeJWKSet(jwkKey, baseDir, filename, 0600)
}

// SaveEd25519PublicKeyToJWKFile saves an ED25519 public key to a JWK file
func SaveEd25519PublicKeyToJWKFile(publicKey ed25519.PublicKey, keyID, baseDir, filename string) error {
	jwkKey, err := Ed25519PublicKeyToJWK(publicKey, keyID)
	if err != nil {
		return err
	}
	return writeJWKSet(jwkKey, baseDir, filename, 0644)
}

func writeJWKSet(key jwk.Key, baseDir, filename string, perm os.FileMode) error {
	jwkSet := jwk.NewSet()
	if err := jwkSet.AddKey(key); err != nil {
		return WrapKeyManagementError(err, "failed to add key to JWK set")
	}

	jsonBytes, err := json.MarshalIndent(jwkSet, "", "  ")
	if err != nil {
		return WrapKeyManagementError(err, "failed to marshal JWK set")
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return WrapKeyManagementError(err, "failed to open root directory "+baseDir)
	}
	defer root.Close()

	if err := root.WriteFile(filename, jsonBytes, perm); err != nil {
		return WrapKeyManagementError(err, "failed to write file")
	}

	return nil
}

// ReadEd25519PrivateKeyFromJWKFile loads an ED25519 private key from a JWK file
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "receipt-private.jwk")
func ReadEd25519PrivateKeyFromJWKFile(baseDir, filename string) (ed25519.PrivateKey, error) {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to open root directory "+baseDir)
	}
	defer root.Close()

	jsonBytes, err := root.ReadFile(filename)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to read file")
	}

	jwkSet, err := jwk.Parse(jsonBytes)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to parse JWK set")
	}

	if jwkSet.Len() == 0 {
		return nil, NewKeyManagementError("JWK set is empty")
	}

	jwkKey, ok := jwkSet.Key(0)
	if !ok {
		return nil, NewKeyManagementError("failed to get key from JWK set")
	}

	var raw any
	if err := jwk.Export(jwkKey, &raw); err != nil {
		return nil, WrapKeyManagementError(err, "failed to export key")
	}

	privateKey, ok := raw.(ed25519.PrivateKey)
	if !ok {
		return nil, NewKeyManagementError("key is not an Ed25519 private key")
	}

	return privateKey, nil
}

// LoadReceiptSigningKey reads the private key at path (see RECEIPT_SIGNING_KEY_PATH).
func LoadReceiptSigningKey(path string) (ed25519.PrivateKey, error) {
	return ReadEd25519PrivateKeyFromJWKFile(filepath.Dir(path), filepath.Base(path))
}
