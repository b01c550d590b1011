// this file provides the SHA-256 fingerprints reported for verified documents.

package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Hash calculates SHA-256 checksum (hash) and returns hex string.
func Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("data is empty")
	}
	hasher := sha256.New()

	if _, err := io.Copy(hasher, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to hash data: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// DocumentHash returns the SHA-256 hash of the RFC 8785 canonical form of a JSON document.
//
// The hash does not depend on key order or whitespace so it can be used to correlate
// submissions of the same wrapped document.
func DocumentHash(document []byte) (string, error) {
	canonical, err := CanonicalizeJSON(document)
	if err != nil {
		return "", WrapValidationError(err, "document is not valid JSON")
	}
	return Hash(canonical)
}

// VerifyHash verifies that data matches the expected SHA-256 checksum.
func VerifyHash(data []byte, expectedChecksum string) bool {
	checksum, _ := Hash(data)
	return checksum == expectedChecksum
}
