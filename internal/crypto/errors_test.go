package crypto

import (
	"errors"
	"testing"
)

// the api layer maps these codes to responses, so each operation must report the right one
func TestCryptoError_CodesFromOperations(t *testing.T) {
	key, err := GenerateEncryptionKey()
	if err != nil {
		t.Fatalf("GenerateEncryptionKey() error = %v", err)
	}
	encrypted, err := EncryptString(`{"data":{}}`, key)
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	otherKey, err := GenerateEncryptionKey()
	if err != nil {
		t.Fatalf("GenerateEncryptionKey() error = %v", err)
	}

	tests := []struct {
		name     string
		run      func() error
		wantCode ErrorCode
	}{
		{"document hash of invalid json", func() error {
			_, err := DocumentHash([]byte(`{"data":`))
			return err
		}, ErrCodeValidation},
		{"encryption key not hex", func() error {
			_, err := EncryptString("document", "not-hex")
			return err
		}, ErrCodeEncryption},
		{"decrypt with another key", func() error {
			_, err := DecryptString(encrypted.EncryptedPayload, otherKey)
			return err
		}, ErrCodeEncryption},
		{"empty receipt", func() error {
			_, err := VerifyReceipt("", nil)
			return err
		}, ErrCodeValidation},
		{"missing receipt signing key", func() error {
			_, err := LoadReceiptSigningKey(t.TempDir() + "/missing.jwk")
			return err
		}, ErrCodeKeyManagement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var cryptoErr *CryptoError
			if !errors.As(err, &cryptoErr) {
				t.Fatalf("error %v is not a CryptoError", err)
			}
			if cryptoErr.Code() != tt.wantCode {
				t.Errorf("Code() = %q, want %q (%v)", cryptoErr.Code(), tt.wantCode, err)
			}
		})
	}
}

func TestCryptoError_Unwrap(t *testing.T) {
	cause := errors.New("cipher: message authentication failed")
	err := WrapEncryptionError(cause, "failed to decrypt document")

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable with errors.Is")
	}
	if got := err.Error(); got != "failed to decrypt document: cipher: message authentication failed" {
		t.Errorf("Error() = %q", got)
	}
}
