package crypto

import (
	"strings"
	"testing"
	"time"
)

func newTestSigner(t *testing.T) *ReceiptSigner {
	t.Helper()
	privateKey, err := GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateEd25519KeyPair() error = %v", err)
	}
	signer, err := NewReceiptSigner(privateKey)
	if err != nil {
		t.Fatalf("NewReceiptSigner() error = %v", err)
	}
	return signer
}

func TestReceiptSigner_SignAndVerify(t *testing.T) {
	signer := newTestSigner(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return fixed }

	token, receipt, err := signer.Sign("sepolia", "abc123", true)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected a compact JWS, got %q", token)
	}
	if receipt.ID == "" {
		t.Error("expected a receipt ID")
	}

	verified, err := VerifyReceipt(token, signer.PublicKeySet())
	if err != nil {
		t.Fatalf("VerifyReceipt() error = %v", err)
	}
	if verified.ID != receipt.ID || verified.Network != "sepolia" || verified.DocumentHash != "abc123" || !verified.Valid {
		t.Errorf("verified receipt = %+v, want %+v", verified, receipt)
	}
	if !verified.IssuedAt.Equal(fixed) {
		t.Errorf("IssuedAt = %v, want %v", verified.IssuedAt, fixed)
	}
}

func TestVerifyReceipt_Failures(t *testing.T) {
	signer := newTestSigner(t)
	other := newTestSigner(t)

	token, _, err := signer.Sign("amoy", "abc123", false)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		set   *ReceiptSigner
	}{
		{"wrong key set", token, other},
		{"empty token", "", signer},
		{"tampered payload", token[:strings.Index(token, ".")+1] + "eyJ2YWxpZCI6dHJ1ZX0" + token[strings.LastIndex(token, "."):], signer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := VerifyReceipt(tt.token, tt.set.PublicKeySet()); err == nil {
				t.Error("expected verification to fail")
			}
		})
	}
}
