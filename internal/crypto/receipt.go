// receipt.go - signed verification receipts.
//
// A receipt records that the service verified a document on a given network and what the
// outcome was. The payload is the RFC 8785 canonical JSON of a Receipt, signed as a JWS
// (compact serialization, EdDSA). The kid header is the JWK thumbprint of the signing key
// and the public key is published at /.well-known/jwks.json so receipts can be checked offline.
package crypto

import (
	"crypto/ed25519"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// Receipt is the signed statement returned with a verification result.
type Receipt struct {
	ID           string    `json:"id"`
	Network      string    `json:"network"`
	DocumentHash string    `json:"documentHash"`
	Valid        bool      `json:"valid"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// ReceiptSigner signs receipts with an Ed25519 key.
type ReceiptSigner struct {
	privateKey jwk.Key
	publicSet  jwk.Set
	keyID      string

	// now is replaced in tests
	now func() time.Time
}

// NewReceiptSigner creates a signer for privateKey. The key ID is derived from the public key.
func NewReceiptSigner(privateKey ed25519.PrivateKey) (*ReceiptSigner, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, NewKeyManagementError("invalid Ed25519 private key")
	}

	publicKey := privateKey.Public().(ed25519.PublicKey)
	keyID, err := GenerateKeyIDFromEd25519Key(publicKey)
	if err != nil {
		return nil, err
	}

	privateJWK, err := Ed25519PrivateKeyToJWK(privateKey, keyID)
	if err != nil {
		return nil, err
	}

	publicJWK, err := jwk.PublicKeyOf(privateJWK)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to derive public JWK")
	}

	publicSet := jwk.NewSet()
	if err := publicSet.AddKey(publicJWK); err != nil {
		return nil, WrapKeyManagementError(err, "failed to build public key set")
	}

	return &ReceiptSigner{
		privateKey: privateJWK,
		publicSet:  publicSet,
		keyID:      keyID,
		now:        time.Now,
	}, nil
}

// KeyID returns the kid used in receipt headers.
func (s *ReceiptSigner) KeyID() string {
	return s.keyID
}

// PublicKeySet returns the JWK set that verifies receipts produced by this signer.
func (s *ReceiptSigner) PublicKeySet() jwk.Set {
	return s.publicSet
}

// Sign creates and signs a receipt. It returns the JWS compact serialization and the receipt that was signed.
func (s *ReceiptSigner) Sign(network, documentHash string, valid bool) (string, *Receipt, error) {
	receipt := &Receipt{
		ID:           uuid.New().String(),
		Network:      network,
		DocumentHash: documentHash,
		Valid:        valid,
		IssuedAt:     s.now().UTC().Truncate(time.Second),
	}

	payload, err := json.Marshal(receipt)
	if err != nil {
		return "", nil, WrapInternalError(err, "failed to marshal receipt")
	}

	canonical, err := CanonicalizeJSON(payload)
	if err != nil {
		return "", nil, WrapInternalError(err, "failed to canonicalize receipt")
	}

	headers := jws.NewHeaders()
	if err := headers.Set(jws.KeyIDKey, s.keyID); err != nil {
		return "", nil, WrapInternalError(err, "failed to set kid header")
	}

	signed, err := jws.Sign(canonical, jws.WithKey(jwa.EdDSA(), s.privateKey, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", nil, WrapSignatureError(err, "failed to sign receipt")
	}

	return string(signed), receipt, nil
}

// VerifyReceipt checks the receipt signature against keySet and returns the decoded receipt.
func VerifyReceipt(token string, keySet jwk.Set) (*Receipt, error) {
	if token == "" {
		return nil, NewValidationError("receipt is empty")
	}
	if keySet == nil || keySet.Len() == 0 {
		return nil, NewKeyManagementError("no keys available to verify the receipt")
	}

	payload, err := jws.Verify([]byte(token), jws.WithKeySet(keySet))
	if err != nil {
		return nil, WrapSignatureError(err, "receipt signature verification failed")
	}

	receipt := &Receipt{}
	if err := json.Unmarshal(payload, receipt); err != nil {
		return nil, WrapValidationError(err, "receipt payload is not valid JSON")
	}
	return receipt, nil
}
