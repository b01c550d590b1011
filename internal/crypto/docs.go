// crypto package provides the low level cryptographic functions used by the doc-verifier service.
//
//   - encryption.go: symmetric encryption of documents for storage (AES-256-GCM, OPEN-ATTESTATION-TYPE-1 payloads)
//   - canonical.go / hash.go: RFC 8785 canonical JSON and SHA-256 document fingerprints
//   - keys.go / jwk.go: receipt signing keys in JWK format
//   - receipt.go: signed verification receipts (JWS compact serialization)
//
// these are low level functions - the docverify package wraps them for the HTTP handlers and the CLI.
package crypto
