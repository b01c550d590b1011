// Package docverify is the document verification layer used by the HTTP handlers and the CLI.
//
// It works out which network a wrapped document was issued on (ValidateNetwork), runs the
// verification pipeline against that network (ValidateDocument) and encrypts documents for
// storage (GetEncryptedDocument).
//
// All validation failures are returned as *VerificationError values. Their codes map to HTTP 400
// responses in the api package.
package docverify
