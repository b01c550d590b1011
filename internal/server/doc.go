// Package server provides the HTTP server for the document verifier.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// The package wires
//   - the infrastructure handlers (health, readiness, version, metrics and jwks)
//   - the document API (verify and storage), guarded by the origin policy and the API key
//
// middleware is in internal/server/middleware
package server
