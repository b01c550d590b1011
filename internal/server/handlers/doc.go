// Package handlers provides the infrastructure HTTP handlers (health, readiness, version and jwks).
//
// The document endpoints are in internal/api/handlers.
package handlers
