// Package middleware provides the HTTP request guards of the verifier server: the origin policy,
// the API key check, document size and per client rate limits, response headers and request metrics.
package middleware
