// Package api holds the HTTP request and response types of the verifier service, the API errors
// raised by the middleware and handlers, and the helpers that write JSON responses.
//
// All errors returned to clients go through MapErrorToResponse, which maps api, docverify and
// crypto errors to a status code and a sanitized message. The full error is only logged.
package api
