package api

import "fmt"

// ErrorCode identifies an API error. Document verification errors use the docverify codes.
type ErrorCode string

const (
	// ErrCodeCorsUnallowed is used when a browser request comes from an origin that is not on the allow-list.
	ErrCodeCorsUnallowed ErrorCode = "CORS_UNALLOWED"

	// ErrCodeAPIKeyInvalid is used when the x-api-key header is missing or wrong.
	// The API key gate replies with the plain text message rather than a JSON error response.
	ErrCodeAPIKeyInvalid ErrorCode = "API_KEY_INVALID"

	// ErrCodeMalformedRequest is used when the request body cannot be decoded.
	ErrCodeMalformedRequest ErrorCode = "MALFORMED_REQUEST"

	// ErrCodeNotFound is used when a stored document does not exist or has expired.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeRateLimitExceeded is only used in the middleware.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// ErrCodeRequestTooLarge is only used in the middleware.
	ErrCodeRequestTooLarge ErrorCode = "REQUEST_TOO_LARGE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Messages returned to clients, keyed by error code.
var Messages = map[ErrorCode]string{
	ErrCodeCorsUnallowed:     "Not allowed by CORS",
	ErrCodeAPIKeyInvalid:     "API key is invalid",
	ErrCodeMalformedRequest:  "Malformed request",
	ErrCodeNotFound:          "Document not found",
	ErrCodeRateLimitExceeded: "Rate limit exceeded",
	ErrCodeRequestTooLarge:   "Request too large",
	ErrCodeInternal:          "Internal error",
}

// APIError represents a structured error from the api layer.
type APIError struct {
	// code is the API error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *APIError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *APIError) Code() ErrorCode { return e.code }
func (e *APIError) Unwrap() error   { return e.wrapped }

// NewCorsUnallowedError is returned by the origin policy for origins that are not allowed.
func NewCorsUnallowedError(origin string) error {
	return &APIError{code: ErrCodeCorsUnallowed, message: fmt.Sprintf("origin %q is not allowed", origin)}
}

// NewMalformedRequestError creates an error for malformed requests.
func NewMalformedRequestError(msg string) error {
	return &APIError{code: ErrCodeMalformedRequest, message: msg}
}

// WrapMalformedRequestError wraps an existing error as a malformed request error.
func WrapMalformedRequestError(err error, msg string) error {
	return &APIError{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

func NewNotFoundError(msg string) error {
	return &APIError{code: ErrCodeNotFound, message: msg}
}

// NewRateLimitError creates a rate limit exceeded error.
func NewRateLimitError(msg string) error {
	return &APIError{code: ErrCodeRateLimitExceeded, message: msg}
}

// NewRequestTooLargeError creates a request too large error.
func NewRequestTooLargeError(msg string) error {
	return &APIError{code: ErrCodeRequestTooLarge, message: msg}
}

// WrapInternalError wraps an unexpected failure (storage unavailable, signing failed etc).
func WrapInternalError(err error, msg string) error {
	return &APIError{code: ErrCodeInternal, message: msg, wrapped: err}
}
