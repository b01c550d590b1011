package docverify

import (
	"fmt"

	"github.com/information-sharing-networks/doc-verifier/internal/verify"
)

// ErrorCode identifies the kind of verification failure.
type ErrorCode string

const (
	// ErrCodeDocumentNetworkNotFound is used when a recognised document does not declare a network.
	ErrCodeDocumentNetworkNotFound ErrorCode = "DOCUMENT_NETWORK_NOT_FOUND"

	// ErrCodeDocumentSchemaInvalid is used when the document is neither a wrapped v2 nor a wrapped v3 document.
	ErrCodeDocumentSchemaInvalid ErrorCode = "DOCUMENT_SCHEMA_INVALID"

	// ErrCodeNetworkUnsupported is used when the declared network is not in the network table.
	ErrCodeNetworkUnsupported ErrorCode = "NETWORK_UNSUPPORTED"

	// ErrCodeDocumentGeneric is used when the verification pipeline ran and the result is not valid.
	ErrCodeDocumentGeneric ErrorCode = "DOCUMENT_GENERIC_ERROR"

	// ErrCodeInternal is used when the network could not be reached at all.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Messages returned to clients, keyed by error code.
var Messages = map[ErrorCode]string{
	ErrCodeDocumentNetworkNotFound: "Document network not found",
	ErrCodeDocumentSchemaInvalid:   "Document schema is invalid",
	ErrCodeNetworkUnsupported:      "Network is unsupported",
	ErrCodeDocumentGeneric:         "Document is invalid",
	ErrCodeInternal:                "Unable to verify document",
}

// VerificationError represents a structured error from the docverify package.
type VerificationError struct {
	// code is the error code
	code ErrorCode

	// message is a human-readable error message (logged server side)
	message string

	// wrapped is the optional underlying error
	wrapped error

	// fragments holds the pipeline result for ErrCodeDocumentGeneric
	fragments verify.Fragments
}

func (e *VerificationError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *VerificationError) Code() ErrorCode { return e.code }
func (e *VerificationError) Unwrap() error   { return e.wrapped }

// Fragments returns the verification result that caused an ErrCodeDocumentGeneric error.
func (e *VerificationError) Fragments() verify.Fragments { return e.fragments }

// PublicMessage is the message sent to clients for this error.
func (e *VerificationError) PublicMessage() string {
	return Messages[e.code]
}

func NewDocumentNetworkNotFoundError(msg string) error {
	return &VerificationError{code: ErrCodeDocumentNetworkNotFound, message: msg}
}

func NewDocumentSchemaInvalidError(msg string) error {
	return &VerificationError{code: ErrCodeDocumentSchemaInvalid, message: msg}
}

// WrapDocumentSchemaInvalidError is used when a document looks like a known variant but its
// payload cannot be read.
func WrapDocumentSchemaInvalidError(err error, msg string) error {
	return &VerificationError{code: ErrCodeDocumentSchemaInvalid, message: msg, wrapped: err}
}

func NewNetworkUnsupportedError(msg string) error {
	return &VerificationError{code: ErrCodeNetworkUnsupported, message: msg}
}

// NewDocumentGenericError records the fragments of a failed verification so they can be logged.
func NewDocumentGenericError(msg string, fragments verify.Fragments) error {
	return &VerificationError{code: ErrCodeDocumentGeneric, message: msg, fragments: fragments}
}

func WrapInternalError(err error, msg string) error {
	return &VerificationError{code: ErrCodeInternal, message: msg, wrapped: err}
}
