package api

// error_response.go maps errors to the JSON error response returned to clients

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
)

// ErrorResponse is the body of every JSON error response.
type ErrorResponse struct {
	// The HTTP status code returned
	StatusCode int `json:"statusCode" example:"400"`

	// A standard short description corresponding to the HTTP status code
	StatusCodeText string `json:"statusCodeText" example:"Bad Request"`

	// The user facing message for the error kind
	Message string `json:"message" example:"Document is invalid"`

	// The error kind, e.g. DOCUMENT_GENERIC_ERROR
	ErrorCode string `json:"errorCode" example:"DOCUMENT_GENERIC_ERROR"`

	// The chi request id, also used in the server logs
	RequestID string `json:"requestId,omitempty"`

	// The DateTime corresponding to the error occurring
	ErrorDateTime string `json:"errorDateTime" example:"2026-01-01T00:00:00Z"`
}

// MapErrorToResponse maps api.APIError, docverify.VerificationError, crypto.CryptoError or
// generic errors to an error response.
//
// The message is sanitized for the response: the full error is logged by RespondWithError.
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return newErrorResponse(apiStatus(apiErr.Code()), string(apiErr.Code()), Messages[apiErr.Code()], requestID)
	}

	var verificationErr *docverify.VerificationError
	if errors.As(err, &verificationErr) {
		status := http.StatusBadRequest
		if verificationErr.Code() == docverify.ErrCodeInternal {
			status = http.StatusBadGateway
		}
		return newErrorResponse(status, string(verificationErr.Code()), verificationErr.PublicMessage(), requestID)
	}

	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) {
		switch cryptoErr.Code() {
		case crypto.ErrCodeValidation, crypto.ErrCodeEncryption, crypto.ErrCodeInvalidSignature:
			return newErrorResponse(http.StatusBadRequest, string(ErrCodeMalformedRequest), cryptoErr.Error(), requestID)
		default:
			return newErrorResponse(http.StatusInternalServerError, string(ErrCodeInternal), Messages[ErrCodeInternal], requestID)
		}
	}

	// fallback - not expected, log the unmapped error so it can be given a proper mapping
	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("error", err.Error()),
		slog.String("request_id", requestID),
	)
	return newErrorResponse(http.StatusInternalServerError, string(ErrCodeInternal), Messages[ErrCodeInternal], requestID)
}

func apiStatus(code ErrorCode) int {
	switch code {
	case ErrCodeCorsUnallowed, ErrCodeAPIKeyInvalid, ErrCodeMalformedRequest:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(status int, code, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode:     status,
		StatusCodeText: http.StatusText(status),
		Message:        message,
		ErrorCode:      code,
		RequestID:      requestID,
		ErrorDateTime:  time.Now().UTC().Format(time.RFC3339),
	}
}
