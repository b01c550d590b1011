package api

// responses.go provides helper functions for sending HTTP responses from the handlers and middleware.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
)

// RespondWithError sends an error response as a JSON payload.
//
// It logs the full error details server-side and sends a sanitized response to the client.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse := MapErrorToResponse(err, r)

	attrs := []any{
		slog.String("error", err.Error()),
		slog.Int("status_code", errorResponse.StatusCode),
		slog.String("error_code", errorResponse.ErrorCode),
		slog.String("request_id", errorResponse.RequestID),
	}

	var verificationErr *docverify.VerificationError
	if errors.As(err, &verificationErr) && len(verificationErr.Fragments()) > 0 {
		attrs = append(attrs, slog.Any("fragments", verificationErr.Fragments()))
	}

	reqLogger := logger.ContextRequestLogger(r.Context())
	if errorResponse.StatusCode >= http.StatusInternalServerError {
		reqLogger.Error("Request failed", attrs...)
	} else {
		reqLogger.Warn("Request failed", attrs...)
	}

	RespondWithJSONPayload(w, errorResponse.StatusCode, errorResponse)
}

// RespondWithJSONPayload sends a JSON response with the given status code
func RespondWithJSONPayload(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// headers are already written
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}

// RespondWithText sends a plain text response.
func RespondWithText(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}
