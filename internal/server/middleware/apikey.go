package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/doc-verifier/internal/api"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
)

// APIKeyHeader is the request header carrying the API key.
const APIKeyHeader = "X-API-Key"

// CheckAPIKey rejects requests whose x-api-key header does not match the secret.
//
// secret is called on every request so that the key can be rotated without a restart.
// An empty secret never matches. Rejected requests get a 400 with a plain text body.
func CheckAPIKey(secret func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validAPIKey(r.Header.Get(APIKeyHeader), secret()) {
				logger.ContextRequestLogger(r.Context()).Debug("invalid api key",
					slog.String("component", "CheckAPIKey"),
					slog.Bool("key_present", r.Header.Get(APIKeyHeader) != ""),
				)
				api.RespondWithText(w, http.StatusBadRequest, api.Messages[api.ErrCodeAPIKeyInvalid])
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validAPIKey(provided, expected string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
