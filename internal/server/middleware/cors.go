package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/information-sharing-networks/doc-verifier/internal/api"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
)

// OriginPolicy decides which browser origins may call the API.
type OriginPolicy struct {
	allowed []string
}

// NewOriginPolicy returns a policy that allows the listed origins (exact match).
func NewOriginPolicy(origins []string) *OriginPolicy {
	return &OriginPolicy{allowed: slices.Clone(origins)}
}

// Decide calls callback exactly once with the decision for origin.
//
// Requests without an origin (curl, server to server) are allowed.
func (p *OriginPolicy) Decide(origin string, callback func(err error, allow bool)) {
	if origin == "" || slices.Contains(p.allowed, origin) {
		callback(nil, true)
		return
	}
	callback(api.NewCorsUnallowedError(origin), false)
}

// Allowed reports whether origin may call the API.
func (p *OriginPolicy) Allowed(origin string) bool {
	var allowed bool
	p.Decide(origin, func(err error, allow bool) {
		allowed = allow
	})
	return allowed
}

// CORS rejects requests from origins the policy does not allow and adds the CORS response
// headers (including preflight handling) for the rest.
func CORS(policy *OriginPolicy, log *slog.Logger) func(http.Handler) http.Handler {
	corsHandler := cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return policy.Allowed(origin)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Max-Request-Size"},
		MaxAge:         300,
	})

	return func(next http.Handler) http.Handler {
		withHeaders := corsHandler(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			var denied error
			policy.Decide(origin, func(err error, allow bool) {
				if !allow {
					denied = err
				}
			})

			if denied != nil {
				logger.ContextWithLogAttrs(r.Context(), slog.String("origin", origin))
				log.Debug("origin rejected", slog.String("origin", origin), slog.String("path", r.URL.Path))
				api.RespondWithError(w, r, denied)
				return
			}

			withHeaders.ServeHTTP(w, r)
		})
	}
}
