package middleware

import "net/http"

// SecurityHeaders sets the response headers for a JSON API that is never framed or rendered by a
// browser. Document and storage responses carry decryption keys and are never cached.
// HSTS is only sent in prod and staging, which are served over TLS.
func SecurityHeaders(environment string) func(http.Handler) http.Handler {
	hsts := environment == "prod" || environment == "staging"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			if r.Method != http.MethodGet || !isPublicPath(r.URL.Path) {
				h.Set("Cache-Control", "no-store")
			}
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isPublicPath reports whether path serves data that intermediaries may cache.
func isPublicPath(path string) bool {
	switch path {
	case "/.well-known/jwks.json", "/version":
		return true
	}
	return false
}
