package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestCheckAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		header     string
		key        string
		wantStatus int
	}{
		{"matching key", "s3cret", APIKeyHeader, "s3cret", http.StatusOK},
		{"lower case header name", "s3cret", "x-api-key", "s3cret", http.StatusOK},
		{"missing key", "s3cret", "", "", http.StatusBadRequest},
		{"wrong key", "s3cret", APIKeyHeader, "guess", http.StatusBadRequest},
		{"key with trailing space", "s3cret", APIKeyHeader, "s3cret ", http.StatusBadRequest},
		{"no secret configured", "", APIKeyHeader, "", http.StatusBadRequest},
		{"no secret configured with key", "", APIKeyHeader, "anything", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := CheckAPIKey(func() string { return tt.secret })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/verify", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.key)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("next handler called = %v", called)
			}
			if tt.wantStatus == http.StatusBadRequest {
				if body := rr.Body.String(); body != "API key is invalid" {
					t.Errorf("body = %q, want %q", body, "API key is invalid")
				}
				if ct := rr.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
					t.Errorf("Content-Type = %q", ct)
				}
			}
		})
	}
}

func TestCheckAPIKey_ReadsSecretPerRequest(t *testing.T) {
	t.Setenv("TEST_API_KEY", "first")

	handler := CheckAPIKey(func() string { return os.Getenv("TEST_API_KEY") })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/verify", nil)
		req.Header.Set(APIKeyHeader, key)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("first"); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	t.Setenv("TEST_API_KEY", "second")
	if code := send("first"); code != http.StatusBadRequest {
		t.Errorf("rotated key: old key status = %d, want 400", code)
	}
	if code := send("second"); code != http.StatusOK {
		t.Errorf("rotated key: new key status = %d, want 200", code)
	}
}
