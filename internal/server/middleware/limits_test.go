package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/information-sharing-networks/doc-verifier/internal/api"
)

const testAPIKey = "s3cret"

// newDocumentRouter mounts a /verify handler behind the document route guards, and an unguarded
// /health/live route.
func newDocumentRouter(maxRequestSize int64, rps, burst int32) *chi.Mux {
	router := chi.NewRouter()
	router.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Group(func(r chi.Router) {
		r.Use(RateLimit(rps, burst))
		r.Use(CheckAPIKey(func() string { return testAPIKey }))
		r.Use(RequestSizeLimit(maxRequestSize))

		r.Post("/verify", func(w http.ResponseWriter, r *http.Request) {
			var req api.DocumentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				var maxBytesErr *http.MaxBytesError
				if errors.As(err, &maxBytesErr) {
					api.RespondWithError(w, r, api.NewRequestTooLargeError("document too large"))
					return
				}
				api.RespondWithError(w, r, api.WrapMalformedRequestError(err, "failed to decode request body"))
				return
			}
			api.RespondWithJSONPayload(w, http.StatusOK, map[string]bool{"verified": true})
		})
	})
	return router
}

func verifyRequest(body string, remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, testAPIKey)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	return req
}

func decodeErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response %q: %v", rr.Body.String(), err)
	}
	return resp
}

func TestRequestSizeLimit(t *testing.T) {
	const maxRequestSize = 256

	document := `{"document":{"version":"https://schema.openattestation.com/2.0/schema.json","data":{}}}`
	oversized := `{"document":{"data":{"name":"` + strings.Repeat("x", 2*maxRequestSize) + `"}}}`

	tests := []struct {
		name          string
		body          string
		unknownLength bool
		wantStatus    int
		wantErrorCode string
	}{
		{"document within the limit", document, false, http.StatusOK, ""},
		{"oversized content length", oversized, false, http.StatusRequestEntityTooLarge, string(api.ErrCodeRequestTooLarge)},
		{"oversized body without content length", oversized, true, http.StatusRequestEntityTooLarge, string(api.ErrCodeRequestTooLarge)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newDocumentRouter(maxRequestSize, 0, 0)

			req := verifyRequest(tt.body, "")
			if tt.unknownLength {
				req.ContentLength = -1
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if got := rr.Header().Get(MaxRequestSizeHeader); got != "256" {
				t.Errorf("%s = %q, want 256", MaxRequestSizeHeader, got)
			}
			if tt.wantErrorCode == "" {
				return
			}

			resp := decodeErrorResponse(t, rr)
			if resp.ErrorCode != tt.wantErrorCode || resp.StatusCode != tt.wantStatus {
				t.Errorf("error response = %+v, want code %s and status %d", resp, tt.wantErrorCode, tt.wantStatus)
			}
			if resp.Message != "Request too large" {
				t.Errorf("message = %q, want %q", resp.Message, "Request too large")
			}
		})
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	router := newDocumentRouter(4096, 1, 2)
	body := `{"document":{}}`

	for i := range 2 {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, verifyRequest(body, "203.0.113.7:4000"))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, verifyRequest(body, "203.0.113.7:4001"))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("request over the burst status = %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	if resp := decodeErrorResponse(t, rr); resp.ErrorCode != string(api.ErrCodeRateLimitExceeded) {
		t.Errorf("errorCode = %s, want %s", resp.ErrorCode, api.ErrCodeRateLimitExceeded)
	}

	// other clients have their own bucket
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, verifyRequest(body, "198.51.100.20:4000"))
	if rr.Code != http.StatusOK {
		t.Errorf("second client status = %d, want 200", rr.Code)
	}

	// routes outside the document group are not limited
	for range 3 {
		rr = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.RemoteAddr = "203.0.113.7:4002"
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("health status = %d, want 200", rr.Code)
		}
	}
}

func TestRateLimit_RejectedBeforeAPIKeyCheck(t *testing.T) {
	router := newDocumentRouter(4096, 1, 1)

	codes := make([]int, 0, 2)
	for range 2 {
		req := verifyRequest(`{"document":{}}`, "203.0.113.9:4000")
		req.Header.Set(APIKeyHeader, "guess")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [400 429]", codes)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	tests := []struct {
		name string
		rps  int32
	}{
		{"zero", 0},
		{"negative", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newDocumentRouter(4096, tt.rps, 1)
			for i := range 5 {
				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, verifyRequest(`{"document":{}}`, ""))
				if rr.Code != http.StatusOK {
					t.Fatalf("request %d status = %d, want 200", i+1, rr.Code)
				}
			}
		})
	}
}

func TestClientLimiters_DropsIdleClients(t *testing.T) {
	limiters := newClientLimiters(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiters.now = func() time.Time { return now }

	if delay := limiters.reserve("203.0.113.7"); delay != 0 {
		t.Fatalf("first reserve delay = %v, want 0", delay)
	}
	if delay := limiters.reserve("203.0.113.7"); delay <= 0 {
		t.Fatalf("second reserve delay = %v, want a wait", delay)
	}

	now = now.Add(clientIdleTimeout + time.Second)
	limiters.reserve("198.51.100.20")

	if _, ok := limiters.clients["203.0.113.7"]; ok {
		t.Error("idle client limiter was not dropped")
	}
	if len(limiters.clients) != 1 {
		t.Errorf("clients = %d, want 1", len(limiters.clients))
	}
}

func TestClientAddress(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"203.0.113.7:4000", "203.0.113.7"},
		{"[2001:db8::1]:4000", "2001:db8::1"},
		{"203.0.113.7", "203.0.113.7"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(nil))
		req.RemoteAddr = tt.remoteAddr
		if got := clientAddress(req); got != tt.want {
			t.Errorf("clientAddress(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
