package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"none", LevelNone},
		{LevelNone.String(), LevelNone},
		{"nonsense", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	l := initLogger(&buf, slog.LevelInfo, "prod")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(RequestLogging(l))
	router.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		ContextWithLogAttrs(r.Context(), slog.String("network", "sepolia"))
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected a json log line, got %q: %v", line, err)
	}

	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v, want %d", entry["status"], http.StatusTeapot)
	}
	if entry["network"] != "sepolia" {
		t.Errorf("expected attribute added by the handler to be logged, got %v", entry["network"])
	}
	if entry["request_id"] == "" || entry["request_id"] == nil {
		t.Error("request_id not logged")
	}
}

func TestContextRequestLogger_Default(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ContextRequestLogger(req.Context()) == nil {
		t.Fatal("expected the default logger when no request logger is set")
	}
}
