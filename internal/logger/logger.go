// Package logger configures the application slog logger and provides request scoped logging.
//
// In dev and test the logs are written with the tint handler (coloured, human readable).
// In staging and prod they are written as JSON so they can be ingested by the log pipeline.
package logger

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
)

// LevelNone is above every level used by the app and is used to silence logging (e.g. in tests)
const LevelNone = slog.Level(12)

// ParseLogLevel maps a LOG_LEVEL value to a slog level.
// Unknown values default to debug.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "off":
		return LevelNone
	}

	// accept values produced by slog.Level.String(), e.g "ERROR+4"
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err == nil {
		return l
	}
	return slog.LevelDebug
}

// InitLogger creates the application logger and installs it as the slog default.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	return initLogger(os.Stdout, level, environment)
}

// InitLoggerWithWriter is InitLogger writing to w. The CLI logs to stderr so that stdout only carries command output.
func InitLoggerWithWriter(w io.Writer, level slog.Level, environment string) *slog.Logger {
	return initLogger(w, level, environment)
}

func initLogger(w io.Writer, level slog.Level, environment string) *slog.Logger {
	var handler slog.Handler

	switch environment {
	case "prod", "staging":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

type contextKey int

const (
	loggerKey contextKey = iota
	attrsKey
)

// logAttrs collects attributes added by handlers so they can be included in the final request log.
type logAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextRequestLogger returns the request scoped logger, or the default logger when the
// request was not routed through RequestLogging.
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// ContextWithLogAttrs adds attributes to the final log line written for the request.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	la, ok := ctx.Value(attrsKey).(*logAttrs)
	if !ok {
		return
	}
	la.mu.Lock()
	la.attrs = append(la.attrs, attrs...)
	la.mu.Unlock()
}

// RequestLogging adds a request scoped logger (tagged with the chi request id) to the context
// and writes one log line per request when it completes.
func RequestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger.With(
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
			la := &logAttrs{}

			ctx := context.WithValue(r.Context(), loggerKey, reqLogger)
			ctx = context.WithValue(ctx, attrsKey, la)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			}
			la.mu.Lock()
			attrs = append(attrs, la.attrs...)
			la.mu.Unlock()

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			reqLogger.LogAttrs(r.Context(), level, "request completed", attrs...)
		})
	}
}
