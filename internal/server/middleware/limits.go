package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/information-sharing-networks/doc-verifier/internal/api"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
)

// MaxRequestSizeHeader tells clients how large a document request may be.
const MaxRequestSizeHeader = "X-Max-Request-Size"

// RequestSizeLimit caps the body of document requests at maxBytes.
//
// A Content-Length above the limit is rejected before the body is read. Otherwise the body is
// wrapped in a http.MaxBytesReader and the document decoder reports the overflow as a 413.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	limit := strconv.FormatInt(maxBytes, 10)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(MaxRequestSizeHeader, limit)

			if r.ContentLength > maxBytes {
				logger.ContextWithLogAttrs(r.Context(),
					slog.Int64("content_length", r.ContentLength),
					slog.Int64("max_request_size", maxBytes),
				)
				api.RespondWithError(w, r, api.NewRequestTooLargeError(
					fmt.Sprintf("document request of %d bytes exceeds the %d byte limit", r.ContentLength, maxBytes),
				))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// clientIdleTimeout is how long a client limiter is kept after its last request.
const clientIdleTimeout = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client address.
type clientLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(requestsPerSecond, burst int32) *clientLimiters {
	return &clientLimiters{
		limit:   rate.Limit(requestsPerSecond),
		burst:   int(burst),
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// reserve takes a token for client. It returns 0 when the request may proceed, otherwise how long
// the client has to wait.
func (c *clientLimiters) reserve(client string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) > clientIdleTimeout {
		for key, cl := range c.clients {
			if now.Sub(cl.lastSeen) > clientIdleTimeout {
				delete(c.clients, key)
			}
		}
		c.lastSweep = now
	}

	cl, ok := c.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[client] = cl
	}
	cl.lastSeen = now

	reservation := cl.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return time.Second
	}
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
	}
	return delay
}

// clientAddress is the remote IP set by chi's RealIP middleware, without the port.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit limits each client address to requestsPerSecond with the given burst.
// Rejected requests get a 429 with a Retry-After header. requestsPerSecond <= 0 disables limiting.
func RateLimit(requestsPerSecond int32, burst int32) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	limiters := newClientLimiters(requestsPerSecond, max(burst, 1))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddress(r)

			if delay := limiters.reserve(client); delay > 0 {
				retryAfter := int(math.Ceil(delay.Seconds()))

				logger.ContextRequestLogger(r.Context()).Warn("rate limit exceeded",
					slog.String("component", "RateLimit"),
					slog.String("client", client),
					slog.Int("retry_after", retryAfter),
				)
				logger.ContextWithLogAttrs(r.Context(), slog.String("client", client))

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				api.RespondWithError(w, r, api.NewRateLimitError(
					fmt.Sprintf("too many document requests, retry in %d seconds", retryAfter),
				))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
