// Package trace tags every request with an id and logs its start and
// completion.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "cartera/internal/log"
)

type ctxKey struct{}

// RequestIDHeader carries a caller-supplied id in and the effective id out.
const RequestIDHeader = "X-Request-ID"

// Incoming ids longer than this are replaced.
const maxRequestIDLength = 64

type Middleware struct {
	extractIP func(*http.Request) string
	logger    *applog.StructuredLogger

	total       atomic.Int64
	serverError atomic.Int64
	lastLatency atomic.Int64
}

// Metrics counts handled requests. LastLatencyUs is the duration of the most
// recently completed one.
type Metrics struct {
	TotalRequests int64
	ServerErrors  int64
	LastLatencyUs int64
}

// NewMiddleware creates a trace middleware. A nil logger uses the default
// slog logger.
func NewMiddleware(extractIP func(*http.Request) string, logger *applog.Logger) *Middleware {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &Middleware{
		extractIP: extractIP,
		logger:    applog.NewStructuredLogger(logger),
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var clientIP string
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = GenerateRequestID()
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, id)

		m.total.Add(1)
		m.logger.LogHTTPStart(ctx, r, clientIP)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.lastLatency.Store(elapsed.Microseconds())
		if rec.status >= http.StatusInternalServerError {
			m.serverError.Add(1)
		}
		m.logger.LogHTTPEnd(ctx, r, rec.status, elapsed.Milliseconds(), clientIP)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID returns "req_" followed by a random UUID.
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// RequestID reads the id stored by Middleware. It fits
// applog.RequestIDMiddleware.
func RequestID(r *http.Request) string {
	return GetRequestID(r.Context())
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests: m.total.Load(),
		ServerErrors:  m.serverError.Load(),
		LastLatencyUs: m.lastLatency.Load(),
	}
}
