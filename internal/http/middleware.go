package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/eedu7/weather-api/internal/observability"
	"github.com/eedu7/weather-api/internal/ratelimit"
)

// ServiceNameHeader identifies the calling service for quota purposes.
const ServiceNameHeader = "Service-Name"

// CorrelationIDMiddleware tags each request with an X-Correlation-ID (inbound
// value or a fresh uuid) and stores a request-scoped logger in the context.
func CorrelationIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get("X-Correlation-ID")
			if corrID == "" {
				corrID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), "correlation_id", corrID)
			w.Header().Set("X-Correlation-ID", corrID)

			reqLogger := logger.With(zap.String("correlation_id", corrID))
			ctx = context.WithValue(ctx, "logger", reqLogger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records request counts, latency and in-flight gauge.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTPRequestsInFlight.Inc()
		defer observability.HTTPRequestsInFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		route := getRoute(r)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, statusCodeString(recorder.statusCode)).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
	})
}

func getRoute(r *http.Request) string {
	switch r.URL.Path {
	case "/health":
		return "/health"
	case "/metrics":
		return "/metrics"
	default:
		return "/{city}"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func statusCodeString(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// RateLimitMiddleware enforces the per-identifier quota before any cache or
// upstream work. On rejection it writes 429 with a Retry-After header. A
// limiter backend failure fails open: the request proceeds and the failure is
// logged and counted.
func RateLimitMiddleware(limiter ratelimit.Limiter, logger *zap.Logger) mux.MiddlewareFunc {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := ResolveIdentifier(r)

			result, err := limiter.Check(r.Context(), identifier)
			if err != nil {
				observability.RateLimitErrorsTotal.Inc()
				loggerFromRequest(r, logger).Warn("rate limiter unavailable, allowing request",
					zap.String("identifier", identifier), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !result.Allowed {
				observability.RateLimitRejectedTotal.Inc()
				loggerFromRequest(r, logger).Debug("rate limit exceeded",
					zap.String("identifier", identifier), zap.Duration("retry_after", result.RetryAfter))
				writeRateLimitError(w, result.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ResolveIdentifier returns the quota key for a request: the Service-Name
// header when present, otherwise the caller's network address.
func ResolveIdentifier(r *http.Request) string {
	if name := r.Header.Get(ServiceNameHeader); name != "" {
		return name
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	secs := ratelimit.RetryAfterSeconds(retryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeDetail(w, http.StatusTooManyRequests,
		fmt.Sprintf("Too many requests. Retry after %d seconds", secs))
}
