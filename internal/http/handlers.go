package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/eedu7/weather-api/internal/cache"
	"github.com/eedu7/weather-api/internal/client"
	"github.com/eedu7/weather-api/internal/lifecycle"
	"github.com/eedu7/weather-api/internal/models"
	"github.com/eedu7/weather-api/internal/observability"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	fetcher      client.WeatherFetcher
	store        cache.Store
	cacheEnabled bool
	cacheTTL     time.Duration
	cacheBackend string
	logger       *zap.Logger

	// LimiterPing, when set, is used by the health handler to check the
	// limiter's backing store.
	LimiterPing func(ctx context.Context) error
}

// NewHandler returns a new Handler. When cacheEnabled is false the store is
// never consulted and every request goes upstream.
func NewHandler(
	fetcher client.WeatherFetcher,
	store cache.Store,
	cacheEnabled bool,
	cacheTTL time.Duration,
	cacheBackend string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		fetcher:      fetcher,
		store:        store,
		cacheEnabled: cacheEnabled,
		cacheTTL:     cacheTTL,
		cacheBackend: cacheBackend,
		logger:       logger,
	}
}

// GetWeather handles GET /{city}. Rate limiting has already run as
// middleware by the time this is reached.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := models.Query{
		City:      mux.Vars(r)["city"],
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}
	logger := loggerFromRequest(r, h.logger)

	if h.cacheEnabled {
		payload, ok, err := h.store.Get(r.Context(), q.City)
		if err != nil {
			// A corrupt or unreachable cache degrades to a refetch, never a 5xx.
			observability.CacheErrorsTotal.WithLabelValues("get").Inc()
			logger.Warn("cache get failed, fetching upstream", zap.String("city", q.City), zap.Error(err))
		} else if ok {
			observability.CacheHitsTotal.WithLabelValues(h.cacheBackend).Inc()
			logger.Debug("cache hit", zap.String("city", q.City))
			writeRawJSON(w, http.StatusOK, payload)
			return
		} else {
			observability.CacheMissesTotal.WithLabelValues(h.cacheBackend).Inc()
		}
	}

	payload, err := h.fetcher.Fetch(r.Context(), q)
	if err != nil {
		writeFetchError(w, logger, err)
		return
	}

	if h.cacheEnabled {
		if err := h.store.Set(r.Context(), q.City, payload, h.cacheTTL); err != nil {
			observability.CacheErrorsTotal.WithLabelValues("set").Inc()
			logger.Warn("cache set failed", zap.String("city", q.City), zap.Error(err))
		}
	}

	writeRawJSON(w, http.StatusOK, payload)
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if lifecycle.IsShuttingDown() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "shutting-down",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	status := "healthy"
	statusCode := http.StatusOK
	checks := make(map[string]string)

	if h.cacheEnabled {
		if err := h.store.Ping(r.Context()); err == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}
	if h.LimiterPing != nil {
		if err := h.LimiterPing(r.Context()); err == nil {
			checks["rateLimiter"] = "healthy"
		} else {
			checks["rateLimiter"] = "unhealthy"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "weather-api",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeFetchError maps an upstream failure to its terminal HTTP response.
func writeFetchError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, client.ErrInvalidKeyOrURL):
		writeDetail(w, http.StatusUnauthorized, "Invalid API Key or url")
	case errors.Is(err, client.ErrTimeout):
		writeDetail(w, http.StatusGatewayTimeout, "Request is taking a long time to process")
	default:
		writeDetail(w, http.StatusBadRequest, err.Error())
	}
	logger.Debug("upstream fetch failed", zap.Error(err))
}

// writeDetail writes the proxy's error body shape: {"detail": "..."}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON passes a provider or cached payload through verbatim.
func writeRawJSON(w http.ResponseWriter, status int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func loggerFromRequest(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if l, ok := r.Context().Value("logger").(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}
