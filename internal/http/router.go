package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/eedu7/weather-api/internal/observability"
	"github.com/eedu7/weather-api/internal/ratelimit"
)

// NewRouter wires the middleware chain and routes. /health and /metrics are
// registered before the catch-all city route, so those two path segments
// shadow cities with the same name.
func NewRouter(handler *Handler, limiter ratelimit.Limiter, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")

	rateLimited := RateLimitMiddleware(limiter, logger)
	router.Handle("/{city}", rateLimited(http.HandlerFunc(handler.GetWeather))).Methods("GET")

	return router
}
