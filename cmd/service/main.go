package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eedu7/weather-api/internal/cache"
	"github.com/eedu7/weather-api/internal/client"
	"github.com/eedu7/weather-api/internal/config"
	httphandler "github.com/eedu7/weather-api/internal/http"
	"github.com/eedu7/weather-api/internal/lifecycle"
	"github.com/eedu7/weather-api/internal/observability"
	"github.com/eedu7/weather-api/internal/ratelimit"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	// One Redis client backs both the cache and the limiter when both use it.
	var rdb *redis.Client
	if cfg.CacheBackend == "redis" || cfg.RateLimitBackend == "redis" {
		rdb, err = newRedisClient(cfg)
		if err != nil {
			logger.Fatal("redis client", zap.Error(err))
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	}

	weatherClient, err := client.NewVisualCrossingClient(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.UpstreamRPS,
		cfg.UpstreamBurst,
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	var store cache.Store
	switch cfg.CacheBackend {
	case "redis":
		store = cache.NewRedisStore(rdb)
		logger.Info("cache backend: redis")
	case "memcached":
		mc, err := cache.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		store = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		store = cache.NewInMemoryStore()
		logger.Info("cache backend: in_memory")
	}
	if !cfg.CacheEnabled {
		logger.Info("caching disabled; all requests go upstream")
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimitBackend {
	case "redis":
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow)
	default:
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	logger.Info("rate limiter configured",
		zap.Int("requests", cfg.RateLimitRequests),
		zap.Duration("window", cfg.RateLimitWindow),
		zap.String("backend", cfg.RateLimitBackend))

	handler := httphandler.NewHandler(weatherClient, store, cfg.CacheEnabled, cfg.CacheTTL, cfg.CacheBackend, logger)
	if rdb != nil && cfg.RateLimitBackend == "redis" {
		handler.LimiterPing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	router := httphandler.NewRouter(handler, limiter, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.WeatherAPITimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if err := store.Close(); err != nil {
		logger.Error("cache close", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

func newRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), nil
}
