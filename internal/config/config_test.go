package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoad_FailsWhenNoAPIKey verifies that configuration loading refuses to
// proceed without an upstream API key.
func TestLoad_FailsWhenNoAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err == nil {
		t.Fatalf("Load() expected error without API_KEY, got config %+v", cfg)
	}
	if !strings.Contains(err.Error(), "API_KEY") {
		t.Errorf("Load() error = %v, want message naming API_KEY", err)
	}
}

// TestLoad_Defaults verifies the documented defaults: port 8080, Visual
// Crossing base URL, 12h cache TTL, 10 requests per minute quota, redis
// backends.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("CONFIG_FILE", "")
	for _, key := range []string{"PORT", "API_URL", "CACHE_ENABLED", "CACHE_BACKEND", "CACHE_TTL",
		"REDIS_URL", "REDIS_ADDR", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "RATE_LIMIT_BACKEND"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.WeatherAPIURL != DefaultAPIURL {
		t.Errorf("WeatherAPIURL = %q, want default", cfg.WeatherAPIURL)
	}
	if cfg.WeatherAPIKey != "test-key" {
		t.Errorf("WeatherAPIKey = %q, want test-key", cfg.WeatherAPIKey)
	}
	if cfg.CacheTTL != 12*time.Hour {
		t.Errorf("CacheTTL = %v, want 12h", cfg.CacheTTL)
	}
	if !cfg.CacheEnabled {
		t.Error("CacheEnabled = false, want true by default")
	}
	if cfg.CacheBackend != "redis" {
		t.Errorf("CacheBackend = %q, want redis", cfg.CacheBackend)
	}
	if cfg.RateLimitRequests != 10 {
		t.Errorf("RateLimitRequests = %d, want 10", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %v, want 1m", cfg.RateLimitWindow)
	}
	if cfg.RateLimitBackend != "redis" {
		t.Errorf("RateLimitBackend = %q, want redis", cfg.RateLimitBackend)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want localhost:6379", cfg.RedisAddr)
	}
}

// TestLoad_EnvOverrides verifies environment variables override defaults.
func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_BACKEND", "in_memory")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_BACKEND", "in_memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.CacheEnabled {
		t.Error("CacheEnabled = true, want false")
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want in_memory", cfg.CacheBackend)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.CacheTTL)
	}
	if cfg.RateLimitRequests != 5 {
		t.Errorf("RateLimitRequests = %d, want 5", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("RateLimitWindow = %v, want 30s", cfg.RateLimitWindow)
	}
}

// TestLoad_InvalidBackend verifies unknown backend names are rejected.
func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CACHE_BACKEND", "bogus")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for unknown cache backend, got nil")
	}
}

// TestLoad_YAMLFileWithEnvPrecedence verifies file values apply and env wins
// over the file.
func TestLoad_YAMLFileWithEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: "7070"
cache:
  backend: in_memory
  ttl: 2h
rate_limit:
  requests: 20
  window: 2m
  backend: in_memory
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("API_KEY", "test-key")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6060") // env beats file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "6060" {
		t.Errorf("ServerPort = %q, want env value 6060", cfg.ServerPort)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want file value in_memory", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 2*time.Hour {
		t.Errorf("CacheTTL = %v, want file value 2h", cfg.CacheTTL)
	}
	if cfg.RateLimitRequests != 20 {
		t.Errorf("RateLimitRequests = %d, want file value 20", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow != 2*time.Minute {
		t.Errorf("RateLimitWindow = %v, want file value 2m", cfg.RateLimitWindow)
	}
}
