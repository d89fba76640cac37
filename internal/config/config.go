package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the Visual Crossing timeline endpoint the proxy fronts.
const DefaultAPIURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline/"

// Config holds service configuration loaded from an optional YAML file and env.
// Env vars always win over file values.
type Config struct {
	ServerPort string

	WeatherAPIURL     string
	WeatherAPIKey     string
	WeatherAPITimeout time.Duration

	// Outbound throttle toward the provider. 0 RPS disables it.
	UpstreamRPS   int
	UpstreamBurst int

	CacheEnabled bool
	CacheBackend string // "redis", "memcached" or "in_memory"
	CacheTTL     time.Duration

	RedisURL      string // takes precedence over addr/password/db when set
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBackend  string // "redis" or "in_memory"

	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
		RPS     int    `yaml:"rps"`
		Burst   int    `yaml:"burst"`
	} `yaml:"weather_api"`

	Cache struct {
		Enabled *bool  `yaml:"enabled"`
		Backend string `yaml:"backend"`
		TTL     string `yaml:"ttl"`

		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Redis struct {
		URL      string `yaml:"url"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RateLimit struct {
		Requests int    `yaml:"requests"`
		Window   string `yaml:"window"`
		Backend  string `yaml:"backend"`
	} `yaml:"rate_limit"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

// Load reads configuration. A .env file in the working directory is applied
// first if present, then the YAML file named by CONFIG_FILE (optional), then
// environment variables on top. API_KEY is required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := &Config{}

	cfg.ServerPort = getenvDefault("PORT", fc.Server.Port)
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIURL = getenvDefault("API_URL", fc.WeatherAPI.URL)
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = DefaultAPIURL
	}
	cfg.WeatherAPIKey = os.Getenv("API_KEY")
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("API_KEY required")
	}
	cfg.WeatherAPITimeout = parseDuration(getenvDefault("API_TIMEOUT", fc.WeatherAPI.Timeout), 10*time.Second)

	cfg.UpstreamRPS = getenvInt("UPSTREAM_RPS", fc.WeatherAPI.RPS)
	cfg.UpstreamBurst = getenvInt("UPSTREAM_BURST", fc.WeatherAPI.Burst)
	if cfg.UpstreamRPS > 0 && cfg.UpstreamBurst <= 0 {
		cfg.UpstreamBurst = cfg.UpstreamRPS
	}

	cfg.CacheEnabled = true
	if fc.Cache.Enabled != nil {
		cfg.CacheEnabled = *fc.Cache.Enabled
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_ENABLED: %w", err)
		}
		cfg.CacheEnabled = b
	}
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(getenvDefault("CACHE_BACKEND", fc.Cache.Backend)))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "redis"
	}
	cfg.CacheTTL = parseDuration(getenvDefault("CACHE_TTL", fc.Cache.TTL), 12*time.Hour)

	cfg.RedisURL = getenvDefault("REDIS_URL", fc.Redis.URL)
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", fc.Redis.Addr)
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisPassword = getenvDefault("REDIS_PASSWORD", fc.Redis.Password)
	cfg.RedisDB = getenvInt("REDIS_DB", fc.Redis.DB)

	cfg.MemcachedAddrs = getenvDefault("MEMCACHED_ADDRS", fc.Cache.Memcached.Addrs)
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RateLimitRequests = getenvInt("RATE_LIMIT_REQUESTS", fc.RateLimit.Requests)
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = 10
	}
	cfg.RateLimitWindow = parseDuration(getenvDefault("RATE_LIMIT_WINDOW", fc.RateLimit.Window), time.Minute)
	cfg.RateLimitBackend = strings.TrimSpace(strings.ToLower(getenvDefault("RATE_LIMIT_BACKEND", fc.RateLimit.Backend)))
	if cfg.RateLimitBackend == "" {
		cfg.RateLimitBackend = "redis"
	}

	cfg.ShutdownTimeout = parseDuration(getenvDefault("SHUTDOWN_TIMEOUT", fc.Shutdown.Timeout), 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	switch cfg.CacheBackend {
	case "redis", "memcached", "in_memory":
	default:
		return fmt.Errorf("cache.backend must be redis, memcached or in_memory, got %q", cfg.CacheBackend)
	}
	switch cfg.RateLimitBackend {
	case "redis", "in_memory":
	default:
		return fmt.Errorf("rate_limit.backend must be redis or in_memory, got %q", cfg.RateLimitBackend)
	}
	if cfg.RateLimitWindow < time.Second {
		return fmt.Errorf("rate_limit.window must be at least 1s")
	}
	return nil
}
