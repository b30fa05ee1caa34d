// Package config provides configuration management for the result cache.
// It loads configuration from environment variables with sensible defaults
// and validates it before the cache is constructed.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: HTTP port for the cache endpoints (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - HEALTH_REPORT_SCHEDULE: cron spec for periodic health log lines (default: @every 1m, empty disables)
//
// Redis Configuration:
//   - REDIS_URL: Redis URL (default: redis://localhost:6379/0)
//   - REDIS_MAX_CONNECTIONS: Connection pool size (default: 10)
//   - REDIS_TIMEOUT: Dial, read and write timeout (default: 5s)
//
// Cache Configuration:
//   - CACHE_TTL_SECONDS: Lifetime of every entry in seconds (default: 3600)
//   - CACHE_KEY_PREFIX: Namespace prepended to every Redis key (default: resultcache)
//
// Circuit Breaker:
//   - BREAKER_MAX_FAILURES: Consecutive Redis faults before calls fail fast (default: 5)
//   - BREAKER_TIMEOUT: How long the breaker stays open (default: 30s)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration values. Fields hold the raw environment
// strings; the typed accessors below parse them and are only meaningful
// after Validate has returned nil.
type Config struct {
	// Application settings
	Port                 string
	LogLevel             string
	HealthReportSchedule string

	// Redis configuration
	RedisURL            string
	RedisMaxConnections string
	RedisTimeout        string

	// Cache configuration
	CacheTTLSeconds string
	CacheKeyPrefix  string

	// Circuit breaker configuration
	BreakerMaxFailures string
	BreakerTimeout     string
}

// Load creates a new Config instance with values loaded from environment variables.
// It does not validate; call Validate on the result.
func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		HealthReportSchedule: getEnvAllowEmpty("HEALTH_REPORT_SCHEDULE", "@every 1m"),

		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisMaxConnections: getEnv("REDIS_MAX_CONNECTIONS", "10"),
		RedisTimeout:        getEnv("REDIS_TIMEOUT", "5s"),

		CacheTTLSeconds: getEnv("CACHE_TTL_SECONDS", "3600"),
		CacheKeyPrefix:  getEnv("CACHE_KEY_PREFIX", "resultcache"),

		BreakerMaxFailures: getEnv("BREAKER_MAX_FAILURES", "5"),
		BreakerTimeout:     getEnv("BREAKER_TIMEOUT", "30s"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty is getEnv, except that a variable explicitly set to ""
// keeps its empty value.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// Validate checks that every value is present and parseable.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	u, err := url.Parse(c.RedisURL)
	if err != nil {
		return fmt.Errorf("REDIS_URL is not a valid URL: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss", "unix":
	default:
		return fmt.Errorf("REDIS_URL scheme must be redis, rediss or unix, got %q", u.Scheme)
	}

	if n, err := strconv.Atoi(c.RedisMaxConnections); err != nil || n < 1 {
		return fmt.Errorf("REDIS_MAX_CONNECTIONS must be a positive number")
	}

	if d, err := time.ParseDuration(c.RedisTimeout); err != nil || d <= 0 {
		return fmt.Errorf("REDIS_TIMEOUT must be a positive duration (e.g., '5s')")
	}

	if ttl, err := strconv.Atoi(c.CacheTTLSeconds); err != nil || ttl < 1 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be a positive number")
	}

	if strings.TrimSpace(c.CacheKeyPrefix) == "" {
		return fmt.Errorf("CACHE_KEY_PREFIX must not be empty")
	}
	if strings.ContainsAny(c.CacheKeyPrefix, "*?[]") {
		return fmt.Errorf("CACHE_KEY_PREFIX must not contain glob characters")
	}

	if n, err := strconv.Atoi(c.BreakerMaxFailures); err != nil || n < 1 {
		return fmt.Errorf("BREAKER_MAX_FAILURES must be a positive number")
	}

	if d, err := time.ParseDuration(c.BreakerTimeout); err != nil || d <= 0 {
		return fmt.Errorf("BREAKER_TIMEOUT must be a positive duration (e.g., '30s')")
	}

	if c.HealthReportSchedule != "" {
		if _, err := cron.ParseStandard(c.HealthReportSchedule); err != nil {
			return fmt.Errorf("HEALTH_REPORT_SCHEDULE is not a valid cron spec: %w", err)
		}
	}

	return nil
}

// PoolSize returns REDIS_MAX_CONNECTIONS as an int
func (c *Config) PoolSize() int {
	n, _ := strconv.Atoi(c.RedisMaxConnections)
	return n
}

// Timeout returns REDIS_TIMEOUT as a duration
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.RedisTimeout)
	return d
}

// TTL returns CACHE_TTL_SECONDS as a duration
func (c *Config) TTL() time.Duration {
	n, _ := strconv.Atoi(c.CacheTTLSeconds)
	return time.Duration(n) * time.Second
}

// BreakerFailures returns BREAKER_MAX_FAILURES as an int
func (c *Config) BreakerFailures() int {
	n, _ := strconv.Atoi(c.BreakerMaxFailures)
	return n
}

// BreakerOpenTimeout returns BREAKER_TIMEOUT as a duration
func (c *Config) BreakerOpenTimeout() time.Duration {
	d, _ := time.ParseDuration(c.BreakerTimeout)
	return d
}
