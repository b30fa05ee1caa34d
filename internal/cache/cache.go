package cache

import (
	"context"
	"fmt"
	"time"

	"result-cache/internal/circuitbreaker"
	"result-cache/internal/common/errors"
	"result-cache/internal/common/logging"
	"result-cache/internal/redis"
)

// Backend identifiers reported by Stats and Health
const (
	BackendRedis    = "redis"
	BackendInMemory = "in-memory"
)

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const unknownMemory = "Unknown"

// Data is a cached value. Values round-trip through JSON, so numbers come
// back as float64 and nested objects as map[string]interface{}.
type Data map[string]interface{}

// Stats describes the active backend. Error is set, and the counters are
// zero, when the backend could not be inspected.
type Stats struct {
	Backend     string `json:"backend"`
	Connected   bool   `json:"connected"`
	TotalKeys   int    `json:"total_keys"`
	MemoryUsage string `json:"memory_usage"`
	Hits        int64  `json:"hits"`
	Misses      int64  `json:"misses"`
	Error       string `json:"error,omitempty"`
}

// Health is the result of a round-trip probe against the active backend.
type Health struct {
	Status         string  `json:"status"`
	Backend        string  `json:"backend"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	Connected      bool    `json:"connected"`
	Message        string  `json:"message,omitempty"`
	Error          string  `json:"error,omitempty"`
	// Breaker is the circuit breaker state when it is not closed
	Breaker string `json:"breaker,omitempty"`
}

// Config holds cache configuration
type Config struct {
	Redis     redis.Config          `json:"redis"`
	TTL       time.Duration         `json:"ttl"`
	KeyPrefix string                `json:"key_prefix"`
	Breaker   circuitbreaker.Config `json:"breaker"`
	// Now is the clock used by the in-memory fallback; defaults to time.Now
	Now func() time.Time `json:"-"`
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		Redis: redis.Config{
			URL:      "redis://localhost:6379/0",
			PoolSize: 10,
			Timeout:  5 * time.Second,
		},
		TTL:       time.Hour,
		KeyPrefix: "resultcache",
		Breaker:   circuitbreaker.DefaultConfig(),
	}
}

// Service is the cache facade. It is safe for concurrent use.
type Service struct {
	backend backend
	logger  logging.Logger
}

// New connects to Redis and falls back to the in-process store if that
// fails. The backend chosen here is kept for the lifetime of the Service.
func New(config Config, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}
	logger = logger.WithFields(logging.String("component", "cache"))

	client, err := redis.NewClient(&config.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory cache",
			logging.Err(err),
			logging.Bool("retryable", errors.IsRetryable(err)),
		)
		return NewLocal(config, logger)
	}

	logger.Info("Redis connection established",
		logging.String("key_prefix", config.KeyPrefix),
		logging.Duration("ttl", config.TTL),
	)
	return newService(&remoteBackend{
		client:  client,
		breaker: circuitbreaker.New("redis-cache", config.Breaker, logger),
		prefix:  config.KeyPrefix,
		ttl:     config.TTL,
	}, logger)
}

// NewLocal builds a Service on the in-process store without trying Redis.
func NewLocal(config Config, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	return newService(newLocalBackend(config.TTL, config.Now), logger)
}

func newService(b backend, logger logging.Logger) *Service {
	return &Service{
		backend: b,
		logger:  logger.WithFields(logging.String("backend", b.name())),
	}
}

// Backend returns the identifier of the backend chosen at construction
func (s *Service) Backend() string {
	return s.backend.name()
}

// Set stores data under key for the configured TTL. A value that cannot be
// serialized is stored as an empty object. It reports whether the write
// reached the backend.
func (s *Service) Set(ctx context.Context, key string, data Data) (ok bool) {
	defer s.recoverFault(ctx, "set", key, func() { ok = false })

	payload, err := encode(data)
	if err != nil {
		s.logFault(ctx, "set", key, err)
	}

	if err := s.backend.set(ctx, key, payload); err != nil {
		s.logFault(ctx, "set", key, err)
		return false
	}
	return true
}

// Get returns the value stored under key. A payload that cannot be
// deserialized is returned as an empty Data. Any fault is a miss.
func (s *Service) Get(ctx context.Context, key string) (data Data, found bool) {
	defer s.recoverFault(ctx, "get", key, func() { data, found = nil, false })

	payload, found, err := s.backend.get(ctx, key)
	if err != nil {
		s.logFault(ctx, "get", key, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	data, err = decode(payload)
	if err != nil {
		s.logFault(ctx, "get", key, err)
	}
	return data, true
}

// Delete removes key and reports whether anything was removed.
func (s *Service) Delete(ctx context.Context, key string) (removed bool) {
	defer s.recoverFault(ctx, "delete", key, func() { removed = false })

	removed, err := s.backend.delete(ctx, key)
	if err != nil {
		s.logFault(ctx, "delete", key, err)
		return false
	}
	return removed
}

// Clear removes every entry in the cache namespace. It is true when the
// namespace is empty afterwards, including when it was empty already.
func (s *Service) Clear(ctx context.Context) (ok bool) {
	defer s.recoverFault(ctx, "clear", "", func() { ok = false })

	if err := s.backend.clear(ctx); err != nil {
		s.logFault(ctx, "clear", "", err)
		return false
	}
	return true
}

// Stats reports key count, memory usage and hit/miss counters.
func (s *Service) Stats(ctx context.Context) (stats Stats) {
	defer s.recoverFault(ctx, "stats", "", func() {
		stats = Stats{Backend: s.backend.name(), Error: "internal fault while collecting stats"}
	})

	stats, err := s.backend.stats(ctx)
	if err != nil {
		s.logFault(ctx, "stats", "", err)
		stats.Error = err.Error()
	}
	return stats
}

// Health probes the backend.
func (s *Service) Health(ctx context.Context) (health Health) {
	defer s.recoverFault(ctx, "health", "", func() {
		health = Health{
			Status:  StatusUnhealthy,
			Backend: s.backend.name(),
			Error:   "internal fault during health check",
		}
	})

	return s.backend.health(ctx)
}

// Close releases the Redis connection pool, if any.
func (s *Service) Close() error {
	return s.backend.close()
}

func (s *Service) logFault(ctx context.Context, op, key string, err error) {
	logger := s.logger.WithContext(ctx)
	fields := []logging.Field{
		logging.String("op", op),
		logging.String("error_type", string(errors.GetType(err))),
		logging.Bool("retryable", errors.IsRetryable(err)),
	}
	if key != "" {
		fields = append(fields, logging.String("key", key))
	}

	switch {
	case errors.IsType(err, errors.ErrTypeCanceled):
		logger.Debug("Cache operation abandoned by caller", append(fields, logging.Err(err))...)
		return
	case errors.IsRetryable(err):
		logger.Warn("Cache operation failed", append(fields, logging.Err(err))...)
		return
	}
	logger.Error("Cache operation failed", err, fields...)
}

// recoverFault turns a panic inside an operation into a logged fault and
// lets the caller set its benign return value.
func (s *Service) recoverFault(ctx context.Context, op, key string, fallback func()) {
	if r := recover(); r != nil {
		s.logFault(ctx, op, key, errors.InternalError(fmt.Sprintf("panic: %v", r), nil))
		fallback()
	}
}
