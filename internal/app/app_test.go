package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"result-cache/internal/cache"
	"result-cache/internal/common/logging"
	"result-cache/internal/config"
)

func testConfig(redisURL string) *config.Config {
	return &config.Config{
		Port:                 "8080",
		LogLevel:             "info",
		HealthReportSchedule: "@every 1h",
		RedisURL:             redisURL,
		RedisMaxConnections:  "4",
		RedisTimeout:         "300ms",
		CacheTTLSeconds:      "60",
		CacheKeyPrefix:       "apptest",
		BreakerMaxFailures:   "3",
		BreakerTimeout:       "10s",
	}
}

func TestCacheConfig(t *testing.T) {
	cfg := testConfig("redis://cache:6379/1")
	require.NoError(t, cfg.Validate())

	cc := CacheConfig(cfg)
	assert.Equal(t, "redis://cache:6379/1", cc.Redis.URL)
	assert.Equal(t, 4, cc.Redis.PoolSize)
	assert.Equal(t, 300*time.Millisecond, cc.Redis.Timeout)
	assert.Equal(t, time.Minute, cc.TTL)
	assert.Equal(t, "apptest", cc.KeyPrefix)
	assert.Equal(t, 3, cc.Breaker.MaxFailures)
	assert.Equal(t, 10*time.Second, cc.Breaker.Timeout)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	app, err := New(testConfig("redis://"+mr.Addr()), logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	assert.Equal(t, cache.BackendRedis, app.Cache.Backend())

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"backend":"redis"`)
}

func TestNew_FallsBackWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	app, err := New(testConfig("redis://"+addr), logging.NewNopLogger())
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	assert.Equal(t, cache.BackendInMemory, app.Cache.Backend())

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestNew_InvalidSchedule(t *testing.T) {
	cfg := testConfig("redis://127.0.0.1:1")
	cfg.HealthReportSchedule = "not a schedule"

	_, err := New(cfg, logging.NewNopLogger())
	assert.Error(t, err)
}

type stubSource struct {
	health cache.Health
	stats  cache.Stats
}

func (s stubSource) Health(context.Context) cache.Health { return s.health }
func (s stubSource) Stats(context.Context) cache.Stats   { return s.stats }

func TestHealthReporter_Report(t *testing.T) {
	tests := []struct {
		name     string
		source   stubSource
		contains []string
	}{
		{
			name: "healthy",
			source: stubSource{
				health: cache.Health{Status: cache.StatusHealthy, Backend: cache.BackendRedis, Connected: true},
				stats:  cache.Stats{Backend: cache.BackendRedis, TotalKeys: 7, MemoryUsage: "1.00M"},
			},
			contains: []string{"INFO", "Cache health", "healthy", "1.00M"},
		},
		{
			name: "degraded",
			source: stubSource{
				health: cache.Health{Status: cache.StatusDegraded, Backend: cache.BackendInMemory, Message: "Using fallback in-memory cache"},
				stats:  cache.Stats{Backend: cache.BackendInMemory, MemoryUsage: "Unknown"},
			},
			contains: []string{"WARN", "degraded", "Using fallback in-memory cache"},
		},
		{
			name: "unhealthy",
			source: stubSource{
				health: cache.Health{Status: cache.StatusUnhealthy, Backend: cache.BackendRedis, Error: "connection refused", Breaker: "open"},
			},
			contains: []string{"ERROR", "connection refused", "open"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.DebugLevel, Output: &buf})
			require.NoError(t, err)

			reporter, err := NewHealthReporter("@every 1h", tt.source, logger)
			require.NoError(t, err)
			reporter.Report()

			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestHealthReporter_StartStop(t *testing.T) {
	reporter, err := NewHealthReporter("@every 1h", stubSource{}, logging.NewNopLogger())
	require.NoError(t, err)

	reporter.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reporter.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
