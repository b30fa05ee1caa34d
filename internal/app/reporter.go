package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"result-cache/internal/cache"
	"result-cache/internal/common/logging"
)

// healthSource is satisfied by *cache.Service
type healthSource interface {
	Health(ctx context.Context) cache.Health
	Stats(ctx context.Context) cache.Stats
}

// HealthReporter logs cache health and stats on a cron schedule, so a
// degraded or unhealthy cache shows up in logs without anyone polling.
type HealthReporter struct {
	cron   *cron.Cron
	source healthSource
	logger logging.Logger
}

// NewHealthReporter parses spec with the standard five-field cron parser,
// which also accepts descriptors such as "@every 1m".
func NewHealthReporter(spec string, source healthSource, logger logging.Logger) (*HealthReporter, error) {
	r := &HealthReporter{
		cron:   cron.New(),
		source: source,
		logger: logger.WithFields(logging.String("component", "health_reporter")),
	}

	if _, err := r.cron.AddFunc(spec, r.Report); err != nil {
		return nil, fmt.Errorf("invalid health report schedule %q: %w", spec, err)
	}
	return r, nil
}

// Report logs one health and stats snapshot
func (r *HealthReporter) Report() {
	ctx := context.Background()
	health := r.source.Health(ctx)
	stats := r.source.Stats(ctx)

	fields := []logging.Field{
		logging.String("status", health.Status),
		logging.String("backend", health.Backend),
		logging.Any("response_time_ms", health.ResponseTimeMs),
		logging.Int("total_keys", stats.TotalKeys),
		logging.String("memory_usage", stats.MemoryUsage),
		logging.Any("hits", stats.Hits),
		logging.Any("misses", stats.Misses),
	}
	if health.Breaker != "" {
		fields = append(fields, logging.String("breaker", health.Breaker))
	}

	switch health.Status {
	case cache.StatusHealthy:
		r.logger.Info("Cache health", fields...)
	case cache.StatusDegraded:
		r.logger.Warn("Cache health", append(fields, logging.String("message", health.Message))...)
	default:
		r.logger.Error("Cache health", fmt.Errorf("%s", health.Error), fields...)
	}
}

// Start runs the schedule in the cron goroutine
func (r *HealthReporter) Start() {
	r.cron.Start()
}

// Stop stops the schedule and waits for a running report, or ctx, to finish
func (r *HealthReporter) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}
