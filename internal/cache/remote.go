package cache

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"result-cache/internal/circuitbreaker"
	"result-cache/internal/redis"
)

// remoteStore is the subset of *redis.Client the remote backend uses.
type remoteStore interface {
	Ping(ctx context.Context) (time.Duration, error)
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	Info(ctx context.Context) (map[string]string, error)
	Close() error
}

var _ remoteStore = (*redis.Client)(nil)

type remoteBackend struct {
	client  remoteStore
	breaker *circuitbreaker.Breaker
	prefix  string
	ttl     time.Duration
}

func (r *remoteBackend) name() string {
	return BackendRedis
}

func (r *remoteBackend) key(key string) string {
	return r.prefix + ":" + key
}

// pattern matches every key in the namespace. Glob metacharacters in the
// prefix are escaped so SCAN cannot match keys outside it.
func (r *remoteBackend) pattern() string {
	var b strings.Builder
	for _, c := range r.prefix {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	b.WriteString(":*")
	return b.String()
}

func (r *remoteBackend) set(ctx context.Context, key string, payload []byte) error {
	return r.breaker.Execute(ctx, func() error {
		return r.client.SetEx(ctx, r.key(key), payload, r.ttl)
	})
}

func (r *remoteBackend) get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		payload []byte
		found   bool
	)
	err := r.breaker.Execute(ctx, func() error {
		var err error
		payload, found, err = r.client.Get(ctx, r.key(key))
		return err
	})
	return payload, found, err
}

func (r *remoteBackend) delete(ctx context.Context, key string) (bool, error) {
	var removed int64
	err := r.breaker.Execute(ctx, func() error {
		var err error
		removed, err = r.client.Del(ctx, r.key(key))
		return err
	})
	return removed > 0, err
}

func (r *remoteBackend) clear(ctx context.Context) error {
	return r.breaker.Execute(ctx, func() error {
		keys, err := r.client.ScanKeys(ctx, r.pattern())
		if err != nil {
			return err
		}
		_, err = r.client.Del(ctx, keys...)
		return err
	})
}

func (r *remoteBackend) stats(ctx context.Context) (Stats, error) {
	var (
		keys []string
		info map[string]string
	)
	err := r.breaker.Execute(ctx, func() error {
		var err error
		if info, err = r.client.Info(ctx); err != nil {
			return err
		}
		keys, err = r.client.ScanKeys(ctx, r.pattern())
		return err
	})
	if err != nil {
		return Stats{Backend: BackendRedis}, err
	}

	memory := info["used_memory_human"]
	if memory == "" {
		memory = unknownMemory
	}

	return Stats{
		Backend:     BackendRedis,
		Connected:   true,
		TotalKeys:   len(keys),
		MemoryUsage: memory,
		Hits:        infoInt(info, "keyspace_hits"),
		Misses:      infoInt(info, "keyspace_misses"),
	}, nil
}

// health pings Redis directly, bypassing the breaker, so the probe always
// reflects the server and not the breaker's memory of past faults.
func (r *remoteBackend) health(ctx context.Context) Health {
	elapsed, err := r.client.Ping(ctx)

	h := Health{
		Backend:        BackendRedis,
		ResponseTimeMs: milliseconds(elapsed),
	}
	if state := r.breaker.State(); state != circuitbreaker.StateClosed {
		h.Breaker = state.String()
	}

	if err != nil {
		h.Status = StatusUnhealthy
		h.Error = err.Error()
		return h
	}

	h.Status = StatusHealthy
	h.Connected = true
	return h
}

func (r *remoteBackend) close() error {
	return r.client.Close()
}

func infoInt(info map[string]string, field string) int64 {
	n, err := strconv.ParseInt(info[field], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// milliseconds converts d to milliseconds rounded to two decimals.
func milliseconds(d time.Duration) float64 {
	return math.Round(float64(d)/float64(time.Millisecond)*100) / 100
}
