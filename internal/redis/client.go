// Package redis wraps go-redis with the connection settings, key scanning and
// error classification the result cache needs.
package redis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	apperrors "result-cache/internal/common/errors"
)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 100

type Client struct {
	rdb    *redis.Client
	config *Config
}

type Config struct {
	URL      string        `json:"url"`
	PoolSize int           `json:"pool_size"`
	Timeout  time.Duration `json:"timeout"`
}

// NewClient parses the URL, applies pool and timeout settings and pings the
// server. A client is only returned when the ping succeeds.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, apperrors.ConfigError("redis config is required")
	}

	if config.URL == "" {
		config.URL = "redis://localhost:6379/0"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, apperrors.ConfigError(fmt.Sprintf("invalid redis url: %v", err))
	}
	opts.PoolSize = config.PoolSize
	opts.DialTimeout = config.Timeout
	opts.ReadTimeout = config.Timeout
	opts.WriteTimeout = config.Timeout
	opts.MaxRetries = 1

	client := &Client{
		rdb:    redis.NewClient(opts),
		config: config,
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := client.rdb.Ping(ctx).Err(); err != nil {
		_ = client.rdb.Close()
		// the deadline here is the connect timeout, not a caller's
		if callerAbandoned(ctx) {
			return nil, fmt.Errorf("failed to connect to Redis: %w", apperrors.TimeoutError("PING", err))
		}
		return nil, fmt.Errorf("failed to connect to Redis: %w", classify(ctx, "PING", err))
	}

	return client, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping issues a PING and reports the round-trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return time.Since(start), classify(ctx, "PING", err)
	}
	return time.Since(start), nil
}

// SetEx writes value under key with an expiry in one atomic command.
func (c *Client) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.SetEX(ctx, key, value, ttl).Err(); err != nil {
		return classify(ctx, "SETEX", err)
	}
	return nil
}

// Get returns the raw value for key. found is false, with a nil error, when
// the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	value, err = c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify(ctx, "GET", err)
	}
	return value, true, nil
}

// Del deletes keys and returns how many of them existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, classify(ctx, "DEL", err)
	}
	return n, nil
}

// ScanKeys returns every key matching pattern, walking the keyspace with
// SCAN rather than KEYS so the server is never blocked.
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string

	iter := c.rdb.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, classify(ctx, "SCAN", err)
	}

	return keys, nil
}

// Info runs INFO and flattens the reply into field -> value.
func (c *Client) Info(ctx context.Context) (map[string]string, error) {
	raw, err := c.rdb.Info(ctx).Result()
	if err != nil {
		return nil, classify(ctx, "INFO", err)
	}
	return parseInfo(raw), nil
}

func parseInfo(raw string) map[string]string {
	fields := make(map[string]string)

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[key] = value
	}

	return fields
}

// classify turns a go-redis error into an AppError so callers can tell
// transient faults from permanent ones. A call the caller gave up on is
// canceled, not a fault of the server.
func classify(ctx context.Context, op string, err error) error {
	var netErr net.Error
	switch {
	case callerAbandoned(ctx), errors.Is(err, context.Canceled):
		return apperrors.CanceledError(op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.TimeoutError(op, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return apperrors.TimeoutError(op, err)
	case errors.As(err, &netErr), errors.Is(err, redis.ErrClosed):
		return apperrors.ConnectionError(fmt.Sprintf("redis %s failed", op), err)
	case isConnectionReset(err):
		return apperrors.ConnectionError(fmt.Sprintf("redis %s failed", op), err)
	default:
		return apperrors.InternalError(fmt.Sprintf("redis %s failed", op), err)
	}
}

// callerAbandoned reports whether ctx was cancelled or its deadline has
// passed. go-redis caps socket deadlines at the context deadline, so an i/o
// timeout can surface just before ctx.Err is set.
func callerAbandoned(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	deadline, ok := ctx.Deadline()
	return ok && !time.Now().Before(deadline)
}

func isConnectionReset(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "EOF")
}
