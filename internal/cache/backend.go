package cache

import (
	"context"
)

// backend is implemented by the Redis store and the in-process fallback.
// Unlike Service, backends report faults as errors.
type backend interface {
	name() string
	set(ctx context.Context, key string, payload []byte) error
	get(ctx context.Context, key string) (payload []byte, found bool, err error)
	delete(ctx context.Context, key string) (bool, error)
	clear(ctx context.Context) error
	stats(ctx context.Context) (Stats, error)
	health(ctx context.Context) Health
	close() error
}
