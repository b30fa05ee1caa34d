package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// localEntry is what the fallback keeps per key.
type localEntry struct {
	storedAt time.Time
	payload  []byte
}

// localBackend keeps entries in a go-cache store without native expiry and
// without a janitor; age is checked against ttl on every read instead, and a
// stale entry is removed by the read that finds it. mu makes that
// check-then-delete atomic with respect to concurrent writers.
type localBackend struct {
	mu    sync.Mutex
	store *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func newLocalBackend(ttl time.Duration, now func() time.Time) *localBackend {
	if now == nil {
		now = time.Now
	}
	return &localBackend{
		store: gocache.New(gocache.NoExpiration, 0),
		ttl:   ttl,
		now:   now,
	}
}

func (l *localBackend) name() string {
	return BackendInMemory
}

func (l *localBackend) set(_ context.Context, key string, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.store.Set(key, localEntry{storedAt: l.now(), payload: payload}, gocache.NoExpiration)
	return nil
}

func (l *localBackend) get(_ context.Context, key string) ([]byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, found := l.store.Get(key)
	if !found {
		return nil, false, nil
	}

	entry := item.(localEntry)
	if l.now().Sub(entry.storedAt) >= l.ttl {
		l.store.Delete(key)
		return nil, false, nil
	}

	return entry.payload, true, nil
}

// delete removes key whether or not it has expired yet.
func (l *localBackend) delete(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, found := l.store.Get(key); !found {
		return false, nil
	}
	l.store.Delete(key)
	return true, nil
}

func (l *localBackend) clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.store.Flush()
	return nil
}

// stats counts stored entries, including expired ones no read has purged
// yet. Hits and misses are not tracked for the fallback.
func (l *localBackend) stats(_ context.Context) (Stats, error) {
	return Stats{
		Backend:     BackendInMemory,
		Connected:   false,
		TotalKeys:   l.store.ItemCount(),
		MemoryUsage: unknownMemory,
	}, nil
}

func (l *localBackend) health(_ context.Context) Health {
	return Health{
		Status:         StatusDegraded,
		Backend:        BackendInMemory,
		ResponseTimeMs: 0,
		Connected:      false,
		Message:        "Using fallback in-memory cache",
	}
}

func (l *localBackend) close() error {
	return nil
}
