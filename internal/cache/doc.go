// Package cache provides the result cache facade.
//
// A Service stores JSON-serializable results for a process-wide TTL in one of
// two backends, chosen once when the Service is built:
//
//   - Redis (github.com/go-redis/redis/v8), when a PING succeeds at
//     construction. Keys are namespaced as "<prefix>:<key>" and written with
//     SETEX, so expiry is enforced by Redis itself.
//   - An in-process fallback (github.com/patrickmn/go-cache) otherwise.
//     Entries carry the time they were stored and are purged by the read
//     that finds them older than the TTL.
//
// The choice is never revisited: a Service that started on the fallback stays
// there, and a Service that started on Redis keeps reporting "redis" even if
// the server later goes away.
//
// No method returns an error. Faults are logged and surface as false, a miss,
// or an error-carrying Stats/Health value, so that a cache outage never fails
// the caller's workflow. Calls to Redis go through a circuit breaker, so a
// Redis that dies after construction costs callers a fast miss rather than a
// full timeout on every call.
//
// Usage:
//
//	svc := cache.New(cache.Config{
//		Redis:     redis.Config{URL: "redis://localhost:6379/0"},
//		TTL:       time.Hour,
//		KeyPrefix: "resultcache",
//	}, logger)
//	defer svc.Close()
//
//	svc.Set(ctx, "quote:AAPL", cache.Data{"price": 189.5})
//	if data, ok := svc.Get(ctx, "quote:AAPL"); ok {
//		...
//	}
package cache
