// Package cache provides a generic key-value cache with TTL support,
// backed by process memory or Redis.
//
// The in-memory backend suits single-process deployments and tests; the
// Redis backend shares entries across processes. Both implement the same
// Cache interface, so callers can swap backends without code changes:
//
//	c := cache.NewMemory[User](cache.WithDefaultTTL(5 * time.Minute))
//	defer c.Close()
//
//	u, err := cache.GetOrSet(ctx, c, "user:42", func(ctx context.Context) (User, time.Duration, error) {
//	    u, err := repo.FindUser(ctx, "42")
//	    return u, 0, err
//	})
package cache
