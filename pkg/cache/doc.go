// Package cache stores successful Graph API responses in Redis.
//
// Paper and author records change slowly, and paginated listings are
// often walked more than once. Caching each GET page by path and query
// string lets repeated iterations skip the network entirely.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key := cache.CacheKey{
//		Endpoint:    "/graph/v1/paper/search",
//		QueryParams: url.Values{"query": {"covid"}, "offset": {"0"}, "limit": {"100"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then:
//		entry, _ = cache.ResponseToEntry(resp, manager.DefaultTTL())
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Freshness
//
// An entry lives for the response's Cache-Control max-age when present,
// otherwise for the manager's default TTL. Responses marked no-store are
// never cached.
//
// # Metrics
//
//   - scholars_cache_hits_total{layer="redis"}
//   - scholars_cache_misses_total
//   - scholars_cache_size_bytes{layer="redis"}
//   - scholars_cache_errors_total{operation}
package cache
