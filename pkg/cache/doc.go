// Package cache provides a Redis-backed page cache for paging data sources.
//
// CachingSource wraps any paging.DataSource. Each page is stored under a deterministic
// key derived from the source name, offset and limit, with a fixed TTL:
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//	source := cache.NewCachingSource(catalog, manager, cache.SourceConfig{
//		Name: "catalog",
//		TTL:  time.Minute,
//	})
//
// Cache failures never fail a fetch: the wrapped source is queried instead and the
// error is counted in paging_cache_errors_total.
//
// # Metrics
//
//   - paging_cache_hits_total{layer="redis"} - Cache hits
//   - paging_cache_misses_total - Cache misses
//   - paging_cache_written_bytes_total{layer="redis"} - Bytes written to the cache
//   - paging_cache_errors_total{operation} - Cache operation errors
//
// Invalidate drops every cached page of a source, which callers do after the
// underlying collection changes.
package cache
