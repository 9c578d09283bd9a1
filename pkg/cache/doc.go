// Package cache stores successful apidatos responses in Redis.
//
// REE publishes closed periods that rarely change, so repeated loads of the
// same community/year can be served without touching the API. The cache is
// optional: the client only consults it when a Manager is configured.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, 6*time.Hour)
//
//	key := cache.Key{URL: descriptor.URL, Headers: headers}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(resp.StatusCode, resp.Header, body, manager.TTL()))
//	}
//
// Entries expire at the response's Expires header when present, otherwise
// after the manager's default TTL.
//
// # Metrics
//
//   - ree_cache_hits_total
//   - ree_cache_misses_total
//   - ree_cache_stored_bytes_total
//   - ree_cache_errors_total{operation}
package cache
