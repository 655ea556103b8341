// Package cache provides a Redis-backed response cache for upstream resources.
//
// Reference resources (films, planets, species, starships, vehicles) are shared
// by many people records. Caching them keeps the number of upstream requests
// close to the number of distinct resources instead of the number of references.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, time.Hour)
//
//	u, _ := url.Parse("https://swapi.dev/api/films/1/")
//	key := cache.KeyFromURL(u)
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch upstream
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp, manager.TTL())
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
//	// Later
//	resp := cache.EntryToResponse(entry, req)
//
// The upstream Expires header wins over the manager TTL when present.
//
// # Metrics
//
//   - swapi_cache_hits_total - Cache hits
//   - swapi_cache_misses_total{reason} - Cache misses (absent, expired)
//   - swapi_cache_bytes_written_total - Bytes written
//   - swapi_cache_errors_total{operation} - Cache operation errors
package cache
