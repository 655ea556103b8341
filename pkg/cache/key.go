package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey represents a unique identifier for a cached response.
type CacheKey struct {
	// Host is the upstream host (e.g., "swapi.dev")
	Host string

	// Endpoint is the resource path (e.g., "/api/films/1/")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"format": "json"})
	QueryParams url.Values
}

// KeyFromURL builds the cache key of an absolute resource URL.
func KeyFromURL(u *url.URL) CacheKey {
	return CacheKey{
		Host:        u.Host,
		Endpoint:    u.Path,
		QueryParams: u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: swapi:host:endpoint:query1=val1
//
// Example:
//
//	swapi:swapi.dev:api/films/1
func (k CacheKey) String() string {
	parts := []string{"swapi"}

	if k.Host != "" {
		parts = append(parts, strings.ToLower(k.Host))
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
