// Package cache provides a Redis page cache for paging data sources.
package cache

import (
	"time"

	"github.com/Sternrassler/provider-paging/pkg/paging"
)

// PageEntry is a cached page.
type PageEntry struct {
	// Result is the page as returned by the wrapped source.
	Result paging.FetchResult `json:"result"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the page was stored.
	CachedAt time.Time `json:"cached_at"`
}

// NewPageEntry wraps result with an expiry ttl from now.
func NewPageEntry(result paging.FetchResult, ttl time.Duration) *PageEntry {
	now := time.Now()
	return &PageEntry{
		Result:   result,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *PageEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *PageEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
