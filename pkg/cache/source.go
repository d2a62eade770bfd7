package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/provider-paging/pkg/paging"
)

// DefaultTTL is used when SourceConfig.TTL is zero.
const DefaultTTL = time.Minute

// SourceConfig configures a CachingSource.
type SourceConfig struct {
	// Name namespaces the cache keys of the wrapped source.
	Name string

	// TTL is how long a page stays cached.
	TTL time.Duration
}

// CachingSource serves pages from Redis and fills the cache from the wrapped source on a miss.
// Only full pages are cached. A cached page reports the total count as of the time it was
// stored, so callers that add records mid-collection should Invalidate.
type CachingSource struct {
	next    paging.DataSource
	manager *Manager
	config  SourceConfig
	logger  zerolog.Logger
}

// NewCachingSource wraps next with the page cache.
func NewCachingSource(next paging.DataSource, manager *Manager, config SourceConfig) *CachingSource {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Name == "" {
		config.Name = "default"
	}
	return &CachingSource{
		next:    next,
		manager: manager,
		config:  config,
		logger:  log.With().Str("component", "cache").Str("source", config.Name).Logger(),
	}
}

// FetchPage implements paging.DataSource.
func (s *CachingSource) FetchPage(ctx context.Context, req paging.PageRequest) (*paging.FetchResult, error) {
	key := PageKey{Source: s.config.Name, Offset: req.Offset, Limit: req.Limit}

	entry, err := s.manager.Get(ctx, key)
	switch {
	case err == nil:
		s.logger.Debug().Str("key", key.String()).Msg("Cache hit")
		result := entry.Result
		return &result, nil
	case errors.Is(err, ErrCacheMiss):
		s.logger.Debug().Str("key", key.String()).Msg("Cache miss")
	default:
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
	}

	result, err := s.next.FetchPage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	if result == nil {
		return nil, nil
	}

	if !cacheable(req, result) {
		s.logger.Debug().
			Str("key", key.String()).
			Int("records", len(result.Records)).
			Msg("Short page not cached")
		return result, nil
	}

	if err := s.manager.Set(ctx, key, NewPageEntry(*result, s.config.TTL)); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache page")
	} else {
		s.logger.Debug().
			Str("key", key.String()).
			Dur("ttl", s.config.TTL).
			Msg("Cached page")
	}

	return result, nil
}

// cacheable reports whether result is a full page. Short and empty pages sit at the
// end of the collection, where appended records and a changed total show up first.
func cacheable(req paging.PageRequest, result *paging.FetchResult) bool {
	return req.Limit > 0 && len(result.Records) >= req.Limit
}

// Invalidate drops every cached page of the wrapped source.
func (s *CachingSource) Invalidate(ctx context.Context) (int, error) {
	return s.manager.Invalidate(ctx, s.config.Name)
}

var _ paging.DataSource = (*CachingSource)(nil)
