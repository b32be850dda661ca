package services

import (
	"context"
	"strings"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	"dataplug/pkg/cache"
)

// CachedDirectoryService memoizes search results per term until the
// catalog changes or the TTL lapses.
type CachedDirectoryService struct {
	base  ports.DirectoryService
	cache *cache.Cache[[]*domain.Stream]
}

func NewCachedDirectoryService(base ports.DirectoryService, ttl time.Duration) *CachedDirectoryService {
	return &CachedDirectoryService{
		base:  base,
		cache: cache.New[[]*domain.Stream](ttl),
	}
}

var (
	_ ports.DirectoryService = (*CachedDirectoryService)(nil)
	_ ports.CatalogListener  = (*CachedDirectoryService)(nil)
)

// Search serves from cache when possible. Empty results are not cached
// since they may stem from a degraded store.
func (s *CachedDirectoryService) Search(ctx context.Context, term string) []*domain.Stream {
	key := "search:" + strings.ToLower(term)
	if strings.TrimSpace(term) == "" {
		key = "search:"
	}

	if cached, ok := s.cache.Get(key); ok {
		return cloneStreams(cached)
	}

	results := s.base.Search(ctx, term)
	if len(results) > 0 {
		s.cache.Set(key, cloneStreams(results))
	}
	return results
}

// StreamAdded drops every cached search.
func (s *CachedDirectoryService) StreamAdded(ctx context.Context, stream *domain.Stream) {
	s.Invalidate()
}

func (s *CachedDirectoryService) Invalidate() {
	s.cache.InvalidatePrefix("search:")
}

func (s *CachedDirectoryService) Stop() {
	s.cache.Stop()
}

func cloneStreams(streams []*domain.Stream) []*domain.Stream {
	out := make([]*domain.Stream, len(streams))
	for i, s := range streams {
		out[i] = s.Clone()
	}
	return out
}
