package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultSnapshotTTL is how long a fetched snapshot stays fresh
const DefaultSnapshotTTL = 6 * time.Hour

// CachedProvider serves raw snapshots from a cache and falls back to the
// wrapped provider on a miss. Empty snapshots are never cached.
type CachedProvider struct {
	next   domain.RawDataProvider
	cache  domain.CacheRepository
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedProvider wraps next with cache
func NewCachedProvider(next domain.RawDataProvider, cache domain.CacheRepository, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &CachedProvider{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func snapshotKey(category string) string {
	return "raw:" + category
}

// FetchCategory returns the cached snapshot for category or fetches a fresh one
func (p *CachedProvider) FetchCategory(ctx context.Context, category string) (*domain.RawSnapshot, error) {
	key := snapshotKey(category)

	data, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		var snapshot domain.RawSnapshot
		if jsonErr := json.Unmarshal(data, &snapshot); jsonErr == nil {
			p.logger.Debug().Str("category", category).Msg("snapshot cache hit")
			return &snapshot, nil
		}
		p.logger.Warn().Str("category", category).Msg("discarding unreadable cached snapshot")
		_ = p.cache.Delete(ctx, key)
	case !errors.Is(err, domain.ErrCacheMiss):
		p.logger.Warn().Err(err).Str("category", category).Msg("snapshot cache lookup failed")
	}

	snapshot, err := p.next.FetchCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if snapshot.Empty() {
		return snapshot, nil
	}

	data, err = json.Marshal(snapshot)
	if err != nil {
		p.logger.Warn().Err(err).Str("category", category).Msg("failed to encode snapshot for cache")
		return snapshot, nil
	}
	if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
		p.logger.Warn().Err(err).Str("category", category).Msg("failed to cache snapshot")
	}

	return snapshot, nil
}

// Invalidate forgets the cached snapshot for category
func (p *CachedProvider) Invalidate(ctx context.Context, category string) error {
	return p.cache.Delete(ctx, snapshotKey(category))
}
