package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const mediaDetailPrefix = "media:detail:"

// MediaCacheKey is the cache key holding the detail view of one media item.
func MediaCacheKey(id string) string {
	return mediaDetailPrefix + id
}

// CacheService keeps media detail views in Redis. Every method is safe on a
// nil receiver and degrades to a miss when caching is off.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger.Named("media_cache"), enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Detail returns the cached detail view of id. Backend failures count as a
// miss so reads fall through to Postgres.
func (s *CacheService) Detail(ctx context.Context, id string) (*models.MediaDetail, bool) {
	if !s.Enabled() || id == "" {
		return nil, false
	}
	var detail models.MediaDetail
	start := time.Now()
	err := s.repo.Get(ctx, MediaCacheKey(id), &detail)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
	case errors.Is(err, appErrors.ErrCacheMiss):
		return nil, false
	default:
		s.logger.Warn("media detail read failed", zap.String("media_id", id), zap.Error(err))
		return nil, false
	}
	// An entry written for another id is stale or corrupt.
	if detail.ID != id {
		s.logger.Warn("dropping mismatched media detail", zap.String("media_id", id), zap.String("cached_id", detail.ID))
		_ = s.InvalidateMedia(ctx, id)
		return nil, false
	}
	return &detail, true
}

// StoreDetail caches detail under its media id. A non-positive ttl uses the
// configured default.
func (s *CacheService) StoreDetail(ctx context.Context, detail *models.MediaDetail, ttl time.Duration) error {
	if !s.Enabled() || detail == nil || detail.ID == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.repo.Set(ctx, MediaCacheKey(detail.ID), detail, ttl); err != nil {
		s.logger.Warn("media detail write failed", zap.String("media_id", detail.ID), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateMedia drops the detail views of the given media ids. Callers treat
// failures as best effort; the entry still expires with its ttl.
func (s *CacheService) InvalidateMedia(ctx context.Context, ids ...string) error {
	if !s.Enabled() {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			keys = append(keys, MediaCacheKey(id))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("media detail invalidate failed", zap.Strings("media_ids", ids), zap.Error(err))
		return err
	}
	return nil
}
