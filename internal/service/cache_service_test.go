package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

type memoryCacheRepo struct {
	mu         sync.Mutex
	data       map[string][]byte
	ttls       map[string]time.Duration
	failGet    error
	failDelete error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return m.failGet
	}
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func TestCacheServiceDetailRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	_, hit := cache.Detail(ctx, "m1")
	assert.False(t, hit)

	title := "Beach"
	detail := &models.MediaDetail{Media: models.Media{ID: "m1", Title: &title}, Tags: []string{"summer"}, CommentCount: 2}
	require.NoError(t, cache.StoreDetail(ctx, detail, 0))
	assert.Equal(t, 5*time.Minute, repo.ttls["media:detail:m1"])

	got, hit := cache.Detail(ctx, "m1")
	require.True(t, hit)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Beach", *got.Title)
	assert.Equal(t, []string{"summer"}, got.Tags)
	assert.Equal(t, 2, got.CommentCount)

	require.NoError(t, cache.InvalidateMedia(ctx, "m1", ""))
	_, hit = cache.Detail(ctx, "m1")
	assert.False(t, hit)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(2), snap.CacheMisses)
	assert.InDelta(t, 1.0/3.0, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceDropsMismatchedEntry(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, MediaCacheKey("m1"), models.MediaDetail{Media: models.Media{ID: "m2"}}, time.Minute))

	_, hit := cache.Detail(ctx, "m1")
	assert.False(t, hit)
	assert.NotContains(t, repo.data, "media:detail:m1")
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	require.NoError(t, cache.StoreDetail(ctx, &models.MediaDetail{Media: models.Media{ID: "m1"}}, 0))
	assert.Empty(t, repo.data)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	_, hit := nilCache.Detail(ctx, "m1")
	assert.False(t, hit)
	assert.NoError(t, nilCache.InvalidateMedia(ctx, "m1"))
}

func TestCacheServiceBackendErrorIsMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.failGet = errors.New("redis down")
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)

	_, hit := cache.Detail(context.Background(), "m1")
	assert.False(t, hit)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheMisses)
}
