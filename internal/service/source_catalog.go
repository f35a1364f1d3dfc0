package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/internal/source"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

type sourceRepository interface {
	GetByKind(ctx context.Context, kind models.SourceKind) (*models.MediaSource, error)
	List(ctx context.Context) ([]models.MediaSource, error)
	Upsert(ctx context.Context, kind models.SourceKind, name string) (*models.MediaSource, error)
}

const sourceLookupTimeout = 5 * time.Second

// SourceCatalogConfig sizes the lookup cache.
type SourceCatalogConfig struct {
	Size int
	TTL  time.Duration
}

// SourceCatalog resolves source kinds to persisted media_sources rows.
// Lookups are cached and concurrent misses for the same kind share a query.
type SourceCatalog struct {
	repo   sourceRepository
	cache  *expirable.LRU[models.SourceKind, *models.MediaSource]
	group  singleflight.Group
	logger *zap.Logger
}

// NewSourceCatalog builds the catalog.
func NewSourceCatalog(repo sourceRepository, cfg SourceCatalogConfig, logger *zap.Logger) *SourceCatalog {
	if cfg.Size <= 0 {
		cfg.Size = 32
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourceCatalog{
		repo:   repo,
		cache:  expirable.NewLRU[models.SourceKind, *models.MediaSource](cfg.Size, nil, cfg.TTL),
		logger: logger,
	}
}

// Resolve returns the persisted source for kind. A kind with a policy but no
// row is a deployment problem and surfaces as SourceNotConfigured.
func (c *SourceCatalog) Resolve(ctx context.Context, kind models.SourceKind) (*models.MediaSource, error) {
	if src, ok := c.cache.Get(kind); ok {
		return src, nil
	}

	// The shared query must not die with whichever request started it.
	ch := c.group.DoChan(string(kind), func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sourceLookupTimeout)
		defer cancel()
		src, err := c.repo.GetByKind(lookupCtx, kind)
		if err != nil {
			return nil, err
		}
		c.cache.Add(kind, src)
		return src, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "media source lookup cancelled")
	case res = <-ch:
	}
	v, err := res.Val, res.Err
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.logger.Error("media source missing", zap.String("kind", string(kind)))
			return nil, appErrors.Clone(appErrors.ErrSourceNotConfigured, fmt.Sprintf("media source %s is not configured", kind))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media source")
	}
	return v.(*models.MediaSource), nil
}

// List returns every persisted source.
func (c *SourceCatalog) List(ctx context.Context) ([]models.MediaSource, error) {
	sources, err := c.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list media sources")
	}
	return sources, nil
}

// Seed upserts one row per known policy and refreshes the cache.
func (c *SourceCatalog) Seed(ctx context.Context) ([]models.MediaSource, error) {
	policies := source.Policies()
	out := make([]models.MediaSource, 0, len(policies))
	for _, p := range policies {
		src, err := c.repo.Upsert(ctx, p.Kind, p.DisplayName)
		if err != nil {
			return nil, err
		}
		c.cache.Add(p.Kind, src)
		out = append(out, *src)
	}
	c.logger.Info("media sources seeded", zap.Int("count", len(out)))
	return out, nil
}
