package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/internal/source"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

type mediaCatalogStore interface {
	GetByID(ctx context.Context, id string) (*models.Media, error)
	AccessState(ctx context.Context, id string) (*models.MediaAccessState, error)
	List(ctx context.Context, filter models.MediaFilter) ([]models.Media, int, error)
	UpdateMetadata(ctx context.Context, media *models.Media) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

type mediaTagLister interface {
	ListByMedia(ctx context.Context, mediaID string) ([]models.MediaTagView, error)
}

type commentCounter interface {
	CountByMedia(ctx context.Context, mediaID string) (int, error)
}

type linkSigner interface {
	Sign(mediaID string) (string, time.Time, error)
}

// UpdateMediaRequest patches editable metadata. Nil fields are left alone and
// blank strings clear the field.
type UpdateMediaRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Visibility  *models.Visibility `json:"visibility"`
	CapturedAt  *time.Time         `json:"captured_at"`
}

// ShareLink is an anonymous stream URL for a LINK-visible item.
type ShareLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MediaServiceConfig configures catalog reads.
type MediaServiceConfig struct {
	GuestView     bool
	PublicBaseURL string
	APIPrefix     string
	CacheTTL      time.Duration
}

// MediaService serves catalog reads and owner edits.
type MediaService struct {
	media    mediaCatalogStore
	tags     mediaTagLister
	comments commentCounter
	links    linkSigner
	cache    *CacheService
	access   AccessPolicy
	logger   *zap.Logger
	cfg      MediaServiceConfig
	now      func() time.Time
}

// NewMediaService constructs MediaService.
func NewMediaService(media mediaCatalogStore, tags mediaTagLister, comments commentCounter, links linkSigner, cache *CacheService, logger *zap.Logger, cfg MediaServiceConfig) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{
		media:    media,
		tags:     tags,
		comments: comments,
		links:    links,
		cache:    cache,
		access:   AccessPolicy{GuestView: cfg.GuestView},
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the detail view of id. A cached entry is served only while the
// row is live and its access fields match; otherwise it is dropped and the
// view is rebuilt from Postgres.
func (s *MediaService) Get(ctx context.Context, id string, actor *models.Identity) (*models.MediaDetail, error) {
	if cached, hit := s.cache.Detail(ctx, id); hit {
		state, err := s.media.AccessState(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				_ = s.cache.InvalidateMedia(ctx, id)
				return nil, appErrors.ErrMediaNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media")
		}
		if state.Matches(&cached.Media) {
			if err := s.access.AuthorizeView(&cached.Media, actor); err != nil {
				return nil, err
			}
			return cached, nil
		}
		s.logger.Debug("stale media detail dropped", zap.String("media_id", id))
		_ = s.cache.InvalidateMedia(ctx, id)
	}

	media, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeView(media, actor); err != nil {
		return nil, err
	}

	detail, err := s.detail(ctx, media)
	if err != nil {
		return nil, err
	}
	_ = s.cache.StoreDetail(ctx, detail, s.cfg.CacheTTL)
	return detail, nil
}

// List returns the media actor may see that match filter.
func (s *MediaService) List(ctx context.Context, filter models.MediaFilter, actor *models.Identity) ([]models.Media, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "limit must be between 1 and 1000")
	}
	if filter.Offset < 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "offset must not be negative")
	}
	if filter.CapturedFrom != nil && filter.CapturedTo != nil && filter.CapturedTo.Before(*filter.CapturedFrom) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "captured_to must not be before captured_from")
	}
	if filter.SourceKind != "" {
		policy, err := source.Lookup(filter.SourceKind)
		if err != nil {
			return nil, nil, err
		}
		filter.SourceKind = policy.Kind
	}
	filter.TapeNumber = strings.TrimSpace(filter.TapeNumber)

	filter = s.access.Filter(filter, actor)
	items, total, err := s.media.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list media")
	}
	if items == nil {
		items = []models.Media{}
	}
	return items, &models.Pagination{Limit: filter.Limit, Offset: filter.Offset, TotalCount: total}, nil
}

// UpdateMetadata applies req to id. Owner or admin only.
func (s *MediaService) UpdateMetadata(ctx context.Context, id string, req UpdateMediaRequest, actor *models.Identity) (*models.MediaDetail, error) {
	media, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeModify(media, actor); err != nil {
		return nil, err
	}

	if req.Title != nil {
		media.Title = blankToNil(*req.Title)
		if media.Title != nil && utf8.RuneCountInString(*media.Title) > source.MaxTitleLength {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("title must be at most %d characters", source.MaxTitleLength))
		}
	}
	if req.Description != nil {
		media.Description = blankToNil(*req.Description)
	}
	if req.Visibility != nil {
		v := models.Visibility(strings.ToUpper(strings.TrimSpace(string(*req.Visibility))))
		if !v.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "visibility must be PRIVATE, LINK or AUTHED")
		}
		media.Visibility = v
	}
	if req.CapturedAt != nil {
		captured := req.CapturedAt.UTC()
		media.CapturedAt = &captured
	}

	if err := s.media.UpdateMetadata(ctx, media); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrMediaNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update media")
	}
	_ = s.cache.InvalidateMedia(ctx, id)
	s.logger.Info("media updated", zap.String("media_id", id), zap.String("user_id", actor.UserID))
	return s.detail(ctx, media)
}

// Delete soft-deletes id, releasing its fingerprint and tape number. The
// stored file is kept.
func (s *MediaService) Delete(ctx context.Context, id string, actor *models.Identity) error {
	media, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.AuthorizeModify(media, actor); err != nil {
		return err
	}
	if err := s.media.SoftDelete(ctx, id, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrMediaNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete media")
	}
	_ = s.cache.InvalidateMedia(ctx, id)
	s.logger.Info("media deleted", zap.String("media_id", id), zap.String("user_id", actor.UserID))
	return nil
}

// ShareLink signs an anonymous stream URL for a LINK-visible item.
func (s *MediaService) ShareLink(ctx context.Context, id string, actor *models.Identity) (*ShareLink, error) {
	media, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeModify(media, actor); err != nil {
		return nil, err
	}
	if media.Visibility != models.VisibilityLink {
		return nil, appErrors.Clone(appErrors.ErrValidation, "share links require LINK visibility")
	}
	if s.links == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "share links are not configured")
	}
	token, expiresAt, err := s.links.Sign(id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign share link")
	}
	link := fmt.Sprintf("%s%s/public/media/%s/stream?token=%s", s.cfg.PublicBaseURL, s.cfg.APIPrefix, url.PathEscape(id), url.QueryEscape(token))
	return &ShareLink{URL: link, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *MediaService) load(ctx context.Context, id string) (*models.Media, error) {
	media, err := s.media.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrMediaNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media")
	}
	return media, nil
}

func (s *MediaService) detail(ctx context.Context, media *models.Media) (*models.MediaDetail, error) {
	tags, err := s.tags.ListByMedia(ctx, media.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tags")
	}
	count, err := s.comments.CountByMedia(ctx, media.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count comments")
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return &models.MediaDetail{Media: *media, Tags: names, CommentCount: count}, nil
}

func blankToNil(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
