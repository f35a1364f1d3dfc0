package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/internal/source"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

type mediaReader interface {
	GetByID(ctx context.Context, id string) (*models.Media, error)
}

type tagStore interface {
	GetOrCreate(ctx context.Context, name string) (*models.Tag, error)
	Attach(ctx context.Context, mediaID, tagID, createdBy string) (bool, error)
	GetAssociation(ctx context.Context, mediaID, tagID string) (*models.MediaTag, error)
	Detach(ctx context.Context, mediaID, tagID string) error
	ListByMedia(ctx context.Context, mediaID string) ([]models.MediaTagView, error)
}

// AddTagRequest is the body of a tag attach call.
type AddTagRequest struct {
	Name string `json:"name" validate:"required"`
}

// TagService manages tag associations on media.
type TagService struct {
	media  mediaReader
	tags   tagStore
	cache  *CacheService
	access AccessPolicy
	logger *zap.Logger
}

// NewTagService constructs TagService.
func NewTagService(media mediaReader, tags tagStore, cache *CacheService, guestView bool, logger *zap.Logger) *TagService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagService{media: media, tags: tags, cache: cache, access: AccessPolicy{GuestView: guestView}, logger: logger}
}

// AddTag attaches the normalized name to mediaID, creating the tag on first use.
func (s *TagService) AddTag(ctx context.Context, mediaID, name string, actor *models.Identity) (*models.MediaTagView, error) {
	if _, err := loadViewable(ctx, s.media, s.access, mediaID, actor); err != nil {
		return nil, err
	}

	normalized := source.NormalizeTag(name)
	if normalized == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tag name is required")
	}
	if utf8.RuneCountInString(normalized) > source.MaxTagLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("tag must be at most %d characters", source.MaxTagLength))
	}

	tag, err := s.tags.GetOrCreate(ctx, normalized)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tag")
	}
	created, err := s.tags.Attach(ctx, mediaID, tag.ID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tag media")
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrAlreadyTagged, fmt.Sprintf("media is already tagged %q", normalized))
	}

	_ = s.cache.InvalidateMedia(ctx, mediaID)
	s.logger.Info("tag added", zap.String("media_id", mediaID), zap.String("tag", normalized), zap.String("user_id", actor.UserID))
	link, err := s.tags.GetAssociation(ctx, mediaID, tag.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tag association")
	}
	return &models.MediaTagView{TagID: tag.ID, Name: tag.Name, CreatedBy: link.CreatedBy, CreatedAt: link.CreatedAt}, nil
}

// RemoveTag detaches tagID from mediaID. Only whoever attached it or an admin may.
func (s *TagService) RemoveTag(ctx context.Context, mediaID, tagID string, actor *models.Identity) error {
	if _, err := loadViewable(ctx, s.media, s.access, mediaID, actor); err != nil {
		return err
	}

	link, err := s.tags.GetAssociation(ctx, mediaID, tagID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrTagNotOnMedia
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tag association")
	}
	if !actor.IsAdmin() && link.CreatedBy != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the user who added the tag or an administrator can remove it")
	}

	if err := s.tags.Detach(ctx, mediaID, tagID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrTagNotOnMedia
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove tag")
	}
	_ = s.cache.InvalidateMedia(ctx, mediaID)
	s.logger.Info("tag removed", zap.String("media_id", mediaID), zap.String("tag_id", tagID), zap.String("user_id", actor.UserID))
	return nil
}

// ListTags returns the tags on mediaID.
func (s *TagService) ListTags(ctx context.Context, mediaID string, actor *models.Identity) ([]models.MediaTagView, error) {
	if _, err := loadViewable(ctx, s.media, s.access, mediaID, actor); err != nil {
		return nil, err
	}
	tags, err := s.tags.ListByMedia(ctx, mediaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tags")
	}
	if tags == nil {
		tags = []models.MediaTagView{}
	}
	return tags, nil
}

// loadViewable fetches a live media row and checks that actor may see it.
func loadViewable(ctx context.Context, repo mediaReader, access AccessPolicy, mediaID string, actor *models.Identity) (*models.Media, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	media, err := repo.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrMediaNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media")
	}
	if err := access.AuthorizeView(media, actor); err != nil {
		return nil, err
	}
	return media, nil
}
