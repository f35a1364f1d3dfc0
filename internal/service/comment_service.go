package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

// MaxCommentLength bounds a comment body in characters.
const MaxCommentLength = 5000

type commentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, mediaID, id string) (*models.Comment, error)
	ListByMedia(ctx context.Context, mediaID string) ([]models.Comment, error)
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

// AddCommentRequest is the body of a comment call.
type AddCommentRequest struct {
	Body string `json:"body" validate:"required"`
}

// CommentService manages comments on media.
type CommentService struct {
	media     mediaReader
	comments  commentStore
	cache     *CacheService
	access    AccessPolicy
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCommentService constructs CommentService.
func NewCommentService(media mediaReader, comments commentStore, cache *CacheService, guestView bool, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		media:     media,
		comments:  comments,
		cache:     cache,
		access:    AccessPolicy{GuestView: guestView},
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddComment stores a trimmed comment on mediaID.
func (s *CommentService) AddComment(ctx context.Context, mediaID string, req AddCommentRequest, actor *models.Identity) (*models.Comment, error) {
	if _, err := loadViewable(ctx, s.media, s.access, mediaID, actor); err != nil {
		return nil, err
	}

	req.Body = strings.TrimSpace(req.Body)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "comment body is required")
	}
	if utf8.RuneCountInString(req.Body) > MaxCommentLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
	}

	now := s.now()
	comment := &models.Comment{
		MediaID:   mediaID,
		UserID:    actor.UserID,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add comment")
	}
	_ = s.cache.InvalidateMedia(ctx, mediaID)
	s.logger.Info("comment added", zap.String("media_id", mediaID), zap.String("comment_id", comment.ID), zap.String("user_id", actor.UserID))
	return comment, nil
}

// ListComments returns live comments on mediaID, newest first.
func (s *CommentService) ListComments(ctx context.Context, mediaID string, actor *models.Identity) ([]models.Comment, error) {
	if _, err := loadViewable(ctx, s.media, s.access, mediaID, actor); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByMedia(ctx, mediaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// DeleteComment hides a comment. Only its author or an admin may.
func (s *CommentService) DeleteComment(ctx context.Context, mediaID, commentID string, actor *models.Identity) error {
	if _, err := loadViewable(ctx, s.media, s.access, mediaID, actor); err != nil {
		return err
	}
	comment, err := s.comments.GetByID(ctx, mediaID, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrCommentNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	if !actor.IsAdmin() && comment.UserID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author or an administrator can delete this comment")
	}
	if err := s.comments.SoftDelete(ctx, commentID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrCommentNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	_ = s.cache.InvalidateMedia(ctx, mediaID)
	s.logger.Info("comment deleted", zap.String("media_id", mediaID), zap.String("comment_id", commentID), zap.String("user_id", actor.UserID))
	return nil
}
