package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/homereel/media-library/internal/models"
)

// CommentRepository persists media comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create stores a comment and fills its server-side fields.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	const query = `INSERT INTO comments (id, media_id, user_id, body, created_at, updated_at)
	VALUES (:id, :media_id, :user_id, :body, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetByID returns a non-deleted comment on mediaID or sql.ErrNoRows.
func (r *CommentRepository) GetByID(ctx context.Context, mediaID, id string) (*models.Comment, error) {
	const query = `SELECT id, media_id, user_id, body, created_at, updated_at, deleted_at
	FROM comments WHERE id = $1 AND media_id = $2 AND deleted_at IS NULL`
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, id, mediaID); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByMedia returns non-deleted comments newest first.
func (r *CommentRepository) ListByMedia(ctx context.Context, mediaID string) ([]models.Comment, error) {
	const query = `SELECT id, media_id, user_id, body, created_at, updated_at, deleted_at
	FROM comments WHERE media_id = $1 AND deleted_at IS NULL
	ORDER BY created_at DESC, id DESC`
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, mediaID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// CountByMedia counts non-deleted comments on mediaID.
func (r *CommentRepository) CountByMedia(ctx context.Context, mediaID string) (int, error) {
	const query = `SELECT COUNT(*) FROM comments WHERE media_id = $1 AND deleted_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, mediaID); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

// SoftDelete hides a comment.
func (r *CommentRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE comments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete comment: %w", err)
	}
	return expectAffected(res, "soft delete comment")
}
