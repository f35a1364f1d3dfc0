package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/homereel/media-library/internal/models"
)

// TagRepository persists tags and their media associations.
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository constructs the repository.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

// GetOrCreate returns the tag named name, creating it when absent.
func (r *TagRepository) GetOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	return r.getOrCreate(ctx, r.db, name)
}

// GetOrCreateWithTx is GetOrCreate bound to an existing transaction.
func (r *TagRepository) GetOrCreateWithTx(ctx context.Context, tx *sqlx.Tx, name string) (*models.Tag, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	return r.getOrCreate(ctx, tx, name)
}

func (r *TagRepository) getOrCreate(ctx context.Context, exec sqlx.ExtContext, name string) (*models.Tag, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	const query = `INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)
	ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
	RETURNING id, name, created_at`
	var tag models.Tag
	if err := sqlx.GetContext(ctx, exec, &tag, query, uuid.NewString(), name, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("get or create tag %s: %w", name, err)
	}
	return &tag, nil
}

// Attach links tagID to mediaID. It reports false when the pair already existed.
func (r *TagRepository) Attach(ctx context.Context, mediaID, tagID, createdBy string) (bool, error) {
	return r.attach(ctx, r.db, mediaID, tagID, createdBy)
}

// AttachWithTx is Attach bound to an existing transaction.
func (r *TagRepository) AttachWithTx(ctx context.Context, tx *sqlx.Tx, mediaID, tagID, createdBy string) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("nil transaction provided")
	}
	return r.attach(ctx, tx, mediaID, tagID, createdBy)
}

func (r *TagRepository) attach(ctx context.Context, exec sqlx.ExtContext, mediaID, tagID, createdBy string) (bool, error) {
	const query = `INSERT INTO media_tags (media_id, tag_id, created_by, created_at) VALUES ($1, $2, $3, $4)
	ON CONFLICT (media_id, tag_id) DO NOTHING`
	res, err := exec.ExecContext(ctx, query, mediaID, tagID, createdBy, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("attach tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attach tag rows: %w", err)
	}
	return affected > 0, nil
}

// GetAssociation returns the link between mediaID and tagID or sql.ErrNoRows.
func (r *TagRepository) GetAssociation(ctx context.Context, mediaID, tagID string) (*models.MediaTag, error) {
	const query = `SELECT media_id, tag_id, created_by, created_at FROM media_tags WHERE media_id = $1 AND tag_id = $2`
	var link models.MediaTag
	if err := r.db.GetContext(ctx, &link, query, mediaID, tagID); err != nil {
		return nil, err
	}
	return &link, nil
}

// Detach removes the link between mediaID and tagID.
func (r *TagRepository) Detach(ctx context.Context, mediaID, tagID string) error {
	const query = `DELETE FROM media_tags WHERE media_id = $1 AND tag_id = $2`
	res, err := r.db.ExecContext(ctx, query, mediaID, tagID)
	if err != nil {
		return fmt.Errorf("detach tag: %w", err)
	}
	return expectAffected(res, "detach tag")
}

// ListByMedia returns the tags on mediaID ordered by name.
func (r *TagRepository) ListByMedia(ctx context.Context, mediaID string) ([]models.MediaTagView, error) {
	const query = `SELECT mt.tag_id, t.name, mt.created_by, mt.created_at
	FROM media_tags mt JOIN tags t ON t.id = mt.tag_id
	WHERE mt.media_id = $1 ORDER BY t.name`
	var tags []models.MediaTagView
	if err := r.db.SelectContext(ctx, &tags, query, mediaID); err != nil {
		return nil, fmt.Errorf("list media tags: %w", err)
	}
	return tags, nil
}
