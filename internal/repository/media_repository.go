package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/homereel/media-library/internal/models"
)

const mediaColumns = `m.id, m.kind, m.title, m.description, m.storage_path, m.filename, m.ext, m.mime_type,
       m.byte_size, m.content_hash, m.duration_sec, m.width, m.height, m.captured_at, m.uploaded_by,
       m.source_id, s.kind AS source_kind, m.tape_number, m.source_ref, m.visibility, m.status,
       m.created_at, m.updated_at, m.deleted_at`

const mediaFrom = ` FROM media m JOIN media_sources s ON s.id = m.source_id`

// MediaRepository handles media record persistence.
type MediaRepository struct {
	db *sqlx.DB
}

// NewMediaRepository constructs the repository.
func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// CreateWithTx inserts a media row inside an existing transaction. Unique
// index violations come back as ErrContentHashTaken or ErrTapeNumberTaken.
func (r *MediaRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, media *models.Media) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if media.ID == "" {
		media.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if media.CreatedAt.IsZero() {
		media.CreatedAt = now
	}
	media.UpdatedAt = media.CreatedAt

	const query = `INSERT INTO media
	(id, kind, title, description, storage_path, filename, ext, mime_type, byte_size, content_hash,
	 duration_sec, width, height, captured_at, uploaded_by, source_id, tape_number, source_ref,
	 visibility, status, created_at, updated_at)
	VALUES (:id, :kind, :title, :description, :storage_path, :filename, :ext, :mime_type, :byte_size, :content_hash,
	 :duration_sec, :width, :height, :captured_at, :uploaded_by, :source_id, :tape_number, :source_ref,
	 :visibility, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, media); err != nil {
		if translated := translateUniqueViolation(err); translated != err {
			return translated
		}
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

// GetByID returns a non-deleted media row or sql.ErrNoRows.
func (r *MediaRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	query := `SELECT ` + mediaColumns + mediaFrom + ` WHERE m.id = $1 AND m.deleted_at IS NULL`
	var media models.Media
	if err := r.db.GetContext(ctx, &media, query, id); err != nil {
		return nil, err
	}
	return &media, nil
}

// AccessState reads the visibility, owner and status of a non-deleted row.
func (r *MediaRepository) AccessState(ctx context.Context, id string) (*models.MediaAccessState, error) {
	const query = `SELECT visibility, uploaded_by, status FROM media WHERE id = $1 AND deleted_at IS NULL`
	var state models.MediaAccessState
	if err := r.db.GetContext(ctx, &state, query, id); err != nil {
		return nil, err
	}
	return &state, nil
}

// ExistsActiveContentHash reports whether a non-deleted row already carries hash.
func (r *MediaRepository) ExistsActiveContentHash(ctx context.Context, hash string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM media WHERE content_hash = $1 AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, hash); err != nil {
		return false, fmt.Errorf("check content hash: %w", err)
	}
	return exists, nil
}

// ExistsActiveTapeNumber reports whether a non-deleted row already carries tape.
func (r *MediaRepository) ExistsActiveTapeNumber(ctx context.Context, tape string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM media WHERE tape_number = $1 AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, tape); err != nil {
		return false, fmt.Errorf("check tape number: %w", err)
	}
	return exists, nil
}

// List returns non-deleted media matching filter together with the total count.
func (r *MediaRepository) List(ctx context.Context, filter models.MediaFilter) ([]models.Media, int, error) {
	args := make([]interface{}, 0, 8)
	conditions := []string{"m.deleted_at IS NULL"}

	if !filter.AllVisibility {
		if filter.ViewerID != "" {
			args = append(args, filter.ViewerID)
			conditions = append(conditions, fmt.Sprintf("(m.visibility <> 'PRIVATE' OR m.uploaded_by = $%d)", len(args)))
		} else {
			conditions = append(conditions, "m.visibility <> 'PRIVATE'")
		}
	}
	if filter.CapturedFrom != nil {
		args = append(args, *filter.CapturedFrom)
		conditions = append(conditions, fmt.Sprintf("m.captured_at >= $%d", len(args)))
	}
	if filter.CapturedTo != nil {
		args = append(args, *filter.CapturedTo)
		conditions = append(conditions, fmt.Sprintf("m.captured_at <= $%d", len(args)))
	}
	if filter.SourceKind != "" {
		args = append(args, filter.SourceKind)
		conditions = append(conditions, fmt.Sprintf("s.kind = $%d", len(args)))
	}
	if filter.TapeNumber != "" {
		args = append(args, filter.TapeNumber)
		conditions = append(conditions, fmt.Sprintf("m.tape_number = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("m.status = $%d", len(args)))
	}
	if filter.UploadedBy != "" {
		args = append(args, filter.UploadedBy)
		conditions = append(conditions, fmt.Sprintf("m.uploaded_by = $%d", len(args)))
	}
	if len(filter.TagIDs) > 0 {
		args = append(args, pq.Array(filter.TagIDs))
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM media_tags mt WHERE mt.media_id = m.id AND mt.tag_id = ANY($%d))", len(args)))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+mediaFrom+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count media: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + mediaColumns + mediaFrom + where +
		fmt.Sprintf(" ORDER BY m.captured_at DESC NULLS LAST, m.created_at DESC LIMIT %d OFFSET %d", limit, offset)

	var items []models.Media
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list media: %w", err)
	}
	return items, total, nil
}

// UpdateMetadata persists the editable fields of media.
func (r *MediaRepository) UpdateMetadata(ctx context.Context, media *models.Media) error {
	media.UpdatedAt = time.Now().UTC()
	const query = `UPDATE media SET title = :title, description = :description, visibility = :visibility,
	captured_at = :captured_at, updated_at = :updated_at
	WHERE id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, media)
	if err != nil {
		return fmt.Errorf("update media metadata: %w", err)
	}
	return expectAffected(res, "update media metadata")
}

// UpdateProbe stores probed dimensions and the resulting status.
func (r *MediaRepository) UpdateProbe(ctx context.Context, id string, width, height *int, status models.MediaStatus) error {
	const query = `UPDATE media SET width = COALESCE($2, width), height = COALESCE($3, height), status = $4, updated_at = $5
	WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, width, height, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update media probe: %w", err)
	}
	return expectAffected(res, "update media probe")
}

// SoftDelete marks a media row as deleted, releasing its fingerprint and tape number.
func (r *MediaRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE media SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete media: %w", err)
	}
	return expectAffected(res, "soft delete media")
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
