package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/homereel/media-library/internal/models"
)

// SourceRepository reads and seeds the media_sources catalog.
type SourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository constructs the repository.
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// GetByKind returns the source row for kind or sql.ErrNoRows.
func (r *SourceRepository) GetByKind(ctx context.Context, kind models.SourceKind) (*models.MediaSource, error) {
	const query = `SELECT id, kind, name, created_at FROM media_sources WHERE kind = $1`
	var src models.MediaSource
	if err := r.db.GetContext(ctx, &src, query, kind); err != nil {
		return nil, err
	}
	return &src, nil
}

// List returns every configured source.
func (r *SourceRepository) List(ctx context.Context) ([]models.MediaSource, error) {
	const query = `SELECT id, kind, name, created_at FROM media_sources ORDER BY name`
	var sources []models.MediaSource
	if err := r.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("list media sources: %w", err)
	}
	return sources, nil
}

// Upsert creates the source for kind or renames the existing one.
func (r *SourceRepository) Upsert(ctx context.Context, kind models.SourceKind, name string) (*models.MediaSource, error) {
	const query = `INSERT INTO media_sources (id, kind, name) VALUES ($1, $2, $3)
	ON CONFLICT (kind) DO UPDATE SET name = EXCLUDED.name
	RETURNING id, kind, name, created_at`
	var src models.MediaSource
	if err := r.db.GetContext(ctx, &src, query, uuid.NewString(), kind, name); err != nil {
		return nil, fmt.Errorf("upsert media source %s: %w", kind, err)
	}
	return &src, nil
}
