package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homereel/media-library/internal/models"
)

func TestCommentRepositoryCreateFillsTimestamps(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCommentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO comments")).WillReturnResult(sqlmock.NewResult(1, 1))

	comment := &models.Comment{MediaID: "media-1", UserID: "user-1", Body: "lovely"}
	require.NoError(t, repo.Create(context.Background(), comment))
	assert.NotEmpty(t, comment.ID)
	assert.False(t, comment.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepositoryListNewestFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCommentRepository(db)
	newer := time.Now()
	older := newer.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs("media-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "media_id", "user_id", "body", "created_at", "updated_at", "deleted_at"}).
			AddRow("c-2", "media-1", "user-1", "second", newer, newer, nil).
			AddRow("c-1", "media-1", "user-1", "first", older, older, nil))

	comments, err := repo.ListByMedia(context.Background(), "media-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c-2", comments[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepositoryCountAndDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCommentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM comments")).
		WithArgs("media-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE comments SET deleted_at")).
		WithArgs("c-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := repo.CountByMedia(context.Background(), "media-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, repo.SoftDelete(context.Background(), "c-1", time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}
