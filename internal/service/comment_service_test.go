package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

func TestCommentServiceAddTrims(t *testing.T) {
	comments := &commentRepoStub{}
	svc := NewCommentService(newMediaRepoStub(storedMedia("m1", userA.UserID, models.VisibilityAuthed)), comments, nil, false, nil, nil)

	comment, err := svc.AddComment(context.Background(), "m1", AddCommentRequest{Body: "  lovely day \n"}, userB)
	require.NoError(t, err)
	assert.Equal(t, "lovely day", comment.Body)
	assert.Equal(t, userB.UserID, comment.UserID)
	assert.NotEmpty(t, comment.ID)
}

func TestCommentServiceAddValidation(t *testing.T) {
	svc := NewCommentService(newMediaRepoStub(storedMedia("m1", userA.UserID, models.VisibilityAuthed)), &commentRepoStub{}, nil, false, nil, nil)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, "m1", AddCommentRequest{Body: "   "}, userA)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.AddComment(ctx, "m1", AddCommentRequest{Body: strings.Repeat("é", MaxCommentLength)}, userA)
	assert.NoError(t, err)

	_, err = svc.AddComment(ctx, "m1", AddCommentRequest{Body: strings.Repeat("a", MaxCommentLength+1)}, userA)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCommentServiceDeletedMediaIsNotFound(t *testing.T) {
	deleted := storedMedia("gone", userA.UserID, models.VisibilityAuthed)
	at := time.Now()
	deleted.DeletedAt = &at
	svc := NewCommentService(newMediaRepoStub(deleted), &commentRepoStub{}, nil, false, nil, nil)

	_, err := svc.AddComment(context.Background(), "gone", AddCommentRequest{Body: "hi"}, userA)
	assert.True(t, errors.Is(err, appErrors.ErrMediaNotFound))

	_, err = svc.ListComments(context.Background(), "gone", userA)
	assert.True(t, errors.Is(err, appErrors.ErrMediaNotFound))
}

func TestCommentServiceListNewestFirst(t *testing.T) {
	svc := NewCommentService(newMediaRepoStub(storedMedia("m1", userA.UserID, models.VisibilityAuthed)), &commentRepoStub{}, nil, false, nil, nil)
	ctx := context.Background()

	for _, body := range []string{"first", "second", "third"} {
		_, err := svc.AddComment(ctx, "m1", AddCommentRequest{Body: body}, userA)
		require.NoError(t, err)
	}

	list, err := svc.ListComments(ctx, "m1", userB)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Body)
	assert.Equal(t, "first", list[2].Body)
}

func TestCommentServiceDeletePermissions(t *testing.T) {
	svc := NewCommentService(newMediaRepoStub(storedMedia("m1", userA.UserID, models.VisibilityAuthed)), &commentRepoStub{}, nil, false, nil, nil)
	ctx := context.Background()

	comment, err := svc.AddComment(ctx, "m1", AddCommentRequest{Body: "mine"}, userB)
	require.NoError(t, err)

	err = svc.DeleteComment(ctx, "m1", comment.ID, userA)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.DeleteComment(ctx, "m1", comment.ID, userB))

	err = svc.DeleteComment(ctx, "m1", comment.ID, adminIdentity)
	assert.True(t, errors.Is(err, appErrors.ErrCommentNotFound))

	list, err := svc.ListComments(ctx, "m1", userA)
	require.NoError(t, err)
	assert.Empty(t, list)

	other, err := svc.AddComment(ctx, "m1", AddCommentRequest{Body: "admin can remove"}, userB)
	require.NoError(t, err)
	assert.NoError(t, svc.DeleteComment(ctx, "m1", other.ID, adminIdentity))
}
