package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

func TestTagServiceAddNormalizes(t *testing.T) {
	tags := newTagRepoStub()
	svc := NewTagService(newMediaRepoStub(storedMedia("m1", userA.UserID, models.VisibilityAuthed)), tags, nil, false, nil)
	ctx := context.Background()

	view, err := svc.AddTag(ctx, "m1", "  Beach ", userB)
	require.NoError(t, err)
	assert.Equal(t, "beach", view.Name)
	assert.Equal(t, userB.UserID, view.CreatedBy)

	_, err = svc.AddTag(ctx, "m1", "BEACH", userA)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyTagged))
	assert.Equal(t, 1, tags.linksFor("m1"))
}

func TestTagServiceAddRejectsBadNames(t *testing.T) {
	svc := NewTagService(newMediaRepoStub(storedMedia("m1", userA.UserID, models.VisibilityAuthed)), newTagRepoStub(), nil, false, nil)
	ctx := context.Background()

	_, err := svc.AddTag(ctx, "m1", "   ", userA)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.AddTag(ctx, "m1", strings.Repeat("x", 65), userA)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.AddTag(ctx, "missing", "beach", userA)
	assert.True(t, errors.Is(err, appErrors.ErrMediaNotFound))

	_, err = svc.AddTag(ctx, "m1", "beach", nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestTagServiceRemovePermissions(t *testing.T) {
	tags := newTagRepoStub()
	svc := NewTagService(newMediaRepoStub(storedMedia("m1", userA.UserID, models.VisibilityAuthed)), tags, nil, false, nil)
	ctx := context.Background()

	view, err := svc.AddTag(ctx, "m1", "birthday", userA)
	require.NoError(t, err)

	err = svc.RemoveTag(ctx, "m1", view.TagID, userB)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, 1, tags.linksFor("m1"))

	require.NoError(t, svc.RemoveTag(ctx, "m1", view.TagID, adminIdentity))
	assert.Equal(t, 0, tags.linksFor("m1"))

	err = svc.RemoveTag(ctx, "m1", view.TagID, adminIdentity)
	assert.True(t, errors.Is(err, appErrors.ErrTagNotOnMedia))
}

func TestTagServiceCreatorCanRemove(t *testing.T) {
	svc := NewTagService(newMediaRepoStub(storedMedia("m1", userA.UserID, models.VisibilityAuthed)), newTagRepoStub(), nil, false, nil)
	ctx := context.Background()

	view, err := svc.AddTag(ctx, "m1", "holiday", userB)
	require.NoError(t, err)
	assert.NoError(t, svc.RemoveTag(ctx, "m1", view.TagID, userB))
}

func TestTagServiceListRespectsVisibility(t *testing.T) {
	svc := NewTagService(newMediaRepoStub(storedMedia("p1", userA.UserID, models.VisibilityPrivate)), newTagRepoStub(), nil, false, nil)
	ctx := context.Background()

	_, err := svc.AddTag(ctx, "p1", "secret", userA)
	require.NoError(t, err)

	list, err := svc.ListTags(ctx, "p1", userA)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "secret", list[0].Name)

	_, err = svc.ListTags(ctx, "p1", userB)
	assert.True(t, errors.Is(err, appErrors.ErrMediaNotFound))
}
