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
	"github.com/homereel/media-library/pkg/storage"
)

func newMediaServiceFixture(items ...models.Media) (*MediaService, *mediaRepoStub, *tagRepoStub, *commentRepoStub) {
	media := newMediaRepoStub(items...)
	tags := newTagRepoStub()
	comments := &commentRepoStub{}
	signer := storage.NewLinkSigner("secret", time.Hour)
	svc := NewMediaService(media, tags, comments, signer, nil, nil, MediaServiceConfig{PublicBaseURL: "https://media.example", APIPrefix: "/api/v1"})
	return svc, media, tags, comments
}

func TestMediaServiceGetDetail(t *testing.T) {
	svc, _, tags, comments := newMediaServiceFixture(storedMedia("m1", userA.UserID, models.VisibilityAuthed))
	ctx := context.Background()
	tag, _ := tags.GetOrCreate(ctx, "beach")
	_, _ = tags.Attach(ctx, "m1", tag.ID, userA.UserID)
	require.NoError(t, comments.Create(ctx, &models.Comment{MediaID: "m1", UserID: userB.UserID, Body: "nice"}))

	detail, err := svc.Get(ctx, "m1", userB)
	require.NoError(t, err)
	assert.Equal(t, []string{"beach"}, detail.Tags)
	assert.Equal(t, 1, detail.CommentCount)
}

func TestMediaServiceGetVisibility(t *testing.T) {
	svc, _, _, _ := newMediaServiceFixture(
		storedMedia("private", userA.UserID, models.VisibilityPrivate),
		storedMedia("authed", userA.UserID, models.VisibilityAuthed),
	)
	ctx := context.Background()

	_, err := svc.Get(ctx, "private", userA)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "private", adminIdentity)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, "private", userB)
	assert.True(t, errors.Is(err, appErrors.ErrMediaNotFound))

	_, err = svc.Get(ctx, "authed", guestIdentity)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Get(ctx, "authed", nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Get(ctx, "missing", userA)
	assert.True(t, errors.Is(err, appErrors.ErrMediaNotFound))
}

func TestMediaServiceGetRevalidatesCachedDetail(t *testing.T) {
	media := newMediaRepoStub(
		storedMedia("m1", userA.UserID, models.VisibilityAuthed),
		storedMedia("m2", userA.UserID, models.VisibilityAuthed),
	)
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.failDelete = errors.New("redis: i/o timeout")
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewMediaService(media, newTagRepoStub(), &commentRepoStub{}, nil, cache, nil, MediaServiceConfig{})
	ctx := context.Background()

	_, err := svc.Get(ctx, "m1", userB)
	require.NoError(t, err)
	_, err = svc.Get(ctx, "m2", userB)
	require.NoError(t, err)
	require.Contains(t, cacheRepo.data, MediaCacheKey("m1"))

	require.NoError(t, svc.Delete(ctx, "m1", userA))
	require.Contains(t, cacheRepo.data, MediaCacheKey("m1"))
	_, err = svc.Get(ctx, "m1", userB)
	assert.True(t, errors.Is(err, appErrors.ErrMediaNotFound))

	private := models.VisibilityPrivate
	_, err = svc.UpdateMetadata(ctx, "m2", UpdateMediaRequest{Visibility: &private}, userA)
	require.NoError(t, err)
	_, err = svc.Get(ctx, "m2", userB)
	assert.True(t, errors.Is(err, appErrors.ErrMediaNotFound))

	detail, err := svc.Get(ctx, "m2", userA)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPrivate, detail.Visibility)
}

func TestMediaServiceListScopesVisibility(t *testing.T) {
	svc, repo, _, _ := newMediaServiceFixture(storedMedia("m1", userA.UserID, models.VisibilityAuthed))
	ctx := context.Background()

	items, page, err := svc.List(ctx, models.MediaFilter{SourceKind: "videotape", TapeNumber: " T001 "}, userA)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 100, page.Limit)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, models.SourceVideotape, repo.lastFilter.SourceKind)
	assert.Equal(t, "T001", repo.lastFilter.TapeNumber)
	assert.Equal(t, userA.UserID, repo.lastFilter.ViewerID)
	assert.False(t, repo.lastFilter.AllVisibility)

	_, _, err = svc.List(ctx, models.MediaFilter{}, adminIdentity)
	require.NoError(t, err)
	assert.True(t, repo.lastFilter.AllVisibility)

	_, _, err = svc.List(ctx, models.MediaFilter{}, guestIdentity)
	require.NoError(t, err)
	assert.Equal(t, guestIdentity.UserID, repo.lastFilter.UploadedBy)

	_, _, err = svc.List(ctx, models.MediaFilter{Limit: 1001}, userA)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, err = svc.List(ctx, models.MediaFilter{SourceKind: "FLICKR"}, userA)
	assert.True(t, errors.Is(err, appErrors.ErrUnknownSourceKind))
}

func TestMediaServiceUpdateMetadata(t *testing.T) {
	m := storedMedia("m1", userA.UserID, models.VisibilityAuthed)
	m.Title = strPtr("old")
	svc, repo, _, _ := newMediaServiceFixture(m)
	ctx := context.Background()

	link := models.Visibility("link")
	detail, err := svc.UpdateMetadata(ctx, "m1", UpdateMediaRequest{Title: strPtr("  New title "), Description: strPtr("   "), Visibility: &link}, userA)
	require.NoError(t, err)
	require.NotNil(t, detail.Title)
	assert.Equal(t, "New title", *detail.Title)
	assert.Nil(t, detail.Description)
	assert.Equal(t, models.VisibilityLink, repo.items["m1"].Visibility)

	_, err = svc.UpdateMetadata(ctx, "m1", UpdateMediaRequest{Title: strPtr("x")}, userB)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	bad := models.Visibility("PUBLIC")
	_, err = svc.UpdateMetadata(ctx, "m1", UpdateMediaRequest{Visibility: &bad}, adminIdentity)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.UpdateMetadata(ctx, "m1", UpdateMediaRequest{Title: strPtr(strings.Repeat("a", 256))}, adminIdentity)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestMediaServiceDelete(t *testing.T) {
	svc, repo, _, _ := newMediaServiceFixture(storedMedia("m1", userA.UserID, models.VisibilityAuthed))
	ctx := context.Background()

	err := svc.Delete(ctx, "m1", userB)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.Delete(ctx, "m1", userA))
	assert.NotNil(t, repo.items["m1"].DeletedAt)

	err = svc.Delete(ctx, "m1", adminIdentity)
	assert.True(t, errors.Is(err, appErrors.ErrMediaNotFound))
}

func TestMediaServiceShareLink(t *testing.T) {
	svc, _, _, _ := newMediaServiceFixture(
		storedMedia("linked", userA.UserID, models.VisibilityLink),
		storedMedia("authed", userA.UserID, models.VisibilityAuthed),
	)
	ctx := context.Background()

	link, err := svc.ShareLink(ctx, "linked", userA)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "https://media.example/api/v1/public/media/linked/stream?token="))
	assert.NoError(t, storage.NewLinkSigner("secret", time.Hour).Verify(link.Token, "linked"))

	_, err = svc.ShareLink(ctx, "authed", userA)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.ShareLink(ctx, "linked", userB)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
